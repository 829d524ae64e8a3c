package model

import (
	"fmt"
	"strings"
)

// Trim duration bounds in seconds
const (
	MinTrimSeconds = 1
	MaxTrimSeconds = 60
)

// Candidate is one search result
type Candidate struct {
	Title string
	URL   string
}

// GetDisplayTitle returns the title, or the URL when the title is empty
func (c Candidate) GetDisplayTitle() string {
	if title := strings.TrimSpace(c.Title); title != "" {
		return title
	}
	return c.URL
}

// URLs extracts the playable URLs from candidates, preserving order
func URLs(candidates []Candidate) []string {
	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		urls = append(urls, c.URL)
	}
	return urls
}

// DownloadJob is one unit of fetch work. Index is 1-based and only used to
// keep temporary filenames disjoint between concurrent jobs.
type DownloadJob struct {
	Index int
	URL   string
}

// FilePrefix returns the filename prefix reserved for this job's output
func (j DownloadJob) FilePrefix() string {
	return fmt.Sprintf("song_%d_", j.Index)
}

// FetchResult is the outcome of one job. An empty LocalPath means failure.
type FetchResult struct {
	SourceIndex int
	URL         string
	LocalPath   string
	Err         error
}

// OK reports whether the job produced a local file
func (r FetchResult) OK() bool {
	return r.LocalPath != ""
}

// MashupSpec describes what the assembler should build
type MashupSpec struct {
	Files       []string
	TrimSeconds int
}

// Validate checks the trim bounds and that at least one file is given
func (s MashupSpec) Validate() error {
	if err := ValidateTrim(s.TrimSeconds); err != nil {
		return err
	}
	if len(s.Files) == 0 {
		return fmt.Errorf("%w: no input files", ErrAssembly)
	}
	return nil
}

// ValidateTrim checks that seconds is within the accepted trim range
func ValidateTrim(seconds int) error {
	if seconds < MinTrimSeconds || seconds > MaxTrimSeconds {
		return fmt.Errorf("%w: trim duration must be between %d and %d seconds, got %d",
			ErrInvalidInput, MinTrimSeconds, MaxTrimSeconds, seconds)
	}
	return nil
}
