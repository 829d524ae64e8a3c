package model

import (
	"errors"
	"fmt"
)

// Error taxonomy of a run. Component errors wrap one of these so callers can
// classify them with errors.Is.
var (
	ErrSearch       = errors.New("search failed")
	ErrFetch        = errors.New("fetch failed")
	ErrAssembly     = errors.New("assembly failed")
	ErrNotify       = errors.New("notification failed")
	ErrConfig       = errors.New("configuration error")
	ErrInvalidInput = errors.New("invalid input")
)

// FetchCause distinguishes why a single fetch failed
type FetchCause string

const (
	FetchCauseResolve   FetchCause = "resolve"
	FetchCauseTranscode FetchCause = "transcode"
	FetchCauseMissing   FetchCause = "missing"
	FetchCausePanic     FetchCause = "panic"
)

// FetchError is a per-job failure. All causes classify as ErrFetch.
type FetchError struct {
	Index int
	URL   string
	Cause FetchCause
	Err   error
}

// Error formats the failure with its job index and cause
func (e *FetchError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("fetch job %d (%s): %s", e.Index, e.URL, e.Cause)
	}
	return fmt.Sprintf("fetch job %d (%s): %s: %v", e.Index, e.URL, e.Cause, e.Err)
}

// Unwrap exposes the underlying error
func (e *FetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is makes every FetchError match ErrFetch
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// StageError is a run failure tagged with the stage that produced it
type StageError struct {
	Stage   RunState
	Message string
	Err     error
}

// Error formats stage failures for logs and the CLI
func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
