package download

import (
	"context"

	"github.com/AnMaster15/mashupp/internal/model"
)

// Fetcher downloads the audio of one job into workDir and returns the local
// path of the produced mp3. Failures are returned as *model.FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, job model.DownloadJob, workDir string) (string, error)
}

// Coordinator fetches a batch of URLs concurrently
type Coordinator interface {
	SetProgressCallback(func(Progress))
	SetFailureCallback(func(model.FetchResult))
	FetchAll(ctx context.Context, urls []string, workDir string) Batch
}

// extractRunner runs one audio extraction for a URL
type extractRunner interface {
	Extract(ctx context.Context, url, outputTemplate string) (extractOutput, error)
}

// extractOutput is what the fetcher needs from a finished extraction
type extractOutput struct {
	ExitCode int
	Stderr   string
}
