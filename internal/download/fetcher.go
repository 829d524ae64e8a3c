package download

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/AnMaster15/mashupp/internal/model"
	"github.com/AnMaster15/mashupp/internal/platform"
)

// yt-dlp settings
const (
	// AudioFormatSelector picks the best audio-only stream, falling back to
	// the best combined stream
	AudioFormatSelector = "bestaudio/best"

	// AudioCodec and AudioQuality are passed to the FFmpegExtractAudio
	// post-processor
	AudioCodec   = "mp3"
	AudioQuality = "192K"

	// OutputExtension is what the post-processor produces
	OutputExtension = ".mp3"

	// OutputNameTemplate follows the job prefix in the output template
	OutputNameTemplate = "%(title)s.%(ext)s"

	ProgressInterval = 500 * time.Millisecond
)

// Markers in yt-dlp stderr that point at a post-processing failure rather
// than stream resolution
var transcodeMarkers = []string{
	"postprocessing",
	"ffmpeg",
	"ffprobe",
	"audio conversion failed",
}

// YTDLPFetcher extracts audio with yt-dlp and transcodes it to mp3
type YTDLPFetcher struct {
	runner extractRunner
	logger *slog.Logger
}

// NewYTDLPFetcher creates a fetcher. An empty executable uses yt-dlp from
// PATH (or the one installed by Install).
func NewYTDLPFetcher(executable string, logger *slog.Logger) *YTDLPFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &YTDLPFetcher{
		runner: &ytdlpRunner{executable: executable, logger: logger},
		logger: logger,
	}
}

// Install downloads a yt-dlp binary into the library cache when none is
// available
func Install(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("install yt-dlp: %w", err)
	}
	return nil
}

// Fetch downloads and transcodes one job. It never panics; every failure is
// a *model.FetchError.
func (f *YTDLPFetcher) Fetch(ctx context.Context, job model.DownloadJob, workDir string) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			path = ""
			err = f.fail(job, model.FetchCausePanic, fmt.Errorf("%v", r))
		}
	}()

	template := filepath.Join(workDir, job.FilePrefix()+OutputNameTemplate)
	out, runErr := f.runner.Extract(ctx, job.URL, template)
	if runErr != nil {
		return "", f.fail(job, classifyExtractError(out), runErr)
	}

	path, findErr := platform.FindFileByPrefix(workDir, job.FilePrefix(), OutputExtension)
	if findErr != nil {
		return "", f.fail(job, model.FetchCauseMissing, findErr)
	}

	f.logger.Debug("audio fetched",
		slog.Int("job", job.Index),
		slog.String("url", job.URL),
		slog.String("path", path),
	)
	return path, nil
}

// fail logs a failure with its cause and builds the error value
func (f *YTDLPFetcher) fail(job model.DownloadJob, cause model.FetchCause, err error) error {
	f.logger.Warn("audio fetch failed",
		slog.Int("job", job.Index),
		slog.String("url", job.URL),
		slog.String("cause", string(cause)),
		slog.Any("error", err),
	)
	return &model.FetchError{Index: job.Index, URL: job.URL, Cause: cause, Err: err}
}

// classifyExtractError tells a stream resolution failure from a transcode one
func classifyExtractError(out extractOutput) model.FetchCause {
	stderr := strings.ToLower(out.Stderr)
	for _, marker := range transcodeMarkers {
		if strings.Contains(stderr, marker) {
			return model.FetchCauseTranscode
		}
	}
	return model.FetchCauseResolve
}

// ytdlpRunner runs yt-dlp through the go-ytdlp command builder
type ytdlpRunner struct {
	executable string
	logger     *slog.Logger
}

// Extract resolves the best audio stream for url and converts it to mp3
func (r *ytdlpRunner) Extract(ctx context.Context, url, outputTemplate string) (extractOutput, error) {
	dl := ytdlp.New().
		Format(AudioFormatSelector).
		ExtractAudio().
		AudioFormat(AudioCodec).
		AudioQuality(AudioQuality).
		NoPlaylist().
		ForceOverwrites().
		RestrictFilenames().
		Output(outputTemplate)
	if r.executable != "" {
		dl.SetExecutable(r.executable)
	}

	dl.ProgressFunc(ProgressInterval, func(update ytdlp.ProgressUpdate) {
		if update.TotalBytes <= 0 {
			return
		}
		r.logger.Debug("yt-dlp progress",
			slog.String("url", url),
			slog.Int("percent", int(float64(update.DownloadedBytes)/float64(update.TotalBytes)*100)),
		)
	})

	res, err := dl.Run(ctx, url)
	var out extractOutput
	if res != nil {
		out.ExitCode = res.ExitCode
		out.Stderr = res.Stderr
	}
	return out, err
}
