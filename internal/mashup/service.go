// Package mashup builds the final audio file from the fetched clips with
// ffmpeg and ffprobe.
package mashup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/AnMaster15/mashupp/internal/model"
)

// FFmpeg constants for the mashup output
const (
	// Audio codec settings
	AudioCodec   = "libmp3lame"
	AudioBitrate = "192k"

	// Executable and I/O constants
	FFmpegCommand       = "ffmpeg"
	FFprobeCommand      = "ffprobe"
	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration"
	FFprobeOutputFormat = "csv=p=0"
	FFmpegLogLevel      = "error"
	OutputLabel         = "[out]"

	// stderrTailLength bounds how much ffmpeg output ends up in errors
	stderrTailLength = 512
)

// Segment is one trimmed clip of the mashup
type Segment struct {
	Path     string
	Duration time.Duration
}

// Result describes a written mashup
type Result struct {
	OutputPath string
	Segments   []Segment
	// Skipped are inputs that could not be decoded
	Skipped []string
	Total   time.Duration
}

// Service assembles mashups by running ffmpeg once over all inputs
type Service struct {
	ffmpegPath  string
	ffprobePath string
	runner      commandRunner
	logger      *slog.Logger
	stat        func(name string) (os.FileInfo, error)
	remove      func(name string) error
}

// NewService creates an assembler. Empty paths fall back to the binaries on
// PATH.
func NewService(ffmpegPath, ffprobePath string, logger *slog.Logger) *Service {
	if ffmpegPath == "" {
		ffmpegPath = FFmpegCommand
	}
	if ffprobePath == "" {
		ffprobePath = FFprobeCommand
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		runner:      &execRunner{},
		logger:      logger,
		stat:        os.Stat,
		remove:      os.Remove,
	}
}

// Assemble takes the leading trimSeconds of every file, in the given order,
// and writes their concatenation to outputPath. A clip shorter than the trim
// is used whole. Files that ffprobe cannot read are skipped.
func (s *Service) Assemble(ctx context.Context, files []string, trimSeconds int, outputPath string) (Result, error) {
	spec := model.MashupSpec{Files: files, TrimSeconds: trimSeconds}
	if err := spec.Validate(); err != nil {
		if !errors.Is(err, model.ErrAssembly) {
			err = fmt.Errorf("%w: %w", model.ErrAssembly, err)
		}
		return Result{}, err
	}
	if outputPath == "" {
		return Result{}, fmt.Errorf("%w: output path is empty", model.ErrAssembly)
	}

	trim := time.Duration(trimSeconds) * time.Second
	result := Result{OutputPath: outputPath, Skipped: []string{}}
	usable := make([]string, 0, len(files))

	for _, file := range files {
		duration, err := s.getAudioDuration(ctx, file)
		if err != nil {
			s.logger.Warn("skipping undecodable clip",
				slog.String("path", file),
				slog.Any("error", err),
			)
			result.Skipped = append(result.Skipped, file)
			continue
		}

		segment := Segment{Path: file, Duration: min(trim, duration)}
		result.Segments = append(result.Segments, segment)
		result.Total += segment.Duration
		usable = append(usable, file)
	}

	if len(usable) == 0 {
		return Result{Skipped: result.Skipped}, fmt.Errorf("%w: none of %d clips could be decoded", model.ErrAssembly, len(files))
	}

	args := BuildFFmpegArgs(usable, trimSeconds, outputPath)
	out, err := s.runner.Run(ctx, s.ffmpegPath, args...)
	if err != nil {
		s.removePartial(outputPath)
		return Result{Skipped: result.Skipped}, fmt.Errorf("%w: ffmpeg exited with code %d: %v: %s",
			model.ErrAssembly, out.ExitCode, err, stderrTail(out.Stderr))
	}

	info, err := s.stat(outputPath)
	if err != nil || info.Size() == 0 {
		s.removePartial(outputPath)
		return Result{Skipped: result.Skipped}, fmt.Errorf("%w: ffmpeg produced no output at %s", model.ErrAssembly, outputPath)
	}

	s.logger.Info("mashup assembled",
		slog.String("path", outputPath),
		slog.Int("segments", len(result.Segments)),
		slog.Int("skipped", len(result.Skipped)),
		slog.String("duration", result.Total.String()),
	)
	return result, nil
}

// BuildFFmpegArgs builds the ffmpeg command arguments. Every input is cut to
// its first trimSeconds and the cuts are concatenated in argument order.
func BuildFFmpegArgs(inputs []string, trimSeconds int, outputPath string) []string {
	args := []string{
		"-y",           // Overwrite output file
		"-hide_banner", // Quiet startup
		"-loglevel", FFmpegLogLevel,
	}
	for _, input := range inputs {
		args = append(args, "-i", input)
	}

	args = append(args,
		"-filter_complex", BuildFilterGraph(len(inputs), trimSeconds),
		"-map", OutputLabel,
		"-c:a", AudioCodec, // Audio codec
		"-b:a", AudioBitrate, // Audio bitrate
		outputPath, // Output file
	)
	return args
}

// BuildFilterGraph returns the atrim/concat graph for n inputs
func BuildFilterGraph(n, trimSeconds int) string {
	var graph strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&graph, "[%d:a]atrim=0:%d,asetpts=PTS-STARTPTS[a%d];", i, trimSeconds, i)
	}
	for i := 0; i < n; i++ {
		fmt.Fprintf(&graph, "[a%d]", i)
	}
	fmt.Fprintf(&graph, "concat=n=%d:v=0:a=1%s", n, OutputLabel)
	return graph.String()
}

// getAudioDuration gets the duration of an audio file using ffprobe
func (s *Service) getAudioDuration(ctx context.Context, filePath string) (time.Duration, error) {
	out, err := s.runner.Run(ctx, s.ffprobePath, "-v", FFprobeLogLevel, "-show_entries", FFprobeShowEntries, "-of", FFprobeOutputFormat, filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w: %s", err, stderrTail(out.Stderr))
	}

	durationStr := strings.TrimSpace(out.Stdout)
	seconds, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", durationStr, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("clip has no audio duration: %s", durationStr)
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

// removePartial deletes a half-written output file
func (s *Service) removePartial(outputPath string) {
	if err := s.remove(outputPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove partial mashup",
			slog.String("path", outputPath),
			slog.Any("error", err),
		)
	}
}

// stderrTail keeps the end of a process stderr, where ffmpeg prints the cause
func stderrTail(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if len(stderr) > stderrTailLength {
		return "..." + stderr[len(stderr)-stderrTailLength:]
	}
	return stderr
}

// execRunner executes commands via os/exec
type execRunner struct{}

// Run executes one command and captures stdout, stderr and the exit code
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}
