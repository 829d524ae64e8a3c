package mashup

import (
	"context"
)

// Assembler trims and concatenates audio files into one mp3
type Assembler interface {
	Assemble(ctx context.Context, files []string, trimSeconds int, outputPath string) (Result, error)
}

// commandResult is what a finished external process left behind
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution so tests need no ffmpeg
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}
