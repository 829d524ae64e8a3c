package mashup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AnMaster15/mashupp/internal/model"
)

// fakeRunner answers ffprobe from a duration table and simulates ffmpeg by
// writing the output file
type fakeRunner struct {
	durations   map[string]string // path -> ffprobe stdout
	ffmpegFails bool
	writeEmpty  bool

	ffmpegArgs  []string
	ffmpegCalls int
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	switch name {
	case FFprobeCommand:
		path := args[len(args)-1]
		out, ok := r.durations[path]
		if !ok {
			return commandResult{Stderr: "Invalid data found when processing input", ExitCode: 1}, errors.New("exit status 1")
		}
		return commandResult{Stdout: out + "\n"}, nil
	case FFmpegCommand:
		r.ffmpegCalls++
		r.ffmpegArgs = args
		output := args[len(args)-1]
		data := []byte("ID3-mashup")
		if r.writeEmpty {
			data = nil
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return commandResult{ExitCode: 1}, err
		}
		if r.ffmpegFails {
			return commandResult{Stderr: "Conversion failed!", ExitCode: 1}, errors.New("exit status 1")
		}
		return commandResult{}, nil
	}
	return commandResult{ExitCode: -1}, fmt.Errorf("unexpected command %s", name)
}

func newTestService(r *fakeRunner) *Service {
	s := NewService("", "", nil)
	s.runner = r
	return s
}

func TestNewService(t *testing.T) {
	service := NewService("", "", nil)
	if service.ffmpegPath != FFmpegCommand || service.ffprobePath != FFprobeCommand {
		t.Errorf("Expected default binaries, got %s and %s", service.ffmpegPath, service.ffprobePath)
	}

	service = NewService("/opt/ffmpeg", "/opt/ffprobe", nil)
	if service.ffmpegPath != "/opt/ffmpeg" || service.ffprobePath != "/opt/ffprobe" {
		t.Errorf("Expected configured binaries, got %s and %s", service.ffmpegPath, service.ffprobePath)
	}
}

func TestBuildFilterGraph(t *testing.T) {
	tests := []struct {
		n        int
		trim     int
		expected string
	}{
		{1, 5, "[0:a]atrim=0:5,asetpts=PTS-STARTPTS[a0];[a0]concat=n=1:v=0:a=1[out]"},
		{
			2, 10,
			"[0:a]atrim=0:10,asetpts=PTS-STARTPTS[a0];[1:a]atrim=0:10,asetpts=PTS-STARTPTS[a1];" +
				"[a0][a1]concat=n=2:v=0:a=1[out]",
		},
	}

	for _, test := range tests {
		result := BuildFilterGraph(test.n, test.trim)
		if result != test.expected {
			t.Errorf("BuildFilterGraph(%d, %d) = %s, expected %s", test.n, test.trim, result, test.expected)
		}
	}
}

func TestBuildFFmpegArgs(t *testing.T) {
	args := BuildFFmpegArgs([]string{"/a.mp3", "/b.mp3"}, 10, "/out.mp3")

	expectedArgs := []string{
		"-y",
		"-hide_banner",
		"-loglevel", FFmpegLogLevel,
		"-i", "/a.mp3",
		"-i", "/b.mp3",
		"-filter_complex", BuildFilterGraph(2, 10),
		"-map", OutputLabel,
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"/out.mp3",
	}

	if len(args) != len(expectedArgs) {
		t.Fatalf("Expected %d args, got %d: %v", len(expectedArgs), len(args), args)
	}
	for i, expected := range expectedArgs {
		if args[i] != expected {
			t.Errorf("Arg %d: expected %s, got %s", i, expected, args[i])
		}
	}

	// Same inputs give identical commands
	again := BuildFFmpegArgs([]string{"/a.mp3", "/b.mp3"}, 10, "/out.mp3")
	if strings.Join(args, " ") != strings.Join(again, " ") {
		t.Error("Expected deterministic arguments")
	}
}

func TestAssemble_TrimsAndConcatenates(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "song_2_a.mp3")
	second := filepath.Join(dir, "song_1_b.mp3")
	output := filepath.Join(dir, "mashup.mp3")

	runner := &fakeRunner{durations: map[string]string{
		first:  "30.000000",
		second: "45.500000",
	}}
	service := newTestService(runner)

	result, err := service.Assemble(context.Background(), []string{first, second}, 10, output)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result.OutputPath != output {
		t.Errorf("Expected output %s, got %s", output, result.OutputPath)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(result.Segments))
	}
	if result.Segments[0].Path != first || result.Segments[1].Path != second {
		t.Errorf("Segments out of order: %+v", result.Segments)
	}
	if result.Total != 20*time.Second {
		t.Errorf("Expected total 20s, got %s", result.Total)
	}
	if runner.ffmpegCalls != 1 {
		t.Errorf("Expected one ffmpeg run, got %d", runner.ffmpegCalls)
	}

	// Inputs appear in the order given
	if runner.ffmpegArgs[4] != "-i" || runner.ffmpegArgs[5] != first || runner.ffmpegArgs[7] != second {
		t.Errorf("Unexpected input order: %v", runner.ffmpegArgs)
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("Expected output file to exist: %v", err)
	}
}

func TestAssemble_SegmentDurations(t *testing.T) {
	tests := []struct {
		probe    string
		trim     int
		expected time.Duration
	}{
		{"60.0", 10, 10 * time.Second},
		{"4.5", 10, 4500 * time.Millisecond},
		{"10", 10, 10 * time.Second},
		{"120.25", 60, 60 * time.Second},
	}

	for _, test := range tests {
		dir := t.TempDir()
		clip := filepath.Join(dir, "song_1_x.mp3")
		service := newTestService(&fakeRunner{durations: map[string]string{clip: test.probe}})

		result, err := service.Assemble(context.Background(), []string{clip}, test.trim, filepath.Join(dir, "mashup.mp3"))
		if err != nil {
			t.Fatalf("probe %s trim %d: unexpected error %v", test.probe, test.trim, err)
		}
		if result.Segments[0].Duration != test.expected {
			t.Errorf("probe %s trim %d: expected %s, got %s", test.probe, test.trim, test.expected, result.Segments[0].Duration)
		}
		if result.Total != test.expected {
			t.Errorf("probe %s trim %d: expected total %s, got %s", test.probe, test.trim, test.expected, result.Total)
		}
	}
}

func TestAssemble_SkipsUndecodable(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "song_1_good.mp3")
	bad := filepath.Join(dir, "song_2_bad.mp3")
	zero := filepath.Join(dir, "song_3_zero.mp3")

	runner := &fakeRunner{durations: map[string]string{good: "12", zero: "0"}}
	service := newTestService(runner)

	result, err := service.Assemble(context.Background(), []string{bad, good, zero}, 5, filepath.Join(dir, "mashup.mp3"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(result.Segments) != 1 || result.Segments[0].Path != good {
		t.Errorf("Expected only the good clip, got %+v", result.Segments)
	}
	if len(result.Skipped) != 2 {
		t.Errorf("Expected 2 skipped clips, got %v", result.Skipped)
	}
	for _, arg := range runner.ffmpegArgs {
		if arg == bad || arg == zero {
			t.Errorf("Skipped clip %s passed to ffmpeg", arg)
		}
	}
}

func TestAssemble_Errors(t *testing.T) {
	dir := t.TempDir()
	clip := filepath.Join(dir, "song_1_x.mp3")

	tests := []struct {
		name   string
		files  []string
		trim   int
		output string
		runner *fakeRunner
	}{
		{"no files", nil, 10, filepath.Join(dir, "a.mp3"), &fakeRunner{}},
		{"trim too small", []string{clip}, 0, filepath.Join(dir, "b.mp3"), &fakeRunner{}},
		{"trim too large", []string{clip}, 61, filepath.Join(dir, "c.mp3"), &fakeRunner{}},
		{"empty output path", []string{clip}, 10, "", &fakeRunner{}},
		{"nothing decodable", []string{clip}, 10, filepath.Join(dir, "d.mp3"), &fakeRunner{durations: map[string]string{}}},
		{"ffmpeg fails", []string{clip}, 10, filepath.Join(dir, "e.mp3"), &fakeRunner{durations: map[string]string{clip: "30"}, ffmpegFails: true}},
		{"empty output", []string{clip}, 10, filepath.Join(dir, "f.mp3"), &fakeRunner{durations: map[string]string{clip: "30"}, writeEmpty: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestService(tt.runner)

			_, err := service.Assemble(context.Background(), tt.files, tt.trim, tt.output)
			if !errors.Is(err, model.ErrAssembly) {
				t.Fatalf("Expected ErrAssembly, got %v", err)
			}
			if tt.output != "" {
				if _, statErr := os.Stat(tt.output); !os.IsNotExist(statErr) {
					t.Errorf("Expected no output file left at %s", tt.output)
				}
			}
		})
	}
}

func TestStderrTail(t *testing.T) {
	if got := stderrTail("  short \n"); got != "short" {
		t.Errorf("Expected trimmed stderr, got %q", got)
	}

	long := strings.Repeat("x", stderrTailLength) + "cause"
	got := stderrTail(long)
	if !strings.HasSuffix(got, "cause") || !strings.HasPrefix(got, "...") {
		t.Errorf("Expected the tail of stderr, got %q", got)
	}
}
