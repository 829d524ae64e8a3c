package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/AnMaster15/mashupp/internal/app"
	"github.com/AnMaster15/mashupp/internal/config"
	"github.com/AnMaster15/mashupp/internal/download"
	"github.com/AnMaster15/mashupp/internal/mashup"
	"github.com/AnMaster15/mashupp/internal/model"
	"github.com/AnMaster15/mashupp/internal/notify"
	"github.com/AnMaster15/mashupp/internal/platform"
	"github.com/AnMaster15/mashupp/internal/search"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppName = "YouTube Mashup Creator"

	DefaultTrimSeconds = 10
	EventPollInterval  = 200 * time.Millisecond
	EventBufferSize    = 1000
)

// Exit codes
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitUsage  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	req, err := parseRequest(args, stdin, stdout, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		fmt.Fprintln(stderr, err)
		return ExitUsage
	}

	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUsage
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	logger.Info("starting", slog.String("app", AppName), slog.String("version", version))

	ctx := context.Background()
	if cfg.InstallYTDLP {
		if err := download.Install(ctx); err != nil {
			logger.Error("yt-dlp install failed", slog.Any("error", err))
			return ExitFailed
		}
	}

	orch := newOrchestrator(cfg, logger)
	report, err := runWithEvents(ctx, orch, req, stdout)
	if err != nil {
		logger.Error("run aborted", slog.String("run", report.RunID), slog.Any("error", err))
		if errors.Is(err, model.ErrInvalidInput) {
			return ExitUsage
		}
		return ExitFailed
	}

	fmt.Fprintf(stdout, "Mashup of %d clips (%s) sent to %s\n", len(report.Segments), report.Duration.Round(time.Second), req.Recipient)
	return ExitOK
}

// parseRequest reads the flags and prompts for the email when it is missing
func parseRequest(args []string, stdin io.Reader, stdout, stderr io.Writer) (app.Request, error) {
	fs := flag.NewFlagSet("mashup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	trim := fs.Int("trim", DefaultTrimSeconds, fmt.Sprintf("seconds taken from the start of each song (%d-%d)", model.MinTrimSeconds, model.MaxTrimSeconds))
	email := fs.String("email", "", "address the mashup is sent to")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "%s v%s\n\nCreates a mashup of the top search results and emails it to you.\n\nUsage:\n  mashup [-trim N] [-email ADDRESS]\n\n", AppName, version)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return app.Request{}, err
	}

	req := app.Request{TrimSeconds: *trim, Recipient: strings.TrimSpace(*email)}
	if req.Recipient == "" {
		fmt.Fprint(stdout, "Enter your email address: ")
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return app.Request{}, fmt.Errorf("read email: %w", err)
		}
		req.Recipient = strings.TrimSpace(line)
	}

	if err := app.ValidateRequest(req); err != nil {
		return app.Request{}, err
	}
	return req, nil
}

// newOrchestrator wires every stage from the configuration
func newOrchestrator(cfg *config.Config, logger *slog.Logger) *app.Orchestrator {
	var source search.Source
	if cfg.PlaylistID != "" {
		playlist := platform.NewPlaylistSource(cfg.PlaylistID, logger)
		playlist.SetTimeout(cfg.SearchTimeout)
		source = playlist
	} else {
		source = search.NewClient(cfg.APIKey, search.WithLogger(logger))
	}

	fetcher := download.NewService(
		download.NewYTDLPFetcher(cfg.YTDLPPath, logger),
		cfg.Workers,
		download.WithRankOrder(cfg.Order == config.OrderRank),
		download.WithStartRate(cfg.FetchRate),
		download.WithLogger(logger),
	)

	return app.New(app.Dependencies{
		Source:    source,
		Fetcher:   fetcher,
		Assembler: mashup.NewService(cfg.FFmpegPath, cfg.FFprobePath, logger),
		Sender:    notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SenderEmail, cfg.EmailPassword, logger),
		Bus:       app.NewEventBus(EventBufferSize),
		Logger:    logger,
	}, app.Options{
		Query:         cfg.Query,
		MaxResults:    cfg.MaxResults,
		WorkDir:       cfg.WorkDir,
		Subject:       cfg.Subject,
		Body:          cfg.Body,
		SearchTimeout: cfg.SearchTimeout,
	})
}

// runWithEvents runs the orchestrator and renders its events until it returns
func runWithEvents(ctx context.Context, orch *app.Orchestrator, req app.Request, out io.Writer) (app.Report, error) {
	type outcome struct {
		report app.Report
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		report, err := orch.Run(ctx, req)
		done <- outcome{report, err}
	}()

	var seq int64
	ticker := time.NewTicker(EventPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			seq = renderEvents(out, orch.Events().Since(seq), seq)
		case res := <-done:
			renderEvents(out, orch.Events().Since(seq), seq)
			return res.report, res.err
		}
	}
}

// renderEvents prints events and returns the last sequence number seen
func renderEvents(out io.Writer, events []app.Event, seq int64) int64 {
	for _, e := range events {
		switch e.Type {
		case app.EventTypeState:
			fmt.Fprintf(out, "==> %s\n", e.State)
		case app.EventTypeProgress:
			fmt.Fprintf(out, "    downloaded %d/%d (%d%%)\n", e.Completed, e.Total, percent(e.Completed, e.Total))
		case app.EventTypeFailure:
			fmt.Fprintf(out, "    skipped: %s\n", e.Message)
		case app.EventTypeMessage:
			fmt.Fprintln(out, e.Message)
		case app.EventTypeError:
			fmt.Fprintf(out, "error: %s\n", e.Message)
		}
		seq = e.Seq
	}
	return seq
}

func percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return completed * 100 / total
}
