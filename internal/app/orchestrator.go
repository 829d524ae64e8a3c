// Package app drives one mashup run from search to cleanup.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AnMaster15/mashupp/internal/download"
	"github.com/AnMaster15/mashupp/internal/mashup"
	"github.com/AnMaster15/mashupp/internal/model"
	"github.com/AnMaster15/mashupp/internal/notify"
	"github.com/AnMaster15/mashupp/internal/platform"
	"github.com/AnMaster15/mashupp/internal/search"
)

// User-facing messages
const (
	MsgMissingEmail   = "Please enter your email address."
	MsgNoVideos       = "No videos found. Please try again later."
	MsgFetchFailed    = "Failed to download audio files. Please try again."
	MsgAssemblyFailed = "Failed to create the mashup. Please try again."
	MsgEmailFailed    = "Failed to send email. Please try again."
	MsgEmailSent      = "Email sent successfully!"

	// OutputFileName is the mashup file inside the run working directory
	OutputFileName = "mashup.mp3"
)

// Request is what the user asks for
type Request struct {
	TrimSeconds int
	Recipient   string
}

// Report summarizes a finished run
type Report struct {
	RunID      string
	State      model.RunState
	Candidates int
	Fetched    int
	Failures   []model.FetchResult
	Segments   []mashup.Segment
	Skipped    []string
	Duration   time.Duration
	Messages   []string
	// CleanupErr is set when the working directory could not be removed
	CleanupErr error
}

// Options are the per-process settings a run needs
type Options struct {
	Query         string
	MaxResults    int
	WorkDir       string
	Subject       string
	Body          string
	SearchTimeout time.Duration
}

// Dependencies are the pipeline stages
type Dependencies struct {
	Source    search.Source
	Fetcher   download.Coordinator
	Assembler mashup.Assembler
	Sender    notify.Sender
	Bus       *EventBus
	Logger    *slog.Logger
}

// Orchestrator runs the pipeline. One orchestrator executes one run at a
// time; independent runs use independent orchestrators.
type Orchestrator struct {
	deps     Dependencies
	opts     Options
	running  atomic.Bool
	newRunID func() (string, error)
}

// New creates an orchestrator
func New(deps Dependencies, opts Options) *Orchestrator {
	if deps.Bus == nil {
		deps.Bus = NewEventBus(0)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Orchestrator{
		deps:     deps,
		opts:     opts,
		newRunID: generateRunID,
	}
}

// Events returns the bus the orchestrator publishes to
func (o *Orchestrator) Events() *EventBus {
	return o.deps.Bus
}

// run carries the per-run state through the stages
type run struct {
	id      string
	machine *stateMachine
	report  *Report
	logger  *slog.Logger
}

// Run executes search, fetch, assemble, notify and cleanup for req. The
// working directory is removed in every trailing state. An aborted run
// returns a *model.StageError naming the failed stage.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Report, error) {
	if err := ValidateRequest(req); err != nil {
		return Report{State: model.RunStateIdle}, err
	}
	if !o.running.CompareAndSwap(false, true) {
		return Report{State: model.RunStateIdle}, ErrRunInProgress
	}
	defer o.running.Store(false)

	runID, err := o.newRunID()
	if err != nil {
		return Report{State: model.RunStateIdle}, fmt.Errorf("generate run id: %w", err)
	}

	report := Report{RunID: runID, State: model.RunStateIdle}
	r := &run{
		id:      runID,
		machine: newStateMachine(),
		report:  &report,
		logger:  o.deps.Logger.With(slog.String("run", runID)),
	}

	workDir, err := platform.NewWorkDir(o.opts.WorkDir, runID)
	if err != nil {
		return report, fmt.Errorf("create working directory: %w", err)
	}
	r.logger.Info("run started",
		slog.String("work_dir", workDir),
		slog.Int("trim_seconds", req.TrimSeconds),
	)

	runErr := o.pipeline(ctx, r, req, workDir)

	o.transition(r, model.RunStateCleaningUp)
	if err := platform.RemoveWorkDir(workDir); err != nil {
		r.logger.Error("cleanup failed", slog.String("work_dir", workDir), slog.Any("error", err))
		report.CleanupErr = err
		o.publish(r, Event{Type: EventTypeError, Message: err.Error()})
	}

	final := model.RunStateDone
	if runErr != nil {
		final = model.RunStateAborted
	}
	o.transition(r, final)

	r.logger.Info("run finished",
		slog.String("state", final.String()),
		slog.Int("candidates", report.Candidates),
		slog.Int("fetched", report.Fetched),
		slog.Int("segments", len(report.Segments)),
	)
	return report, runErr
}

// pipeline runs the stages up to and including Notifying
func (o *Orchestrator) pipeline(ctx context.Context, r *run, req Request, workDir string) error {
	// Searching
	o.transition(r, model.RunStateSearching)
	searchCtx := ctx
	if o.opts.SearchTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, o.opts.SearchTimeout)
		defer cancel()
	}
	candidates, err := o.deps.Source.Search(searchCtx, o.opts.Query, o.opts.MaxResults)
	if err != nil {
		r.logger.Warn("search failed", slog.Any("error", err))
		o.publish(r, Event{Type: EventTypeError, Message: err.Error()})
	}
	if len(candidates) > o.opts.MaxResults && o.opts.MaxResults > 0 {
		candidates = candidates[:o.opts.MaxResults]
	}
	r.report.Candidates = len(candidates)
	if len(candidates) == 0 {
		o.message(r, MsgNoVideos)
		return &model.StageError{Stage: model.RunStateSearching, Message: "no videos found", Err: err}
	}

	// Fetching
	o.transition(r, model.RunStateFetching)
	o.deps.Fetcher.SetProgressCallback(func(p download.Progress) {
		o.publish(r, Event{Type: EventTypeProgress, Completed: p.Completed, Total: p.Total})
	})
	o.deps.Fetcher.SetFailureCallback(func(res model.FetchResult) {
		o.publish(r, Event{Type: EventTypeFailure, Message: res.Err.Error()})
	})
	batch := o.deps.Fetcher.FetchAll(ctx, model.URLs(candidates), workDir)
	r.report.Fetched = len(batch.Paths)
	r.report.Failures = batch.Failures
	if len(batch.Paths) == 0 {
		o.message(r, MsgFetchFailed)
		return &model.StageError{
			Stage:   model.RunStateFetching,
			Message: fmt.Sprintf("all %d downloads failed", batch.Total),
			Err:     firstFailure(batch.Failures),
		}
	}

	// Assembling
	o.transition(r, model.RunStateAssembling)
	outputPath := filepath.Join(workDir, OutputFileName)
	result, err := o.deps.Assembler.Assemble(ctx, batch.Paths, req.TrimSeconds, outputPath)
	r.report.Skipped = result.Skipped
	if err != nil {
		o.message(r, MsgAssemblyFailed)
		return &model.StageError{Stage: model.RunStateAssembling, Message: "mashup could not be built", Err: err}
	}
	r.report.Segments = result.Segments
	r.report.Duration = result.Total

	// Notifying
	o.transition(r, model.RunStateNotifying)
	err = o.deps.Sender.Send(ctx, notify.Message{
		To:             req.Recipient,
		Subject:        o.opts.Subject,
		Body:           o.opts.Body,
		AttachmentPath: result.OutputPath,
	})
	if err != nil {
		o.message(r, MsgEmailFailed)
		return &model.StageError{Stage: model.RunStateNotifying, Message: "email could not be sent", Err: err}
	}
	o.message(r, MsgEmailSent)
	return nil
}

// transition moves the run forward and publishes the new state. The
// pipeline only requests valid edges, so a rejected one is a programming
// error and is logged.
func (o *Orchestrator) transition(r *run, to model.RunState) {
	if err := r.machine.Transition(to); err != nil {
		r.logger.Error("state transition rejected", slog.Any("error", err))
		return
	}
	r.report.State = to
	o.publish(r, Event{Type: EventTypeState, State: to})
}

// message records a user-facing message
func (o *Orchestrator) message(r *run, text string) {
	r.report.Messages = append(r.report.Messages, text)
	o.publish(r, Event{Type: EventTypeMessage, Message: text})
}

func (o *Orchestrator) publish(r *run, e Event) {
	e.RunID = r.id
	if e.State == "" {
		e.State = r.machine.Current()
	}
	o.deps.Bus.Publish(e)
}

// ValidateRequest checks the user input before any work is done
func ValidateRequest(req Request) error {
	if req.Recipient == "" {
		return fmt.Errorf("%w: %s", model.ErrInvalidInput, MsgMissingEmail)
	}
	if _, err := notify.ValidateAddress(req.Recipient); err != nil {
		return err
	}
	return model.ValidateTrim(req.TrimSeconds)
}

// firstFailure returns the error of the first failed job, if any
func firstFailure(failures []model.FetchResult) error {
	for _, f := range failures {
		if f.Err != nil {
			return f.Err
		}
	}
	return errors.New("no downloads attempted")
}

// generateRunID generates a time-ordered unique run id
func generateRunID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
