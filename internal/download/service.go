package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/AnMaster15/mashupp/internal/model"
)

// ErrDuplicatePath is reported when two jobs claim the same output file
var ErrDuplicatePath = errors.New("duplicate output path")

// Progress is the number of resolved jobs out of the batch size
type Progress struct {
	Completed int
	Total     int
}

// Fraction returns progress in [0,1]
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total)
}

// Batch is the joined outcome of FetchAll
type Batch struct {
	// Paths are the successful local files in assembly order
	Paths []string
	// Results are the successful results, aligned with Paths
	Results []model.FetchResult
	// Failures are the jobs that produced no file, in completion order
	Failures []model.FetchResult
	Total    int
}

// Service runs fetch jobs on a fixed-size worker pool
type Service struct {
	fetcher    Fetcher
	workers    int
	limiter    *rate.Limiter
	sortByRank bool
	logger     *slog.Logger
	onProgress func(Progress)
	onFailure  func(model.FetchResult)
}

// Option configures a Service
type Option func(*Service)

// WithRankOrder re-sorts successful files by submission index instead of
// keeping completion order
func WithRankOrder(enabled bool) Option {
	return func(s *Service) { s.sortByRank = enabled }
}

// WithStartRate limits how many jobs start per second. Zero disables it.
func WithStartRate(perSecond float64) Option {
	return func(s *Service) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a coordinator. workers <= 0 means one worker per CPU.
func NewService(fetcher Fetcher, workers int, opts ...Option) *Service {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	s := &Service{
		fetcher: fetcher,
		workers: workers,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Workers returns the pool size
func (s *Service) Workers() int {
	return s.workers
}

// SetProgressCallback sets the function called after every resolved job
func (s *Service) SetProgressCallback(callback func(Progress)) {
	s.onProgress = callback
}

// SetFailureCallback sets the function called for every failed job
func (s *Service) SetFailureCallback(callback func(model.FetchResult)) {
	s.onFailure = callback
}

// FetchAll submits one job per URL and blocks until all of them resolve.
// A failed job is reported and dropped; it never stops the others.
func (s *Service) FetchAll(ctx context.Context, urls []string, workDir string) Batch {
	batch := Batch{
		Paths:    []string{},
		Results:  []model.FetchResult{},
		Failures: []model.FetchResult{},
		Total:    len(urls),
	}
	if len(urls) == 0 {
		return batch
	}

	var (
		mu        sync.Mutex
		completed int
		seen      = make(map[string]bool, len(urls))
	)

	collect := func(res model.FetchResult) {
		mu.Lock()
		defer mu.Unlock()

		if res.OK() && seen[res.LocalPath] {
			res = model.FetchResult{
				SourceIndex: res.SourceIndex,
				URL:         res.URL,
				Err:         fmt.Errorf("%w: %w: %s", model.ErrFetch, ErrDuplicatePath, res.LocalPath),
			}
		}

		completed++
		if res.OK() {
			seen[res.LocalPath] = true
			batch.Results = append(batch.Results, res)
		} else {
			batch.Failures = append(batch.Failures, res)
			s.notifyFailure(res)
		}
		s.notifyProgress(Progress{Completed: completed, Total: batch.Total})
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, url := range urls {
		job := model.DownloadJob{Index: i + 1, URL: url}
		g.Go(func() error {
			collect(s.runJob(ctx, job, workDir))
			return nil
		})
	}
	_ = g.Wait()

	if s.sortByRank {
		sort.SliceStable(batch.Results, func(i, j int) bool {
			return batch.Results[i].SourceIndex < batch.Results[j].SourceIndex
		})
	}
	for _, res := range batch.Results {
		batch.Paths = append(batch.Paths, res.LocalPath)
	}

	s.logger.Info("fetch batch finished",
		slog.Int("total", batch.Total),
		slog.Int("succeeded", len(batch.Paths)),
		slog.Int("failed", len(batch.Failures)),
		slog.Int("workers", s.workers),
	)
	return batch
}

// runJob executes one job and converts every outcome into a FetchResult
func (s *Service) runJob(ctx context.Context, job model.DownloadJob, workDir string) (res model.FetchResult) {
	res = model.FetchResult{SourceIndex: job.Index, URL: job.URL}
	defer func() {
		if r := recover(); r != nil {
			res.LocalPath = ""
			res.Err = &model.FetchError{Index: job.Index, URL: job.URL, Cause: model.FetchCausePanic, Err: fmt.Errorf("%v", r)}
		}
	}()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			res.Err = &model.FetchError{Index: job.Index, URL: job.URL, Cause: model.FetchCauseResolve, Err: err}
			return res
		}
	}

	path, err := s.fetcher.Fetch(ctx, job, workDir)
	if err != nil {
		if !errors.Is(err, model.ErrFetch) {
			err = &model.FetchError{Index: job.Index, URL: job.URL, Cause: model.FetchCauseResolve, Err: err}
		}
		res.Err = err
		return res
	}
	if path == "" {
		res.Err = &model.FetchError{Index: job.Index, URL: job.URL, Cause: model.FetchCauseMissing}
		return res
	}

	res.LocalPath = path
	return res
}

// notifyProgress calls the progress callback if set
func (s *Service) notifyProgress(p Progress) {
	if s.onProgress != nil {
		s.onProgress(p)
	}
}

// notifyFailure calls the failure callback if set
func (s *Service) notifyFailure(res model.FetchResult) {
	if s.onFailure != nil {
		s.onFailure(res)
	}
}
