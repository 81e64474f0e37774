package backfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fortuna/athena/internal/ingest"
	"github.com/fortuna/athena/internal/logging"
	"github.com/fortuna/athena/internal/stats"
)

// ErrQueueFull is returned by Enqueue when too many jobs are waiting.
var ErrQueueFull = errors.New("backfill queue full")

const defaultQueueSize = 16

// Request represents a backfill invocation request.
type Request struct {
	From   int      `json:"from"`
	To     int      `json:"to"`
	Types  []string `json:"types"`
	Modes  []string `json:"modes"`
	DryRun bool     `json:"dry_run"`
}

// Spec validates the request and resolves its defaults: a missing To means
// a single season, missing types mean regular season only, missing modes
// mean both modes.
func (r Request) Spec() (JobSpec, error) {
	spec := JobSpec{From: r.From, To: r.To, DryRun: r.DryRun}
	if spec.To == 0 {
		spec.To = spec.From
	}

	for _, raw := range r.Types {
		t, err := stats.ParseSeasonType(raw)
		if err != nil {
			return JobSpec{}, err
		}
		spec.Types = append(spec.Types, t)
	}
	if len(spec.Types) == 0 {
		spec.Types = []stats.SeasonType{stats.SeasonRegular}
	}

	for _, raw := range r.Modes {
		m, err := stats.ParseMode(raw)
		if err != nil {
			return JobSpec{}, err
		}
		spec.Modes = append(spec.Modes, m)
	}
	if len(spec.Modes) == 0 {
		spec.Modes = []stats.Mode{stats.ModePerGame, stats.ModePer75}
	}

	if _, err := spec.Seasons(); err != nil {
		return JobSpec{}, err
	}
	return spec, nil
}

// Service queues backfill jobs in process and runs them one at a time.
type Service struct {
	runner *Runner
	logger *slog.Logger
	now    func() time.Time

	historyLimit int
	queue        chan *Job

	mu      sync.Mutex
	active  *Job
	pending []*Job
	history []*Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService constructs a Service. Call Start to launch the worker.
func NewService(runner *Runner, logger *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		runner:       runner,
		logger:       logger.With("component", "backfill"),
		now:          time.Now,
		historyLimit: 10,
		queue:        make(chan *Job, defaultQueueSize),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches the background worker loop.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.worker()
}

// Shutdown stops the worker and waits for the running job to observe
// cancellation.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Enqueue creates a new job from the provided request.
func (s *Service) Enqueue(_ context.Context, req Request) (*Job, error) {
	spec, err := req.Spec()
	if err != nil {
		return nil, err
	}
	if s.ctx.Err() != nil {
		return nil, fmt.Errorf("backfill service stopped: %w", s.ctx.Err())
	}

	job := &Job{
		JobID:         uuid.NewString(),
		Spec:          spec,
		Status:        JobStatusQueued,
		StatusMessage: "Queued",
		ProgressTotal: spec.Units(),
		CreatedAt:     s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case s.queue <- job:
	default:
		return nil, ErrQueueFull
	}
	s.pending = append(s.pending, job)

	s.logger.Info("backfill job queued", logging.FieldJobID, job.JobID,
		"from", spec.From, "to", spec.To, "units", job.ProgressTotal)
	return job.Copy(), nil
}

// GetStatus returns the running job, the queue and recent history.
func (s *Service) GetStatus(_ context.Context) (*StatusSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &StatusSummary{ActiveJob: s.active.Copy()}
	for _, j := range s.pending {
		summary.Queued = append(summary.Queued, j.Copy())
	}
	for _, j := range s.history {
		summary.History = append(summary.History, j.Copy())
	}
	return summary, nil
}

func (s *Service) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			s.cancelPending()
			return
		case job := <-s.queue:
			s.executeJob(job)
		}
	}
}

func (s *Service) executeJob(job *Job) {
	s.mu.Lock()
	s.pending = removeJob(s.pending, job)
	started := s.now().UTC()
	job.Status = JobStatusRunning
	job.StatusMessage = "Starting job..."
	job.StartedAt = &started
	s.active = job
	s.mu.Unlock()

	logger := s.logger.With(logging.FieldJobID, job.JobID)
	logger.Info("backfill job started")

	err := s.runner.Run(s.ctx, job.Spec, &jobReporter{service: s, job: job})

	s.mu.Lock()
	completed := s.now().UTC()
	job.CompletedAt = &completed
	switch {
	case err == nil:
		job.Status = JobStatusCompleted
		job.StatusMessage = "Job completed"
	case errors.Is(err, context.Canceled):
		job.Status = JobStatusCancelled
		job.StatusMessage = "Job cancelled"
		job.LastError = err.Error()
	default:
		job.Status = JobStatusFailed
		job.StatusMessage = "Job failed"
		job.LastError = err.Error()
	}
	s.active = nil
	s.pushHistory(job)
	s.mu.Unlock()

	if err != nil {
		logging.Error(logger, "backfill job finished with error", err, "status", string(job.Status))
		return
	}
	logger.Info("backfill job completed", "tables_saved", job.TablesSaved, "skipped", len(job.Skipped))
}

// cancelPending marks queued jobs cancelled at shutdown. Callers must not
// hold mu.
func (s *Service) cancelPending() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.pending {
		job.Status = JobStatusCancelled
		job.StatusMessage = "Cancelled at shutdown"
		s.pushHistory(job)
	}
	s.pending = nil
}

// pushHistory records job as most recent. Callers hold mu.
func (s *Service) pushHistory(job *Job) {
	s.history = append([]*Job{job}, s.history...)
	if len(s.history) > s.historyLimit {
		s.history = s.history[:s.historyLimit]
	}
}

func removeJob(jobs []*Job, job *Job) []*Job {
	for i, j := range jobs {
		if j == job {
			return append(jobs[:i], jobs[i+1:]...)
		}
	}
	return jobs
}

// jobReporter applies runner callbacks to the job under the service lock.
type jobReporter struct {
	service *Service
	job     *Job
}

func (r *jobReporter) update(fn func(j *Job)) {
	r.service.mu.Lock()
	defer r.service.mu.Unlock()
	fn(r.job)
}

func (r *jobReporter) OnJobStart(spec JobSpec) {
	r.update(func(j *Job) {
		j.ProgressTotal = spec.Units()
		j.StatusMessage = "Job starting"
	})
}

func (r *jobReporter) OnSeasonStart(key stats.SeasonKey, index int, total int) {
	r.update(func(j *Job) {
		j.StatusMessage = fmt.Sprintf("Processing %s (%d/%d)", key, index+1, total)
	})
}

func (r *jobReporter) OnTableSaved(ingest.TableRequest, int) {
	r.update(func(j *Job) { j.TablesSaved++ })
}

func (r *jobReporter) OnSkipped(what string, err error) {
	r.service.logger.Warn("backfill skipped missing input", logging.FieldJobID, r.job.JobID,
		"input", what, logging.FieldError, err)
	r.update(func(j *Job) { j.Skipped = append(j.Skipped, what) })
}

func (r *jobReporter) OnProgress(message string, current int, total int) {
	r.update(func(j *Job) {
		j.ProgressCurrent = current
		j.ProgressTotal = valueOr(total, j.ProgressTotal)
		j.StatusMessage = message
	})
}

func (r *jobReporter) OnJobComplete() {
	r.update(func(j *Job) {
		j.ProgressCurrent = j.ProgressTotal
		j.StatusMessage = "Job complete"
	})
}

func (r *jobReporter) OnJobError(err error) {
	r.update(func(j *Job) { j.LastError = err.Error() })
}

func valueOr(val, fallback int) int {
	if val > 0 {
		return val
	}
	return fallback
}
