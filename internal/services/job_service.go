package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"geocover/internal/domain/entities"
	"geocover/internal/geo"
	"geocover/internal/logger"
	"geocover/internal/metrics"
	"geocover/internal/repository"
	"geocover/pkg/utils"
)

var (
	ErrJobNotFound    = repository.ErrJobNotFound
	ErrNotAuthorized  = errors.New("not authorized to perform this action")
	ErrJobInProgress  = errors.New("an identical coverage job is already running")
	ErrJobNotFinished = errors.New("job has no result")
)

// DefaultJobTimeout bounds a job when no timeout is configured.
const DefaultJobTimeout = 10 * time.Minute

// JobService runs coverage computations in the background so a caller can
// submit a large region, poll its progress and fetch the cells later.
//
// Every job runs in its own goroutine under a context derived from
// context.Background(), not from the submitting request, so the job outlives
// the HTTP call that created it. The context carries the job timeout and is
// cancelled by Cancel. A cancelled or timed-out job never stores a partial
// result.
//
// Go Learning Note — Detached Contexts:
// Deriving the job context from the request context would cancel the job as
// soon as the 202 response is written. Background work starts a fresh root
// context and keeps its CancelFunc so it can still be stopped explicitly.
type JobService struct {
	jobs     repository.JobRepository
	locks    repository.LockManager
	coverage *CoverageService
	notifier *NotificationService
	metrics  *metrics.Collector
	timeout  time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	running map[string]*runningJob
	wg      sync.WaitGroup
}

type runningJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewJobService creates a JobService. A timeout <= 0 means
// DefaultJobTimeout. m may be nil.
func NewJobService(
	jobs repository.JobRepository,
	locks repository.LockManager,
	coverage *CoverageService,
	notifier *NotificationService,
	m *metrics.Collector,
	timeout time.Duration,
) *JobService {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	return &JobService{
		jobs:     jobs,
		locks:    locks,
		coverage: coverage,
		notifier: notifier,
		metrics:  m,
		timeout:  timeout,
		log:      logger.L(),
		running:  make(map[string]*runningJob),
	}
}

// Submit validates the region and settings, stores a pending job and starts
// it. While a job for the same region and settings is running, an identical
// submission fails with ErrJobInProgress.
func (s *JobService) Submit(ctx context.Context, ownerID string, in geo.RegionInput, cfg geo.CoverageConfig) (*entities.CoverageJob, error) {
	region, err := in.Normalize()
	if err != nil {
		return nil, err
	}
	cfg, err = cfg.Resolve()
	if err != nil {
		return nil, err
	}
	key, err := RegionKey(region, cfg)
	if err != nil {
		return nil, err
	}

	lockKey := "job:" + key
	acquired, err := s.locks.AcquireLock(ctx, lockKey, s.timeout+time.Minute)
	if err != nil {
		return nil, fmt.Errorf("acquire job lock: %w", err)
	}
	if !acquired {
		return nil, ErrJobInProgress
	}

	job := entities.NewCoverageJob(utils.GenerateJobID(), ownerID, key, entities.JobSpec{
		Precision: cfg.Precision,
		ScanStep:  cfg.ScanStep,
		Mode:      string(cfg.Mode),
		Strategy:  string(cfg.Strategy),
	})
	if err := s.jobs.Create(ctx, job); err != nil {
		s.locks.ReleaseLock(context.Background(), lockKey)
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	rj := &runningJob{cancel: cancel, done: make(chan struct{})}
	s.mu.Lock()
	s.running[job.ID] = rj
	s.mu.Unlock()

	s.metrics.JobStarted()
	s.notifier.JobSubmitted(job)

	s.wg.Add(1)
	go s.run(runCtx, job.ID, region, cfg, lockKey, rj)

	return job.Clone(), nil
}

// run executes one job. Repository writes use a background context so the
// final status is recorded even after runCtx is cancelled.
func (s *JobService) run(runCtx context.Context, id string, region *geo.Region, cfg geo.CoverageConfig, lockKey string, rj *runningJob) {
	bg := context.Background()
	defer s.wg.Done()
	defer close(rj.done)
	defer rj.cancel()
	defer func() {
		s.mu.Lock()
		delete(s.running, id)
		s.mu.Unlock()
	}()
	defer s.locks.ReleaseLock(bg, lockKey)

	if _, err := s.jobs.UpdateFunc(bg, id, func(j *entities.CoverageJob) error { return j.Start() }); err != nil {
		// Cancelled while still pending.
		return
	}

	res, err := s.coverage.CoverRegion(runCtx, region, cfg, geo.WithProgress(func(p geo.Progress) {
		s.jobs.UpdateFunc(bg, id, func(j *entities.CoverageJob) error {
			j.UpdateProgress(p.Done, p.Total)
			return nil
		})
	}))

	var apply func(j *entities.CoverageJob) error
	switch {
	case err == nil:
		apply = func(j *entities.CoverageJob) error { return j.Complete(res.Codes, res.CacheHit, res.Warning) }
	case errors.Is(err, context.Canceled):
		apply = func(j *entities.CoverageJob) error { return j.Cancel() }
	case errors.Is(err, context.DeadlineExceeded):
		apply = func(j *entities.CoverageJob) error { return j.Fail(fmt.Errorf("job timed out after %s", s.timeout)) }
	default:
		apply = func(j *entities.CoverageJob) error { return j.Fail(err) }
	}

	final, uerr := s.jobs.UpdateFunc(bg, id, apply)
	if uerr != nil {
		// Cancel already moved the job to its terminal state.
		if !errors.Is(uerr, entities.ErrInvalidTransition) {
			s.log.Error("job_update_failed", "job_id", id, "err", uerr)
		}
		return
	}
	s.metrics.JobFinished(string(final.Status))
	s.notifier.JobFinished(final)
}

// Get returns a job owned by ownerID.
func (s *JobService) Get(ctx context.Context, ownerID, id string) (*entities.CoverageJob, error) {
	if !utils.IsJobID(id) {
		return nil, ErrJobNotFound
	}
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, ErrNotAuthorized
	}
	return job, nil
}

// Result returns a completed job together with its codes. Jobs that are
// still running, failed or were cancelled have no result.
func (s *JobService) Result(ctx context.Context, ownerID, id string) (*entities.CoverageJob, error) {
	job, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if job.Status != entities.JobStatusCompleted {
		return job, fmt.Errorf("%w: job is %s", ErrJobNotFinished, job.Status)
	}
	return job, nil
}

// List returns the jobs of ownerID, newest first.
func (s *JobService) List(ctx context.Context, ownerID string) ([]*entities.CoverageJob, error) {
	return s.jobs.GetByOwnerID(ctx, ownerID)
}

// Cancel stops a pending or running job. The job is marked cancelled at
// once; the worker notices at its next unit of work and discards what it
// has found so far. Cancelling a finished job fails with
// entities.ErrInvalidTransition.
func (s *JobService) Cancel(ctx context.Context, ownerID, id string) (*entities.CoverageJob, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	job, err := s.jobs.UpdateFunc(ctx, id, func(j *entities.CoverageJob) error { return j.Cancel() })
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	rj := s.running[id]
	s.mu.Unlock()
	if rj != nil {
		rj.cancel()
	}

	s.metrics.JobFinished(string(job.Status))
	s.notifier.JobFinished(job)
	return job, nil
}

// Wait blocks until the job's worker has exited or ctx is done. A job that
// is not running returns immediately.
func (s *JobService) Wait(ctx context.Context, id string) error {
	s.mu.Lock()
	rj := s.running[id]
	s.mu.Unlock()
	if rj == nil {
		return nil
	}
	select {
	case <-rj.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels every running job and waits for the workers to exit, or
// for ctx to expire.
func (s *JobService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, rj := range s.running {
		rj.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
