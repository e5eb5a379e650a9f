// Package memory provides in-process implementations of the repository
// interfaces. Nothing here survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"geocover/internal/domain/entities"
	"geocover/internal/repository"
)

// JobRepository stores coverage jobs in memory. It hands out copies, so a
// job read by an HTTP handler cannot change underneath it while the worker
// goroutine keeps updating the stored one.
type JobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*entities.CoverageJob
}

func NewJobRepository() *JobRepository {
	return &JobRepository{
		jobs: make(map[string]*entities.CoverageJob),
	}
}

func (r *JobRepository) Create(ctx context.Context, job *entities.CoverageJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[job.ID] = job.Clone()
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*entities.CoverageJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, exists := r.jobs[id]
	if !exists {
		return nil, repository.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (r *JobRepository) Update(ctx context.Context, job *entities.CoverageJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.ID]; !exists {
		return repository.ErrJobNotFound
	}
	r.jobs[job.ID] = job.Clone()
	return nil
}

// UpdateFunc runs fn against the stored job while holding the write lock.
// If fn fails the stored job is left untouched.
//
// Go Learning Note — Closures as Transactions:
// Passing a function into the repository lets the caller express "read,
// check, modify" as one step. The repository decides how to make that step
// atomic (here a mutex; a SQL store would use a transaction), and callers
// never see a half-applied update.
func (r *JobRepository) UpdateFunc(ctx context.Context, id string, fn func(job *entities.CoverageJob) error) (*entities.CoverageJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.jobs[id]
	if !exists {
		return nil, repository.ErrJobNotFound
	}
	working := stored.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	r.jobs[id] = working
	return working.Clone(), nil
}

func (r *JobRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[id]; !exists {
		return repository.ErrJobNotFound
	}
	delete(r.jobs, id)
	return nil
}

// GetByOwnerID returns every job submitted by ownerID, newest first.
// This is an O(n) scan; an owner index would be the next step if job counts
// grow.
func (r *JobRepository) GetByOwnerID(ctx context.Context, ownerID string) ([]*entities.CoverageJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var jobs []*entities.CoverageJob
	for _, job := range r.jobs {
		if job.OwnerID == ownerID {
			jobs = append(jobs, job.Clone())
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}
