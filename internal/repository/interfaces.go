// Package repository defines the storage contracts the services depend on.
// Implementations live in sub-packages (memory, rediscache) so the services
// never know which backend they are talking to.
package repository

import (
	"context"
	"errors"
	"time"

	"geocover/internal/domain/entities"
)

// ErrJobNotFound is returned by JobRepository lookups for unknown IDs.
var ErrJobNotFound = errors.New("job not found")

type JobRepository interface {
	Create(ctx context.Context, job *entities.CoverageJob) error
	GetByID(ctx context.Context, id string) (*entities.CoverageJob, error)
	Update(ctx context.Context, job *entities.CoverageJob) error
	// UpdateFunc applies fn to the stored job under the repository's lock,
	// so read-modify-write cycles from concurrent goroutines do not race.
	UpdateFunc(ctx context.Context, id string, fn func(job *entities.CoverageJob) error) (*entities.CoverageJob, error)
	Delete(ctx context.Context, id string) error
	GetByOwnerID(ctx context.Context, ownerID string) ([]*entities.CoverageJob, error)
}

// CoverageCache stores finished coverage sets keyed by a digest of the
// region and the coverage config.
type CoverageCache interface {
	Get(ctx context.Context, key string) ([]string, bool, error)
	Set(ctx context.Context, key string, codes []string) error
}

// LockManager hands out expiring named locks. A held lock that is never
// released frees itself when its ttl runs out.
type LockManager interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}
