package services

import (
	"log/slog"

	"geocover/internal/domain/entities"
	"geocover/internal/logger"
)

// NotificationService announces job lifecycle events. It writes structured
// log lines; a webhook or message-queue publisher would slot in here.
type NotificationService struct {
	log *slog.Logger
}

// NewNotificationService creates a NotificationService writing to l, or to
// the process logger when l is nil.
func NewNotificationService(l *slog.Logger) *NotificationService {
	if l == nil {
		l = logger.L()
	}
	return &NotificationService{log: l}
}

// JobSubmitted is sent once a job has been accepted and queued.
func (s *NotificationService) JobSubmitted(job *entities.CoverageJob) {
	s.log.Info("job_submitted",
		"job_id", job.ID,
		"owner", job.OwnerID,
		"precision", job.Spec.Precision,
		"strategy", job.Spec.Strategy,
	)
}

// JobCompleted reports the number of cells found. An empty result carries
// the warning instead.
func (s *NotificationService) JobCompleted(job *entities.CoverageJob) {
	if job.Warning != "" {
		s.log.Warn("job_completed_empty", "job_id", job.ID, "owner", job.OwnerID, "warning", job.Warning)
		return
	}
	s.log.Info("job_completed",
		"job_id", job.ID,
		"owner", job.OwnerID,
		"cells", job.CellCount,
		"cache_hit", job.CacheHit,
		"duration", job.FinishedAt.Sub(job.StartedAt),
	)
}

func (s *NotificationService) JobFailed(job *entities.CoverageJob) {
	s.log.Error("job_failed", "job_id", job.ID, "owner", job.OwnerID, "err", job.Error)
}

func (s *NotificationService) JobCancelled(job *entities.CoverageJob) {
	s.log.Info("job_cancelled", "job_id", job.ID, "owner", job.OwnerID, "rows_done", job.RowsDone, "rows_total", job.RowsTotal)
}

// JobFinished dispatches on the job's terminal status.
func (s *NotificationService) JobFinished(job *entities.CoverageJob) {
	switch job.Status {
	case entities.JobStatusCompleted:
		s.JobCompleted(job)
	case entities.JobStatusFailed:
		s.JobFailed(job)
	case entities.JobStatusCancelled:
		s.JobCancelled(job)
	}
}
