// Package entities defines the domain models of the coverage service: the
// asynchronous CoverageJob, the flat CellRow table, and density results.
// They live in the innermost layer of the architecture and have no
// dependencies on HTTP, caches or the geometry engine.
//
// Go Learning Note — "internal/" directory:
// Packages under internal/ cannot be imported by code outside this module. Go
// enforces this at the compiler level. This is how Go provides encapsulation
// at the package level — it prevents external code from depending on your
// internal implementation details.
package entities

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when a job is asked to move to a state the
// lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// JobStatus represents the current lifecycle state of a coverage job.
//
// Go Learning Note — State Machines in Go:
// This file implements a finite state machine (FSM) using a map of valid
// transitions. The job lifecycle is:
//
//	Pending → Running → Completed
//	              ↘ Failed
//	(Pending and Running can also transition to Cancelled)
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// validTransitions defines which status changes are allowed from each state.
// Terminal states (Completed, Failed, Cancelled) have empty slices, no
// transitions out. This map IS the state machine.
var validTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:   {JobStatusRunning, JobStatusCancelled, JobStatusFailed},
	JobStatusRunning:   {JobStatusCompleted, JobStatusFailed, JobStatusCancelled},
	JobStatusCompleted: {},
	JobStatusFailed:    {},
	JobStatusCancelled: {},
}

// JobSpec is the coverage configuration a job was submitted with, kept as
// plain values so this package does not depend on the geometry engine.
type JobSpec struct {
	Precision int     `json:"precision"`
	ScanStep  float64 `json:"scan_step"`
	Mode      string  `json:"mode"`
	Strategy  string  `json:"strategy"`
}

// CoverageJob tracks one asynchronous coverage run from submission to its
// result.
//
// Go Learning Note — "omitempty" and "-" Struct Tags:
// Fields tagged with `json:"...,omitempty"` are excluded from JSON output when
// they hold their zero value, so Error only appears on failed jobs. The "-"
// tag on Result keeps the (possibly huge) code list out of status responses;
// it is served by a separate endpoint.
type CoverageJob struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	RegionKey  string    `json:"region_key"`
	Spec       JobSpec   `json:"spec"`
	Status     JobStatus `json:"status"`
	RowsDone   int       `json:"rows_done"`
	RowsTotal  int       `json:"rows_total"`
	CellCount  int       `json:"cell_count"`
	CacheHit   bool      `json:"cache_hit"`
	Warning    string    `json:"warning,omitempty"`
	Error      string    `json:"error,omitempty"`
	Result     []string  `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// NewCoverageJob creates a job in the Pending state.
func NewCoverageJob(id, ownerID, regionKey string, spec JobSpec) *CoverageJob {
	now := time.Now()
	return &CoverageJob{
		ID:        id,
		OwnerID:   ownerID,
		RegionKey: regionKey,
		Spec:      spec,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanTransitionTo checks if moving to newStatus is a valid state change.
//
// Go Learning Note — Comma-ok Idiom:
// The pattern `value, exists := someMap[key]` is the "comma-ok" idiom. The
// second return value (exists) is a boolean indicating whether the key was
// found. Without the second variable, accessing a missing key returns the
// zero value silently, which can cause subtle bugs.
func (j *CoverageJob) CanTransitionTo(newStatus JobStatus) bool {
	allowedStatuses, exists := validTransitions[j.Status]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo attempts to move the job to newStatus and records the phase
// timestamps.
//
// Go Learning Note — Error Wrapping:
// fmt.Errorf with the %w verb wraps ErrInvalidTransition, so callers can
// still match it with errors.Is while the message carries both states.
func (j *CoverageJob) TransitionTo(newStatus JobStatus) error {
	if !j.CanTransitionTo(newStatus) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, j.Status, newStatus)
	}
	now := time.Now()
	j.Status = newStatus
	j.UpdatedAt = now

	switch newStatus {
	case JobStatusRunning:
		j.StartedAt = now
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		j.FinishedAt = now
	}
	return nil
}

// IsTerminal reports whether the job has finished, one way or another.
func (j *CoverageJob) IsTerminal() bool {
	return len(validTransitions[j.Status]) == 0
}

// Progress returns the completed fraction as a percentage.
func (j *CoverageJob) Progress() float64 {
	if j.Status == JobStatusCompleted {
		return 100
	}
	if j.RowsTotal <= 0 {
		return 0
	}
	return 100 * float64(j.RowsDone) / float64(j.RowsTotal)
}

// UpdateProgress records scanned rows. Finished jobs ignore late updates.
func (j *CoverageJob) UpdateProgress(done, total int) {
	if j.IsTerminal() {
		return
	}
	j.RowsDone = done
	j.RowsTotal = total
	j.UpdatedAt = time.Now()
}

// Start transitions to Running.
func (j *CoverageJob) Start() error {
	return j.TransitionTo(JobStatusRunning)
}

// Complete stores the result and transitions to Completed. A non-empty
// warning marks an empty-but-valid outcome such as no coverage found.
func (j *CoverageJob) Complete(codes []string, cacheHit bool, warning string) error {
	if err := j.TransitionTo(JobStatusCompleted); err != nil {
		return err
	}
	j.Result = codes
	j.CellCount = len(codes)
	j.CacheHit = cacheHit
	j.Warning = warning
	return nil
}

// Fail transitions to Failed and records the reason.
func (j *CoverageJob) Fail(reason error) error {
	if err := j.TransitionTo(JobStatusFailed); err != nil {
		return err
	}
	if reason != nil {
		j.Error = reason.Error()
	}
	return nil
}

// Cancel transitions to Cancelled.
func (j *CoverageJob) Cancel() error {
	return j.TransitionTo(JobStatusCancelled)
}

// Clone returns a shallow copy. Result is never modified once set, so the
// copy shares it.
func (j *CoverageJob) Clone() *CoverageJob {
	c := *j
	return &c
}
