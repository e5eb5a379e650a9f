package entities

import (
	"errors"
	"testing"
)

func newJob() *CoverageJob {
	return NewCoverageJob("job-1", "owner-1", "key", JobSpec{Precision: 6, ScanStep: 0.0015, Mode: "touching", Strategy: "grid-scan"})
}

func TestCoverageJob_Lifecycle(t *testing.T) {
	job := newJob()
	if job.Status != JobStatusPending {
		t.Fatalf("Expected pending, got %s", job.Status)
	}

	if err := job.Start(); err != nil {
		t.Fatalf("Unexpected error starting: %v", err)
	}
	if job.StartedAt.IsZero() {
		t.Error("Expected StartedAt to be set")
	}

	job.UpdateProgress(5, 10)
	if job.Progress() != 50 {
		t.Errorf("Expected 50%%, got %v", job.Progress())
	}

	if err := job.Complete([]string{"s0000", "s0001"}, true, ""); err != nil {
		t.Fatalf("Unexpected error completing: %v", err)
	}
	if job.CellCount != 2 || !job.CacheHit || job.FinishedAt.IsZero() {
		t.Errorf("Unexpected completed job %+v", job)
	}
	if job.Progress() != 100 {
		t.Errorf("Expected 100%% once completed, got %v", job.Progress())
	}
	if !job.IsTerminal() {
		t.Error("Expected completed job to be terminal")
	}
}

func TestCoverageJob_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*CoverageJob)
		act   func(*CoverageJob) error
	}{
		{"complete while pending", func(*CoverageJob) {}, func(j *CoverageJob) error { return j.Complete(nil, false, "") }},
		{"start twice", func(j *CoverageJob) { j.Start() }, func(j *CoverageJob) error { return j.Start() }},
		{"cancel completed", func(j *CoverageJob) { j.Start(); j.Complete(nil, false, "") }, func(j *CoverageJob) error { return j.Cancel() }},
		{"fail cancelled", func(j *CoverageJob) { j.Cancel() }, func(j *CoverageJob) error { return j.Fail(errors.New("boom")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := newJob()
			tt.setup(job)
			before := job.Status
			err := tt.act(job)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Expected ErrInvalidTransition, got %v", err)
			}
			if job.Status != before {
				t.Errorf("Expected status to stay %s, got %s", before, job.Status)
			}
		})
	}
}

func TestCoverageJob_Fail(t *testing.T) {
	job := newJob()
	job.Start()
	if err := job.Fail(errors.New("invalid geometry")); err != nil {
		t.Fatal(err)
	}
	if job.Status != JobStatusFailed || job.Error != "invalid geometry" {
		t.Errorf("Unexpected failed job %+v", job)
	}
}

func TestCoverageJob_ProgressIgnoredAfterFinish(t *testing.T) {
	job := newJob()
	job.Start()
	job.UpdateProgress(1, 4)
	job.Cancel()
	job.UpdateProgress(4, 4)
	if job.RowsDone != 1 {
		t.Errorf("Expected late progress to be ignored, got %d", job.RowsDone)
	}
	if job.Progress() != 25 {
		t.Errorf("Expected 25%%, got %v", job.Progress())
	}
}

func TestCoverageJob_ProgressWithoutTotal(t *testing.T) {
	if p := newJob().Progress(); p != 0 {
		t.Errorf("Expected 0, got %v", p)
	}
}

func TestCoverageJob_Clone(t *testing.T) {
	job := newJob()
	c := job.Clone()
	c.Status = JobStatusRunning
	if job.Status != JobStatusPending {
		t.Errorf("Expected original to be untouched, got %s", job.Status)
	}
}

func TestNewCellRow(t *testing.T) {
	row := NewCellRow("s0000", 0.02, 0.03)
	if row.Geohash != "s0000" || row.Latitude != 0.02 || row.Longitude != 0.03 {
		t.Errorf("Unexpected row %+v", row)
	}
}
