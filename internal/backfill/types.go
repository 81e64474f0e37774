package backfill

import (
	"fmt"
	"time"

	"github.com/fortuna/athena/internal/ingest"
	"github.com/fortuna/athena/internal/stats"
)

// JobStatus represents the lifecycle state for a job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job is one queued or executed backfill.
type Job struct {
	JobID           string     `json:"job_id"`
	Spec            JobSpec    `json:"spec"`
	Status          JobStatus  `json:"status"`
	StatusMessage   string     `json:"status_message,omitempty"`
	ProgressCurrent int        `json:"progress_current"`
	ProgressTotal   int        `json:"progress_total"`
	TablesSaved     int        `json:"tables_saved"`
	Skipped         []string   `json:"skipped,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Copy returns a copy to prevent external mutation.
func (j *Job) Copy() *Job {
	if j == nil {
		return nil
	}
	cpy := *j
	cpy.Spec.Types = append([]stats.SeasonType(nil), j.Spec.Types...)
	cpy.Spec.Modes = append([]stats.Mode(nil), j.Spec.Modes...)
	cpy.Skipped = append([]string(nil), j.Skipped...)
	return &cpy
}

// JobSpec describes the work to be performed by the runner: every season
// From..To for each type, one league totals fetch plus one table per mode.
type JobSpec struct {
	From   int                `json:"from"`
	To     int                `json:"to"`
	Types  []stats.SeasonType `json:"types"`
	Modes  []stats.Mode       `json:"modes"`
	DryRun bool               `json:"dry_run,omitempty"`
}

// Seasons expands the job into season keys, oldest first, types in order.
func (s JobSpec) Seasons() ([]stats.SeasonKey, error) {
	if len(s.Types) == 0 {
		return nil, fmt.Errorf("backfill needs at least one season type")
	}
	if len(s.Modes) == 0 {
		return nil, fmt.Errorf("backfill needs at least one mode")
	}

	var keys []stats.SeasonKey
	for _, t := range s.Types {
		span, err := stats.SeasonRange(s.From, s.To, t)
		if err != nil {
			return nil, err
		}
		keys = append(keys, span...)
	}
	return keys, nil
}

// Units is the number of fetches the job performs.
func (s JobSpec) Units() int {
	seasons, err := s.Seasons()
	if err != nil {
		return 0
	}
	return len(seasons) * (1 + len(s.Modes))
}

// Reporter receives lifecycle callbacks from the runner.
type Reporter interface {
	OnJobStart(spec JobSpec)
	OnSeasonStart(key stats.SeasonKey, index int, total int)
	OnTableSaved(req ingest.TableRequest, rows int)
	OnSkipped(what string, err error)
	OnProgress(message string, current int, total int)
	OnJobComplete()
	OnJobError(err error)
}

// StatusSummary is returned to API callers.
type StatusSummary struct {
	ActiveJob *Job   `json:"active_job,omitempty"`
	Queued    []*Job `json:"queued_jobs,omitempty"`
	History   []*Job `json:"recent_jobs,omitempty"`
}
