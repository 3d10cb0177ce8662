package models

import "time"

type JobPriority int

const (
	PriorityLow JobPriority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p JobPriority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseJobPriority maps the wire names onto priorities. Unknown or empty
// input falls back to normal.
func ParseJobPriority(s string) JobPriority {
	switch s {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	case "critical":
		return PriorityCritical
	default:
		return PriorityNormal
	}
}

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// CalculationJob is one queued recalculation request for a (league, season)
// scope. At most one non-completed job exists per scope.
type CalculationJob struct {
	ID          string      `json:"id"`
	LeagueID    int         `json:"league_id"`
	SeasonID    int         `json:"season_id"`
	Priority    JobPriority `json:"priority"`
	Status      JobStatus   `json:"status"`
	SubmittedAt time.Time   `json:"submitted_at"`
	Attempts    int         `json:"attempts"`
	MaxAttempts int         `json:"max_attempts"`
	NextRunAt   time.Time   `json:"next_run_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	FinishedAt  *time.Time  `json:"finished_at,omitempty"`
	LastError   string      `json:"last_error,omitempty"`
}
