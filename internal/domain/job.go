package domain

import "time"

type Job struct {
	ID          string
	Type        string
	FileName    string
	Status      JobStatus
	InputKey    string
	ResultKey   string
	Error       string
	Operations  []OperationParams
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether s may move to next. Transitions only go
// forward and nothing leaves a terminal status.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusCompleted || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Predecessors lists the statuses from which next is reachable in one step.
func (s JobStatus) Predecessors() []JobStatus {
	var out []JobStatus
	for _, from := range []JobStatus{StatusPending, StatusProcessing} {
		if from.CanTransitionTo(s) {
			out = append(out, from)
		}
	}
	return out
}
