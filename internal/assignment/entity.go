package assignment

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Assignment tracks one employee's work on one task.
type Assignment struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"assignedTaskId"`
	EmployeeID string    `json:"employeeId"`
	CreatedAt  time.Time `json:"createdAt"`
	AssignedAt time.Time `json:"assignedAt"`
	// StartAt and CompletedAt are stamped once, the first time the task
	// enters in_progress and completed respectively.
	StartAt     *time.Time `json:"startAt"`
	CompletedAt *time.Time `json:"completedAt"`
	Priority    Priority   `json:"priority"`
}

// MarkStarted stamps StartAt unless it is already set and reports whether
// it changed anything.
func (a *Assignment) MarkStarted(now time.Time) bool {
	if a.StartAt != nil {
		return false
	}
	a.StartAt = &now
	return true
}

func (a *Assignment) MarkCompleted(now time.Time) bool {
	if a.CompletedAt != nil {
		return false
	}
	a.CompletedAt = &now
	return true
}
