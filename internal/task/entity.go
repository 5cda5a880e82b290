package task

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

// AcceptsAttachments reports whether files may be attached in this status.
func (s Status) AcceptsAttachments() bool {
	return s == StatusInProgress || s == StatusCompleted
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ProjectType string     `json:"projectType"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
	// Attachments holds blob names in upload order.
	Attachments []string  `json:"attachments"`
	AssigneeID  string    `json:"assigneeId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (t *Task) HasAttachment(name string) bool {
	for _, a := range t.Attachments {
		if a == name {
			return true
		}
	}
	return false
}

// IsOverdue reports whether the due date has passed without completion.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusCompleted
}
