package eventbus

import "time"

type Type string

const (
	TaskAssigned      Type = "task.assigned"
	TaskStatusChanged Type = "task.status_changed"
)

type Event struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	ResourceID string            `json:"resourceId"`
	EmployeeID string            `json:"employeeId"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}
