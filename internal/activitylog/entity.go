package activitylog

import "time"

const (
	ActionAssignTask       = "assign_task"
	ActionUpdateTaskStatus = "update_task_status"
	ActionUploadAttachment = "upload_attachment"
	ActionDeleteTask       = "delete_task"
)

type Entry struct {
	ID            string    `json:"id"`
	EmployeeEmail string    `json:"employeeEmail"`
	Action        string    `json:"action"`
	Description   string    `json:"description"`
	Timestamp     time.Time `json:"timestamp"`
}
