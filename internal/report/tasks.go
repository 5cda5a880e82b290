package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kazz187/taskdesk/internal/assignment"
	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

// TaskView is a task with the tracking timestamps of its assignment. They
// are only filled for completed tasks.
type TaskView struct {
	*task.Task
	StartAt     *time.Time `json:"startAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

func (e *Engine) AssignedTasks(ctx context.Context, employeeID string) ([]*task.Task, error) {
	return e.tasks.ListByAssignee(ctx, employeeID, task.Filter{})
}

// TasksByStatus lists the employee's tasks in status. Completed tasks carry
// StartAt and CompletedAt; the assignment lookup is skipped when there are
// none.
func (e *Engine) TasksByStatus(ctx context.Context, employeeID string, status task.Status) ([]*TaskView, error) {
	if !status.Valid() {
		return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid status %q", status), nil)
	}
	tasks, err := e.tasks.ListByAssignee(ctx, employeeID, task.Filter{Status: status})
	if err != nil {
		return nil, err
	}
	views := make([]*TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, &TaskView{Task: t})
	}
	if status != task.StatusCompleted || len(tasks) == 0 {
		return views, nil
	}

	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	list, err := e.assignments.ListByTasks(ctx, employeeID, ids)
	if err != nil {
		return nil, err
	}
	byTask := make(map[string]*assignment.Assignment, len(list))
	for _, a := range list {
		byTask[a.TaskID] = a
	}
	for _, v := range views {
		if a, ok := byTask[v.ID]; ok {
			v.StartAt = a.StartAt
			v.CompletedAt = a.CompletedAt
		}
	}
	return views, nil
}

// OverdueTasks lists tasks past their due date that are not completed.
func (e *Engine) OverdueTasks(ctx context.Context, employeeID string) ([]*task.Task, error) {
	tasks, err := e.tasks.ListByAssignee(ctx, employeeID, task.Filter{})
	if err != nil {
		return nil, err
	}
	now := e.now()
	out := []*task.Task{}
	for _, t := range tasks {
		if t.IsOverdue(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

// InProgressDetail is one assignment of the employee whose task is in
// progress, with dates rendered as YYYY-MM-DD.
type InProgressDetail struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	ProjectType string      `json:"projectType"`
	Status      task.Status `json:"status"`
	CreatedAt   *string     `json:"createdAt"`
	UpdatedAt   *string     `json:"updatedAt"`
	DueDate     *string     `json:"dueDate"`
	AssigneeID  string      `json:"assigneeId"`
	Attachments []string    `json:"attachments"`
	StartAt     *string     `json:"startAt"`
	CompletedAt *string     `json:"completedAt"`
	Priority    string      `json:"priority"`
}

func (e *Engine) InProgressDetails(ctx context.Context, employeeID string) ([]*InProgressDetail, error) {
	list, err := e.assignments.ListByEmployee(ctx, employeeID, time.Time{})
	if err != nil {
		return nil, err
	}
	out := []*InProgressDetail{}
	if len(list) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.TaskID)
	}
	tasks, err := e.tasks.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*task.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	for _, a := range list {
		t, ok := byID[a.TaskID]
		if !ok || t.Status != task.StatusInProgress {
			continue
		}
		out = append(out, &InProgressDetail{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			ProjectType: t.ProjectType,
			Status:      t.Status,
			CreatedAt:   e.date(&t.CreatedAt),
			UpdatedAt:   e.date(&t.UpdatedAt),
			DueDate:     e.date(t.DueDate),
			AssigneeID:  t.AssigneeID,
			Attachments: t.Attachments,
			StartAt:     e.date(a.StartAt),
			CompletedAt: e.date(a.CompletedAt),
			Priority:    string(a.Priority),
		})
	}
	return out, nil
}

func (e *Engine) date(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.In(e.loc).Format(time.DateOnly)
	return &s
}

func (e *Engine) FilterByProjectType(ctx context.Context, employeeID, projectType string) ([]*task.Task, error) {
	projectType = strings.TrimSpace(projectType)
	if projectType == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "projectType is required", nil)
	}
	return e.tasks.ListByAssignee(ctx, employeeID, task.Filter{ProjectType: projectType})
}

// SearchByTitle returns the first task whose title matches exactly.
func (e *Engine) SearchByTitle(ctx context.Context, employeeID, title string) (*task.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "title is required", nil)
	}
	tasks, err := e.tasks.ListByAssignee(ctx, employeeID, task.Filter{Title: title})
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, cerr.NewError(cerr.NotFound, "no task with that title", nil)
	}
	return tasks[0], nil
}

type Summary struct {
	Total      int `json:"total" yaml:"total"`
	Pending    int `json:"pending" yaml:"pending"`
	InProgress int `json:"inProgress" yaml:"in_progress"`
	Completed  int `json:"completed" yaml:"completed"`
	Overdue    int `json:"overdue" yaml:"overdue"`
}

// Summary feeds the dashboard stats cards.
func (e *Engine) Summary(ctx context.Context, employeeID string) (*Summary, error) {
	tasks, err := e.tasks.ListByAssignee(ctx, employeeID, task.Filter{})
	if err != nil {
		return nil, err
	}
	now := e.now()
	s := &Summary{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case task.StatusPending:
			s.Pending++
		case task.StatusInProgress:
			s.InProgress++
		case task.StatusCompleted:
			s.Completed++
		}
		if t.IsOverdue(now) {
			s.Overdue++
		}
	}
	return s, nil
}
