package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskdesk/internal/activitylog"
	"github.com/kazz187/taskdesk/internal/assignment"
	"github.com/kazz187/taskdesk/internal/database"
	"github.com/kazz187/taskdesk/internal/employee"
	"github.com/kazz187/taskdesk/internal/eventbus"
	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

type ActivityRecorder interface {
	Record(ctx context.Context, email, action, description string)
}

type EventPublisher interface {
	PublishNew(ctx context.Context, eventType eventbus.Type, resourceID, employeeID string, metadata map[string]string)
}

// Orchestrator creates tasks on behalf of managers and assigns them.
type Orchestrator struct {
	tx          database.Transactor
	tasks       task.Repository
	assignments assignment.Repository
	employees   employee.Repository
	activity    ActivityRecorder
	events      EventPublisher
	now         func() time.Time
}

func New(
	tx database.Transactor,
	tasks task.Repository,
	assignments assignment.Repository,
	employees employee.Repository,
	activity ActivityRecorder,
	events EventPublisher,
) *Orchestrator {
	return &Orchestrator{
		tx:          tx,
		tasks:       tasks,
		assignments: assignments,
		employees:   employees,
		activity:    activity,
		events:      events,
		now:         time.Now,
	}
}

type CreateTaskInput struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	ProjectType string              `json:"projectType"`
	Status      task.Status         `json:"status"`
	Priority    assignment.Priority `json:"priority"`
	DueDate     *time.Time          `json:"dueDate"`
	AssigneeID  string              `json:"assigneeId"`
}

func (in *CreateTaskInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return cerr.NewError(cerr.InvalidArgument, "title is required", nil)
	}
	if in.AssigneeID == "" {
		return cerr.NewError(cerr.InvalidArgument, "assigneeId is required", nil)
	}
	if in.Status == "" {
		in.Status = task.StatusPending
	}
	if !in.Status.Valid() {
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid status %q", in.Status), nil)
	}
	if in.Priority == "" {
		in.Priority = assignment.PriorityMedium
	}
	if !in.Priority.Valid() {
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid priority %q", in.Priority), nil)
	}
	return nil
}

// CreateAndAssign writes the task and its assignment in one transaction.
// The audit entry and the task.assigned event follow the commit; the
// notification they trigger is delivered at most once.
func (o *Orchestrator) CreateAndAssign(ctx context.Context, managerID string, in CreateTaskInput) (*task.Task, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	now := o.now()
	t := &task.Task{
		ID:          ulid.Make().String(),
		Title:       in.Title,
		Description: in.Description,
		ProjectType: in.ProjectType,
		Status:      in.Status,
		DueDate:     in.DueDate,
		Attachments: []string{},
		AssigneeID:  in.AssigneeID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var assignee *employee.Employee
	err := o.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		assignee, err = o.employees.Get(ctx, in.AssigneeID)
		if err != nil {
			if cerr.IsCode(err, cerr.NotFound) {
				return cerr.NewError(cerr.NotFound, "assignee not found", err)
			}
			return err
		}
		if err := o.tasks.Create(ctx, t); err != nil {
			return err
		}
		return o.assignments.Create(ctx, &assignment.Assignment{
			ID:         ulid.Make().String(),
			TaskID:     t.ID,
			EmployeeID: assignee.ID,
			CreatedAt:  now,
			AssignedAt: now,
			Priority:   in.Priority,
		})
	})
	if err != nil {
		return nil, err
	}

	o.recordAssignment(ctx, managerID, t, assignee)
	o.events.PublishNew(ctx, eventbus.TaskAssigned, t.ID, assignee.ID, map[string]string{
		"title":    t.Title,
		"priority": string(in.Priority),
	})
	return t, nil
}

// DeleteTask removes a task together with its assignments. Attachment blobs
// stay in storage.
func (o *Orchestrator) DeleteTask(ctx context.Context, managerID, taskID string) error {
	err := o.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := o.tasks.Get(ctx, taskID); err != nil {
			return err
		}
		return o.tasks.Delete(ctx, taskID)
	})
	if err != nil {
		return err
	}
	o.activity.Record(ctx, o.actorEmail(ctx, managerID, ""), activitylog.ActionDeleteTask,
		fmt.Sprintf("Task ID %s deleted.", taskID))
	return nil
}

func (o *Orchestrator) recordAssignment(ctx context.Context, managerID string, t *task.Task, assignee *employee.Employee) {
	o.activity.Record(ctx, o.actorEmail(ctx, managerID, assignee.Email), activitylog.ActionAssignTask,
		fmt.Sprintf("Task ID %s assigned to %s.", t.ID, assignee.Email))
}

// actorEmail resolves the manager's email, or returns fallback when the
// manager cannot be found.
func (o *Orchestrator) actorEmail(ctx context.Context, managerID, fallback string) string {
	if managerID == "" {
		return fallback
	}
	manager, err := o.employees.Get(ctx, managerID)
	if err != nil {
		slog.WarnContext(ctx, "failed to resolve manager for activity log", "manager_id", managerID, "error", err)
		return fallback
	}
	return manager.Email
}
