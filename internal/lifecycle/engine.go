package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kazz187/taskdesk/internal/activitylog"
	"github.com/kazz187/taskdesk/internal/assignment"
	"github.com/kazz187/taskdesk/internal/database"
	"github.com/kazz187/taskdesk/internal/employee"
	"github.com/kazz187/taskdesk/internal/eventbus"
	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

type ActivityRecorder interface {
	Record(ctx context.Context, email, action, description string)
}

type EventPublisher interface {
	PublishNew(ctx context.Context, eventType eventbus.Type, resourceID, employeeID string, metadata map[string]string)
}

// Engine moves tasks through their lifecycle on behalf of the assignee and
// keeps the assignment timestamps in step.
type Engine struct {
	tx          database.Transactor
	tasks       task.Repository
	assignments assignment.Repository
	employees   employee.Repository
	blobs       storage.Storage
	activity    ActivityRecorder
	events      EventPublisher
	publicURL   string
	now         func() time.Time
}

func NewEngine(
	tx database.Transactor,
	tasks task.Repository,
	assignments assignment.Repository,
	employees employee.Repository,
	blobs storage.Storage,
	activity ActivityRecorder,
	events EventPublisher,
	publicURL string,
) *Engine {
	return &Engine{
		tx:          tx,
		tasks:       tasks,
		assignments: assignments,
		employees:   employees,
		blobs:       blobs,
		activity:    activity,
		events:      events,
		publicURL:   publicURL,
		now:         time.Now,
	}
}

type TransitionResult struct {
	Message   string      `json:"message"`
	NewStatus task.Status `json:"newStatus"`
	Task      *task.Task  `json:"task"`
}

// Transition sets the status of a task owned by employeeID. Any status may
// follow any other. StartAt and CompletedAt on the assignment are stamped the
// first time the task enters in_progress and completed and never again.
func (e *Engine) Transition(ctx context.Context, employeeID, taskID string, requested task.Status) (*TransitionResult, error) {
	now := e.now()
	var updated *task.Task
	err := e.tx.WithTx(ctx, func(ctx context.Context) error {
		t, err := e.tasks.GetOwned(ctx, taskID, employeeID)
		if err != nil {
			return err
		}
		if !requested.Valid() {
			return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid status %q", requested), nil)
		}
		t.Status = requested
		t.UpdatedAt = now
		if err := e.tasks.Update(ctx, t); err != nil {
			return err
		}
		if err := e.stampAssignment(ctx, taskID, employeeID, requested, now); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.record(ctx, employeeID, activitylog.ActionUpdateTaskStatus,
		fmt.Sprintf("Task ID %s status changed to %s.", taskID, requested))
	e.events.PublishNew(ctx, eventbus.TaskStatusChanged, taskID, employeeID, map[string]string{
		"status": string(requested),
	})

	return &TransitionResult{
		Message:   "Task status updated successfully",
		NewStatus: requested,
		Task:      updated,
	}, nil
}

func (e *Engine) stampAssignment(ctx context.Context, taskID, employeeID string, status task.Status, now time.Time) error {
	if status != task.StatusInProgress && status != task.StatusCompleted {
		return nil
	}
	a, err := e.assignments.Find(ctx, taskID, employeeID)
	if cerr.IsCode(err, cerr.NotFound) {
		slog.WarnContext(ctx, "task has no assignment row, timestamps not recorded", "task_id", taskID, "employee_id", employeeID)
		return nil
	}
	if err != nil {
		return err
	}
	var changed bool
	if status == task.StatusInProgress {
		changed = a.MarkStarted(now)
	} else {
		changed = a.MarkCompleted(now)
	}
	if !changed {
		return nil
	}
	return e.assignments.Update(ctx, a)
}

// record resolves the employee's email for the audit trail. Failures are
// logged only.
func (e *Engine) record(ctx context.Context, employeeID, action, description string) {
	emp, err := e.employees.Get(ctx, employeeID)
	if err != nil {
		slog.WarnContext(ctx, "failed to resolve employee for activity log", "employee_id", employeeID, "error", err)
		return
	}
	e.activity.Record(ctx, emp.Email, action, description)
}
