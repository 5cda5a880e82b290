package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kazz187/taskdesk/internal/employee"
	"github.com/kazz187/taskdesk/internal/eventbus"
	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/pkg/panicerr"
)

type Subscriber interface {
	Subscribe(ctx context.Context, eventType eventbus.Type, bufSize int) (<-chan *eventbus.Event, error)
}

// Dispatcher tells employees about tasks assigned to them and managers about
// status changes. Delivery is best effort: failures are logged and never
// retried.
type Dispatcher struct {
	bus       Subscriber
	tasks     task.Repository
	employees employee.Repository
	mailer    Mailer
	pusher    Pusher
	loc       *time.Location
}

func NewDispatcher(bus Subscriber, tasks task.Repository, employees employee.Repository, mailer Mailer, pusher Pusher, loc *time.Location) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{
		bus:       bus,
		tasks:     tasks,
		employees: employees,
		mailer:    mailer,
		pusher:    pusher,
		loc:       loc,
	}
}

// Start consumes task.assigned and task.status_changed events until ctx is
// done or either subscription closes.
func (d *Dispatcher) Start(ctx context.Context) error {
	assigned, err := d.bus.Subscribe(ctx, eventbus.TaskAssigned, 256)
	if err != nil {
		return err
	}
	statusChanged, err := d.bus.Subscribe(ctx, eventbus.TaskStatusChanged, 256)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "notification dispatcher started")
	for {
		var (
			event *eventbus.Event
			ok    bool
		)
		select {
		case <-ctx.Done():
			slog.Info("notification dispatcher stopped")
			return nil
		case event, ok = <-assigned:
		case event, ok = <-statusChanged:
		}
		if !ok {
			return nil
		}
		d.dispatch(ctx, event)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, event *eventbus.Event) {
	handle := panicerr.SafeContext(func(ctx context.Context) error {
		switch event.Type {
		case eventbus.TaskAssigned:
			return d.handleTaskAssigned(ctx, event)
		case eventbus.TaskStatusChanged:
			return d.handleStatusChanged(ctx, event)
		default:
			return nil
		}
	})
	if err := handle(ctx); err != nil {
		slog.ErrorContext(ctx, "notification dispatcher: failed to handle event", "id", event.ID, "type", event.Type, "resource_id", event.ResourceID, "error", err)
	}
}

func (d *Dispatcher) handleTaskAssigned(ctx context.Context, event *eventbus.Event) error {
	t, err := d.tasks.Get(ctx, event.ResourceID)
	if err != nil {
		return fmt.Errorf("failed to get task: %w", err)
	}
	emp, err := d.employees.Get(ctx, event.EmployeeID)
	if err != nil {
		return fmt.Errorf("failed to get employee: %w", err)
	}

	subject, body := d.assignmentMail(emp, t)
	if err := d.mailer.Send(ctx, emp.Email, subject, body); err != nil {
		slog.ErrorContext(ctx, "notification dispatcher: failed to send mail", "task_id", t.ID, "to", emp.Email, "error", err)
	}
	d.pusher.SendToEmployee(ctx, emp.ID, &Payload{
		Title: "New Task Assigned",
		Body:  t.Title,
		URL:   "/my-tasks/assigned",
		Tag:   t.ID,
	})
	return nil
}

// handleStatusChanged pushes the new status to every manager.
func (d *Dispatcher) handleStatusChanged(ctx context.Context, event *eventbus.Event) error {
	t, err := d.tasks.Get(ctx, event.ResourceID)
	if err != nil {
		return fmt.Errorf("failed to get task: %w", err)
	}
	status := task.Status(event.Metadata["status"])
	if !status.Valid() {
		status = t.Status
	}
	employees, err := d.employees.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list employees: %w", err)
	}
	for _, emp := range employees {
		if emp.Role != employee.RoleManager {
			continue
		}
		d.pusher.SendToEmployee(ctx, emp.ID, &Payload{
			Title: "Task Status Updated",
			Body:  fmt.Sprintf("%s is now %s", t.Title, status),
			URL:   "/dashboard",
			Tag:   t.ID + ":status",
		})
	}
	return nil
}

func (d *Dispatcher) assignmentMail(emp *employee.Employee, t *task.Task) (string, string) {
	due := "none"
	if t.DueDate != nil {
		due = t.DueDate.In(d.loc).Format("2006-01-02 15:04 MST")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", emp.Name)
	b.WriteString("You have been assigned a new task.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", t.Title)
	fmt.Fprintf(&b, "Description: %s\n", t.Description)
	fmt.Fprintf(&b, "Project Type: %s\n", t.ProjectType)
	fmt.Fprintf(&b, "Status: %s\n", t.Status)
	fmt.Fprintf(&b, "Due Date: %s\n\n", due)
	b.WriteString("Please check your dashboard for more details.\n")
	b.WriteString("Thank you,\nTaskDesk Team\n")
	return "New Task Assigned: " + t.Title, b.String()
}
