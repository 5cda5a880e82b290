package activitylog

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
)

// Recorder writes audit entries on a best-effort basis: a failed write is
// logged and otherwise ignored.
type Recorder struct {
	repo Repository
	now  func() time.Time
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, now: time.Now}
}

func (r *Recorder) Record(ctx context.Context, email, action, description string) {
	e := &Entry{
		ID:            ulid.Make().String(),
		EmployeeEmail: email,
		Action:        action,
		Description:   description,
		Timestamp:     r.now(),
	}
	if err := r.repo.Create(context.WithoutCancel(ctx), e); err != nil {
		slog.WarnContext(ctx, "failed to record activity", "action", action, "email", email, "error", err)
	}
}
