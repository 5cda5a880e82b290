package report

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/kazz187/taskdesk/internal/assignment"
	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

type Bucket string

const (
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)

type BucketCount struct {
	Label string `json:"label" yaml:"label"`
	Count int    `json:"tasks" yaml:"tasks"`
}

// Engine answers the read-only dashboard queries of one employee. Calendar
// bucketing happens in loc.
type Engine struct {
	tasks       task.Repository
	assignments assignment.Repository
	loc         *time.Location
	now         func() time.Time
}

func New(tasks task.Repository, assignments assignment.Repository, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		tasks:       tasks,
		assignments: assignments,
		loc:         loc,
		now:         time.Now,
	}
}

// CountsByBucket counts the employee's assignments per ISO week
// ("2025-09") or per month ("Mar 2025") of AssignedAt. Buckets are ordered
// by the earliest assignment they contain.
func (e *Engine) CountsByBucket(ctx context.Context, employeeID string, bucket Bucket) ([]BucketCount, error) {
	label, err := labeler(bucket)
	if err != nil {
		return nil, err
	}
	list, err := e.assignments.ListByEmployee(ctx, employeeID, time.Time{})
	if err != nil {
		return nil, err
	}
	return e.count(list, label), nil
}

// CountsLastSixMonths counts monthly buckets of assignments made within the
// last six calendar months.
func (e *Engine) CountsLastSixMonths(ctx context.Context, employeeID string) ([]BucketCount, error) {
	since := e.now().In(e.loc).AddDate(0, -6, 0)
	list, err := e.assignments.ListByEmployee(ctx, employeeID, since)
	if err != nil {
		return nil, err
	}
	return e.count(list, monthLabel), nil
}

func labeler(bucket Bucket) (func(time.Time) string, error) {
	switch bucket {
	case BucketWeek:
		return weekLabel, nil
	case BucketMonth:
		return monthLabel, nil
	default:
		return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid bucket %q", bucket), nil)
	}
}

func weekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-%02d", year, week)
}

func monthLabel(t time.Time) string {
	return t.Format("Jan 2006")
}

func (e *Engine) count(list []*assignment.Assignment, label func(time.Time) string) []BucketCount {
	sorted := slices.Clone(list)
	slices.SortStableFunc(sorted, func(a, b *assignment.Assignment) int {
		return a.AssignedAt.Compare(b.AssignedAt)
	})
	out := []BucketCount{}
	index := map[string]int{}
	for _, a := range sorted {
		l := label(a.AssignedAt.In(e.loc))
		i, ok := index[l]
		if !ok {
			i = len(out)
			index[l] = i
			out = append(out, BucketCount{Label: l})
		}
		out[i].Count++
	}
	return out
}
