package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/itsthekvd/kushlapp-engine/internal/commission"
	"github.com/itsthekvd/kushlapp-engine/internal/eventbus"
	"github.com/itsthekvd/kushlapp-engine/internal/task"
	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
)

// Engine enforces the at-most-one-active-assignment invariant and the
// per-student concurrent task limit.
type Engine struct {
	repo     task.Repository
	calc     *commission.Calculator
	eventBus *eventbus.Bus
}

func NewEngine(repo task.Repository, calc *commission.Calculator, eventBus *eventbus.Bus) *Engine {
	return &Engine{
		repo:     repo,
		calc:     calc,
		eventBus: eventBus,
	}
}

// Decision is the outcome of a capacity check. Reason is set when CanApply is
// false and is meant to be shown to the student as-is.
type Decision struct {
	CanApply bool   `json:"canApply"`
	Reason   string `json:"reason,omitempty"`
}

// Stats aggregates a student's marketplace history.
type Stats struct {
	ActiveCount    int   `json:"activeCount"`
	CompletedCount int   `json:"completedCount"`
	TotalEarnings  int64 `json:"totalEarnings"`
	Limit          int   `json:"limit"`
}

// TaskLimit is the maximum number of concurrently active assignments a
// student may hold. Two independent monotone paths, completion count and
// total earnings, each raise the base of 1; the effective limit is the
// larger of the two so it never regresses as either input grows.
func TaskLimit(completedCount int, totalEarnings int64) int {
	byCompleted := 1
	switch {
	case completedCount >= 50:
		byCompleted = 4
	case completedCount >= 25:
		byCompleted = 3
	case completedCount >= 10:
		byCompleted = 2
	}

	byEarnings := 1
	switch {
	case totalEarnings >= 500000:
		byEarnings = 7
	case totalEarnings >= 250000:
		byEarnings = 6
	case totalEarnings >= 100000:
		byEarnings = 5
	case totalEarnings >= 50000:
		byEarnings = 4
	case totalEarnings >= 25000:
		byEarnings = 3
	case totalEarnings >= 10000:
		byEarnings = 2
	}

	if byEarnings > byCompleted {
		return byEarnings
	}
	return byCompleted
}

// StatsFor gathers the student's active assignment count, completed task
// count and total net earnings across all tasks.
func (e *Engine) StatsFor(ctx context.Context, studentID string) (*Stats, error) {
	tasks, err := e.repo.List(ctx, task.Filter{AssigneeID: studentID})
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	for _, t := range tasks {
		if t.HasActiveAssignment() && !t.IsCompleted() {
			stats.ActiveCount++
		}
	}

	// Completed work no longer carries the assignee id (reassignment clears
	// it), so history is counted from the embedded assignment record.
	completed, err := e.repo.List(ctx, task.Filter{Statuses: []task.Status{task.StatusCompleted}})
	if err != nil {
		return nil, err
	}
	for _, t := range completed {
		if t.Assignment == nil || t.Assignment.StudentID != studentID {
			continue
		}
		stats.CompletedCount++
		stats.TotalEarnings += e.calc.NetEarnings(t.Price)
	}

	stats.Limit = TaskLimit(stats.CompletedCount, stats.TotalEarnings)
	return stats, nil
}

// CanApply decides whether the student may take on another task.
func (e *Engine) CanApply(ctx context.Context, studentID string) (*Decision, error) {
	if studentID == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "student id is required", nil)
	}
	stats, err := e.StatsFor(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if stats.ActiveCount >= stats.Limit {
		return &Decision{
			CanApply: false,
			Reason: fmt.Sprintf("you already hold %d active task(s) and your current limit is %d; complete an assignment to free up capacity",
				stats.ActiveCount, stats.Limit),
		}, nil
	}
	return &Decision{CanApply: true}, nil
}

// Reassign releases the task from its current student and returns it to the
// open marketplace pool. Applications and timeline history stay untouched.
func (e *Engine) Reassign(ctx context.Context, taskID, reason, actorID, actorName string) (*task.Task, error) {
	t, err := e.repo.Mutate(ctx, taskID, func(t *task.Task) error {
		if t.Assignment == nil {
			return cerr.NewError(cerr.FailedPrecondition, "task has no assignment to release", nil)
		}
		if t.IsCompleted() {
			return cerr.NewError(cerr.FailedPrecondition, "completed tasks cannot be reassigned", nil)
		}

		previous := t.Assignment.StudentName
		t.Assignment.Status = task.AssignmentReassigned
		t.AssigneeID = ""

		now := time.Now()
		t.IsPublished = true
		t.PublishedAt = &now
		t.UpdatedAt = now

		detail := reason
		if detail == "" {
			detail = "no reason given"
		}
		t.RecordEdit(actorID, actorName, "reassign", detail)
		t.AppendSystemMessage(fmt.Sprintf("Task released from %s and returned to the marketplace: %s", previous, detail))
		return nil
	})
	if err != nil {
		return nil, err
	}

	meta := map[string]string{"campaign_id": t.CampaignID}
	if t.Assignment != nil {
		meta["previous_student_id"] = t.Assignment.StudentID
	}
	e.eventBus.PublishNew(eventbus.TypeTaskReassigned, t.ID, reason, meta)
	return t, nil
}
