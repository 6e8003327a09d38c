package recurrence

import (
	"context"
	"fmt"
	"time"

	"github.com/itsthekvd/kushlapp-engine/internal/eventbus"
	"github.com/itsthekvd/kushlapp-engine/internal/task"
	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
)

// Service manages the recurring task lane: completion toggling with full
// round-trip bookkeeping, and the periodic due-date sweep.
type Service struct {
	repo     task.Repository
	eventBus *eventbus.Bus
}

func NewService(repo task.Repository, eventBus *eventbus.Bus) *Service {
	return &Service{
		repo:     repo,
		eventBus: eventBus,
	}
}

// ToggleCompletion flips a recurring task between done and not-done for the
// current cycle. Completing records history and schedules the next cycle;
// un-completing pops the history entry and restores the previous bookkeeping,
// so toggle is its own inverse.
func (s *Service) ToggleCompletion(ctx context.Context, taskID, userID, userName string) (*task.Task, error) {
	return s.repo.Mutate(ctx, taskID, func(t *task.Task) error {
		if !t.Status.IsRecurring() {
			return cerr.NewError(cerr.FailedPrecondition, "task is not recurring", nil)
		}

		now := time.Now()
		if !t.IsRecurringCompleted {
			next := t.Status.NextDue(now)
			t.IsRecurringCompleted = true
			t.LastCompletedAt = &now
			t.NextDueDate = &next
			t.RecurrenceHistory = append(t.RecurrenceHistory, task.RecurrenceRecord{
				CompletedAt: now,
				CompletedBy: userID,
				NextDueDate: next,
			})
			t.RecordEdit(userID, userName, "recurring_complete",
				fmt.Sprintf("next due %s", next.Format(time.RFC3339)))
			if t.AutoPostEnabled() {
				t.AppendSystemMessage(fmt.Sprintf("%s completed this cycle. Next due %s.",
					userName, next.Format("Jan 2, 2006")))
			}
		} else {
			t.IsRecurringCompleted = false
			if n := len(t.RecurrenceHistory); n > 0 {
				t.RecurrenceHistory = t.RecurrenceHistory[:n-1]
			}
			if n := len(t.RecurrenceHistory); n > 0 {
				last := t.RecurrenceHistory[n-1]
				completedAt := last.CompletedAt
				nextDue := last.NextDueDate
				t.LastCompletedAt = &completedAt
				t.NextDueDate = &nextDue
			} else {
				t.LastCompletedAt = nil
				t.NextDueDate = nil
			}
			t.RecordEdit(userID, userName, "recurring_uncomplete", "")
			if t.AutoPostEnabled() {
				t.AppendSystemMessage(fmt.Sprintf("%s reopened this cycle.", userName))
			}
		}
		t.UpdatedAt = now
		return nil
	})
}

// Sweep resets every recurring task whose completed cycle has come due as of
// now. The next due date advances by one unit from the previous due date,
// not from now, so repeated sweeps do not drift the schedule.
func (s *Service) Sweep(ctx context.Context, now time.Time) error {
	tasks, err := s.repo.List(ctx, task.Filter{Recurring: true})
	if err != nil {
		return err
	}

	for _, candidate := range tasks {
		if !candidate.IsRecurringCompleted || candidate.NextDueDate == nil || candidate.NextDueDate.After(now) {
			continue
		}

		reset := false
		t, err := s.repo.Mutate(ctx, candidate.ID, func(t *task.Task) error {
			// Re-check under the task lock: a toggle may have raced the scan.
			if !t.IsRecurringCompleted || t.NextDueDate == nil || t.NextDueDate.After(now) {
				return nil
			}
			next := t.Status.NextDue(*t.NextDueDate)
			t.IsRecurringCompleted = false
			t.NextDueDate = &next
			t.UpdatedAt = time.Now()
			if t.AutoPostEnabled() {
				t.AppendSystemMessage("This recurring task is due again.")
			}
			reset = true
			return nil
		})
		if err != nil {
			return err
		}
		if !reset {
			continue
		}

		s.eventBus.PublishNew(eventbus.TypeTaskDueAgain, t.ID, "", map[string]string{
			"campaign_id": t.CampaignID,
		})
	}
	return nil
}
