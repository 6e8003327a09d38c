package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/itsthekvd/kushlapp-engine/internal/eventbus"
	"github.com/itsthekvd/kushlapp-engine/internal/task"
	"github.com/itsthekvd/kushlapp-engine/pkg/panicerr"
)

// Dispatcher turns task lifecycle events into push notifications. It runs as a
// single goroutine draining the event bus until the context is cancelled.
type Dispatcher struct {
	eventBus *eventbus.Bus
	sender   *Sender
	taskRepo task.Repository
}

func NewDispatcher(eventBus *eventbus.Bus, sender *Sender, taskRepo task.Repository) *Dispatcher {
	return &Dispatcher{
		eventBus: eventBus,
		sender:   sender,
		taskRepo: taskRepo,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	subID, events := d.eventBus.Subscribe(256)
	defer d.eventBus.Unsubscribe(subID)

	slog.Info("notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("notification dispatcher stopped")
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := panicerr.SafeContext(func(ctx context.Context) error {
				d.handle(ctx, evt)
				return nil
			})(ctx); err != nil {
				slog.Error("notification dispatcher recovered from panic", "error", err)
			}
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, evt *eventbus.Event) {
	switch evt.Type {
	case eventbus.TypeApplicationApproved:
		d.notifyApplicationApproved(ctx, evt)
	case eventbus.TypeApplicationRejected:
		d.notifyApplicationRejected(ctx, evt)
	case eventbus.TypeTaskDueAgain:
		d.notifyTaskDueAgain(ctx, evt)
	case eventbus.TypeTaskReassigned:
		d.notifyTaskReassigned(ctx, evt)
	}
}

func (d *Dispatcher) notifyApplicationApproved(ctx context.Context, evt *eventbus.Event) {
	studentID := evt.Metadata["student_id"]
	if studentID == "" {
		return
	}
	title := d.taskTitle(ctx, evt.Metadata["task_id"])
	d.sender.SendToUser(ctx, studentID, &Payload{
		Title: "Application approved",
		Body:  fmt.Sprintf("You have been assigned to %q. Time to get started.", title),
		Tag:   "application-" + evt.ResourceID,
	})
}

func (d *Dispatcher) notifyApplicationRejected(ctx context.Context, evt *eventbus.Event) {
	studentID := evt.Metadata["student_id"]
	if studentID == "" {
		return
	}
	title := d.taskTitle(ctx, evt.Metadata["task_id"])
	d.sender.SendToUser(ctx, studentID, &Payload{
		Title: "Application update",
		Body:  fmt.Sprintf("Your application for %q was not selected this time.", title),
		Tag:   "application-" + evt.ResourceID,
	})
}

func (d *Dispatcher) notifyTaskDueAgain(ctx context.Context, evt *eventbus.Event) {
	t, err := d.taskRepo.Get(ctx, evt.ResourceID)
	if err != nil {
		slog.Error("notification dispatcher: failed to load task", "task_id", evt.ResourceID, "error", err)
		return
	}
	if t.AssigneeID == "" {
		return
	}
	d.sender.SendToUser(ctx, t.AssigneeID, &Payload{
		Title: "Recurring task due",
		Body:  fmt.Sprintf("%q is due again.", t.Title),
		Tag:   "due-" + t.ID,
	})
}

func (d *Dispatcher) notifyTaskReassigned(ctx context.Context, evt *eventbus.Event) {
	studentID := evt.Metadata["previous_student_id"]
	if studentID == "" {
		return
	}
	title := d.taskTitle(ctx, evt.ResourceID)
	body := fmt.Sprintf("%q has been released from your assignments.", title)
	if evt.Payload != "" {
		body = fmt.Sprintf("%q has been released from your assignments: %s", title, evt.Payload)
	}
	d.sender.SendToUser(ctx, studentID, &Payload{
		Title: "Task reassigned",
		Body:  body,
		Tag:   "reassign-" + evt.ResourceID,
	})
}

func (d *Dispatcher) taskTitle(ctx context.Context, taskID string) string {
	if taskID == "" {
		return "a task"
	}
	t, err := d.taskRepo.Get(ctx, taskID)
	if err != nil {
		return "a task"
	}
	return t.Title
}
