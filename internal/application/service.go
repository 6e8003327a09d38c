package application

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/itsthekvd/kushlapp-engine/internal/assignment"
	"github.com/itsthekvd/kushlapp-engine/internal/eventbus"
	"github.com/itsthekvd/kushlapp-engine/internal/task"
	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
)

// Service owns student application submission and the approve/reject flow.
type Service struct {
	repo     task.Repository
	engine   *assignment.Engine
	eventBus *eventbus.Bus
}

func NewService(repo task.Repository, engine *assignment.Engine, eventBus *eventbus.Bus) *Service {
	return &Service{
		repo:     repo,
		engine:   engine,
		eventBus: eventBus,
	}
}

type SubmitRequest struct {
	TaskID       string `json:"taskId"`
	StudentID    string `json:"studentId"`
	StudentName  string `json:"studentName"`
	StudentEmail string `json:"studentEmail"`
	Note         string `json:"note"`
}

// Submit files a student's application for a task. Capacity is re-validated
// here, not just in the caller: a student at their assignment limit is
// rejected even if the UI skipped its own check.
func (s *Service) Submit(ctx context.Context, req *SubmitRequest) (*task.TaskApplication, error) {
	if req.TaskID == "" || req.StudentID == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "task id and student id are required", nil)
	}

	decision, err := s.engine.CanApply(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if !decision.CanApply {
		return nil, cerr.NewError(cerr.ResourceExhausted, decision.Reason, nil)
	}

	var app *task.TaskApplication
	_, err = s.repo.Mutate(ctx, req.TaskID, func(t *task.Task) error {
		if t.Status.IsLibrary() {
			return cerr.NewError(cerr.FailedPrecondition, "library items do not accept applications", nil)
		}
		if !t.IsPublished {
			return cerr.NewError(cerr.FailedPrecondition, "task is not open for applications", nil)
		}
		if t.IsCompleted() {
			return cerr.NewError(cerr.FailedPrecondition, "task is already completed", nil)
		}
		if existing := t.ApplicationByStudent(req.StudentID); existing != nil {
			return cerr.NewError(cerr.AlreadyExists, "you have already applied to this task", nil)
		}

		now := time.Now()
		t.Applications = append(t.Applications, task.TaskApplication{
			ID:           ulid.Make().String(),
			StudentID:    req.StudentID,
			StudentName:  req.StudentName,
			StudentEmail: req.StudentEmail,
			Note:         req.Note,
			Status:       task.ApplicationPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		t.UpdatedAt = now
		app = &t.Applications[len(t.Applications)-1]
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.eventBus.PublishNew(eventbus.TypeApplicationCreated, app.ID, "", map[string]string{
		"task_id":    req.TaskID,
		"student_id": req.StudentID,
	})
	return app, nil
}

type UpdateStatusRequest struct {
	TaskID        string                 `json:"taskId"`
	ApplicationID string                 `json:"applicationId"`
	Status        task.ApplicationStatus `json:"status"`
	ActorID       string                 `json:"actorId"`
	ActorName     string                 `json:"actorName"`
}

// UpdateStatus approves or rejects an application. Approval installs the
// student as the task's single active assignment and resets
// DetailsPostedToTimeline so the UI collaborator bulk-posts task details
// exactly once. Competing pending applications are left pending; the last
// approval wins the assignment slot.
func (s *Service) UpdateStatus(ctx context.Context, req *UpdateStatusRequest) (*task.Task, error) {
	if req.Status != task.ApplicationApproved && req.Status != task.ApplicationRejected {
		return nil, cerr.NewError(cerr.InvalidArgument,
			fmt.Sprintf("status must be %q or %q", task.ApplicationApproved, task.ApplicationRejected), nil)
	}

	var studentID string
	t, err := s.repo.Mutate(ctx, req.TaskID, func(t *task.Task) error {
		app := t.ApplicationByID(req.ApplicationID)
		if app == nil {
			return cerr.NewError(cerr.NotFound, "application not found", nil)
		}
		if t.IsCompleted() {
			return cerr.NewError(cerr.FailedPrecondition, "task is already completed", nil)
		}

		now := time.Now()
		app.Status = req.Status
		app.UpdatedAt = now
		t.UpdatedAt = now
		studentID = app.StudentID

		if req.Status == task.ApplicationRejected {
			// A rejection marks the application and nothing else.
			return nil
		}

		t.AssigneeID = app.StudentID
		t.Assignment = &task.TaskAssignment{
			StudentID:    app.StudentID,
			StudentName:  app.StudentName,
			StudentEmail: app.StudentEmail,
			AssignedAt:   now,
			Status:       task.AssignmentActive,
		}
		t.DetailsPostedToTimeline = false
		if t.Status == task.StatusPublished {
			t.Status = task.StatusInProgress
		}
		t.RecordEdit(req.ActorID, req.ActorName, "approve_application", app.StudentName)
		t.AppendSystemMessage(fmt.Sprintf("%s has been assigned to this task.", app.StudentName))
		return nil
	})
	if err != nil {
		return nil, err
	}

	eventType := eventbus.TypeApplicationApproved
	if req.Status == task.ApplicationRejected {
		eventType = eventbus.TypeApplicationRejected
	}
	s.eventBus.PublishNew(eventType, req.ApplicationID, "", map[string]string{
		"task_id":    t.ID,
		"student_id": studentID,
	})
	return t, nil
}
