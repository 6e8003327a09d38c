package timeline

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/itsthekvd/kushlapp-engine/internal/task"
	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
)

// Service owns the append-only timeline message log attached to each task.
// Messages are never physically removed: deletion replaces content with a
// fixed placeholder and keeps the entry as audit trail.
type Service struct {
	repo task.Repository
}

func NewService(repo task.Repository) *Service {
	return &Service{repo: repo}
}

type AppendRequest struct {
	TaskID          string    `json:"taskId"`
	AuthorID        string    `json:"authorId"`
	AuthorName      string    `json:"authorName"`
	Role            task.Role `json:"role"`
	Content         string    `json:"content"`
	IsSystemMessage bool      `json:"isSystemMessage"`
}

func (s *Service) Append(ctx context.Context, req *AppendRequest) (*task.TimelineMessage, error) {
	if req.Content == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "message content is required", nil)
	}
	if req.Role != task.RoleEmployer && req.Role != task.RoleStudent {
		return nil, cerr.NewError(cerr.InvalidArgument, "role must be employer or student", nil)
	}

	var msg *task.TimelineMessage
	_, err := s.repo.Mutate(ctx, req.TaskID, func(t *task.Task) error {
		// Completion locks the conversation. System messages stay allowed so
		// completion itself can be announced.
		if t.IsCompleted() && !req.IsSystemMessage {
			return cerr.NewError(cerr.FailedPrecondition, "task is completed; timeline is locked", nil)
		}

		now := time.Now()
		t.TimelineMessages = append(t.TimelineMessages, task.TimelineMessage{
			ID:              ulid.Make().String(),
			AuthorID:        req.AuthorID,
			AuthorName:      req.AuthorName,
			Role:            req.Role,
			Content:         req.Content,
			CreatedAt:       now,
			IsSystemMessage: req.IsSystemMessage,
		})
		t.UpdatedAt = now
		msg = &t.TimelineMessages[len(t.TimelineMessages)-1]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

type EditRequest struct {
	TaskID     string    `json:"taskId"`
	MessageID  string    `json:"messageId"`
	NewContent string    `json:"newContent"`
	EditorID   string    `json:"editorId"`
	EditorRole task.Role `json:"editorRole"`
}

func (s *Service) Edit(ctx context.Context, req *EditRequest) (*task.TimelineMessage, error) {
	if req.NewContent == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "message content is required", nil)
	}

	var msg *task.TimelineMessage
	_, err := s.repo.Mutate(ctx, req.TaskID, func(t *task.Task) error {
		if t.IsCompleted() {
			return cerr.NewError(cerr.FailedPrecondition, "task is completed; timeline is locked", nil)
		}
		m := t.TimelineMessageByID(req.MessageID)
		if m == nil {
			return cerr.NewError(cerr.NotFound, "message not found", nil)
		}
		if m.IsDeleted {
			return cerr.NewError(cerr.FailedPrecondition, "deleted messages cannot be edited", nil)
		}
		if m.AuthorID != req.EditorID {
			return cerr.NewError(cerr.PermissionDenied, "only the author can edit a message", nil)
		}

		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(m.Content),
			B:        difflib.SplitLines(req.NewContent),
			FromFile: "before",
			ToFile:   "after",
			Context:  1,
		})

		now := time.Now()
		m.Content = req.NewContent
		m.Edited = true
		m.EditedAt = &now
		t.UpdatedAt = now
		t.RecordEdit(req.EditorID, "", "edit_timeline_message", diff)
		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

type DeleteRequest struct {
	TaskID    string    `json:"taskId"`
	MessageID string    `json:"messageId"`
	ActorID   string    `json:"actorId"`
	ActorRole task.Role `json:"actorRole"`
}

func (s *Service) Delete(ctx context.Context, req *DeleteRequest) error {
	_, err := s.repo.Mutate(ctx, req.TaskID, func(t *task.Task) error {
		if t.IsCompleted() {
			return cerr.NewError(cerr.FailedPrecondition, "task is completed; timeline is locked", nil)
		}
		m := t.TimelineMessageByID(req.MessageID)
		if m == nil {
			return cerr.NewError(cerr.NotFound, "message not found", nil)
		}
		if m.IsDeleted {
			// Idempotent: deleting twice keeps the placeholder.
			return nil
		}
		if m.AuthorID != req.ActorID {
			return cerr.NewError(cerr.PermissionDenied, "only the author can delete a message", nil)
		}

		now := time.Now()
		m.Content = task.DeletedMessagePlaceholder
		m.IsDeleted = true
		m.DeletedAt = &now
		t.UpdatedAt = now
		t.RecordEdit(req.ActorID, "", "delete_timeline_message", m.ID)
		return nil
	})
	return err
}
