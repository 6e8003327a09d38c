package lifecycle

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/itsthekvd/kushlapp-engine/internal/eventbus"
	"github.com/itsthekvd/kushlapp-engine/internal/hierarchy"
	"github.com/itsthekvd/kushlapp-engine/internal/task"
	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
)

var youtubeURLPattern = regexp.MustCompile(`^https?://(www\.)?(youtube\.com/watch\?v=|youtu\.be/)[\w-]{6,}`)

// Service is the top-level task lifecycle orchestrator: create, update,
// publish and complete tasks.
type Service struct {
	repo         task.Repository
	campaignRepo hierarchy.CampaignRepository
	eventBus     *eventbus.Bus
}

func NewService(repo task.Repository, campaignRepo hierarchy.CampaignRepository, eventBus *eventbus.Bus) *Service {
	return &Service{
		repo:         repo,
		campaignRepo: campaignRepo,
		eventBus:     eventBus,
	}
}

type CreateRequest struct {
	CampaignID  string        `json:"campaignId"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Priority    task.Priority `json:"priority"`
	Price       int64         `json:"price"`
	Category    string        `json:"category"`
	VideoURL    string        `json:"videoUrl,omitempty"`
	// Recurrence selects a recurring status lane: "", "daily", "weekly", "monthly".
	Recurrence string `json:"recurrence,omitempty"`
	// Publish lists the task on the marketplace immediately.
	Publish bool `json:"publish"`
	// Kind payload for library items; zero for ordinary tasks.
	Kind      task.Kind `json:"kind,omitempty"`
	ActorID   string    `json:"actorId"`
	ActorName string    `json:"actorName"`
}

func statusForCreate(req *CreateRequest) (task.Status, error) {
	switch req.Recurrence {
	case "":
	case "daily":
		return task.StatusRecurringDaily, nil
	case "weekly":
		return task.StatusRecurringWeekly, nil
	case "monthly":
		return task.StatusRecurringMonthly, nil
	default:
		return "", cerr.NewError(cerr.InvalidArgument,
			fmt.Sprintf("unknown recurrence %q", req.Recurrence), nil)
	}
	switch {
	case req.Kind.Checklist != nil:
		return task.StatusChecklistLibrary, nil
	case req.Kind.Credentials != nil:
		return task.StatusCredentialsLibrary, nil
	case req.Kind.BrandBrief != nil:
		return task.StatusBrandBrief, nil
	case req.Kind.Resources != nil:
		return task.StatusResourceLibrary, nil
	}
	if req.Publish {
		return task.StatusPublished, nil
	}
	return task.StatusDraft, nil
}

func (s *Service) Create(ctx context.Context, req *CreateRequest) (*task.Task, error) {
	if req.Title == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "task title is required", nil)
	}
	if req.Price < 0 {
		return nil, cerr.NewError(cerr.InvalidArgument, "price cannot be negative", nil)
	}
	if req.Category == "youtube" && !youtubeURLPattern.MatchString(req.VideoURL) {
		return nil, cerr.NewError(cerr.InvalidArgument, "youtube tasks require a valid video URL", nil)
	}
	if _, err := s.campaignRepo.Get(ctx, req.CampaignID); err != nil {
		return nil, err
	}

	status, err := statusForCreate(req)
	if err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = task.PriorityMedium
	}

	now := time.Now()
	t := &task.Task{
		ID:          ulid.Make().String(),
		CampaignID:  req.CampaignID,
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		Price:       req.Price,
		Category:    req.Category,
		Kind:        req.Kind,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// Marketplace tasks (including recurring ones) are listed on request;
	// library items never are.
	if (req.Publish || status.IsRecurring()) && !status.IsLibrary() {
		t.IsPublished = true
		t.PublishedAt = &now
	}
	t.RecordEdit(req.ActorID, req.ActorName, "create", "")

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.eventBus.PublishNew(eventbus.TypeTaskCreated, t.ID, "", map[string]string{
		"campaign_id": t.CampaignID,
	})
	return t, nil
}

// UpdateRequest carries a partial update. Nil fields are left unchanged.
type UpdateRequest struct {
	TaskID      string         `json:"taskId"`
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *task.Status   `json:"status,omitempty"`
	Priority    *task.Priority `json:"priority,omitempty"`
	Price       *int64         `json:"price,omitempty"`
	Category    *string        `json:"category,omitempty"`
	ActorID     string         `json:"actorId"`
	ActorName   string         `json:"actorName"`
}

func (s *Service) Update(ctx context.Context, req *UpdateRequest) (*task.Task, error) {
	t, err := s.repo.Mutate(ctx, req.TaskID, func(t *task.Task) error {
		if req.Title != nil {
			if *req.Title == "" {
				return cerr.NewError(cerr.InvalidArgument, "task title is required", nil)
			}
			t.Title = *req.Title
		}
		if req.Description != nil && *req.Description != t.Description {
			diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
				A:        difflib.SplitLines(t.Description),
				B:        difflib.SplitLines(*req.Description),
				FromFile: "before",
				ToFile:   "after",
				Context:  1,
			})
			t.Description = *req.Description
			t.RecordEdit(req.ActorID, req.ActorName, "edit_description", diff)
		}
		if req.Priority != nil {
			t.Priority = *req.Priority
		}
		if req.Price != nil {
			if *req.Price < 0 {
				return cerr.NewError(cerr.InvalidArgument, "price cannot be negative", nil)
			}
			t.Price = *req.Price
		}
		if req.Category != nil {
			t.Category = *req.Category
		}
		if req.Status != nil && *req.Status != t.Status {
			if !req.Status.Valid() {
				return cerr.NewError(cerr.InvalidArgument,
					fmt.Sprintf("unknown status %q", *req.Status), nil)
			}
			if t.Status.IsRecurring() || t.Status.IsLibrary() || req.Status.IsRecurring() || req.Status.IsLibrary() {
				return cerr.NewError(cerr.FailedPrecondition,
					"recurring and library statuses cannot be entered or left via update", nil)
			}
			if !CanTransition(t.Status, *req.Status) {
				return cerr.NewError(cerr.FailedPrecondition,
					fmt.Sprintf("transition from %q to %q is not allowed", t.Status, *req.Status), nil)
			}
			t.RecordEdit(req.ActorID, req.ActorName, "status_change",
				fmt.Sprintf("%s -> %s", t.Status, *req.Status))
			t.Status = *req.Status
		}
		t.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.eventBus.PublishNew(eventbus.TypeTaskUpdated, t.ID, "", map[string]string{
		"campaign_id": t.CampaignID,
	})
	return t, nil
}

func (s *Service) TogglePublish(ctx context.Context, taskID, actorID, actorName string) (*task.Task, error) {
	t, err := s.repo.Mutate(ctx, taskID, func(t *task.Task) error {
		if t.Status.IsLibrary() {
			return cerr.NewError(cerr.FailedPrecondition, "library items cannot be published", nil)
		}
		now := time.Now()
		t.IsPublished = !t.IsPublished
		if t.IsPublished {
			t.PublishedAt = &now
		}
		t.UpdatedAt = now
		t.RecordEdit(actorID, actorName, "toggle_publish", fmt.Sprintf("published=%t", t.IsPublished))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if t.IsPublished {
		s.eventBus.PublishNew(eventbus.TypeTaskPublished, t.ID, "", map[string]string{
			"campaign_id": t.CampaignID,
		})
	}
	return t, nil
}

func (s *Service) ToggleAutoPostToTimeline(ctx context.Context, taskID, actorID, actorName string) (*task.Task, error) {
	return s.repo.Mutate(ctx, taskID, func(t *task.Task) error {
		enabled := !t.AutoPostEnabled()
		t.AutoPostToTimeline = &enabled
		t.UpdatedAt = time.Now()
		t.RecordEdit(actorID, actorName, "toggle_auto_post", fmt.Sprintf("enabled=%t", enabled))
		return nil
	})
}

// MarkCompleted is the terminal transition: after it, comments and timeline
// edits are locked by the engine.
func (s *Service) MarkCompleted(ctx context.Context, taskID, actorID, actorName string) (*task.Task, error) {
	t, err := s.repo.Mutate(ctx, taskID, func(t *task.Task) error {
		if t.Status.IsRecurring() {
			return cerr.NewError(cerr.FailedPrecondition,
				"recurring tasks complete via toggle-completion, not mark-completed", nil)
		}
		if t.Status.IsLibrary() {
			return cerr.NewError(cerr.FailedPrecondition, "library items cannot be completed", nil)
		}
		if t.IsCompleted() {
			return cerr.NewError(cerr.FailedPrecondition, "task is already completed", nil)
		}

		now := time.Now()
		t.Status = task.StatusCompleted
		t.CompletedAt = &now
		if t.Assignment != nil && t.Assignment.Status == task.AssignmentActive {
			t.Assignment.Status = task.AssignmentCompleted
		}
		t.UpdatedAt = now
		t.RecordEdit(actorID, actorName, "complete", "")
		t.AppendSystemMessage("Task marked as completed.")
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.eventBus.PublishNew(eventbus.TypeTaskCompleted, t.ID, "", map[string]string{
		"campaign_id": t.CampaignID,
	})
	return t, nil
}

// AddComment appends a plain comment. Comments lock with completion like
// timeline messages do.
func (s *Service) AddComment(ctx context.Context, taskID, authorID, authorName, content string) (*task.Task, error) {
	if content == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "comment content is required", nil)
	}
	return s.repo.Mutate(ctx, taskID, func(t *task.Task) error {
		if t.IsCompleted() {
			return cerr.NewError(cerr.FailedPrecondition, "task is completed; comments are locked", nil)
		}
		now := time.Now()
		t.Comments = append(t.Comments, task.Comment{
			ID:         ulid.Make().String(),
			AuthorID:   authorID,
			AuthorName: authorName,
			Content:    content,
			CreatedAt:  now,
		})
		t.UpdatedAt = now
		return nil
	})
}
