package review

import (
	"context"
	"time"

	"github.com/itsthekvd/kushlapp-engine/internal/eventbus"
	"github.com/itsthekvd/kushlapp-engine/internal/task"
	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
)

// Service records post-completion reviews. One review per (task, reviewer
// role): the employer reviews the student and vice versa.
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

type SubmitRequest struct {
	TaskID       string    `json:"taskId"`
	ReviewerID   string    `json:"reviewerId"`
	ReviewerName string    `json:"reviewerName"`
	Role         task.Role `json:"role"`
	RecipientID  string    `json:"recipientId"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
}

func (s *Service) Submit(ctx context.Context, req *SubmitRequest) (*task.Task, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, cerr.NewError(cerr.InvalidArgument, "rating must be between 1 and 5", nil)
	}
	if req.Role != task.RoleEmployer && req.Role != task.RoleStudent {
		return nil, cerr.NewError(cerr.InvalidArgument, "role must be employer or student", nil)
	}

	t, err := s.repo.Mutate(ctx, req.TaskID, func(t *task.Task) error {
		if !t.IsCompleted() {
			return cerr.NewError(cerr.FailedPrecondition, "reviews open once the task is completed", nil)
		}

		r := &task.Review{
			ReviewerID:   req.ReviewerID,
			ReviewerName: req.ReviewerName,
			Role:         req.Role,
			RecipientID:  req.RecipientID,
			Rating:       req.Rating,
			Comment:      req.Comment,
			CreatedAt:    time.Now(),
		}
		switch req.Role {
		case task.RoleEmployer:
			if t.EmployerReview != nil {
				return cerr.NewError(cerr.AlreadyExists, "employer review already submitted", nil)
			}
			t.EmployerReview = r
		case task.RoleStudent:
			if t.StudentReview != nil {
				return cerr.NewError(cerr.AlreadyExists, "student review already submitted", nil)
			}
			t.StudentReview = r
		}
		t.UpdatedAt = r.CreatedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.eventBus.PublishNew(eventbus.TypeReviewSubmitted, t.ID, "", map[string]string{
		"reviewer_id":  req.ReviewerID,
		"recipient_id": req.RecipientID,
	})
	return t, nil
}
