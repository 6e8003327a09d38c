package review

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsthekvd/kushlapp-engine/internal/eventbus"
	"github.com/itsthekvd/kushlapp-engine/internal/task"
	taskrepo "github.com/itsthekvd/kushlapp-engine/internal/task/repositoryimpl"
	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
	"github.com/itsthekvd/kushlapp-engine/pkg/storage"
)

func newTestService(t *testing.T) (*Service, task.Repository, *eventbus.Bus) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := taskrepo.NewYAMLRepository(store)
	bus := eventbus.New()
	return NewService(repo, bus), repo, bus
}

func createTask(t *testing.T, repo task.Repository, status task.Status) *task.Task {
	t.Helper()
	now := time.Now()
	tk := &task.Task{
		ID:        ulid.Make().String(),
		Title:     "test task",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(context.Background(), tk))
	return tk
}

func TestSubmitBothRoles(t *testing.T) {
	svc, repo, bus := newTestService(t)
	ctx := context.Background()
	tk := createTask(t, repo, task.StatusCompleted)

	_, events := bus.Subscribe(8)

	got, err := svc.Submit(ctx, &SubmitRequest{
		TaskID:       tk.ID,
		ReviewerID:   "emp-1",
		ReviewerName: "Employer",
		Role:         task.RoleEmployer,
		RecipientID:  "alice",
		Rating:       5,
		Comment:      "great work",
	})
	require.NoError(t, err)
	require.NotNil(t, got.EmployerReview)
	assert.Equal(t, 5, got.EmployerReview.Rating)
	assert.Nil(t, got.StudentReview)

	evt := <-events
	assert.Equal(t, eventbus.TypeReviewSubmitted, evt.Type)
	assert.Equal(t, "alice", evt.Metadata["recipient_id"])

	got, err = svc.Submit(ctx, &SubmitRequest{
		TaskID:      tk.ID,
		ReviewerID:  "alice",
		Role:        task.RoleStudent,
		RecipientID: "emp-1",
		Rating:      4,
	})
	require.NoError(t, err)
	require.NotNil(t, got.StudentReview)
	assert.Equal(t, 4, got.StudentReview.Rating)
}

func TestSubmitOneReviewPerRole(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	tk := createTask(t, repo, task.StatusCompleted)

	req := &SubmitRequest{
		TaskID: tk.ID, ReviewerID: "emp-1", Role: task.RoleEmployer,
		RecipientID: "alice", Rating: 5,
	}
	_, err := svc.Submit(ctx, req)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, req)
	assert.Equal(t, cerr.AlreadyExists, cerr.CodeOf(err))
}

func TestSubmitRequiresCompletedTask(t *testing.T) {
	svc, repo, _ := newTestService(t)
	tk := createTask(t, repo, task.StatusInProgress)

	_, err := svc.Submit(context.Background(), &SubmitRequest{
		TaskID: tk.ID, ReviewerID: "emp-1", Role: task.RoleEmployer, Rating: 5,
	})
	assert.Equal(t, cerr.FailedPrecondition, cerr.CodeOf(err))
}

func TestSubmitValidation(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	tk := createTask(t, repo, task.StatusCompleted)

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.Submit(ctx, &SubmitRequest{
			TaskID: tk.ID, ReviewerID: "emp-1", Role: task.RoleEmployer, Rating: rating,
		})
		assert.Equal(t, cerr.InvalidArgument, cerr.CodeOf(err), "rating %d", rating)
	}

	_, err := svc.Submit(ctx, &SubmitRequest{
		TaskID: tk.ID, ReviewerID: "emp-1", Role: "admin", Rating: 3,
	})
	assert.Equal(t, cerr.InvalidArgument, cerr.CodeOf(err))
}
