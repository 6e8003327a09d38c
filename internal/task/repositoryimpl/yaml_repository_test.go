package repositoryimpl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsthekvd/kushlapp-engine/internal/task"
	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
	"github.com/itsthekvd/kushlapp-engine/pkg/storage"
)

func newTestRepo(t *testing.T) *YAMLRepository {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewYAMLRepository(store)
}

func newTask(mutate func(*task.Task)) *task.Task {
	now := time.Now()
	tk := &task.Task{
		ID:         ulid.Make().String(),
		CampaignID: "campaign-1",
		Title:      "test task",
		Status:     task.StatusDraft,
		Priority:   task.PriorityMedium,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if mutate != nil {
		mutate(tk)
	}
	return tk
}

func TestCreateGetRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tk := newTask(func(tk *task.Task) {
		tk.Price = 5000
		tk.Kind = task.Kind{
			Credentials: &task.CredentialsPayload{
				Entries: []task.CredentialEntry{{Label: "CMS", Username: "admin", Secret: "hunter2"}},
			},
		}
	})

	require.NoError(t, repo.Create(ctx, tk))

	got, err := repo.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.Title, got.Title)
	assert.Equal(t, int64(5000), got.Price)
	require.NotNil(t, got.Kind.Credentials)
	assert.Equal(t, "CMS", got.Kind.Credentials.Entries[0].Label)
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tk := newTask(nil)

	require.NoError(t, repo.Create(ctx, tk))
	err := repo.Create(ctx, tk)
	assert.Equal(t, cerr.AlreadyExists, cerr.CodeOf(err))
}

func TestGetMissingTask(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Get(context.Background(), "missing")
	assert.Equal(t, cerr.NotFound, cerr.CodeOf(err))
}

func TestListFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	published := true
	require.NoError(t, repo.Create(ctx, newTask(func(tk *task.Task) {
		tk.Status = task.StatusPublished
		tk.IsPublished = true
	})))
	require.NoError(t, repo.Create(ctx, newTask(func(tk *task.Task) {
		tk.CampaignID = "campaign-2"
		tk.Status = task.StatusRecurringDaily
		tk.IsPublished = true
	})))
	require.NoError(t, repo.Create(ctx, newTask(func(tk *task.Task) {
		tk.AssigneeID = "alice"
		tk.Status = task.StatusInProgress
	})))

	all, err := repo.List(ctx, task.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	recurring, err := repo.List(ctx, task.Filter{Recurring: true})
	require.NoError(t, err)
	require.Len(t, recurring, 1)
	assert.Equal(t, task.StatusRecurringDaily, recurring[0].Status)

	byCampaign, err := repo.List(ctx, task.Filter{CampaignID: "campaign-2"})
	require.NoError(t, err)
	assert.Len(t, byCampaign, 1)

	byAssignee, err := repo.List(ctx, task.Filter{AssigneeID: "alice"})
	require.NoError(t, err)
	assert.Len(t, byAssignee, 1)

	listed, err := repo.List(ctx, task.Filter{Published: &published})
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	byStatus, err := repo.List(ctx, task.Filter{Statuses: []task.Status{task.StatusInProgress, task.StatusPublished}})
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)
}

func TestMutateWritesBackOnSuccess(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tk := newTask(nil)
	require.NoError(t, repo.Create(ctx, tk))

	got, err := repo.Mutate(ctx, tk.ID, func(t *task.Task) error {
		t.Title = "renamed"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)

	stored, err := repo.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", stored.Title)
}

func TestMutateLeavesStateUntouchedOnError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tk := newTask(nil)
	require.NoError(t, repo.Create(ctx, tk))

	boom := errors.New("boom")
	_, err := repo.Mutate(ctx, tk.ID, func(t *task.Task) error {
		t.Title = "should not persist"
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := repo.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "test task", stored.Title)
}

func TestMutateSerializesConcurrentWrites(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tk := newTask(nil)
	require.NoError(t, repo.Create(ctx, tk))

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := repo.Mutate(ctx, tk.ID, func(t *task.Task) error {
				t.Price++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := repo.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), stored.Price)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tk := newTask(nil)
	require.NoError(t, repo.Create(ctx, tk))

	require.NoError(t, repo.Delete(ctx, tk.ID))

	_, err := repo.Get(ctx, tk.ID)
	assert.Equal(t, cerr.NotFound, cerr.CodeOf(err))
}
