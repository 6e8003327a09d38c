package repositoryimpl

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsthekvd/kushlapp-engine/internal/hierarchy"
	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
	"github.com/itsthekvd/kushlapp-engine/pkg/storage"
)

func newTestStorage(t *testing.T) storage.Storage {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestProjectCRUD(t *testing.T) {
	repo := NewProjectYAMLRepository(newTestStorage(t))
	ctx := context.Background()

	p := &hierarchy.Project{
		ID:        ulid.Make().String(),
		OwnerID:   "emp-1",
		Name:      "Q3 content push",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(ctx, p))

	err := repo.Create(ctx, p)
	assert.Equal(t, cerr.AlreadyExists, cerr.CodeOf(err))

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Q3 content push", got.Name)

	got.Name = "Q3 push (renamed)"
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Q3 push (renamed)", got.Name)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err = repo.Get(ctx, p.ID)
	assert.Equal(t, cerr.NotFound, cerr.CodeOf(err))
}

func TestUpdateMissingProject(t *testing.T) {
	repo := NewProjectYAMLRepository(newTestStorage(t))
	err := repo.Update(context.Background(), &hierarchy.Project{ID: "missing", Name: "x"})
	assert.Equal(t, cerr.NotFound, cerr.CodeOf(err))
}

func TestSprintListByProject(t *testing.T) {
	repo := NewSprintYAMLRepository(newTestStorage(t))
	ctx := context.Background()

	for _, projectID := range []string{"p1", "p1", "p2"} {
		require.NoError(t, repo.Create(ctx, &hierarchy.Sprint{
			ID:        ulid.Make().String(),
			ProjectID: projectID,
			Name:      "sprint",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}))
	}

	p1, err := repo.ListByProject(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, p1, 2)

	all, err := repo.ListByProject(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCampaignListBySprint(t *testing.T) {
	repo := NewCampaignYAMLRepository(newTestStorage(t))
	ctx := context.Background()

	for _, sprintID := range []string{"s1", "s2", "s2"} {
		require.NoError(t, repo.Create(ctx, &hierarchy.Campaign{
			ID:        ulid.Make().String(),
			SprintID:  sprintID,
			Name:      "campaign",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}))
	}

	s2, err := repo.ListBySprint(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, s2, 2)
}

func TestCollectionsAreIndependent(t *testing.T) {
	store := newTestStorage(t)
	projects := NewProjectYAMLRepository(store)
	sprints := NewSprintYAMLRepository(store)
	ctx := context.Background()

	require.NoError(t, projects.Create(ctx, &hierarchy.Project{ID: "shared-id", Name: "project"}))
	require.NoError(t, sprints.Create(ctx, &hierarchy.Sprint{ID: "shared-id", ProjectID: "p", Name: "sprint"}))

	// Deleting a project leaves the sprint with the same id alone.
	require.NoError(t, projects.Delete(ctx, "shared-id"))
	_, err := sprints.Get(ctx, "shared-id")
	assert.NoError(t, err)
}
