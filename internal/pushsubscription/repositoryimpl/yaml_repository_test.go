package repositoryimpl

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsthekvd/kushlapp-engine/internal/pushsubscription"
	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
	"github.com/itsthekvd/kushlapp-engine/pkg/storage"
)

func newTestRepo(t *testing.T) *YAMLRepository {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewYAMLRepository(store)
}

func newSubscription(userID, endpoint string) *pushsubscription.Subscription {
	return &pushsubscription.Subscription{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Endpoint:  endpoint,
		P256dhKey: "p256dh",
		AuthKey:   "auth",
		CreatedAt: time.Now(),
	}
}

func TestSubscriptionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	sub := newSubscription("alice", "https://push.example.com/ep1")

	require.NoError(t, repo.Create(ctx, sub))

	got, err := repo.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.Endpoint, got.Endpoint)
	assert.Equal(t, "alice", got.UserID)
}

func TestListByUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newSubscription("alice", "https://push.example.com/a1")))
	require.NoError(t, repo.Create(ctx, newSubscription("alice", "https://push.example.com/a2")))
	require.NoError(t, repo.Create(ctx, newSubscription("bob", "https://push.example.com/b1")))

	subs, err := repo.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	none, err := repo.ListByUser(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindAndDeleteByEndpoint(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	sub := newSubscription("alice", "https://push.example.com/ep1")
	require.NoError(t, repo.Create(ctx, sub))

	got, err := repo.FindByEndpoint(ctx, sub.Endpoint)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)

	_, err = repo.FindByEndpoint(ctx, "https://push.example.com/unknown")
	assert.Equal(t, cerr.NotFound, cerr.CodeOf(err))

	require.NoError(t, repo.DeleteByEndpoint(ctx, sub.Endpoint))
	_, err = repo.Get(ctx, sub.ID)
	assert.Equal(t, cerr.NotFound, cerr.CodeOf(err))
}
