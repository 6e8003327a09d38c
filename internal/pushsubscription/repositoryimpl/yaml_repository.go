package repositoryimpl

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/itsthekvd/kushlapp-engine/internal/pushsubscription"
	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
	"github.com/itsthekvd/kushlapp-engine/pkg/storage"
)

const subscriptionsPrefix = "push_subscriptions"

// YAMLRepository keeps one YAML document per subscription. The
// collection is small (one entry per browser per user), so endpoint and
// user lookups scan it.
type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func subscriptionKey(id string) string {
	return subscriptionsPrefix + "/" + id + ".yaml"
}

func (r *YAMLRepository) Create(ctx context.Context, sub *pushsubscription.Subscription) error {
	key := subscriptionKey(sub.ID)
	exists, err := r.storage.Exists(ctx, key)
	if err != nil {
		return cerr.WrapStorageWriteError("push_subscription", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "push subscription already exists", nil)
	}
	data, err := yaml.Marshal(sub)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("marshal push subscription %s: %w", sub.ID, err))
	}
	if err := r.storage.Write(ctx, key, data); err != nil {
		return cerr.WrapStorageWriteError("push_subscription", err)
	}
	return nil
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*pushsubscription.Subscription, error) {
	data, err := r.storage.Read(ctx, subscriptionKey(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("push_subscription", err)
	}
	var sub pushsubscription.Subscription
	if err := yaml.Unmarshal(data, &sub); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("unmarshal push subscription %s: %w", id, err))
	}
	return &sub, nil
}

func (r *YAMLRepository) List(ctx context.Context) ([]*pushsubscription.Subscription, error) {
	return r.scan(ctx, func(*pushsubscription.Subscription) bool { return true })
}

func (r *YAMLRepository) ListByUser(ctx context.Context, userID string) ([]*pushsubscription.Subscription, error) {
	return r.scan(ctx, func(sub *pushsubscription.Subscription) bool {
		return sub.UserID == userID
	})
}

func (r *YAMLRepository) FindByEndpoint(ctx context.Context, endpoint string) (*pushsubscription.Subscription, error) {
	matches, err := r.scan(ctx, func(sub *pushsubscription.Subscription) bool {
		return sub.Endpoint == endpoint
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, cerr.NewError(cerr.NotFound, "push subscription not found", nil)
	}
	return matches[0], nil
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	if err := r.storage.Delete(ctx, subscriptionKey(id)); err != nil {
		return cerr.WrapStorageDeleteError("push_subscription", err)
	}
	return nil
}

func (r *YAMLRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	sub, err := r.FindByEndpoint(ctx, endpoint)
	if err != nil {
		return err
	}
	return r.Delete(ctx, sub.ID)
}

// scan reads every stored subscription and keeps those matching the
// predicate. Unreadable or corrupt documents are skipped rather than
// failing the whole listing.
func (r *YAMLRepository) scan(ctx context.Context, match func(*pushsubscription.Subscription) bool) ([]*pushsubscription.Subscription, error) {
	keys, err := r.storage.List(ctx, subscriptionsPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("push_subscriptions", err)
	}
	sort.Strings(keys)

	subs := make([]*pushsubscription.Subscription, 0, len(keys))
	for _, key := range keys {
		data, err := r.storage.Read(ctx, key)
		if err != nil {
			continue
		}
		var sub pushsubscription.Subscription
		if err := yaml.Unmarshal(data, &sub); err != nil {
			continue
		}
		if match(&sub) {
			subs = append(subs, &sub)
		}
	}
	return subs, nil
}
