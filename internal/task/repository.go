package task

import "context"

// Filter narrows List results. Zero values match everything.
type Filter struct {
	CampaignID string
	AssigneeID string
	Statuses   []Status
	Recurring  bool
	Published  *bool
}

// Matches reports whether t satisfies every set field of the filter.
func (f Filter) Matches(t *Task) bool {
	if f.CampaignID != "" && t.CampaignID != f.CampaignID {
		return false
	}
	if f.AssigneeID != "" && t.AssigneeID != f.AssigneeID {
		return false
	}
	if f.Recurring && !t.Status.IsRecurring() {
		return false
	}
	if f.Published != nil && t.IsPublished != *f.Published {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if t.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// Repository persists tasks one document per id. Mutate is the only mutating
// entry point the engine services use: it runs fn on the current state under
// a per-task lock and writes back only when fn succeeds, so a failed
// mutation leaves the stored state untouched.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, f Filter) ([]*Task, error)
	Mutate(ctx context.Context, id string, fn func(*Task) error) (*Task, error)
	Delete(ctx context.Context, id string) error
}
