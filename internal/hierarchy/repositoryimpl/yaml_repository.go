package repositoryimpl

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/itsthekvd/kushlapp-engine/internal/hierarchy"
	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
	"github.com/itsthekvd/kushlapp-engine/pkg/storage"
)

// collection is the shared YAML document store used by the project, sprint
// and campaign repositories. One file per entity under its prefix.
type collection[T any] struct {
	storage storage.Storage
	prefix  string
	target  string
}

func (c *collection[T]) path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", c.prefix, id)
}

func (c *collection[T]) create(ctx context.Context, id string, v *T) error {
	exists, err := c.storage.Exists(ctx, c.path(id))
	if err != nil {
		return cerr.WrapStorageWriteError(c.target, err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, c.target+" already exists", nil)
	}
	return c.write(ctx, id, v)
}

func (c *collection[T]) get(ctx context.Context, id string) (*T, error) {
	data, err := c.storage.Read(ctx, c.path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError(c.target, err)
	}
	var v T
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal %s: %w", c.target, err))
	}
	return &v, nil
}

func (c *collection[T]) list(ctx context.Context) ([]*T, error) {
	paths, err := c.storage.List(ctx, c.prefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError(c.target, err)
	}
	sort.Strings(paths)

	out := make([]*T, 0, len(paths))
	for _, p := range paths {
		data, err := c.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var v T
		if err := yaml.Unmarshal(data, &v); err != nil {
			continue
		}
		out = append(out, &v)
	}
	return out, nil
}

func (c *collection[T]) update(ctx context.Context, id string, v *T) error {
	exists, err := c.storage.Exists(ctx, c.path(id))
	if err != nil {
		return cerr.WrapStorageWriteError(c.target, err)
	}
	if !exists {
		return cerr.NewError(cerr.NotFound, c.target+" not found", nil)
	}
	return c.write(ctx, id, v)
}

func (c *collection[T]) delete(ctx context.Context, id string) error {
	if err := c.storage.Delete(ctx, c.path(id)); err != nil {
		return cerr.WrapStorageDeleteError(c.target, err)
	}
	return nil
}

func (c *collection[T]) write(ctx context.Context, id string, v *T) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal %s: %w", c.target, err))
	}
	if err := c.storage.Write(ctx, c.path(id), data); err != nil {
		return cerr.WrapStorageWriteError(c.target, err)
	}
	return nil
}

type ProjectYAMLRepository struct {
	col collection[hierarchy.Project]
}

func NewProjectYAMLRepository(s storage.Storage) *ProjectYAMLRepository {
	return &ProjectYAMLRepository{col: collection[hierarchy.Project]{storage: s, prefix: "projects", target: "project"}}
}

func (r *ProjectYAMLRepository) Create(ctx context.Context, p *hierarchy.Project) error {
	return r.col.create(ctx, p.ID, p)
}

func (r *ProjectYAMLRepository) Get(ctx context.Context, id string) (*hierarchy.Project, error) {
	return r.col.get(ctx, id)
}

func (r *ProjectYAMLRepository) List(ctx context.Context) ([]*hierarchy.Project, error) {
	return r.col.list(ctx)
}

func (r *ProjectYAMLRepository) Update(ctx context.Context, p *hierarchy.Project) error {
	return r.col.update(ctx, p.ID, p)
}

func (r *ProjectYAMLRepository) Delete(ctx context.Context, id string) error {
	return r.col.delete(ctx, id)
}

type SprintYAMLRepository struct {
	col collection[hierarchy.Sprint]
}

func NewSprintYAMLRepository(s storage.Storage) *SprintYAMLRepository {
	return &SprintYAMLRepository{col: collection[hierarchy.Sprint]{storage: s, prefix: "sprints", target: "sprint"}}
}

func (r *SprintYAMLRepository) Create(ctx context.Context, s *hierarchy.Sprint) error {
	return r.col.create(ctx, s.ID, s)
}

func (r *SprintYAMLRepository) Get(ctx context.Context, id string) (*hierarchy.Sprint, error) {
	return r.col.get(ctx, id)
}

func (r *SprintYAMLRepository) ListByProject(ctx context.Context, projectID string) ([]*hierarchy.Sprint, error) {
	all, err := r.col.list(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*hierarchy.Sprint, 0, len(all))
	for _, s := range all {
		if projectID == "" || s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *SprintYAMLRepository) Update(ctx context.Context, s *hierarchy.Sprint) error {
	return r.col.update(ctx, s.ID, s)
}

func (r *SprintYAMLRepository) Delete(ctx context.Context, id string) error {
	return r.col.delete(ctx, id)
}

type CampaignYAMLRepository struct {
	col collection[hierarchy.Campaign]
}

func NewCampaignYAMLRepository(s storage.Storage) *CampaignYAMLRepository {
	return &CampaignYAMLRepository{col: collection[hierarchy.Campaign]{storage: s, prefix: "campaigns", target: "campaign"}}
}

func (r *CampaignYAMLRepository) Create(ctx context.Context, c *hierarchy.Campaign) error {
	return r.col.create(ctx, c.ID, c)
}

func (r *CampaignYAMLRepository) Get(ctx context.Context, id string) (*hierarchy.Campaign, error) {
	return r.col.get(ctx, id)
}

func (r *CampaignYAMLRepository) ListBySprint(ctx context.Context, sprintID string) ([]*hierarchy.Campaign, error) {
	all, err := r.col.list(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*hierarchy.Campaign, 0, len(all))
	for _, c := range all {
		if sprintID == "" || c.SprintID == sprintID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *CampaignYAMLRepository) Update(ctx context.Context, c *hierarchy.Campaign) error {
	return r.col.update(ctx, c.ID, c)
}

func (r *CampaignYAMLRepository) Delete(ctx context.Context, id string) error {
	return r.col.delete(ctx, id)
}
