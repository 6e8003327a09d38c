package hierarchy

import "context"

type ProjectRepository interface {
	Create(ctx context.Context, p *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context) ([]*Project, error)
	Update(ctx context.Context, p *Project) error
	Delete(ctx context.Context, id string) error
}

type SprintRepository interface {
	Create(ctx context.Context, s *Sprint) error
	Get(ctx context.Context, id string) (*Sprint, error)
	ListByProject(ctx context.Context, projectID string) ([]*Sprint, error)
	Update(ctx context.Context, s *Sprint) error
	Delete(ctx context.Context, id string) error
}

type CampaignRepository interface {
	Create(ctx context.Context, c *Campaign) error
	Get(ctx context.Context, id string) (*Campaign, error)
	ListBySprint(ctx context.Context, sprintID string) ([]*Campaign, error)
	Update(ctx context.Context, c *Campaign) error
	Delete(ctx context.Context, id string) error
}
