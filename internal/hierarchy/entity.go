package hierarchy

import "time"

// The marketplace nests Project → Sprint → Campaign → Task. Each level is
// stored in its own table keyed by id with a parent-id back-reference; tasks
// reference their campaign the same way. Nothing owns pointers downward, so
// mutating a task never rewrites its ancestors.

type Project struct {
	ID          string    `yaml:"id" json:"id"`
	OwnerID     string    `yaml:"owner_id" json:"ownerId"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	CreatedAt   time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updatedAt"`
}

type Sprint struct {
	ID        string     `yaml:"id" json:"id"`
	ProjectID string     `yaml:"project_id" json:"projectId"`
	Name      string     `yaml:"name" json:"name"`
	StartsAt  *time.Time `yaml:"starts_at,omitempty" json:"startsAt,omitempty"`
	EndsAt    *time.Time `yaml:"ends_at,omitempty" json:"endsAt,omitempty"`
	CreatedAt time.Time  `yaml:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `yaml:"updated_at" json:"updatedAt"`
}

type Campaign struct {
	ID        string    `yaml:"id" json:"id"`
	SprintID  string    `yaml:"sprint_id" json:"sprintId"`
	Name      string    `yaml:"name" json:"name"`
	CreatedAt time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updatedAt"`
}
