package hierarchy

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
)

type Server struct {
	projects  ProjectRepository
	sprints   SprintRepository
	campaigns CampaignRepository
}

func NewServer(projects ProjectRepository, sprints SprintRepository, campaigns CampaignRepository) *Server {
	return &Server{
		projects:  projects,
		sprints:   sprints,
		campaigns: campaigns,
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/projects", s.createProject)
	r.Get("/projects", s.listProjects)
	r.Get("/projects/{projectID}", s.getProject)
	r.Patch("/projects/{projectID}", s.updateProject)
	r.Delete("/projects/{projectID}", s.deleteProject)

	r.Post("/projects/{projectID}/sprints", s.createSprint)
	r.Get("/projects/{projectID}/sprints", s.listSprints)
	r.Get("/sprints/{sprintID}", s.getSprint)
	r.Delete("/sprints/{sprintID}", s.deleteSprint)

	r.Post("/sprints/{sprintID}/campaigns", s.createCampaign)
	r.Get("/sprints/{sprintID}/campaigns", s.listCampaigns)
	r.Get("/campaigns/{campaignID}", s.getCampaign)
	r.Delete("/campaigns/{campaignID}", s.deleteCampaign)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		OwnerID     string `json:"ownerId"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Name == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "project name is required", nil)
		return
	}
	now := time.Now()
	p := &Project{
		ID:          ulid.Make().String(),
		OwnerID:     req.OwnerID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.projects.Create(ctx, p); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, p)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projects, err := s.projects.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"projects": projects})
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := s.projects.Get(ctx, chi.URLParam(r, "projectID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, p)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		Name        *string `json:"name,omitempty"`
		Description *string `json:"description,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	p, err := s.projects.Get(ctx, chi.URLParam(r, "projectID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.Name != nil {
		if *req.Name == "" {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "project name cannot be empty", nil)
			return
		}
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	p.UpdatedAt = time.Now()
	if err := s.projects.Update(ctx, p); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, p)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.projects.Delete(ctx, chi.URLParam(r, "projectID")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, nil)
}

func (s *Server) createSprint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		Name     string     `json:"name"`
		StartsAt *time.Time `json:"startsAt,omitempty"`
		EndsAt   *time.Time `json:"endsAt,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Name == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "sprint name is required", nil)
		return
	}
	projectID := chi.URLParam(r, "projectID")
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	now := time.Now()
	sp := &Sprint{
		ID:        ulid.Make().String(),
		ProjectID: projectID,
		Name:      req.Name,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sprints.Create(ctx, sp); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, sp)
}

func (s *Server) listSprints(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sprints, err := s.sprints.ListByProject(ctx, chi.URLParam(r, "projectID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"sprints": sprints})
}

func (s *Server) getSprint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sp, err := s.sprints.Get(ctx, chi.URLParam(r, "sprintID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, sp)
}

func (s *Server) deleteSprint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.sprints.Delete(ctx, chi.URLParam(r, "sprintID")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, nil)
}

func (s *Server) createCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Name == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "campaign name is required", nil)
		return
	}
	sprintID := chi.URLParam(r, "sprintID")
	if _, err := s.sprints.Get(ctx, sprintID); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	now := time.Now()
	c := &Campaign{
		ID:        ulid.Make().String(),
		SprintID:  sprintID,
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.campaigns.Create(ctx, c); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, c)
}

func (s *Server) listCampaigns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	campaigns, err := s.campaigns.ListBySprint(ctx, chi.URLParam(r, "sprintID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"campaigns": campaigns})
}

func (s *Server) getCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := s.campaigns.Get(ctx, chi.URLParam(r, "campaignID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, c)
}

func (s *Server) deleteCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.campaigns.Delete(ctx, chi.URLParam(r, "campaignID")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, nil)
}
