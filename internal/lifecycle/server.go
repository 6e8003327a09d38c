package lifecycle

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
)

type Server struct {
	service *Service
}

func NewServer(service *Service) *Server {
	return &Server{service: service}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/tasks", s.createTask)
	r.Patch("/tasks/{taskID}", s.updateTask)
	r.Post("/tasks/{taskID}/publish", s.togglePublish)
	r.Post("/tasks/{taskID}/auto-post", s.toggleAutoPost)
	r.Post("/tasks/{taskID}/complete", s.markCompleted)
	r.Post("/tasks/{taskID}/comments", s.addComment)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	t, err := s.service.Create(ctx, &req)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	req.TaskID = chi.URLParam(r, "taskID")
	t, err := s.service.Update(ctx, &req)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

type actorRequest struct {
	ActorID   string `json:"actorId"`
	ActorName string `json:"actorName"`
}

func (s *Server) togglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	t, err := s.service.TogglePublish(ctx, chi.URLParam(r, "taskID"), req.ActorID, req.ActorName)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) toggleAutoPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	t, err := s.service.ToggleAutoPostToTimeline(ctx, chi.URLParam(r, "taskID"), req.ActorID, req.ActorName)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) markCompleted(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	t, err := s.service.MarkCompleted(ctx, chi.URLParam(r, "taskID"), req.ActorID, req.ActorName)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		AuthorID   string `json:"authorId"`
		AuthorName string `json:"authorName"`
		Content    string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	t, err := s.service.AddComment(ctx, chi.URLParam(r, "taskID"), req.AuthorID, req.AuthorName, req.Content)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}
