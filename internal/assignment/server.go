package assignment

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
)

type Server struct {
	engine *Engine
}

func NewServer(engine *Engine) *Server {
	return &Server{engine: engine}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/students/{studentID}/assignment-stats", s.stats)
	r.Get("/students/{studentID}/can-apply", s.canApply)
	r.Post("/tasks/{taskID}/reassign", s.reassign)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := s.engine.StatsFor(ctx, chi.URLParam(r, "studentID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, stats)
}

func (s *Server) canApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	decision, err := s.engine.CanApply(ctx, chi.URLParam(r, "studentID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, decision)
}

func (s *Server) reassign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		Reason    string `json:"reason"`
		ActorID   string `json:"actorId"`
		ActorName string `json:"actorName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	t, err := s.engine.Reassign(ctx, chi.URLParam(r, "taskID"), req.Reason, req.ActorID, req.ActorName)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}
