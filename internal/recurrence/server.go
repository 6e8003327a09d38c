package recurrence

import (
	"encoding/json"
	"net/http"
	"time"

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
	r.Post("/tasks/{taskID}/recurrence/toggle", s.toggleCompletion)
	r.Post("/recurrence/sweep", s.sweep)
}

func (s *Server) toggleCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		UserID   string `json:"userId"`
		UserName string `json:"userName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	t, err := s.service.ToggleCompletion(ctx, chi.URLParam(r, "taskID"), req.UserID, req.UserName)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

// sweep triggers one recurrence pass immediately instead of waiting for the
// background ticker.
func (s *Server) sweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.service.Sweep(ctx, time.Now()); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, nil)
}
