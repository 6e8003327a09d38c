package timeline

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
	r.Post("/tasks/{taskID}/timeline", s.append)
	r.Patch("/tasks/{taskID}/timeline/{messageID}", s.edit)
	r.Delete("/tasks/{taskID}/timeline/{messageID}", s.delete)
}

func (s *Server) append(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	req.TaskID = chi.URLParam(r, "taskID")
	msg, err := s.service.Append(ctx, &req)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, msg)
}

func (s *Server) edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	req.TaskID = chi.URLParam(r, "taskID")
	req.MessageID = chi.URLParam(r, "messageID")
	msg, err := s.service.Edit(ctx, &req)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, msg)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	req.TaskID = chi.URLParam(r, "taskID")
	req.MessageID = chi.URLParam(r, "messageID")
	if err := s.service.Delete(ctx, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, nil)
}
