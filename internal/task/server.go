package task

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
)

// Server exposes read access to the task table. Mutations go through the
// lifecycle, application, timeline and recurrence services instead.
type Server struct {
	repo Repository
}

func NewServer(repo Repository) *Server {
	return &Server{repo: repo}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/tasks", s.listTasks)
	r.Get("/tasks/{taskID}", s.getTask)
	r.Delete("/tasks/{taskID}", s.deleteTask)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	f := Filter{
		CampaignID: q.Get("campaignId"),
		AssigneeID: q.Get("assigneeId"),
		Recurring:  q.Get("recurring") == "true",
	}
	for _, s := range q["status"] {
		st := Status(s)
		if !st.Valid() {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "unknown status "+s, nil)
			return
		}
		f.Statuses = append(f.Statuses, st)
	}
	if p := q.Get("published"); p != "" {
		published := p == "true"
		f.Published = &published
	}

	tasks, err := s.repo.List(ctx, f)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"tasks": tasks})
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := s.repo.Get(ctx, chi.URLParam(r, "taskID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.repo.Delete(ctx, chi.URLParam(r, "taskID")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, nil)
}
