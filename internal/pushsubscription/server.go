package pushsubscription

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/itsthekvd/kushlapp-engine/internal/config"
	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
)

type Server struct {
	repo     Repository
	vapidEnv *config.VAPIDEnv
}

func NewServer(repo Repository, vapidEnv *config.VAPIDEnv) *Server {
	return &Server{repo: repo, vapidEnv: vapidEnv}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/push/subscriptions", s.subscribe)
	r.Delete("/push/subscriptions", s.unsubscribe)
	r.Get("/push/vapid-public-key", s.vapidPublicKey)
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		UserID    string `json:"userId"`
		Endpoint  string `json:"endpoint"`
		P256dhKey string `json:"p256dhKey"`
		AuthKey   string `json:"authKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Endpoint == "" || req.P256dhKey == "" || req.AuthKey == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "endpoint, p256dhKey and authKey are required", nil)
		return
	}

	// Re-subscribing from the same browser replaces the old registration.
	existing, err := s.repo.FindByEndpoint(ctx, req.Endpoint)
	if err != nil && cerr.CodeOf(err) != cerr.NotFound {
		cerr.SetJSONError(ctx, err)
		return
	}
	if existing != nil {
		if err := s.repo.Delete(ctx, existing.ID); err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
	}

	sub := &Subscription{
		ID:        ulid.Make().String(),
		UserID:    req.UserID,
		Endpoint:  req.Endpoint,
		P256dhKey: req.P256dhKey,
		AuthKey:   req.AuthKey,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, sub)
}

func (s *Server) unsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Endpoint == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "endpoint is required", nil)
		return
	}
	if err := s.repo.DeleteByEndpoint(ctx, req.Endpoint); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, nil)
}

func (s *Server) vapidPublicKey(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), map[string]string{"publicKey": s.vapidEnv.VAPIDPublicKey})
}
