package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/itsthekvd/kushlapp-engine/internal/application"
	"github.com/itsthekvd/kushlapp-engine/internal/assignment"
	"github.com/itsthekvd/kushlapp-engine/internal/commission"
	"github.com/itsthekvd/kushlapp-engine/internal/config"
	"github.com/itsthekvd/kushlapp-engine/internal/hierarchy"
	"github.com/itsthekvd/kushlapp-engine/internal/lifecycle"
	"github.com/itsthekvd/kushlapp-engine/internal/pushsubscription"
	"github.com/itsthekvd/kushlapp-engine/internal/recurrence"
	"github.com/itsthekvd/kushlapp-engine/internal/review"
	"github.com/itsthekvd/kushlapp-engine/internal/task"
	"github.com/itsthekvd/kushlapp-engine/internal/timeline"
	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
	"github.com/itsthekvd/kushlapp-engine/pkg/clog"
)

// RouteRegistrar is implemented by every domain server. Routes are mounted
// under /api behind the logging and JSON-response middleware.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

type Server struct {
	server                 *http.Server
	env                    *config.BaseEnv
	taskServer             *task.Server
	lifecycleServer        *lifecycle.Server
	applicationServer      *application.Server
	assignmentServer       *assignment.Server
	timelineServer         *timeline.Server
	recurrenceServer       *recurrence.Server
	commissionServer       *commission.Server
	reviewServer           *review.Server
	hierarchyServer        *hierarchy.Server
	pushSubscriptionServer *pushsubscription.Server
}

func NewServer(
	env *config.BaseEnv,
	taskServer *task.Server,
	lifecycleServer *lifecycle.Server,
	applicationServer *application.Server,
	assignmentServer *assignment.Server,
	timelineServer *timeline.Server,
	recurrenceServer *recurrence.Server,
	commissionServer *commission.Server,
	reviewServer *review.Server,
	hierarchyServer *hierarchy.Server,
	pushSubscriptionServer *pushsubscription.Server,
) *Server {
	return &Server{
		env:                    env,
		taskServer:             taskServer,
		lifecycleServer:        lifecycleServer,
		applicationServer:      applicationServer,
		assignmentServer:       assignmentServer,
		timelineServer:         timelineServer,
		recurrenceServer:       recurrenceServer,
		commissionServer:       commissionServer,
		reviewServer:           reviewServer,
		hierarchyServer:        hierarchyServer,
		pushSubscriptionServer: pushSubscriptionServer,
	}
}

// ListenAndServe starts the HTTP server. The provided context is used as the
// base context for all incoming requests via http.Server.BaseContext, so
// cancelling it on shutdown also cancels in-flight request contexts.
func (s *Server) ListenAndServe(ctx context.Context) error {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
		)
		registrars := []RouteRegistrar{
			s.taskServer,
			s.lifecycleServer,
			s.applicationServer,
			s.assignmentServer,
			s.timelineServer,
			s.recurrenceServer,
			s.commissionServer,
			s.reviewServer,
			s.hierarchyServer,
			s.pushSubscriptionServer,
		}
		for _, reg := range registrars {
			reg.RegisterRoutes(r)
		}
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)

	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(s.apiKeyMiddleware(mux)), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Health checks run without credentials.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.Header.Get("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}
		if apiKey != s.env.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
