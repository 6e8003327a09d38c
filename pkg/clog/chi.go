package clog

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// ChiOption configures SlogChiMiddleware.
type ChiOption func(*chiMiddleware)

// WithChiFilter suppresses the access log line for requests the filter
// rejects. Attributes are still collected for handlers' own log calls.
func WithChiFilter(filter func(r *http.Request) bool) ChiOption {
	return func(m *chiMiddleware) {
		m.filter = filter
	}
}

type chiMiddleware struct {
	filter func(r *http.Request) bool
}

// SlogChiMiddleware attaches an attribute bag to each request context
// and emits one access log line per request, leveled by status code.
func SlogChiMiddleware(opts ...ChiOption) func(http.Handler) http.Handler {
	m := &chiMiddleware{}
	for _, opt := range opts {
		opt(m)
	}
	return m.wrap
}

func (m *chiMiddleware) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ctx := ContextWithSlog(r.Context())
		AddAttributes(ctx, map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"proto":  r.Proto,
			"remote": r.RemoteAddr,
		})

		next.ServeHTTP(ww, r.WithContext(ctx))

		if m.filter != nil && !m.filter(r) {
			return
		}
		AddAttributes(ctx, map[string]any{
			"status":        ww.Status(),
			"bytes_written": ww.BytesWritten(),
			"duration":      time.Since(start),
		})
		m.logLine(ctx, ww.Status())
	})
}

func (m *chiMiddleware) logLine(ctx context.Context, status int) {
	msg := http.StatusText(status)
	switch HTTPStatusToLevel(status) {
	case LevelError:
		slog.ErrorContext(ctx, msg)
	case LevelWarn:
		slog.WarnContext(ctx, msg)
	case LevelDebug:
		slog.DebugContext(ctx, msg)
	default:
		slog.InfoContext(ctx, msg)
	}
}
