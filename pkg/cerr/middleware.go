package cerr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/itsthekvd/kushlapp-engine/pkg/clog"
)

// outcome collects what a handler wants sent back: either a response
// value or an error, whichever was set last wins its slot.
type outcome struct {
	response any
	err      error
}

type outcomeKey struct{}

func outcomeFrom(ctx context.Context) *outcome {
	o, _ := ctx.Value(outcomeKey{}).(*outcome)
	return o
}

// SetJSONResponse records the value to serialize as the response body.
// No-op outside NewJSONResponseChiMiddleware.
func SetJSONResponse(ctx context.Context, response any) {
	if o := outcomeFrom(ctx); o != nil {
		o.response = response
	}
}

// SetJSONError records the error to convert into a JSON error body.
func SetJSONError(ctx context.Context, err error) {
	if o := outcomeFrom(ctx); o != nil {
		o.err = err
	}
}

func SetNewJSONError(ctx context.Context, code Code, msg string, err error) {
	SetJSONError(ctx, NewError(code, msg, err))
}

// NewJSONResponseChiMiddleware lets handlers hand back a value or error
// through the request context instead of writing to the ResponseWriter
// themselves, then serializes it after the handler returns. Coded
// errors keep their code and message; anything else is masked as an
// unknown error so internals never leak to clients.
func NewJSONResponseChiMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			o := &outcome{}
			ctx := context.WithValue(r.Context(), outcomeKey{}, o)
			next.ServeHTTP(rw, r.WithContext(ctx))
			extractToHTTPResponse(ctx, rw, o)
		})
	}
}

func extractToHTTPResponse(ctx context.Context, rw http.ResponseWriter, o *outcome) {
	if o.err == nil {
		writeJSON(ctx, rw, o.response)
		return
	}
	if errors.Is(o.err, context.Canceled) {
		writeJSONError(ctx, rw, NewError(Canceled, "connection closed", o.err))
		return
	}

	clog.AddError(ctx, o.err)
	var cErr *Error
	if errors.As(o.err, &cErr) {
		if cErr.Stack != "" {
			clog.AddStack(ctx, cErr.Stack)
		}
		writeJSONError(ctx, rw, cErr)
		return
	}
	writeJSONError(ctx, rw, NewError(Unknown, "unknown error", o.err))
}

type jsonError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(ctx context.Context, rw http.ResponseWriter, response any) {
	rw.Header().Set("Content-Type", "application/json")
	if response == nil {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("{}"))
		return
	}
	data, err := json.Marshal(response)
	if err != nil {
		writeJSONError(ctx, rw, NewError(Internal, "server error", err))
		return
	}
	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write(data)
}

func writeJSONError(ctx context.Context, rw http.ResponseWriter, cErr *Error) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(cErr.Code.HTTPCode())
	data, err := json.Marshal(jsonError{
		Code:    cErr.Code.String(),
		Message: cErr.Msg,
	})
	if err != nil {
		clog.AddError(ctx, err)
		return
	}
	_, _ = rw.Write(data)
}
