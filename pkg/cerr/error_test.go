package cerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	bare := NewError(NotFound, "task not found", nil)
	assert.Equal(t, "[NotFound] task not found", bare.Error())

	wrapped := NewError(Internal, "server error", errors.New("disk full"))
	assert.Equal(t, "[Internal] server error: disk full", wrapped.Error())
}

func TestErrorCapturesStackForServerErrors(t *testing.T) {
	assert.NotEmpty(t, NewError(Internal, "boom", nil).Stack)
	assert.Empty(t, NewError(InvalidArgument, "bad input", nil).Stack)
	assert.Empty(t, NewError(NotFound, "missing", nil).Stack)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := NewError(Internal, "server error", cause)
	assert.True(t, errors.Is(err, cause))

	// wrapping with fmt still exposes the code
	outer := fmt.Errorf("outer: %w", err)
	assert.Equal(t, Internal, CodeOf(outer))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, OK, CodeOf(nil))
	assert.Equal(t, Unknown, CodeOf(errors.New("plain")))
	assert.Equal(t, AlreadyExists, CodeOf(NewError(AlreadyExists, "dup", nil)))
}

func TestCodeHTTPCode(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{OK, http.StatusOK},
		{Canceled, 499},
		{InvalidArgument, http.StatusBadRequest},
		{NotFound, http.StatusNotFound},
		{AlreadyExists, http.StatusConflict},
		{PermissionDenied, http.StatusForbidden},
		{ResourceExhausted, http.StatusTooManyRequests},
		{FailedPrecondition, http.StatusPreconditionFailed},
		{Internal, http.StatusInternalServerError},
		{Unauthenticated, http.StatusUnauthorized},
		{Code(42), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.HTTPCode(), tt.code.String())
	}
}
