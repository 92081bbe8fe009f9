package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"wrapped invalid query", fmt.Errorf("parse: %w", ErrInvalidQuery), http.StatusBadRequest},
		{"timeout", ErrTimeout, http.StatusGatewayTimeout},
		{"unavailable", ErrUnavailable, http.StatusServiceUnavailable},
		{"empty corpus", ErrCorpusEmpty, http.StatusServiceUnavailable},
		{"corpus load", ErrCorpusLoad, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"app error", New(ErrInvalidInput, http.StatusUnprocessableEntity, "bad limit"), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppError(t *testing.T) {
	err := Newf(ErrInvalidQuery, http.StatusBadRequest, "limit %d out of range", 0)
	assert.Equal(t, "invalid query: limit 0 out of range", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidQuery))

	wrapped := fmt.Errorf("handler: %w", err)
	var appErr *AppError
	assert.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
}
