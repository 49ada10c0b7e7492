package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDisabledProvider(t *testing.T) {
	p, err := New(context.Background(), Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.Equal(t, "oxisite", p.cfg.ServiceName)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestMiddlewarePassesThrough(t *testing.T) {
	p, err := New(context.Background(), Config{}, zap.NewNop())
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(p.Middleware)
	r.Get("/forms/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/forms/7", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
