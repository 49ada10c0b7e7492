package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/sitemap"
)

// Pinger reports whether the store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PublicHandler serves the crawler-facing documents and the health check.
type PublicHandler struct {
	sitemap *sitemap.Generator
	baseURL string
	robots  sitemap.RobotsOptions
	db      Pinger
	log     *zap.Logger
}

func NewPublicHandler(gen *sitemap.Generator, baseURL string, robots sitemap.RobotsOptions, db Pinger, log *zap.Logger) *PublicHandler {
	return &PublicHandler{sitemap: gen, baseURL: baseURL, robots: robots, db: db, log: log}
}

func (h *PublicHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(h.sitemap.Build(r.Context()))
}

func (h *PublicHandler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write([]byte(sitemap.Robots(h.baseURL, h.robots)))
}

func (h *PublicHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn("health check", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
