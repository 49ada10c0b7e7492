package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/auth"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/service"
)

type ContentHandler struct {
	svc *service.ContentService
	seo *service.SEOService
	log *zap.Logger
}

func NewContentHandler(svc *service.ContentService, seo *service.SEOService, log *zap.Logger) *ContentHandler {
	return &ContentHandler{svc: svc, seo: seo, log: log}
}

func kindParam(r *http.Request) models.ContentKind {
	return models.ContentKind(chi.URLParam(r, "kind"))
}

func actor(r *http.Request) service.Actor {
	claims := auth.GetUser(r.Context())
	if claims == nil {
		return service.Actor{}
	}
	return service.Actor{ID: claims.UserID, Role: claims.Role}
}

func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit := paging(r)
	items, total, err := h.svc.List(r.Context(), kindParam(r), models.ContentStatus(r.URL.Query().Get("status")), skip, limit)
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
		"skip":  skip,
		"limit": limit,
	})
}

func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Get(r.Context(), kindParam(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var item models.ContentItem
	if err := readJSON(r, &item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.Create(r.Context(), actor(r), kindParam(r), &item)
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var item models.ContentItem
	if err := readJSON(r, &item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.Update(r.Context(), actor(r), kindParam(r), chi.URLParam(r, "id"), &item)
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), actor(r), kindParam(r), id); err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (h *ContentHandler) Versions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.svc.Versions(r.Context(), kindParam(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (h *ContentHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 {
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	res, err := h.svc.Rollback(r.Context(), actor(r), chi.URLParam(r, "versionId"), req.Reason)
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Analyze re-runs SEO analysis for one item.
func (h *ContentHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	rec, err := h.seo.AnalyzeContent(r.Context(), kindParam(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
