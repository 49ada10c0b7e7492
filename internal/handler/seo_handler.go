package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/seo"
	"github.com/parisxmas/oxisite/internal/service"
)

type SEOHandler struct {
	svc *service.SEOService
	log *zap.Logger
}

func NewSEOHandler(svc *service.SEOService, log *zap.Logger) *SEOHandler {
	return &SEOHandler{svc: svc, log: log}
}

func (h *SEOHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var data seo.ContentData
	if err := readJSON(r, &data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if data.Content == "" && data.Title == "" {
		writeError(w, http.StatusBadRequest, "title or content is required")
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Analyze(data))
}

func (h *SEOHandler) AnalyzePage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HTML         string `json:"html"`
		URL          string `json:"url"`
		FocusKeyword string `json:"focusKeyword"`
		Language     string `json:"language"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.AnalyzePage(req.HTML, req.URL, req.FocusKeyword, req.Language)
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *SEOHandler) StructuredData(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.StructuredData(r.Context(), models.ContentKind(chi.URLParam(r, "kind")), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "application/ld+json")
	writeJSON(w, http.StatusOK, data)
}

// Score is public.
func (h *SEOHandler) Score(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("contentType") == "" || q.Get("contentId") == "" {
		writeError(w, http.StatusBadRequest, "contentType and contentId are required")
		return
	}
	score, err := h.svc.Score(r.Context(), models.ContentKind(q.Get("contentType")), q.Get("contentId"))
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}
