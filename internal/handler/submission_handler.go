package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/middleware"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/pipeline"
	"github.com/parisxmas/oxisite/internal/service"
)

type SubmissionHandler struct {
	svc *service.SubmissionService
	log *zap.Logger
}

func NewSubmissionHandler(svc *service.SubmissionService, log *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{svc: svc, log: log}
}

type submitRequest struct {
	Data map[string]any `json:"data"`
	Meta struct {
		// SubmissionTime is the render-to-submit time in seconds.
		SubmissionTime *float64   `json:"submissionTime"`
		StartedAt      *time.Time `json:"startedAt"`
		PageURL        string     `json:"pageUrl"`
	} `json:"meta"`
}

// Create is the public submission endpoint.
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Data == nil {
		writeError(w, http.StatusBadRequest, "data is required")
		return
	}
	elapsed := req.Meta.SubmissionTime
	if elapsed == nil && req.Meta.StartedAt != nil {
		s := time.Since(*req.Meta.StartedAt).Seconds()
		elapsed = &s
	}
	pageURL := req.Meta.PageURL
	if pageURL == "" {
		pageURL = r.Referer()
	}
	res, err := h.svc.Submit(r.Context(), pipeline.Input{
		FormRef:       chi.URLParam(r, "formId"),
		Data:          req.Data,
		SubmitSeconds: elapsed,
		PageURL:       pageURL,
		IPAddress:     middleware.ClientIP(r),
		UserAgent:     r.UserAgent(),
		Referrer:      r.Referer(),
	})
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formId")
	skip, limit := paging(r)

	subs, total, err := h.svc.List(r.Context(), formID, skip, limit)
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"submissions": subs,
		"total":       total,
		"skip":        skip,
		"limit":       limit,
	})
}

func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Get(r.Context(), chi.URLParam(r, "formId"), chi.URLParam(r, "subId"))
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Review changes a submission's status and notes.
func (h *SubmissionHandler) Review(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.SubmissionStatus `json:"status"`
		Notes  string                  `json:"notes"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sub, err := h.svc.Review(r.Context(), chi.URLParam(r, "formId"), chi.URLParam(r, "subId"), req.Status, req.Notes)
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	subID := chi.URLParam(r, "subId")
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "formId"), subID); err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": subID})
}
