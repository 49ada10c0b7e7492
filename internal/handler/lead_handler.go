package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/lead"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/service"
)

type LeadHandler struct {
	svc *service.LeadService
	log *zap.Logger
}

func NewLeadHandler(svc *service.LeadService, log *zap.Logger) *LeadHandler {
	return &LeadHandler{svc: svc, log: log}
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit := paging(r)
	leads, total, err := h.svc.List(r.Context(), lead.ListOptions{
		Status: models.LeadStatus(r.URL.Query().Get("status")),
		Skip:   skip,
		Limit:  limit,
	})
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"leads": leads,
		"total": total,
		"skip":  skip,
		"limit": limit,
	})
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Get(r.Context(), chi.URLParam(r, "leadId"))
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p lead.Patch
	if err := readJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	l, err := h.svc.Update(r.Context(), chi.URLParam(r, "leadId"), p)
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}
