package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/auth"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/service"
)

type FormHandler struct {
	svc *service.FormService
	log *zap.Logger
}

func NewFormHandler(svc *service.FormService, log *zap.Logger) *FormHandler {
	return &FormHandler{svc: svc, log: log}
}

func (h *FormHandler) List(w http.ResponseWriter, r *http.Request) {
	forms, err := h.svc.List(r.Context(), models.FormStatus(r.URL.Query().Get("status")))
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, forms)
}

func (h *FormHandler) Create(w http.ResponseWriter, r *http.Request) {
	var form models.Form
	if err := readJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	claims := auth.GetUser(r.Context())
	created, err := h.svc.Create(r.Context(), &form, claims.UserID)
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *FormHandler) Get(w http.ResponseWriter, r *http.Request) {
	form, err := h.svc.Get(r.Context(), chi.URLParam(r, "formId"))
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (h *FormHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "formId")
	var form models.Form
	if err := readJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := h.svc.Update(r.Context(), id, &form)
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *FormHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "formId")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (h *FormHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Analytics(r.Context(), chi.URLParam(r, "formId"))
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Public serves an active form to site visitors.
func (h *FormHandler) Public(w http.ResponseWriter, r *http.Request) {
	form, err := h.svc.Public(r.Context(), chi.URLParam(r, "formId"))
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (h *FormHandler) View(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RecordView(r.Context(), chi.URLParam(r, "formId")); err != nil {
		fail(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
