package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/service"
)

type SearchHandler struct {
	svc *service.SearchService
	log *zap.Logger
}

func NewSearchHandler(svc *service.SearchService, log *zap.Logger) *SearchHandler {
	return &SearchHandler{svc: svc, log: log}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req service.SearchRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.svc.Search(r.Context(), req)
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
