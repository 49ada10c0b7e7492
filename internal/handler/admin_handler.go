package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/repository"
)

type AdminHandler struct {
	subRepo *repository.SubmissionRepo
	log     *zap.Logger
}

func NewAdminHandler(subRepo *repository.SubmissionRepo, log *zap.Logger) *AdminHandler {
	return &AdminHandler{subRepo: subRepo, log: log}
}

func (h *AdminHandler) ListIndexes(w http.ResponseWriter, r *http.Request) {
	indexes, err := h.subRepo.ListIndexes(r.Context())
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"indexes": indexes})
}

func (h *AdminHandler) Compact(w http.ResponseWriter, r *http.Request) {
	stats, err := h.subRepo.Compact(r.Context())
	if err != nil {
		fail(w, h.log, err)
		return
	}
	h.log.Info("submissions compacted", zap.Any("stats", stats))
	writeJSON(w, http.StatusOK, stats)
}
