package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/ai"
	"github.com/parisxmas/oxisite/internal/auth"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/service"
)

type AIHandler struct {
	svc *service.AIService
	log *zap.Logger
}

func NewAIHandler(svc *service.AIService, log *zap.Logger) *AIHandler {
	return &AIHandler{svc: svc, log: log}
}

func (h *AIHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ai.GenerationRequest
		SaveToCollection *bool `json:"saveToCollection"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	save := req.SaveToCollection == nil || *req.SaveToCollection
	var author string
	if claims := auth.GetUser(r.Context()); claims != nil {
		author = claims.UserID
	}
	res, err := h.svc.Generate(r.Context(), req.GenerationRequest, save, author)
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AIHandler) Improve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content         string             `json:"content"`
		ImprovementType ai.ImprovementType `json:"improvementType"`
		FocusKeyword    string             `json:"focusKeyword"`
		AIContentID     string             `json:"aiContentId"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	improved, err := h.svc.Improve(r.Context(), req.Content, req.ImprovementType, req.FocusKeyword, req.AIContentID)
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"originalContent": req.Content,
		"improvedContent": improved,
		"improvementType": req.ImprovementType,
	})
}

func (h *AIHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content            string `json:"content"`
		TargetLanguage     string `json:"targetLanguage"`
		PreserveFormatting *bool  `json:"preserveFormatting"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	preserve := req.PreserveFormatting == nil || *req.PreserveFormatting
	translated, err := h.svc.Translate(r.Context(), req.Content, req.TargetLanguage, preserve)
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"originalContent":   req.Content,
		"translatedContent": translated,
		"targetLanguage":    req.TargetLanguage,
	})
}

func (h *AIHandler) SEOSuggestions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content         string `json:"content"`
		FocusKeyword    string `json:"focusKeyword"`
		Title           string `json:"title"`
		MetaDescription string `json:"metaDescription"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	suggestions, err := h.svc.SEOSuggestions(r.Context(), req.Content, req.FocusKeyword, req.Title, req.MetaDescription)
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (h *AIHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit := paging(r)
	records, total, err := h.svc.List(r.Context(), models.AIContentType(r.URL.Query().Get("type")), skip, limit)
	if err != nil {
		fail(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": records,
		"total": total,
		"skip":  skip,
		"limit": limit,
	})
}
