package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/ai"
	"github.com/parisxmas/oxisite/internal/content"
	"github.com/parisxmas/oxisite/internal/pipeline"
	"github.com/parisxmas/oxisite/internal/service"
)

// maxBody caps JSON request bodies.
const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBody)).Decode(v)
}

// paging reads skip and limit, defaulting limit to 20.
func paging(r *http.Request) (skip, limit int) {
	skip, _ = strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 20
	}
	return skip, limit
}

// fail maps a service error to a status code. Unknown errors are logged
// and answered with 500.
func fail(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		input *service.InputError
		verr  *pipeline.ValidationError
	)
	switch {
	case errors.As(err, &input):
		writeError(w, http.StatusBadRequest, input.Msg)
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, pipeline.ErrFormNotFound), errors.Is(err, pipeline.ErrFormInactive):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, content.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrAIDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ai.ErrGenerationFailed):
		log.Error("ai generation", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   ai.ErrGenerationFailed.Error(),
			"details": err.Error(),
		})
	default:
		log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
