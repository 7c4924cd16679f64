package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atharva9604/conversational-insights-generator/pkg/common/logger"
	"github.com/atharva9604/conversational-insights-generator/pkg/common/models"
	"github.com/atharva9604/conversational-insights-generator/pkg/insight"
	"github.com/atharva9604/conversational-insights-generator/pkg/record"
	"github.com/gorilla/mux"
)

type HTTPHandler struct {
	service *Service
}

// NewHTTPHandler wires the pipeline behind mux routes. Body size limits are
// the router middleware's job.
func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/analyze-call", h.handleAnalyze).Methods(http.MethodPost)
	router.HandleFunc("/records/{unique_id}", h.handleRecord).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid analyze payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Analyze(r.Context(), req.Transcript, req.Metadata)
	if err != nil {
		h.writeAnalyzeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (h *HTTPHandler) handleRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["unique_id"]

	resp, err := h.service.Record(r.Context(), id)
	if err != nil {
		if IsInputError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, record.ErrNotFound) {
			http.Error(w, "call record not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch call record")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeAnalyzeError maps pipeline failures to distinct caller-visible
// outcomes: bad input, the model never produced valid output, or the result
// was valid but could not be saved. Terminal failures are checked before
// cancellation: an exhausted extraction can wrap a per-call deadline without
// the caller ever having hung up.
func (h *HTTPHandler) writeAnalyzeError(w http.ResponseWriter, err error) {
	switch {
	case IsInputError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)

	case insight.IsExtractionError(err):
		logger.Log.WithError(err).Error("insight extraction exhausted retries")
		http.Error(w, "failed to extract insights from transcript", http.StatusBadGateway)

	case record.IsPersistenceError(err):
		var pe *record.PersistenceError
		errors.As(err, &pe)
		logger.Log.WithError(err).Error("failed to persist call record")
		if pe.Class == record.FailureConstraint {
			http.Error(w, "duplicate record detected", http.StatusConflict)
			return
		}
		http.Error(w, "failed to persist call record", http.StatusInternalServerError)

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Log.WithError(err).Warn("analyze request cancelled")
		http.Error(w, "request cancelled", http.StatusRequestTimeout)

	default:
		logger.Log.WithError(err).Error("analyze pipeline failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
