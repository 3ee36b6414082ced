package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dealflowhq/autopilot/internal/console/service"
	"github.com/dealflowhq/autopilot/internal/domain"
	"github.com/dealflowhq/autopilot/internal/infra/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SignalService Описываем, что нам нужно от сервиса
type SignalService interface {
	IngestSignal(ctx context.Context, orgID string, sig domain.Signal, traceID string) (*service.IngestResult, error)
}

type SignalHandler struct {
	service SignalService
}

func NewSignalHandler(s SignalService) *SignalHandler {
	return &SignalHandler{service: s}
}

type ingestRequest struct {
	ActionType string `json:"action_type"`
	Outcome    string `json:"outcome"`
	ObservedAt string `json:"observed_at,omitempty"` // RFC3339; пусто = сейчас
}

// Ingest принимает один сигнал одобрения от CRM.
func (h *SignalHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	repID := chi.URLParam(r, "id")

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ActionType == "" {
		http.Error(w, "action_type is required", http.StatusBadRequest)
		return
	}

	outcome, err := domain.ParseOutcome(req.Outcome)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sig := domain.Signal{
		RepID:      repID,
		ActionType: req.ActionType,
		Outcome:    outcome,
	}
	if req.ObservedAt != "" {
		t, err := time.Parse(time.RFC3339, req.ObservedAt)
		if err != nil {
			http.Error(w, "invalid observed_at timestamp", http.StatusBadRequest)
			return
		}
		sig.ObservedAt = t
	}

	result, err := h.service.IngestSignal(r.Context(), auth.OrgID(r.Context()), sig, middleware.GetReqID(r.Context()))
	if err != nil {
		http.Error(w, "Failed to process signal", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(result)
}
