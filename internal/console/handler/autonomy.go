package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dealflowhq/autopilot/internal/autonomy"
	"github.com/dealflowhq/autopilot/internal/domain"
	"github.com/dealflowhq/autopilot/internal/infra/auth"
	"github.com/go-chi/chi/v5"
)

// AutonomyService Описываем, что нам нужно от сервиса
type AutonomyService interface {
	GetRepAutonomy(ctx context.Context, orgID, repID string) (*domain.RepAutonomy, error)
	GetHistory(ctx context.Context, repID string, days int) ([]domain.AutonomyHistoryPoint, error)
	AcceptPromotion(ctx context.Context, orgID, repID, actionType string) (*autonomy.Transition, error)
	EmergencyDemote(ctx context.Context, orgID, repID, actionType string) (*autonomy.Transition, error)
}

type AutonomyHandler struct {
	service AutonomyService
}

func NewAutonomyHandler(s AutonomyService) *AutonomyHandler {
	return &AutonomyHandler{service: s}
}

// GetRep отдает карточку автономии менеджера: статистики, score, ярлык.
func (h *AutonomyHandler) GetRep(w http.ResponseWriter, r *http.Request) {
	repID := chi.URLParam(r, "id")

	rep, err := h.service.GetRepAutonomy(r.Context(), auth.OrgID(r.Context()), repID)
	if err != nil {
		http.Error(w, "Failed to fetch autonomy stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rep)
}

// GetHistory отдает сплошной дневной ряд для area-графика.
func (h *AutonomyHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	repID := chi.URLParam(r, "id")

	days := 30 // Дефолтное окно графика
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 365 {
			http.Error(w, "invalid days parameter", http.StatusBadRequest)
			return
		}
		days = n
	}

	series, err := h.service.GetHistory(r.Context(), repID, days)
	if err != nil {
		http.Error(w, "Failed to fetch history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(series)
}

// Promote — оператор подтверждает предложенное повышение.
func (h *AutonomyHandler) Promote(w http.ResponseWriter, r *http.Request) {
	repID := chi.URLParam(r, "id")
	actionType := chi.URLParam(r, "type")

	tr, err := h.service.AcceptPromotion(r.Context(), auth.OrgID(r.Context()), repID, actionType)
	if err != nil {
		status := http.StatusConflict
		if errors.Is(err, domain.ErrCooldownActive) || errors.Is(err, domain.ErrNeverPromote) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tr)
}

// EmergencyDemote — аварийный сброс доверия после инцидента.
func (h *AutonomyHandler) EmergencyDemote(w http.ResponseWriter, r *http.Request) {
	repID := chi.URLParam(r, "id")
	actionType := chi.URLParam(r, "type")

	tr, err := h.service.EmergencyDemote(r.Context(), auth.OrgID(r.Context()), repID, actionType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tr)
}
