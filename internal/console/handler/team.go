package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dealflowhq/autopilot/internal/domain"
	"github.com/dealflowhq/autopilot/internal/infra/auth"
)

// TeamService Описываем, что нам нужно от сервиса
type TeamService interface {
	GetTeamAutonomy(ctx context.Context, orgID string) (*domain.TeamAutonomy, error)
	GetCeilings(ctx context.Context, orgID string) ([]domain.AutonomyCeiling, error)
}

type TeamHandler struct {
	service TeamService
}

func NewTeamHandler(s TeamService) *TeamHandler {
	return &TeamHandler{service: s}
}

// GetTeam отдает командную сводку организации из токена.
func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.service.GetTeamAutonomy(r.Context(), auth.OrgID(r.Context()))
	if err != nil {
		http.Error(w, "Failed to fetch team stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(team)
}

// GetCeilings — read-only таблица оргпотолков.
func (h *TeamHandler) GetCeilings(w http.ResponseWriter, r *http.Request) {
	ceilings, err := h.service.GetCeilings(r.Context(), auth.OrgID(r.Context()))
	if err != nil {
		http.Error(w, "Failed to fetch ceilings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ceilings)
}
