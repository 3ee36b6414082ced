package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dealflowhq/autopilot/internal/autonomy"
	"github.com/dealflowhq/autopilot/internal/console/service"
	"github.com/dealflowhq/autopilot/internal/domain"
	"github.com/go-chi/chi/v5"
)

// stubAutonomyService — ручная заглушка: фиксирует вызовы и отдает
// подготовленные ответы.
type stubAutonomyService struct {
	rep       *domain.RepAutonomy
	history   []domain.AutonomyHistoryPoint
	promoteTr *autonomy.Transition
	err       error

	gotRepID string
	gotDays  int
}

func (s *stubAutonomyService) GetRepAutonomy(_ context.Context, _, repID string) (*domain.RepAutonomy, error) {
	s.gotRepID = repID
	return s.rep, s.err
}

func (s *stubAutonomyService) GetHistory(_ context.Context, repID string, days int) ([]domain.AutonomyHistoryPoint, error) {
	s.gotRepID = repID
	s.gotDays = days
	return s.history, s.err
}

func (s *stubAutonomyService) AcceptPromotion(_ context.Context, _, repID, _ string) (*autonomy.Transition, error) {
	s.gotRepID = repID
	return s.promoteTr, s.err
}

func (s *stubAutonomyService) EmergencyDemote(_ context.Context, _, repID, _ string) (*autonomy.Transition, error) {
	s.gotRepID = repID
	return s.promoteTr, s.err
}

func newAutonomyRouter(s AutonomyService) chi.Router {
	h := NewAutonomyHandler(s)
	r := chi.NewRouter()
	r.Get("/v1/reps/{id}/autonomy", h.GetRep)
	r.Get("/v1/reps/{id}/autonomy/history", h.GetHistory)
	r.Post("/v1/reps/{id}/actions/{type}/promote", h.Promote)
	return r
}

func TestGetRepAutonomy(t *testing.T) {
	stub := &stubAutonomyService{rep: &domain.RepAutonomy{
		RepID:         "rep-1",
		AutonomyScore: 55,
		PresetLabel:   autonomy.LabelBalanced,
		ActionTypes:   []domain.ActionTypeStat{},
	}}
	srv := httptest.NewServer(newAutonomyRouter(stub))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/reps/rep-1/autonomy")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if stub.gotRepID != "rep-1" {
		t.Fatalf("service got rep %q, want rep-1", stub.gotRepID)
	}

	var body domain.RepAutonomy
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.AutonomyScore != 55 || body.PresetLabel != autonomy.LabelBalanced {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestGetHistoryDaysValidation(t *testing.T) {
	stub := &stubAutonomyService{history: []domain.AutonomyHistoryPoint{}}
	srv := httptest.NewServer(newAutonomyRouter(stub))
	defer srv.Close()

	// Дефолтное окно
	resp, err := http.Get(srv.URL + "/v1/reps/rep-1/autonomy/history")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || stub.gotDays != 30 {
		t.Fatalf("default window: status=%d days=%d, want 200/30", resp.StatusCode, stub.gotDays)
	}

	// Явное окно
	resp, err = http.Get(srv.URL + "/v1/reps/rep-1/autonomy/history?days=90")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if stub.gotDays != 90 {
		t.Fatalf("explicit window: days=%d, want 90", stub.gotDays)
	}

	// Мусорные значения отбиваются
	for _, bad := range []string{"0", "-5", "400", "abc"} {
		resp, err = http.Get(srv.URL + "/v1/reps/rep-1/autonomy/history?days=" + bad)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("days=%s: status = %d, want 400", bad, resp.StatusCode)
		}
	}
}

func TestPromoteMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"cooldown", domain.ErrCooldownActive, http.StatusUnprocessableEntity},
		{"never_promote", domain.ErrNeverPromote, http.StatusUnprocessableEntity},
		{"not_eligible", domain.ErrInvalidTransition, http.StatusConflict},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			stub := &stubAutonomyService{err: c.err}
			srv := httptest.NewServer(newAutonomyRouter(stub))
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/v1/reps/rep-1/actions/email.send/promote", "application/json", nil)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != c.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, c.want)
			}
		})
	}
}

// stubSignalService под хендлер инжеста.
type stubSignalService struct {
	got    domain.Signal
	result *service.IngestResult
	err    error
}

func (s *stubSignalService) IngestSignal(_ context.Context, _ string, sig domain.Signal, _ string) (*service.IngestResult, error) {
	s.got = sig
	return s.result, s.err
}

func TestIngestSignal(t *testing.T) {
	stub := &stubSignalService{result: &service.IngestResult{
		Stat: &domain.ActionTypeStat{ActionType: "email.send", CurrentTier: domain.TierSuggest},
	}}
	h := NewSignalHandler(stub)
	r := chi.NewRouter()
	r.Post("/v1/reps/{id}/signals", h.Ingest)
	srv := httptest.NewServer(r)
	defer srv.Close()

	body := `{"action_type":"email.send","outcome":"approved_clean","observed_at":"2024-03-01T10:00:00Z"}`
	resp, err := http.Post(srv.URL+"/v1/reps/rep-7/signals", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if stub.got.RepID != "rep-7" || stub.got.ActionType != "email.send" {
		t.Fatalf("service got %+v", stub.got)
	}
	if stub.got.Outcome != domain.OutcomeApprovedClean {
		t.Fatalf("outcome = %s, want approved_clean", stub.got.Outcome)
	}
	if stub.got.ObservedAt.IsZero() {
		t.Fatalf("observed_at must be parsed from the request")
	}
}

func TestIngestSignalRejectsBadInput(t *testing.T) {
	h := NewSignalHandler(&stubSignalService{})
	r := chi.NewRouter()
	r.Post("/v1/reps/{id}/signals", h.Ingest)
	srv := httptest.NewServer(r)
	defer srv.Close()

	// Битый JSON, без action_type, неизвестный исход, битая дата
	cases := []string{
		`{`,
		`{"outcome":"rejected"}`,
		`{"action_type":"x","outcome":"weird"}`,
		`{"action_type":"x","outcome":"rejected","observed_at":"yesterday"}`,
	}
	for _, body := range cases {
		resp, err := http.Post(srv.URL+"/v1/reps/rep-1/signals", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, resp.StatusCode)
		}
	}
}
