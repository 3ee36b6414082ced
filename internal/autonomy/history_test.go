package autonomy

import (
	"testing"
	"time"

	"github.com/dealflowhq/autopilot/internal/domain"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func TestBuildChartSeriesFillsGaps(t *testing.T) {
	now := mustDate(t, "2024-01-06")
	events := []domain.AutonomyHistoryPoint{
		{
			Date:          "2024-01-01",
			Timestamp:     mustDate(t, "2024-01-01"),
			AutonomyScore: 10,
			EventType:     domain.EventPromotionAccepted,
		},
		{
			Date:          "2024-01-05",
			Timestamp:     mustDate(t, "2024-01-05"),
			AutonomyScore: 25,
			EventType:     domain.EventPromotionAccepted,
		},
	}

	series := BuildChartSeries(events, 6, now)
	if len(series) != 6 {
		t.Fatalf("expected 6 points, got %d", len(series))
	}

	wantScores := []int{10, 10, 10, 10, 25, 25}
	wantTypes := []domain.EventType{
		domain.EventPromotionAccepted,
		domain.EventFill,
		domain.EventFill,
		domain.EventFill,
		domain.EventPromotionAccepted,
		domain.EventFill,
	}
	for i, p := range series {
		if p.AutonomyScore != wantScores[i] {
			t.Fatalf("point %d (%s): score = %d, want %d", i, p.Date, p.AutonomyScore, wantScores[i])
		}
		if p.EventType != wantTypes[i] {
			t.Fatalf("point %d (%s): event_type = %s, want %s", i, p.Date, p.EventType, wantTypes[i])
		}
	}
}

func TestBuildChartSeriesEmptyInput(t *testing.T) {
	series := BuildChartSeries(nil, 30, time.Now())
	if series == nil {
		t.Fatalf("expected empty slice, got nil")
	}
	if len(series) != 0 {
		t.Fatalf("expected no points, got %d", len(series))
	}
}

func TestBuildChartSeriesOnePointPerDay(t *testing.T) {
	now := mustDate(t, "2024-03-10")
	events := []domain.AutonomyHistoryPoint{
		{Date: "2024-03-01", Timestamp: mustDate(t, "2024-03-01"), AutonomyScore: 5, EventType: domain.EventPromotionAccepted},
		{Date: "2024-03-07", Timestamp: mustDate(t, "2024-03-07"), AutonomyScore: 15, EventType: domain.EventDemotionAuto},
	}

	series := BuildChartSeries(events, 14, now)
	if len(series) != 14 {
		t.Fatalf("expected one point per window day, got %d", len(series))
	}

	seen := make(map[string]bool, len(series))
	prev := ""
	for _, p := range series {
		if seen[p.Date] {
			t.Fatalf("duplicate date %s in series", p.Date)
		}
		seen[p.Date] = true
		if p.Date <= prev {
			t.Fatalf("series out of order: %s after %s", p.Date, prev)
		}
		prev = p.Date
	}
	if series[len(series)-1].Date != "2024-03-10" {
		t.Fatalf("window must end today, got %s", series[len(series)-1].Date)
	}
}

func TestBuildChartSeriesLastEventOfDayWins(t *testing.T) {
	day := mustDate(t, "2024-05-01")
	events := []domain.AutonomyHistoryPoint{
		{Date: "2024-05-01", Timestamp: day.Add(9 * time.Hour), AutonomyScore: 30, EventType: domain.EventPromotionAccepted},
		{Date: "2024-05-01", Timestamp: day.Add(17 * time.Hour), AutonomyScore: 20, EventType: domain.EventDemotionEmergency},
	}

	series := BuildChartSeries(events, 1, mustDate(t, "2024-05-01"))
	if len(series) != 1 {
		t.Fatalf("expected 1 point, got %d", len(series))
	}
	if series[0].AutonomyScore != 20 || series[0].EventType != domain.EventDemotionEmergency {
		t.Fatalf("expected the later event to win, got %+v", series[0])
	}
}

func TestBuildChartSeriesLeadingDaysBeforeFirstEvent(t *testing.T) {
	now := mustDate(t, "2024-02-10")
	events := []domain.AutonomyHistoryPoint{
		{Date: "2024-02-08", Timestamp: mustDate(t, "2024-02-08"), AutonomyScore: 40, EventType: domain.EventPromotionAccepted},
	}

	series := BuildChartSeries(events, 5, now)
	if len(series) != 5 {
		t.Fatalf("expected 5 points, got %d", len(series))
	}
	// До первого события бегущий score нулевой
	for _, p := range series[:2] {
		if p.AutonomyScore != 0 || p.EventType != domain.EventFill {
			t.Fatalf("expected zero fill before first event, got %+v", p)
		}
	}
	if series[2].AutonomyScore != 40 {
		t.Fatalf("expected event score at 2024-02-08, got %d", series[2].AutonomyScore)
	}
}
