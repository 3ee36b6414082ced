package autonomy

import (
	"math"
	"testing"
)

func TestEstimatorHours(t *testing.T) {
	e := NewEstimator(map[string]float64{
		"crm.note_add":    2,
		"email.followup":  6,
		"meeting.prepare": 15,
	}, 3)

	counts := map[string]int{
		"crm.note_add":    30, // 60 мин
		"email.followup":  10, // 60 мин
		"meeting.prepare": 4,  // 60 мин
		"lead.route":      20, // вес по умолчанию: 60 мин
	}

	got := e.Hours(counts)
	if math.Abs(got-4.0) > 1e-9 {
		t.Fatalf("Hours = %v, want 4.0", got)
	}
}

func TestEstimatorIgnoresNonPositiveCounts(t *testing.T) {
	e := NewEstimator(map[string]float64{"x": 10}, 5)
	got := e.Hours(map[string]int{"x": 0, "y": -3})
	if got != 0 {
		t.Fatalf("Hours = %v, want 0", got)
	}
}

func TestEstimatorEmptyCounts(t *testing.T) {
	e := NewEstimator(nil, 5)
	if got := e.Hours(nil); got != 0 {
		t.Fatalf("Hours = %v, want 0", got)
	}
}

func TestFormatHours(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0 min"},
		{0.25, "15 min"},
		{0.99, "59 min"},
		{1, "1.0 hrs"},
		{5.1, "5.1 hrs"},
		{12.34, "12.3 hrs"},
		{-2, "0 min"},
	}
	for _, c := range cases {
		if got := FormatHours(c.in); got != c.want {
			t.Fatalf("FormatHours(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
