package simulation

import (
	"math"
	"testing"

	"github.com/dealflowhq/autopilot/internal/domain"
)

func TestBuildDayStateFinalDayConstants(t *testing.T) {
	script := DefaultScript()
	st := BuildDayState(script, 90)

	if math.Abs(st.TimeSavedHrs-5.1) > 1e-9 {
		t.Fatalf("day 90 time saved = %v, want exactly 5.1", st.TimeSavedHrs)
	}
	if st.ActionsAutomated != 847 {
		t.Fatalf("day 90 actions automated = %d, want exactly 847", st.ActionsAutomated)
	}
	if st.AutonomyPct != 100 {
		t.Fatalf("day 90 autonomy = %d%%, want 100%%", st.AutonomyPct)
	}
	for _, a := range st.Actions {
		if a.Tier != domain.TierAuto {
			t.Fatalf("day 90: action %s still at %s", a.Key, a.Tier)
		}
	}
}

func TestBuildDayStateDayOne(t *testing.T) {
	script := DefaultScript()
	st := BuildDayState(script, 1)

	if st.TimeSavedHrs != 0 {
		t.Fatalf("day 1 time saved = %v, want 0", st.TimeSavedHrs)
	}
	if st.ActionsAutomated != 0 {
		t.Fatalf("day 1 actions automated = %d, want 0", st.ActionsAutomated)
	}
	if st.AutonomyPct != 0 {
		t.Fatalf("day 1 autonomy = %d%%, want 0%% (no auto starting tiers)", st.AutonomyPct)
	}
	if st.Proposal != nil {
		t.Fatalf("day 1 must have no milestone proposal, got %+v", st.Proposal)
	}
}

func TestBuildDayStateMonotonicProgress(t *testing.T) {
	script := DefaultScript()
	prevPct := -1
	prevHrs := -1.0
	prevN := -1
	for day := 1; day <= script.Days; day++ {
		st := BuildDayState(script, day)
		if st.AutonomyPct < prevPct {
			t.Fatalf("day %d: autonomy dropped %d -> %d", day, prevPct, st.AutonomyPct)
		}
		if st.TimeSavedHrs < prevHrs {
			t.Fatalf("day %d: time saved dropped %v -> %v", day, prevHrs, st.TimeSavedHrs)
		}
		if st.ActionsAutomated < prevN {
			t.Fatalf("day %d: actions automated dropped %d -> %d", day, prevN, st.ActionsAutomated)
		}
		prevPct, prevHrs, prevN = st.AutonomyPct, st.TimeSavedHrs, st.ActionsAutomated
	}
}

func TestBuildDayStateMilestoneProposal(t *testing.T) {
	script := DefaultScript()

	st := BuildDayState(script, 7)
	if st.Proposal == nil || st.Proposal.Day != 7 {
		t.Fatalf("expected proposal on milestone day 7, got %+v", st.Proposal)
	}
	if len(st.Proposal.PromotedKeys) != 2 {
		t.Fatalf("expected 2 promoted keys on day 7, got %v", st.Proposal.PromotedKeys)
	}

	// На день позже вехи карточки уже нет, а уровни переведены
	st = BuildDayState(script, 8)
	if st.Proposal != nil {
		t.Fatalf("expected no proposal on day 8, got %+v", st.Proposal)
	}
	for _, a := range st.Actions {
		if a.Key == "crm.note_add" && a.Tier != domain.TierAuto {
			t.Fatalf("crm.note_add must be auto after day 7, got %s", a.Tier)
		}
	}
}

func TestBuildDayStateClampsDay(t *testing.T) {
	script := DefaultScript()

	low := BuildDayState(script, -5)
	if low.Day != 1 {
		t.Fatalf("expected clamp to day 1, got %d", low.Day)
	}
	high := BuildDayState(script, 500)
	if high.Day != script.Days {
		t.Fatalf("expected clamp to day %d, got %d", script.Days, high.Day)
	}
	if high.ActionsAutomated != script.ActionsAutomated {
		t.Fatalf("clamped final day must carry final constants, got %d", high.ActionsAutomated)
	}
}
