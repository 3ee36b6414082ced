package autonomy

import (
	"errors"
	"testing"
	"time"

	"github.com/dealflowhq/autopilot/internal/domain"
)

// Тесты фиксируют свою лестницу: боевые пороги — внешняя конфигурация.
func testLadder() Ladder {
	return Ladder{
		domain.TierApprove: {MinSignals: 10, MinRate: 0.8},
		domain.TierAuto:    {MinSignals: 20, MinRate: 0.9},
	}
}

func newTestEngine() *Engine {
	return NewEngine(testLadder(), 48*time.Hour)
}

func TestEvaluateEligibility(t *testing.T) {
	e := newTestEngine()
	now := time.Now()

	stat := &domain.ActionTypeStat{
		ActionType:    "crm.note_add",
		CurrentTier:   domain.TierSuggest,
		TotalSignals:  12,
		TotalApproved: 11, // rate ~0.92 >= 0.8
	}
	e.Evaluate(stat, domain.TierAuto, now)
	if !stat.PromotionEligible {
		t.Fatalf("expected promotion eligible, got %+v", stat)
	}
	if stat.ExtraRequiredSignals != 0 {
		t.Fatalf("expected no extra signals required, got %d", stat.ExtraRequiredSignals)
	}
}

func TestEvaluateExtraRequiredSignals(t *testing.T) {
	e := newTestEngine()
	stat := &domain.ActionTypeStat{
		ActionType:    "crm.note_add",
		CurrentTier:   domain.TierSuggest,
		TotalSignals:  6,
		TotalApproved: 6,
	}
	e.Evaluate(stat, domain.TierAuto, time.Now())
	if stat.PromotionEligible {
		t.Fatalf("expected not eligible below signal threshold")
	}
	if stat.ExtraRequiredSignals != 4 {
		t.Fatalf("expected 4 extra signals required, got %d", stat.ExtraRequiredSignals)
	}
}

func TestEvaluateRespectsNeverPromote(t *testing.T) {
	e := newTestEngine()
	stat := &domain.ActionTypeStat{
		ActionType:    "deal.amount_update",
		CurrentTier:   domain.TierSuggest,
		TotalSignals:  50,
		TotalApproved: 50,
		NeverPromote:  true,
	}
	e.Evaluate(stat, domain.TierAuto, time.Now())
	if stat.PromotionEligible {
		t.Fatalf("never_promote must suppress eligibility")
	}
}

func TestEvaluateRespectsCooldown(t *testing.T) {
	e := newTestEngine()
	now := time.Now()
	until := now.Add(time.Hour)
	stat := &domain.ActionTypeStat{
		ActionType:    "crm.note_add",
		CurrentTier:   domain.TierSuggest,
		TotalSignals:  50,
		TotalApproved: 50,
		CooldownUntil: &until,
	}
	e.Evaluate(stat, domain.TierAuto, now)
	if stat.PromotionEligible {
		t.Fatalf("active cooldown must suppress eligibility")
	}

	// После истечения окна — снова доступно
	e.Evaluate(stat, domain.TierAuto, now.Add(2*time.Hour))
	if !stat.PromotionEligible {
		t.Fatalf("expired cooldown must not suppress eligibility")
	}
}

func TestEvaluateRespectsCeiling(t *testing.T) {
	e := newTestEngine()
	stat := &domain.ActionTypeStat{
		ActionType:    "email.send",
		CurrentTier:   domain.TierApprove,
		TotalSignals:  100,
		TotalApproved: 100,
	}
	// Потолок approve: на auto не пускаем
	e.Evaluate(stat, domain.TierApprove, time.Now())
	if stat.PromotionEligible {
		t.Fatalf("org ceiling must suppress eligibility")
	}
}

func TestPromoteMovesOneStep(t *testing.T) {
	e := newTestEngine()
	now := time.Now()
	stat := &domain.ActionTypeStat{
		RepID:         "r1",
		ActionType:    "crm.note_add",
		CurrentTier:   domain.TierSuggest,
		TotalSignals:  30,
		TotalApproved: 29,
	}

	tr, err := e.Promote(stat, domain.TierAuto, now)
	if err != nil {
		t.Fatalf("unexpected promote error: %v", err)
	}
	if tr.FromTier != domain.TierSuggest || tr.ToTier != domain.TierApprove {
		t.Fatalf("expected suggest->approve, got %s->%s", tr.FromTier, tr.ToTier)
	}
	if tr.Kind != domain.EventPromotionAccepted {
		t.Fatalf("expected promotion_accepted, got %s", tr.Kind)
	}
	if stat.CooldownUntil == nil || !stat.CooldownUntil.After(now) {
		t.Fatalf("promotion must set a cooldown window")
	}

	// Сразу же второй прыжок (suggest -> auto в обход approve) невозможен:
	// свежий cooldown держит лестницу
	if _, err := e.Promote(stat, domain.TierAuto, now); !errors.Is(err, domain.ErrCooldownActive) {
		t.Fatalf("expected cooldown error on immediate re-promotion, got %v", err)
	}
}

func TestDemoteOneStepAndCooldownSuppression(t *testing.T) {
	e := newTestEngine()
	now := time.Now()
	stat := &domain.ActionTypeStat{
		ActionType:  "lead.route",
		CurrentTier: domain.TierAuto,
	}

	tr, err := e.Demote(stat, now)
	if err != nil {
		t.Fatalf("unexpected demote error: %v", err)
	}
	if tr.Kind != domain.EventDemotionAuto || tr.ToTier != domain.TierApprove {
		t.Fatalf("expected demotion_auto to approve, got %+v", tr)
	}

	// Cooldown после демоции гасит следующую плавную демоцию
	if _, err := e.Demote(stat, now); !errors.Is(err, domain.ErrCooldownActive) {
		t.Fatalf("expected cooldown error, got %v", err)
	}
}

func TestEmergencyDemoteBypassesLadderAndCooldown(t *testing.T) {
	e := newTestEngine()
	now := time.Now()
	until := now.Add(time.Hour)
	stat := &domain.ActionTypeStat{
		ActionType:    "email.send",
		CurrentTier:   domain.TierAuto,
		CooldownUntil: &until, // активный cooldown не спасает от аварийного сброса
	}

	tr, err := e.EmergencyDemote(stat, now)
	if err != nil {
		t.Fatalf("unexpected emergency demote error: %v", err)
	}
	if tr.Kind != domain.EventDemotionEmergency || tr.ToTier != domain.TierSuggest {
		t.Fatalf("expected emergency drop to suggest, got %+v", tr)
	}

	// С suggest аварийный сброс уводит в disabled
	stat2 := &domain.ActionTypeStat{ActionType: "x", CurrentTier: domain.TierSuggest}
	tr2, err := e.EmergencyDemote(stat2, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr2.ToTier != domain.TierDisabled {
		t.Fatalf("expected drop to disabled, got %s", tr2.ToTier)
	}
}

func TestProcessSignalCounters(t *testing.T) {
	e := newTestEngine()
	now := time.Now()
	stat := &domain.ActionTypeStat{
		ActionType:  "crm.note_add",
		CurrentTier: domain.TierSuggest,
	}

	if _, err := e.ProcessSignal(stat, domain.OutcomeApprovedClean, domain.TierAuto, false, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.ProcessSignal(stat, domain.OutcomeApprovedEdited, domain.TierAuto, false, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stat.TotalSignals != 2 || stat.TotalApproved != 1 {
		t.Fatalf("expected 2 signals / 1 approved, got %d/%d", stat.TotalSignals, stat.TotalApproved)
	}
	if stat.TotalApproved > stat.TotalSignals {
		t.Fatalf("invariant violated: approved > signals")
	}
}

func TestProcessSignalAutoPromotes(t *testing.T) {
	e := newTestEngine()
	now := time.Now()
	stat := &domain.ActionTypeStat{
		ActionType:    "crm.note_add",
		CurrentTier:   domain.TierSuggest,
		TotalSignals:  9,
		TotalApproved: 9,
	}

	// Десятый чистый сигнал добивает порог approve; оргпотолок разрешает
	// авто-применение
	tr, err := e.ProcessSignal(stat, domain.OutcomeApprovedClean, domain.TierAuto, true, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr == nil || tr.ToTier != domain.TierApprove {
		t.Fatalf("expected auto-applied promotion to approve, got %+v", tr)
	}

	// Без флага авто-применения переход только предлагается
	stat2 := &domain.ActionTypeStat{
		ActionType:    "crm.task_create",
		CurrentTier:   domain.TierSuggest,
		TotalSignals:  9,
		TotalApproved: 9,
	}
	tr2, err := e.ProcessSignal(stat2, domain.OutcomeApprovedClean, domain.TierAuto, false, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr2 != nil {
		t.Fatalf("expected no applied transition without auto-promote, got %+v", tr2)
	}
	if !stat2.PromotionEligible {
		t.Fatalf("expected promotion to be proposed")
	}
}

func TestProcessSignalRevertDemotes(t *testing.T) {
	e := newTestEngine()
	now := time.Now()
	stat := &domain.ActionTypeStat{
		ActionType:  "lead.route",
		CurrentTier: domain.TierAuto,
	}

	tr, err := e.ProcessSignal(stat, domain.OutcomeReverted, domain.TierAuto, true, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr == nil || tr.Kind != domain.EventDemotionAuto {
		t.Fatalf("expected auto demotion, got %+v", tr)
	}

	// Повторный откат внутри cooldown — сигнал учтен, перехода нет
	tr2, err := e.ProcessSignal(stat, domain.OutcomeReverted, domain.TierAuto, true, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr2 != nil {
		t.Fatalf("expected demotion suppressed by cooldown, got %+v", tr2)
	}
	if stat.TotalSignals != 2 {
		t.Fatalf("reverted signals must still be counted, got %d", stat.TotalSignals)
	}
}

func TestRateUndefinedWithoutSignals(t *testing.T) {
	stat := &domain.ActionTypeStat{ActionType: "x", CurrentTier: domain.TierSuggest}
	if _, ok := stat.Rate(); ok {
		t.Fatalf("rate must be undefined with zero signals")
	}
	if stat.CleanApprovalRate != nil {
		t.Fatalf("clean_approval_rate must serialize as null with zero signals")
	}
}
