package autonomy

/*
Файл engine.go реализует движок переходов по лестнице доверия
(disabled → suggest → approve → auto).

Правила:
- Повышение строго на одну ступень и только при выполнении порогов
  следующей ступени: накоплено достаточно сигналов И доля чистых
  подтверждений не ниже минимума. Пороги — внешняя конфигурация.
- Откат автодействия (reverted) опускает на одну ступень.
- Серьезный инцидент (reverted_severe) — аварийная демоция сразу на
  suggest (или disabled, если выше подниматься было некуда), в обход
  плавной лестницы и даже активного окна охлаждения.
- После любого перехода ставится cooldown: пока окно не истекло,
  новые переходы не предлагаются и не применяются.
*/

import (
	"fmt"
	"time"

	"github.com/dealflowhq/autopilot/internal/domain"
)

// Rung — пороги входа на ступень лестницы.
type Rung struct {
	MinSignals int     `mapstructure:"min_signals"`
	MinRate    float64 `mapstructure:"min_rate"`
}

// Ladder — пороги, ключ = целевая ступень. Реальные значения приходят из
// конфигурации; в коде нет «угаданных» чисел, только дефолт для dev-стенда.
type Ladder map[domain.Tier]Rung

// DefaultLadder — стартовые значения для локальной разработки.
// Боевые пороги задает конфиг (tiering.ladder).
func DefaultLadder() Ladder {
	return Ladder{
		domain.TierSuggest: {MinSignals: 0, MinRate: 0},
		domain.TierApprove: {MinSignals: 25, MinRate: 0.85},
		domain.TierAuto:    {MinSignals: 50, MinRate: 0.95},
	}
}

// TransitionKind — направление примененного перехода, совпадает с типом
// точки истории.
type Transition struct {
	RepID      string           `json:"rep_id"`
	ActionType string           `json:"action_type"`
	Kind       domain.EventType `json:"kind"`
	FromTier   domain.Tier      `json:"from_tier"`
	ToTier     domain.Tier      `json:"to_tier"`
	At         time.Time        `json:"at"`
}

type Engine struct {
	ladder   Ladder
	cooldown time.Duration
}

func NewEngine(ladder Ladder, cooldown time.Duration) *Engine {
	if ladder == nil {
		ladder = DefaultLadder()
	}
	return &Engine{ladder: ladder, cooldown: cooldown}
}

// Evaluate пересчитывает флаги готовности к повышению без применения
// перехода. Заполняет PromotionEligible, ExtraRequiredSignals и
// CleanApprovalRate прямо в stat.
func (e *Engine) Evaluate(stat *domain.ActionTypeStat, ceiling domain.Tier, now time.Time) {
	stat.PromotionEligible = false
	stat.ExtraRequiredSignals = 0

	rate, ok := stat.Rate()

	next, hasNext := stat.CurrentTier.Next()
	if !hasNext {
		return // Уже на потолке лестницы
	}

	rung, known := e.ladder[next]
	if !known {
		return // Ступень не описана в конфиге — повышение закрыто
	}

	// Сколько сигналов осталось до порога (показывается на карточке).
	if stat.TotalSignals < rung.MinSignals {
		stat.ExtraRequiredSignals = rung.MinSignals - stat.TotalSignals
	}

	if stat.NeverPromote || stat.InCooldown(now) {
		return
	}
	if ceiling.Valid() && next.Rank() > ceiling.Rank() {
		return // Оргпотолок не пускает выше
	}
	if !ok || stat.TotalSignals < rung.MinSignals || rate < rung.MinRate {
		return
	}

	stat.PromotionEligible = true
}

// Promote применяет повышение на одну ступень. Вызывается либо автоматически
// (когда оргпотолок разрешает авто-повышение), либо по явному подтверждению
// оператора. Требует актуального Evaluate.
func (e *Engine) Promote(stat *domain.ActionTypeStat, ceiling domain.Tier, now time.Time) (*Transition, error) {
	e.Evaluate(stat, ceiling, now)
	if !stat.PromotionEligible {
		if stat.NeverPromote {
			return nil, domain.ErrNeverPromote
		}
		if stat.InCooldown(now) {
			return nil, domain.ErrCooldownActive
		}
		return nil, fmt.Errorf("%w: %s is not promotion-eligible", domain.ErrInvalidTransition, stat.ActionType)
	}

	next, _ := stat.CurrentTier.Next()
	tr := e.apply(stat, next, domain.EventPromotionAccepted, now)
	return tr, nil
}

// Demote — плавная демоция на одну ступень после отката автодействия.
// Подавляется активным окном охлаждения.
func (e *Engine) Demote(stat *domain.ActionTypeStat, now time.Time) (*Transition, error) {
	if stat.InCooldown(now) {
		return nil, domain.ErrCooldownActive
	}
	prev, ok := stat.CurrentTier.Prev()
	if !ok {
		return nil, fmt.Errorf("%w: already at %s", domain.ErrInvalidTransition, stat.CurrentTier)
	}
	tr := e.apply(stat, prev, domain.EventDemotionAuto, now)
	return tr, nil
}

// EmergencyDemote — аварийный сброс доверия после серьезного инцидента.
// Игнорирует cooldown и лестницу: с approve/auto падаем сразу на suggest,
// с suggest — на disabled.
func (e *Engine) EmergencyDemote(stat *domain.ActionTypeStat, now time.Time) (*Transition, error) {
	var target domain.Tier
	switch {
	case stat.CurrentTier.Rank() > domain.TierSuggest.Rank():
		target = domain.TierSuggest
	case stat.CurrentTier == domain.TierSuggest:
		target = domain.TierDisabled
	default:
		return nil, fmt.Errorf("%w: already disabled", domain.ErrInvalidTransition)
	}
	tr := e.apply(stat, target, domain.EventDemotionEmergency, now)
	return tr, nil
}

// ProcessSignal — единая точка входа для инжеста: обновляет счетчики и
// применяет вытекающий из исхода переход. autoPromote отражает флаг
// auto_promotion_eligible оргпотолка: без него повышение только предлагается.
func (e *Engine) ProcessSignal(
	stat *domain.ActionTypeStat,
	outcome domain.SignalOutcome,
	ceiling domain.Tier,
	autoPromote bool,
	now time.Time,
) (*Transition, error) {
	stat.TotalSignals++
	if outcome == domain.OutcomeApprovedClean {
		stat.TotalApproved++
	}
	stat.UpdatedAt = now

	switch outcome {
	case domain.OutcomeRevertedSevere:
		return e.EmergencyDemote(stat, now)
	case domain.OutcomeReverted:
		tr, err := e.Demote(stat, now)
		if err != nil {
			// Cooldown и «уже на дне» — штатные ситуации, а не ошибки инжеста.
			e.Evaluate(stat, ceiling, now)
			return nil, nil
		}
		return tr, nil
	default:
		e.Evaluate(stat, ceiling, now)
		if stat.PromotionEligible && autoPromote {
			return e.Promote(stat, ceiling, now)
		}
		return nil, nil
	}
}

// apply фиксирует переход и ставит свежее окно охлаждения.
func (e *Engine) apply(stat *domain.ActionTypeStat, to domain.Tier, kind domain.EventType, now time.Time) *Transition {
	from := stat.CurrentTier
	stat.CurrentTier = to
	stat.PromotionEligible = false
	until := now.Add(e.cooldown)
	stat.CooldownUntil = &until
	stat.UpdatedAt = now

	return &Transition{
		RepID:      stat.RepID,
		ActionType: stat.ActionType,
		Kind:       kind,
		FromTier:   from,
		ToTier:     to,
		At:         now,
	}
}
