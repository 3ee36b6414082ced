package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidTransition = errors.New("invalid tier transition")
	ErrCooldownActive    = errors.New("action type is in cooldown")
	ErrNeverPromote      = errors.New("action type is locked from promotion")
)

// ActionTypeStat — состояние доверия по одному типу действия для конкретного
// менеджера (rep). Это главный агрегат модели: счетчики сигналов, текущий
// уровень и вычисленные флаги готовности к повышению.
type ActionTypeStat struct {
	RepID      string `json:"rep_id"`
	ActionType string `json:"action_type"` // например "crm.note_add"

	CurrentTier Tier `json:"current_tier"`

	// Счетчики сигналов. Инвариант: TotalApproved <= TotalSignals.
	// В знаменатель идут ВСЕ наблюдения (approve/edit/reject/revert),
	// в числитель — только чистые подтверждения без правок.
	TotalSignals  int `json:"total_signals"`
	TotalApproved int `json:"total_approved"`

	// CleanApprovalRate — производное поле, nil пока сигналов нет
	// (фронт рисует "No signals yet" вместо NaN).
	CleanApprovalRate *float64 `json:"clean_approval_rate"`

	PromotionEligible bool `json:"promotion_eligible"`
	NeverPromote      bool `json:"never_promote"`

	// ExtraRequiredSignals — сколько сигналов осталось до порога следующей
	// ступени, когда повышение еще недоступно.
	ExtraRequiredSignals int `json:"extra_required_signals"`

	// CooldownUntil — пока момент в будущем, никакие переходы не предлагаются.
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Rate пересчитывает и кэширует долю чистых подтверждений.
// Возвращает false, если сигналов еще не было (деление на ноль запрещено).
func (s *ActionTypeStat) Rate() (float64, bool) {
	if s.TotalSignals == 0 {
		s.CleanApprovalRate = nil
		return 0, false
	}
	r := float64(s.TotalApproved) / float64(s.TotalSignals)
	s.CleanApprovalRate = &r
	return r, true
}

// InCooldown проверяет активность окна охлаждения на момент now.
func (s *ActionTypeStat) InCooldown(now time.Time) bool {
	return s.CooldownUntil != nil && s.CooldownUntil.After(now)
}
