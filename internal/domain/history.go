package domain

import "time"

// EventType классифицирует точку истории автономии.
type EventType string

const (
	EventPromotionAccepted EventType = "promotion_accepted"
	EventDemotionAuto      EventType = "demotion_auto"
	EventDemotionEmergency EventType = "demotion_emergency"

	// EventCurrent — синтетическая точка «сейчас», добавляется при отдаче.
	EventCurrent EventType = "current"
	// EventFill — точка-заполнитель, несет предыдущий score для сплошного графика.
	EventFill EventType = "fill"
)

// AutonomyHistoryPoint — одна точка временного ряда для area-графика.
// Реальные точки пишутся при каждом принятом переходе; fill-точки
// синтезируются билдером ряда и новой информации не несут.
type AutonomyHistoryPoint struct {
	Date          string    `json:"date"` // календарный день YYYY-MM-DD
	Timestamp     time.Time `json:"timestamp"`
	AutonomyScore int       `json:"autonomy_score"` // 0..100
	EventType     EventType `json:"event_type"`

	ActionType string `json:"action_type,omitempty"`
	FromTier   Tier   `json:"from_tier,omitempty"`
	ToTier     Tier   `json:"to_tier,omitempty"`
}

// DateLayout — формат календарного ключа точек истории.
const DateLayout = "2006-01-02"
