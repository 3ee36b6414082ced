package domain

import (
	"fmt"
	"time"
)

// SignalOutcome — исход одного наблюдения за предложенным действием.
type SignalOutcome string

const (
	OutcomeApprovedClean  SignalOutcome = "approved_clean"  // Принято без правок
	OutcomeApprovedEdited SignalOutcome = "approved_edited" // Принято, но с правками
	OutcomeRejected       SignalOutcome = "rejected"        // Отклонено
	OutcomeReverted       SignalOutcome = "reverted"        // Автодействие откатили постфактум
	OutcomeRevertedSevere SignalOutcome = "reverted_severe" // Серьезный инцидент: аварийная демоция
)

var knownOutcomes = map[SignalOutcome]struct{}{
	OutcomeApprovedClean:  {},
	OutcomeApprovedEdited: {},
	OutcomeRejected:       {},
	OutcomeReverted:       {},
	OutcomeRevertedSevere: {},
}

// ParseOutcome валидирует исход, пришедший с HTTP-слоя.
func ParseOutcome(s string) (SignalOutcome, error) {
	o := SignalOutcome(s)
	if _, ok := knownOutcomes[o]; !ok {
		return "", fmt.Errorf("unknown signal outcome %q", s)
	}
	return o, nil
}

// Signal — входное событие от CRM: менеджер отреагировал на предложение.
type Signal struct {
	RepID      string        `json:"rep_id"`
	ActionType string        `json:"action_type"`
	Outcome    SignalOutcome `json:"outcome"`
	ObservedAt time.Time     `json:"observed_at"`
}

// SignalEvent — запись сырого сигнала для журнала (батчевая запись в БД).
type SignalEvent struct {
	ID      string `json:"id"`       // UUID события
	TraceID string `json:"trace_id"` // Сквозной ID запроса

	Signal

	// Контекст обработки на момент приема
	TierAtIngest Tier      `json:"tier_at_ingest"`
	Transition   EventType `json:"transition,omitempty"` // Пустая строка, если перехода не было
	Timestamp    time.Time `json:"timestamp"`
}
