package domain

import "fmt"

// Tier — уровень доверия (автономии) для конкретного типа действия.
type Tier string

const (
	TierDisabled Tier = "disabled" // Действие полностью выключено
	TierSuggest  Tier = "suggest"  // Система только предлагает, действует человек
	TierApprove  Tier = "approve"  // Система готовит действие, человек подтверждает
	TierAuto     Tier = "auto"     // Полная автономия, человек может откатить
)

// tierRank задает порядок лестницы доверия.
// Повышение идет строго по одной ступени, перескоков нет.
var tierRank = map[Tier]int{
	TierDisabled: 0,
	TierSuggest:  1,
	TierApprove:  2,
	TierAuto:     3,
}

// Rank возвращает позицию уровня в лестнице. Неизвестный уровень = -1.
func (t Tier) Rank() int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return -1
}

// Valid проверяет, что значение входит в известный набор уровней.
func (t Tier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

// Next возвращает следующую ступень лестницы.
// Для TierAuto второй результат будет false — выше некуда.
func (t Tier) Next() (Tier, bool) {
	switch t {
	case TierDisabled:
		return TierSuggest, true
	case TierSuggest:
		return TierApprove, true
	case TierApprove:
		return TierAuto, true
	default:
		return t, false
	}
}

// Prev возвращает предыдущую ступень (для плавной демоции).
func (t Tier) Prev() (Tier, bool) {
	switch t {
	case TierAuto:
		return TierApprove, true
	case TierApprove:
		return TierSuggest, true
	case TierSuggest:
		return TierDisabled, true
	default:
		return t, false
	}
}

// Below сравнивает уровни по рангу.
func (t Tier) Below(other Tier) bool {
	return t.Rank() < other.Rank()
}

// ParseTier валидирует строку из внешнего мира (БД, HTTP, конфиг).
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}
