package autonomy

import (
	"math"

	"github.com/dealflowhq/autopilot/internal/domain"
)

// Пресеты-ярлыки для человека. Границы включают нижний порог:
// 80 — уже Autonomous, 79 — еще Balanced.
const (
	LabelAutonomous     = "Autonomous"      // score >= 80
	LabelBalanced       = "Balanced"        // score >= 50
	LabelConservative   = "Conservative"    // score >= 20
	LabelGettingStarted = "Getting started" // score < 20
)

// Score считает автономию менеджера: доля типов действий на уровне auto,
// округленная до целого процента. Пустой набор — это не ошибка, а ноль.
func Score(stats []domain.ActionTypeStat) int {
	if len(stats) == 0 {
		return 0
	}
	auto := 0
	for _, s := range stats {
		if s.CurrentTier == domain.TierAuto {
			auto++
		}
	}
	return int(math.Round(100 * float64(auto) / float64(len(stats))))
}

// PresetLabel отображает score в ярлык. Функция чистая и тотальная на [0,100];
// используется одна и та же таблица порогов и для менеджера, и для среднего
// по команде.
func PresetLabel(score int) string {
	switch {
	case score >= 80:
		return LabelAutonomous
	case score >= 50:
		return LabelBalanced
	case score >= 20:
		return LabelConservative
	default:
		return LabelGettingStarted
	}
}

// TeamAverage — простое арифметическое среднее по менеджерам,
// без взвешивания по количеству типов действий.
func TeamAverage(members []domain.TeamMemberStats) int {
	if len(members) == 0 {
		return 0
	}
	sum := 0
	for _, m := range members {
		sum += m.AutonomyScore
	}
	return int(math.Round(float64(sum) / float64(len(members))))
}
