package autonomy

import (
	"fmt"
	"math"
)

// Estimator переводит количество автоматизированных действий в оценку
// сэкономленных часов. Это чисто витринная линейная арифметика:
// веса «минут на действие» задает бекенд-конфигурация, сервис их
// не выводит из данных.
type Estimator struct {
	weights        map[string]float64 // минуты на одно действие по типу
	defaultMinutes float64            // для типов без явного веса
}

func NewEstimator(weights map[string]float64, defaultMinutes float64) *Estimator {
	if weights == nil {
		weights = map[string]float64{}
	}
	return &Estimator{weights: weights, defaultMinutes: defaultMinutes}
}

// Hours оценивает экономию за окно (по умолчанию — неделя) по счетчикам
// выполненных действий на уровнях auto/approve.
func (e *Estimator) Hours(counts map[string]int) float64 {
	var minutes float64
	for actionType, n := range counts {
		if n <= 0 {
			continue
		}
		w, ok := e.weights[actionType]
		if !ok {
			w = e.defaultMinutes
		}
		minutes += float64(n) * w
	}
	return minutes / 60
}

// FormatHours — отображение для карточек: меньше часа показываем минутами,
// дальше — часами с одним знаком.
func FormatHours(h float64) string {
	if h < 0 {
		h = 0
	}
	if h < 1 {
		return fmt.Sprintf("%d min", int(math.Round(h*60)))
	}
	return fmt.Sprintf("%.1f hrs", h)
}
