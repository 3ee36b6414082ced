package autonomy

import (
	"time"

	"github.com/dealflowhq/autopilot/internal/domain"
)

// BuildChartSeries разворачивает разреженный список событий в сплошной
// дневной ряд для area-графика: по одной точке на каждый календарный день
// окна из days дней, заканчивающегося днем now.
//
// Алгоритм:
//  1. Индексируем события по календарной дате; при нескольких событиях
//     в один день побеждает позднее (last-write-wins).
//  2. Идем по дням окна. День с событием — отдаем его и запоминаем score;
//     день без события — синтезируем fill-точку с текущим score.
//  3. До первого реального события бегущий score равен нулю, так что
//     неопределенного состояния в начале окна нет.
//
// Пустой вход — пустой выход: вызывающий рисует empty-state, не ошибку.
func BuildChartSeries(events []domain.AutonomyHistoryPoint, days int, now time.Time) []domain.AutonomyHistoryPoint {
	if len(events) == 0 || days <= 0 {
		return []domain.AutonomyHistoryPoint{}
	}

	byDate := make(map[string]domain.AutonomyHistoryPoint, len(events))
	for _, ev := range events {
		key := ev.Date
		if key == "" {
			key = ev.Timestamp.Format(domain.DateLayout)
		}
		prev, seen := byDate[key]
		if !seen || !ev.Timestamp.Before(prev.Timestamp) {
			ev.Date = key
			byDate[key] = ev
		}
	}

	// Окно: days календарных дней включительно, последний день — сегодня.
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := end.AddDate(0, 0, -(days - 1))

	series := make([]domain.AutonomyHistoryPoint, 0, days)
	runningScore := 0

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(domain.DateLayout)
		if ev, ok := byDate[key]; ok {
			runningScore = ev.AutonomyScore
			series = append(series, ev)
			continue
		}
		series = append(series, domain.AutonomyHistoryPoint{
			Date:          key,
			Timestamp:     d,
			AutonomyScore: runningScore,
			EventType:     domain.EventFill,
		})
	}

	return series
}
