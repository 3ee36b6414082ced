package postgres

/*
Файл history_repo.go — журнал переходов (таблица autonomy_events) и
пакетная запись сырых сигналов (таблица approval_signals).
*/

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dealflowhq/autopilot/internal/domain"
)

// InsertHistoryPoint фиксирует точку истории при каждом принятом переходе.
func (r *Repo) InsertHistoryPoint(ctx context.Context, repID string, p domain.AutonomyHistoryPoint) error {
	query := `
		INSERT INTO autonomy_events
			(rep_id, event_date, event_ts, autonomy_score, event_type, action_type, from_tier, to_tier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		repID, p.Date, p.Timestamp, p.AutonomyScore, string(p.EventType),
		nullIfEmpty(p.ActionType), nullIfEmpty(string(p.FromTier)), nullIfEmpty(string(p.ToTier)),
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to insert history point: %w", err)
	}
	return nil
}

// ListHistory возвращает реальные события менеджера за окно в days дней.
// Разворачивание в сплошной дневной ряд — забота слоя autonomy, не БД.
func (r *Repo) ListHistory(ctx context.Context, repID string, days int) ([]domain.AutonomyHistoryPoint, error) {
	query := `
		SELECT event_date, event_ts, autonomy_score, event_type, action_type, from_tier, to_tier
		FROM autonomy_events
		WHERE rep_id = $1 AND event_ts > NOW() - ($2 * INTERVAL '1 day')
		ORDER BY event_ts`

	rows, err := r.pool.Query(ctx, query, repID, days)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query history: %w", err)
	}
	defer rows.Close()

	results := make([]domain.AutonomyHistoryPoint, 0)
	for rows.Next() {
		var p domain.AutonomyHistoryPoint
		var eventType string
		var actionType, fromTier, toTier sql.NullString

		if err := rows.Scan(&p.Date, &p.Timestamp, &p.AutonomyScore, &eventType,
			&actionType, &fromTier, &toTier); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan history point: %w", err)
		}

		p.EventType = domain.EventType(eventType)
		if actionType.Valid {
			p.ActionType = actionType.String
		}
		if fromTier.Valid {
			p.FromTier = domain.Tier(fromTier.String)
		}
		if toTier.Valid {
			p.ToTier = domain.Tier(toTier.String)
		}
		results = append(results, p)
	}

	return results, rows.Err()
}

// WriteSignalBatch сохраняет пачку сырых сигналов за один INSERT.
// Вызывается воркером журнала, не горячим путем.
func (r *Repo) WriteSignalBatch(ctx context.Context, events []domain.SignalEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Количество колонок в таблице approval_signals
	numFields := 8
	var sb strings.Builder
	vals := make([]interface{}, 0, len(events)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range events {
		p := i * numFields
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d),",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8)

		observed := e.ObservedAt
		if observed.IsZero() {
			observed = e.Timestamp
		}

		vals = append(vals,
			e.ID, e.TraceID, e.RepID, e.ActionType,
			string(e.Outcome), string(e.TierAtIngest), observed, e.Timestamp,
		)
	}

	query := fmt.Sprintf(
		"INSERT INTO approval_signals (id, trace_id, rep_id, action_type, outcome, tier_at_ingest, observed_at, created_at) VALUES %s",
		strings.TrimSuffix(sb.String(), ","),
	)

	if _, err := r.pool.Exec(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: failed to write signal batch: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
