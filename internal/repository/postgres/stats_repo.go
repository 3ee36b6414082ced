package postgres

/*
Файл stats_repo.go — хранение состояния доверия по типам действий
(таблица action_type_stats: счетчики сигналов, текущий уровень, cooldown).
*/

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dealflowhq/autopilot/internal/domain"
	"github.com/jackc/pgx/v5"
)

// GetActionTypeStats возвращает весь набор статистик менеджера.
func (r *Repo) GetActionTypeStats(ctx context.Context, repID string) ([]domain.ActionTypeStat, error) {
	query := `
		SELECT rep_id, action_type, current_tier, total_signals, total_approved,
		       never_promote, cooldown_until, updated_at
		FROM action_type_stats
		WHERE rep_id = $1
		ORDER BY action_type`

	rows, err := r.pool.Query(ctx, query, repID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query action type stats: %w", err)
	}
	defer rows.Close()

	// Инициализируем пустой слайс, чтобы в JSON был [] вместо null
	results := make([]domain.ActionTypeStat, 0)

	for rows.Next() {
		stat, err := scanStat(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *stat)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return results, nil
}

// GetActionTypeStat — точечная выборка для инжеста сигнала.
// Возвращает nil без ошибки, если записи еще нет (первый сигнал типа).
func (r *Repo) GetActionTypeStat(ctx context.Context, repID, actionType string) (*domain.ActionTypeStat, error) {
	query := `
		SELECT rep_id, action_type, current_tier, total_signals, total_approved,
		       never_promote, cooldown_until, updated_at
		FROM action_type_stats
		WHERE rep_id = $1 AND action_type = $2`

	row := r.pool.QueryRow(ctx, query, repID, actionType)
	stat, err := scanStat(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return stat, nil
}

// UpsertStat атомарно фиксирует новое состояние после обработки сигнала:
// счетчики, уровень и окно охлаждения за один запрос.
func (r *Repo) UpsertStat(ctx context.Context, stat *domain.ActionTypeStat) error {
	query := `
		INSERT INTO action_type_stats
			(rep_id, action_type, current_tier, total_signals, total_approved,
			 never_promote, cooldown_until, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (rep_id, action_type) DO UPDATE SET
			current_tier   = EXCLUDED.current_tier,
			total_signals  = EXCLUDED.total_signals,
			total_approved = EXCLUDED.total_approved,
			never_promote  = EXCLUDED.never_promote,
			cooldown_until = EXCLUDED.cooldown_until,
			updated_at     = NOW()`

	var cooldown *time.Time
	if stat.CooldownUntil != nil {
		cooldown = stat.CooldownUntil
	}

	_, err := r.pool.Exec(ctx, query,
		stat.RepID, stat.ActionType, string(stat.CurrentTier),
		stat.TotalSignals, stat.TotalApproved, stat.NeverPromote, cooldown,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to upsert stat: %w", err)
	}
	return nil
}

// GetWeeklyAutomatedCounts — счетчики действий, выполненных на уровне auto
// за последние 7 дней. Основа оценки сэкономленного времени.
func (r *Repo) GetWeeklyAutomatedCounts(ctx context.Context, repID string) (map[string]int, error) {
	query := `
		SELECT action_type, COUNT(*)
		FROM approval_signals
		WHERE rep_id = $1
		  AND tier_at_ingest = 'auto'
		  AND observed_at > NOW() - INTERVAL '7 days'
		GROUP BY action_type`

	rows, err := r.pool.Query(ctx, query, repID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query weekly counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var actionType string
		var n int
		if err := rows.Scan(&actionType, &n); err != nil {
			return nil, fmt.Errorf("postgres: scan weekly count error: %w", err)
		}
		counts[actionType] = n
	}
	return counts, rows.Err()
}

// scanStat — общий маппинг строки в доменный агрегат с обработкой NULL.
func scanStat(row pgx.Row) (*domain.ActionTypeStat, error) {
	var stat domain.ActionTypeStat
	var tier string
	var cooldown sql.NullTime

	err := row.Scan(
		&stat.RepID,
		&stat.ActionType,
		&tier,
		&stat.TotalSignals,
		&stat.TotalApproved,
		&stat.NeverPromote,
		&cooldown,
		&stat.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("postgres: failed to scan stat: %w", err)
	}

	stat.CurrentTier = domain.Tier(tier)
	if cooldown.Valid {
		t := cooldown.Time
		stat.CooldownUntil = &t
	}

	// Производное поле считаем сразу, чтобы агрегат ушел наверх согласованным
	stat.Rate()

	return &stat, nil
}
