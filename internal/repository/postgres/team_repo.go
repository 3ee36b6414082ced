package postgres

/*
Файл team_repo.go — командная свертка и оргпотолки. Тяжелая аналитика
остается на стороне Postgres: приложение получает уже посчитанные строки.
*/

import (
	"context"
	"fmt"

	"github.com/dealflowhq/autopilot/internal/domain"
)

// GetTeamStats собирает свертку по каждому менеджеру организации:
// score (доля auto-типов), счетчики уровней, возраст первого сигнала.
func (r *Repo) GetTeamStats(ctx context.Context, orgID string) ([]domain.TeamMemberStats, error) {
	query := `
		SELECT
			s.rep_id,
			COALESCE(rep.display_name, s.rep_id),
			ROUND(100.0 * COUNT(*) FILTER (WHERE s.current_tier = 'auto') / COUNT(*))::int,
			COUNT(*) FILTER (WHERE s.current_tier = 'auto'),
			COUNT(*) FILTER (WHERE s.current_tier = 'approve'),
			COALESCE((
				SELECT EXTRACT(DAY FROM NOW() - MIN(sig.observed_at))::int
				FROM approval_signals sig
				WHERE sig.rep_id = s.rep_id
			), 0)
		FROM action_type_stats s
		JOIN reps rep ON rep.id = s.rep_id AND rep.org_id = $1
		GROUP BY s.rep_id, rep.display_name
		ORDER BY s.rep_id`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query team stats: %w", err)
	}
	defer rows.Close()

	results := make([]domain.TeamMemberStats, 0)
	for rows.Next() {
		var m domain.TeamMemberStats
		if err := rows.Scan(&m.RepID, &m.RepName, &m.AutonomyScore,
			&m.AutoCount, &m.ApproveCount, &m.DaysSinceFirstSignal); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan team member: %w", err)
		}
		results = append(results, m)
	}

	return results, rows.Err()
}

// ListCeilings — «холодная загрузка» оргпотолков для прогрева кэша.
func (r *Repo) ListCeilings(ctx context.Context, orgID string) ([]domain.AutonomyCeiling, error) {
	query := `
		SELECT org_id, action_type, max_ceiling, auto_promotion_eligible, updated_at
		FROM org_ceilings
		WHERE org_id = $1`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query ceilings: %w", err)
	}
	defer rows.Close()

	results := make([]domain.AutonomyCeiling, 0)
	for rows.Next() {
		var c domain.AutonomyCeiling
		var ceiling string
		if err := rows.Scan(&c.OrgID, &c.ActionType, &ceiling,
			&c.AutoPromotionEligible, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan ceiling: %w", err)
		}
		c.MaxCeiling = domain.Tier(ceiling)
		results = append(results, c)
	}

	return results, rows.Err()
}

// ListAllCeilings — вариант без фильтра по организации (инициализация L1
// кэша на старте инстанса).
func (r *Repo) ListAllCeilings(ctx context.Context) ([]domain.AutonomyCeiling, error) {
	query := `
		SELECT org_id, action_type, max_ceiling, auto_promotion_eligible, updated_at
		FROM org_ceilings`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query all ceilings: %w", err)
	}
	defer rows.Close()

	results := make([]domain.AutonomyCeiling, 0)
	for rows.Next() {
		var c domain.AutonomyCeiling
		var ceiling string
		if err := rows.Scan(&c.OrgID, &c.ActionType, &ceiling,
			&c.AutoPromotionEligible, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan ceiling: %w", err)
		}
		c.MaxCeiling = domain.Tier(ceiling)
		results = append(results, c)
	}

	return results, rows.Err()
}
