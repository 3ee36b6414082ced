package postgres

import (
	"context"
	"fmt"

	"github.com/dealflowhq/autopilot/internal/infra"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo — единая точка доступа к PostgreSQL через пул pgx.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo создает пул соединений по настройкам из конфига.
func NewRepo(ctx context.Context, cfg infra.DatabaseConfig) (*Repo, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}
	return &Repo{pool: pool}, nil
}

// Ping проверяет доступность базы при старте
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) Close() {
	r.pool.Close()
}
