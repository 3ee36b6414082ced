package ceiling

/*
Пакет ceiling держит L1 (RAM) кэш оргпотолков автономии. Потолки
администрируются вне этого сервиса; здесь — быстрый read-path для движка
переходов: каждая проверка promotion-eligibility спрашивает потолок, и
ходить за ним в Postgres на каждый сигнал нельзя.

Схема: L1 (мапа в памяти) → L2 (Redis set, общий для инстансов) → БД.
Актуальность поддерживается подпиской на Pub/Sub сигнал обновления.
*/

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dealflowhq/autopilot/internal/domain"
	"github.com/dealflowhq/autopilot/internal/infra"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CeilingSource — требования менеджера к хранилищу.
type CeilingSource interface {
	ListAllCeilings(ctx context.Context) ([]domain.AutonomyCeiling, error)
}

type Manager struct {
	mu       sync.RWMutex
	ceilings map[string]domain.AutonomyCeiling // ключ org:action

	rdb    *redis.Client
	repo   CeilingSource
	logger *zap.Logger
}

func NewManager(rdb *redis.Client, repo CeilingSource, logger *zap.Logger) *Manager {
	return &Manager{
		ceilings: make(map[string]domain.AutonomyCeiling),
		rdb:      rdb,
		repo:     repo,
		logger:   logger.Named("ceiling-manager"),
	}
}

func key(orgID, actionType string) string {
	return orgID + ":" + actionType
}

// Init загружает потолки из БД при старте сервиса и при необходимости
// прогревает Redis-зеркало (распределенный лок, чтобы грел один инстанс).
func (m *Manager) Init(ctx context.Context) error {
	all, err := m.repo.ListAllCeilings(ctx)
	if err != nil {
		return fmt.Errorf("ceiling warmup failed: %w", err)
	}

	m.mu.Lock()
	m.ceilings = make(map[string]domain.AutonomyCeiling, len(all))
	for _, c := range all {
		m.ceilings[key(c.OrgID, c.ActionType)] = c
	}
	m.mu.Unlock()

	// SetNX: только один инстанс льет зеркало в Redis
	ok, err := m.rdb.SetNX(ctx, infra.RedisKeyLockCeilingWarmup, "processing", 30*time.Second).Result()
	if err != nil || !ok {
		return nil // Либо сеть, либо другой инстанс уже греет
	}

	pipe := m.rdb.Pipeline()
	for _, c := range all {
		member := fmt.Sprintf("%s:%s:%v", c.ActionType, c.MaxCeiling, c.AutoPromotionEligible)
		pipe.SAdd(ctx, infra.GetCeilingSetKey(c.OrgID), member)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		m.logger.Warn("redis ceiling mirror warmup failed", zap.Error(err))
	}

	m.logger.Info("ceiling cache warmed", zap.Int("count", len(all)))
	return nil
}

// CeilingFor возвращает потолок и флаг авто-повышения для пары
// организация+тип действия. Без записи в кэше потолка нет: лестница
// открыта до конца, но повышение требует ручного подтверждения.
func (m *Manager) CeilingFor(orgID, actionType string) (domain.Tier, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if c, ok := m.ceilings[key(orgID, actionType)]; ok {
		return c.MaxCeiling, c.AutoPromotionEligible
	}
	return domain.TierAuto, false
}

// List отдает потолки одной организации (read-only ручка консоли).
func (m *Manager) List(orgID string) []domain.AutonomyCeiling {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]domain.AutonomyCeiling, 0)
	for _, c := range m.ceilings {
		if c.OrgID == orgID {
			results = append(results, c)
		}
	}
	return results
}

// update заменяет одну запись (применение Pub/Sub сигнала).
func (m *Manager) update(c domain.AutonomyCeiling) {
	m.mu.Lock()
	m.ceilings[key(c.OrgID, c.ActionType)] = c
	m.mu.Unlock()
}
