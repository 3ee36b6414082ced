package ceiling

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dealflowhq/autopilot/internal/domain"
	"github.com/dealflowhq/autopilot/internal/infra"
	"go.uber.org/zap"
)

// StartListener — «живучая» подписка на сигнал обновления потолков.
// Цикл переживает обрывы соединения: при каждом реконнекте кэш
// синхронизируется с БД заново, чтобы не пропустить сигналы,
// потерянные за время обрыва.
func (m *Manager) StartListener(ctx context.Context) {
	for {
		pubsub := m.rdb.Subscribe(ctx, infra.RedisChanCeilingUpdate)

		// Проверка успешности подписки
		if _, err := pubsub.Receive(ctx); err != nil {
			m.logger.Error("failed to subscribe", zap.String("chan", infra.RedisChanCeilingUpdate), zap.Error(err))
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		// Синхронизация при каждом успешном коннекте
		if err := m.Init(ctx); err != nil {
			m.logger.Error("ceiling sync failed on reconnect", zap.Error(err))
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}
				m.handleSignal(msg.Payload)
			}
		}

		pubsub.Close()
		time.Sleep(1 * time.Second)
	}
}

// handleSignal разбирает формат "org_id:action_type:max_ceiling:auto_eligible".
func (m *Manager) handleSignal(payload string) {
	parts := strings.Split(payload, ":")
	if len(parts) != 4 {
		m.logger.Error("invalid ceiling signal format", zap.String("payload", payload))
		return
	}

	tier, err := domain.ParseTier(parts[2])
	if err != nil {
		m.logger.Error("invalid ceiling tier in signal", zap.String("payload", payload), zap.Error(err))
		return
	}

	autoEligible, _ := strconv.ParseBool(parts[3])

	m.update(domain.AutonomyCeiling{
		OrgID:                 parts[0],
		ActionType:            parts[1],
		MaxCeiling:            tier,
		AutoPromotionEligible: autoEligible,
		UpdatedAt:             time.Now(),
	})

	m.logger.Info("ceiling updated from signal",
		zap.String("org_id", parts[0]),
		zap.String("action_type", parts[1]),
		zap.String("max_ceiling", string(tier)))
}
