package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "autopilot"
)

// Ключи состояния и кэша
const (
	// RedisKeyNeverPromoteSet — зеркало действий, запертых от повышения.
	RedisKeyNeverPromoteSet = RedisNamespace + ":actions:never_promote_set"

	// RedisKeyLockCeilingWarmup — распределенный лок прогрева кэша потолков.
	RedisKeyLockCeilingWarmup = RedisNamespace + ":lock:warmup:ceilings"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanTransitions — трансляция примененных переходов по лестнице
	// (дашборды и другие инстансы подхватывают без опроса БД).
	RedisChanTransitions = RedisNamespace + ":tiers:transition-signal"

	// RedisChanCeilingUpdate — сигнал об изменении оргпотолков из админки.
	RedisChanCeilingUpdate = RedisNamespace + ":ceilings:update-signal"
)

// GetTeamCacheKey — ключ минутного кэша командной сводки.
func GetTeamCacheKey(orgID string) string {
	return fmt.Sprintf("%s:team:%s:summary", RedisNamespace, orgID)
}

// GetCeilingSetKey — ключ зеркала потолков организации.
func GetCeilingSetKey(orgID string) string {
	return fmt.Sprintf("%s:ceilings:%s", RedisNamespace, orgID)
}
