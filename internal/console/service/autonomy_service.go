package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dealflowhq/autopilot/internal/autonomy"
	"github.com/dealflowhq/autopilot/internal/domain"
	"github.com/dealflowhq/autopilot/internal/infra"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StatsRepository описывает требования сервиса к хранилищу.
type StatsRepository interface {
	GetActionTypeStats(ctx context.Context, repID string) ([]domain.ActionTypeStat, error)
	GetActionTypeStat(ctx context.Context, repID, actionType string) (*domain.ActionTypeStat, error)
	UpsertStat(ctx context.Context, stat *domain.ActionTypeStat) error
	InsertHistoryPoint(ctx context.Context, repID string, p domain.AutonomyHistoryPoint) error
	ListHistory(ctx context.Context, repID string, days int) ([]domain.AutonomyHistoryPoint, error)
	GetTeamStats(ctx context.Context, orgID string) ([]domain.TeamMemberStats, error)
	GetWeeklyAutomatedCounts(ctx context.Context, repID string) (map[string]int, error)
}

// CeilingProvider — быстрый доступ к оргпотолкам (L1 кэш).
type CeilingProvider interface {
	CeilingFor(orgID, actionType string) (domain.Tier, bool)
	List(orgID string) []domain.AutonomyCeiling
}

// TransitionNotifier доставляет события переходов в бекенд CRM.
type TransitionNotifier interface {
	Deliver(ctx context.Context, tr *autonomy.Transition) error
}

// SignalJournal — асинхронная запись сырых сигналов.
type SignalJournal interface {
	Log(event domain.SignalEvent)
}

type AutonomyService struct {
	repo      StatsRepository
	rdb       *redis.Client
	engine    *autonomy.Engine
	estimator *autonomy.Estimator
	ceilings  CeilingProvider
	notifier  TransitionNotifier
	journal   SignalJournal
	metrics   *infra.Metrics
	logger    *zap.Logger
}

func NewAutonomyService(
	repo StatsRepository,
	rdb *redis.Client,
	engine *autonomy.Engine,
	estimator *autonomy.Estimator,
	ceilings CeilingProvider,
	notifier TransitionNotifier,
	journal SignalJournal,
	metrics *infra.Metrics,
	logger *zap.Logger,
) *AutonomyService {
	return &AutonomyService{
		repo:      repo,
		rdb:       rdb,
		engine:    engine,
		estimator: estimator,
		ceilings:  ceilings,
		notifier:  notifier,
		journal:   journal,
		metrics:   metrics,
		logger:    logger.Named("autonomy-service"),
	}
}

// GetRepAutonomy собирает карточку автономии менеджера: статистики по типам
// действий со свежими флагами eligibility, score, ярлык и экономию времени.
func (s *AutonomyService) GetRepAutonomy(ctx context.Context, orgID, repID string) (*domain.RepAutonomy, error) {
	stats, err := s.repo.GetActionTypeStats(ctx, repID)
	if err != nil {
		s.logger.Error("failed to fetch action type stats", zap.String("rep_id", repID), zap.Error(err))
		return nil, fmt.Errorf("service: could not fetch autonomy stats: %w", err)
	}

	now := time.Now()
	for i := range stats {
		ceiling, _ := s.ceilings.CeilingFor(orgID, stats[i].ActionType)
		s.engine.Evaluate(&stats[i], ceiling, now)
	}

	counts, err := s.repo.GetWeeklyAutomatedCounts(ctx, repID)
	if err != nil {
		// Оценка времени — витринная; без нее карточка все равно полезна
		s.logger.Warn("failed to fetch weekly automated counts", zap.String("rep_id", repID), zap.Error(err))
		counts = map[string]int{}
	}
	saved := s.estimator.Hours(counts)

	score := autonomy.Score(stats)
	return &domain.RepAutonomy{
		RepID:              repID,
		AutonomyScore:      score,
		PresetLabel:        autonomy.PresetLabel(score),
		TimeSavedHoursWeek: saved,
		TimeSavedDisplay:   autonomy.FormatHours(saved),
		ActionTypes:        stats,
	}, nil
}

// GetHistory отдает сплошной дневной ряд для графика прогрессии.
// Пустая история — пустой ряд (фронт рисует empty-state).
func (s *AutonomyService) GetHistory(ctx context.Context, repID string, days int) ([]domain.AutonomyHistoryPoint, error) {
	events, err := s.repo.ListHistory(ctx, repID, days)
	if err != nil {
		s.logger.Error("failed to fetch history", zap.String("rep_id", repID), zap.Error(err))
		return nil, fmt.Errorf("service: could not fetch history: %w", err)
	}
	if len(events) == 0 {
		return []domain.AutonomyHistoryPoint{}, nil
	}

	// Синтетическая точка «сейчас»: текущий score поверх последнего события.
	// Благодаря last-write-wins она выигрывает сегодняшний день у fill-точки.
	now := time.Now()
	stats, err := s.repo.GetActionTypeStats(ctx, repID)
	if err != nil {
		return nil, fmt.Errorf("service: could not fetch current stats: %w", err)
	}
	events = append(events, domain.AutonomyHistoryPoint{
		Date:          now.Format(domain.DateLayout),
		Timestamp:     now,
		AutonomyScore: autonomy.Score(stats),
		EventType:     domain.EventCurrent,
	})

	return autonomy.BuildChartSeries(events, days, now), nil
}

// IngestResult — ответ на прием сигнала.
type IngestResult struct {
	Stat       *domain.ActionTypeStat `json:"stat"`
	Transition *autonomy.Transition   `json:"transition,omitempty"`
}

// IngestSignal — горячий путь: обновляет счетчики, применяет вытекающий
// переход, пишет историю и транслирует сигнал остальной системе.
func (s *AutonomyService) IngestSignal(ctx context.Context, orgID string, sig domain.Signal, traceID string) (*IngestResult, error) {
	if sig.ObservedAt.IsZero() {
		sig.ObservedAt = time.Now()
	}

	stat, err := s.repo.GetActionTypeStat(ctx, sig.RepID, sig.ActionType)
	if err != nil {
		return nil, fmt.Errorf("service: could not load stat: %w", err)
	}
	if stat == nil {
		// Первый сигнал этого типа: лестница начинается с suggest
		stat = &domain.ActionTypeStat{
			RepID:       sig.RepID,
			ActionType:  sig.ActionType,
			CurrentTier: domain.TierSuggest,
		}
	}

	tierAtIngest := stat.CurrentTier
	ceiling, autoPromote := s.ceilings.CeilingFor(orgID, sig.ActionType)

	now := time.Now()
	tr, err := s.engine.ProcessSignal(stat, sig.Outcome, ceiling, autoPromote, now)
	if err != nil {
		s.logger.Error("signal processing failed",
			zap.String("rep_id", sig.RepID),
			zap.String("action_type", sig.ActionType),
			zap.Error(err))
		return nil, fmt.Errorf("service: signal processing failed: %w", err)
	}

	// 1. Persistence Layer
	if err := s.repo.UpsertStat(ctx, stat); err != nil {
		return nil, fmt.Errorf("service: could not persist stat: %w", err)
	}

	s.metrics.SignalsTotal.WithLabelValues(string(sig.Outcome)).Inc()

	// 2. Журнал сырых сигналов (асинхронно, мимо горячего пути)
	event := domain.SignalEvent{
		ID:           uuid.New().String(),
		TraceID:      traceID,
		Signal:       sig,
		TierAtIngest: tierAtIngest,
		Timestamp:    now,
	}
	if tr != nil {
		event.Transition = tr.Kind
	}
	s.journal.Log(event)

	// 3. Если был переход — история, Pub/Sub и webhook
	if tr != nil {
		if err := s.recordTransition(ctx, sig.RepID, tr); err != nil {
			return nil, err
		}
	}

	return &IngestResult{Stat: stat, Transition: tr}, nil
}

// AcceptPromotion — явное подтверждение предложенного повышения оператором
// (когда оргпотолок не разрешает авто-применение).
func (s *AutonomyService) AcceptPromotion(ctx context.Context, orgID, repID, actionType string) (*autonomy.Transition, error) {
	stat, err := s.repo.GetActionTypeStat(ctx, repID, actionType)
	if err != nil {
		return nil, fmt.Errorf("service: could not load stat: %w", err)
	}
	if stat == nil {
		return nil, fmt.Errorf("service: no stats for action type %s", actionType)
	}

	ceiling, _ := s.ceilings.CeilingFor(orgID, actionType)
	tr, err := s.engine.Promote(stat, ceiling, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpsertStat(ctx, stat); err != nil {
		return nil, fmt.Errorf("service: could not persist stat: %w", err)
	}
	if err := s.recordTransition(ctx, repID, tr); err != nil {
		return nil, err
	}
	return tr, nil
}

// EmergencyDemote — аварийный сброс доверия оператором после инцидента.
func (s *AutonomyService) EmergencyDemote(ctx context.Context, orgID, repID, actionType string) (*autonomy.Transition, error) {
	stat, err := s.repo.GetActionTypeStat(ctx, repID, actionType)
	if err != nil {
		return nil, fmt.Errorf("service: could not load stat: %w", err)
	}
	if stat == nil {
		return nil, fmt.Errorf("service: no stats for action type %s", actionType)
	}

	tr, err := s.engine.EmergencyDemote(stat, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpsertStat(ctx, stat); err != nil {
		return nil, fmt.Errorf("service: could not persist stat: %w", err)
	}
	if err := s.recordTransition(ctx, repID, tr); err != nil {
		return nil, err
	}
	return tr, nil
}

// GetTeamAutonomy — командная сводка с минутным кэшем в Redis:
// тяжелый агрегирующий запрос не должен бить в Postgres на каждый рендер.
func (s *AutonomyService) GetTeamAutonomy(ctx context.Context, orgID string) (*domain.TeamAutonomy, error) {
	cacheKey := infra.GetTeamCacheKey(orgID)

	if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
		var team domain.TeamAutonomy
		if err := json.Unmarshal([]byte(cached), &team); err == nil {
			return &team, nil
		}
		// Битый кэш — игнорируем и перечитываем из БД
	}

	members, err := s.repo.GetTeamStats(ctx, orgID)
	if err != nil {
		s.logger.Error("failed to fetch team stats", zap.String("org_id", orgID), zap.Error(err))
		return nil, fmt.Errorf("service: could not fetch team stats: %w", err)
	}

	// Гарантируем фронту пустой массив [], а не null
	if members == nil {
		members = []domain.TeamMemberStats{}
	}

	for i := range members {
		counts, err := s.repo.GetWeeklyAutomatedCounts(ctx, members[i].RepID)
		if err != nil {
			s.logger.Warn("weekly counts unavailable for member",
				zap.String("rep_id", members[i].RepID), zap.Error(err))
			continue
		}
		members[i].TimeSavedHoursWeek = s.estimator.Hours(counts)
	}

	avg := autonomy.TeamAverage(members)
	team := &domain.TeamAutonomy{
		OrgID:        orgID,
		AverageScore: avg,
		PresetLabel:  autonomy.PresetLabel(avg),
		Members:      members,
	}

	if data, err := json.Marshal(team); err == nil {
		if err := s.rdb.Set(ctx, cacheKey, data, time.Minute).Err(); err != nil {
			s.logger.Warn("team cache write failed", zap.Error(err))
		}
	}

	return team, nil
}

// GetCeilings отдает оргпотолки из L1 кэша (read-only для консоли).
func (s *AutonomyService) GetCeilings(ctx context.Context, orgID string) ([]domain.AutonomyCeiling, error) {
	return s.ceilings.List(orgID), nil
}

// recordTransition — общий хвост любого примененного перехода:
// точка истории в БД, сигнал в Redis, доставка в бекенд CRM.
func (s *AutonomyService) recordTransition(ctx context.Context, repID string, tr *autonomy.Transition) error {
	stats, err := s.repo.GetActionTypeStats(ctx, repID)
	if err != nil {
		return fmt.Errorf("service: could not recompute score: %w", err)
	}

	point := domain.AutonomyHistoryPoint{
		Date:          tr.At.Format(domain.DateLayout),
		Timestamp:     tr.At,
		AutonomyScore: autonomy.Score(stats),
		EventType:     tr.Kind,
		ActionType:    tr.ActionType,
		FromTier:      tr.FromTier,
		ToTier:        tr.ToTier,
	}
	if err := s.repo.InsertHistoryPoint(ctx, repID, point); err != nil {
		s.logger.Error("failed to persist history point",
			zap.String("rep_id", repID), zap.Error(err))
		return fmt.Errorf("service: could not persist history point: %w", err)
	}

	s.metrics.TransitionsTotal.WithLabelValues(string(tr.Kind)).Inc()

	// Real-time Signaling: дашборды и другие инстансы узнают о переходе
	// без опроса БД. Недоставка сигнала не фатальна — правда лежит в Postgres.
	payload := fmt.Sprintf("%s:%s:%s:%s", repID, tr.ActionType, tr.Kind, tr.ToTier)
	if err := s.rdb.Publish(ctx, infra.RedisChanTransitions, payload).Err(); err != nil {
		s.logger.Warn("transition signal delivery failed", zap.Error(err))
	}

	// Webhook в бекенд CRM — вне горячего пути
	go func(tr autonomy.Transition) {
		dCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = s.notifier.Deliver(dCtx, &tr)
	}(*tr)

	s.logger.Info("tier transition applied",
		zap.String("rep_id", repID),
		zap.String("action_type", tr.ActionType),
		zap.String("kind", string(tr.Kind)),
		zap.String("from", string(tr.FromTier)),
		zap.String("to", string(tr.ToTier)))

	return nil
}
