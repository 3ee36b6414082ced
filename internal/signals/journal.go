package signals

/*
Файл journal.go реализует журнал сырых сигналов — асинхронный движок
персистентности для горячего пути инжеста.

Ключевые особенности:
- Non-blocking Logging: прием события через неблокирующий канал, чтобы
  задержки Postgres не влияли на Response Time инжеста.
- Batching: накопление в памяти и пакетная запись (Bulk Insert) по таймеру
  или при достижении лимита пачки.
- Drain Pattern & Graceful Shutdown: при остановке канал запирается и буфер
  дочитывается до конца (Final Flush), потерь при перезагрузке нет.
- Load Shedding: при переполнении буфера событие не блокирует инжест,
  а фиксируется в логе как потеря.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dealflowhq/autopilot/internal/domain"
	"github.com/dealflowhq/autopilot/internal/infra"
	"go.uber.org/zap"
)

// StorageInterface определяет, куда физически сохраняются сигналы.
type StorageInterface interface {
	// WriteSignalBatch сохраняет пачку событий за один запрос
	WriteSignalBatch(ctx context.Context, events []domain.SignalEvent) error
}

type Journal struct {
	ch      chan domain.SignalEvent
	repo    StorageInterface
	logger  *zap.Logger
	metrics *infra.Metrics
	wg      sync.WaitGroup

	batchSize     int
	flushInterval time.Duration

	// Атомарный флаг (0 - открыт, 1 - закрыт): защита от Log после Stop.
	isClosed int32
}

func NewJournal(repo StorageInterface, cfg infra.JournalConfig, metrics *infra.Metrics, logger *zap.Logger) *Journal {
	return &Journal{
		ch:            make(chan domain.SignalEvent, cfg.BufferSize),
		repo:          repo,
		logger:        logger.With(zap.String("mod", "signal-journal")),
		metrics:       metrics,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
	}
}

func (j *Journal) Start() {
	j.wg.Add(1)
	go j.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет.
func (j *Journal) Stop() {
	atomic.StoreInt32(&j.isClosed, 1)

	// Крошечная пауза, чтобы текущие Log успели проскочить
	time.Sleep(10 * time.Millisecond)

	j.logger.Info("stopping journal: closing channel and flushing buffer...")
	close(j.ch)
	j.wg.Wait()
	j.logger.Info("journal stopped gracefully")
}

func (j *Journal) Log(event domain.SignalEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if atomic.LoadInt32(&j.isClosed) == 1 {
		j.logger.Warn("signal event dropped: journal is stopping", zap.String("id", event.ID))
		return
	}

	select {
	case j.ch <- event:
		j.metrics.JournalBufferFill.Set(float64(len(j.ch)))
	default:
		// Буфер переполнен (Backpressure) — сбрасываем нагрузку,
		// но оставляем след в обычном логе, чтобы событие не исчезло молча.
		j.logger.Error("signal_journal_overflow",
			zap.String("rep_id", event.RepID),
			zap.String("action_type", event.ActionType),
			zap.String("trace_id", event.TraceID),
		)
	}
}

func (j *Journal) worker() {
	defer j.wg.Done()

	batch := make([]domain.SignalEvent, 0, j.batchSize)
	ticker := time.NewTicker(j.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			// Background: основной контекст к моменту Final Flush может быть закрыт
			if err := j.repo.WriteSignalBatch(context.Background(), batch); err != nil {
				j.logger.Error("signal flush failed", zap.Error(err))
			}
			batch = batch[:0]
		}
		j.metrics.JournalBufferFill.Set(float64(len(j.ch)))
	}

	for {
		select {
		case event, ok := <-j.ch:
			if !ok {
				// Канал закрыт в Stop(): дочитали остатки — финальный сброс и выход.
				flush()
				j.logger.Info("journal worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= j.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
