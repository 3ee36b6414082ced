package notify

/*
Файл webhook.go — доставка событий переходов в бекенд CRM.

Исходящий вызов завернут в стандартный конверт надежности:
Rate Limiter → Circuit Breaker → Retry (с уважением к Retry-After).
Доставка не стоит на горячем пути инжеста: сервис вызывает Deliver
из отдельной горутины и при полном провале только логирует и
инкрементирует метрику — источником правды остается Postgres.
*/

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/dealflowhq/autopilot/internal/autonomy"
	"github.com/dealflowhq/autopilot/internal/infra"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type WebhookNotifier struct {
	url     string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter

	attempts int
	metrics  *infra.Metrics
	logger   *zap.Logger
}

func NewWebhookNotifier(cfg infra.NotifyConfig, metrics *infra.Metrics, logger *zap.Logger) *WebhookNotifier {
	n := &WebhookNotifier{
		url:      cfg.WebhookURL,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		attempts: cfg.Attempts,
		metrics:  metrics,
		logger:   logger.Named("webhook-notifier"),
	}

	n.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "crm-webhook",
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует «закрыться»
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			state := 0.0
			if to == gobreaker.StateOpen {
				state = 1.0
			}
			metrics.WebhookBreakerState.Set(state)
			logger.Warn("webhook breaker state changed",
				zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	return n
}

// Deliver отправляет одно событие перехода. Возвращает ошибку только после
// исчерпания всех ретраев или при открытом предохранителе.
func (n *WebhookNotifier) Deliver(ctx context.Context, tr *autonomy.Transition) error {
	if n.url == "" {
		return nil // Webhook не сконфигурирован — тихо пропускаем
	}

	// 1. Rate Limiter
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	body, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("failed to marshal transition: %w", err)
	}

	// 2. Circuit Breaker
	_, err = n.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(uint(n.attempts)),
			// Умный расчет задержки: Retry-After важнее бэкоффа
			retry.DelayType(func(attempt uint, err error, config retry.DelayContext) time.Duration {
				var tErr *ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}
				return retry.BackOffDelay(attempt, err, config)
			}),
		)

		retryErr := r.Do(func() error {
			return n.post(ctx, body)
		})

		return nil, retryErr
	})

	if err != nil {
		n.metrics.WebhookFailures.Inc()
		n.logger.Error("transition delivery failed",
			zap.String("action_type", tr.ActionType),
			zap.String("kind", string(tr.Kind)),
			zap.Error(err))
		return err
	}

	return nil
}

func (n *WebhookNotifier) post(ctx context.Context, body []byte) error {
	tCtx, cancel := context.WithTimeout(ctx, n.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(tCtx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		// Читаем Retry-After и отдаем ретраеру точную задержку
		delay := 5 * time.Second
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil {
				delay = time.Duration(secs) * time.Second
			}
		}
		return &ThrottleError{
			RetryAfter: delay,
			Cause:      fmt.Errorf("webhook responded %d", resp.StatusCode),
		}
	default:
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
}
