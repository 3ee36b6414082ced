package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько времени заняла обработка запроса
	RequestDuration *prometheus.HistogramVec

	// Traffic: входящие сигналы по исходам
	SignalsTotal *prometheus.CounterVec

	// Переходы по лестнице (promotion_accepted / demotion_auto / demotion_emergency)
	TransitionsTotal *prometheus.CounterVec

	// Saturation: заполненность буфера журнала сигналов (backpressure)
	JournalBufferFill prometheus.Gauge

	// Состояние Circuit Breaker доставки webhook (0 - ок, 1 - выбило)
	WebhookBreakerState prometheus.Gauge

	// Ошибки доставки webhook после всех ретраев
	WebhookFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern — если рег не передан, используем локальный,
	// который никуда не подключен (удобно в тестах).
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "autopilot_request_duration_seconds",
			Help:    "Histogram of request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"route", "status"}),

		SignalsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "autopilot_signals_total",
			Help: "Total number of ingested approval signals.",
		}, []string{"outcome"}),

		TransitionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "autopilot_tier_transitions_total",
			Help: "Total number of applied tier transitions by kind.",
		}, []string{"kind"}),

		JournalBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "autopilot_signal_journal_utilization",
			Help: "Current number of events in the signal journal buffer.",
		}),

		WebhookBreakerState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "autopilot_webhook_breaker_state",
			Help: "Current state of the webhook circuit breaker (0=closed, 1=open).",
		}),

		WebhookFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "autopilot_webhook_failures_total",
			Help: "Webhook deliveries dropped after retries were exhausted.",
		}),
	}
}
