package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dealflowhq/autopilot/internal/autonomy"
	"github.com/dealflowhq/autopilot/internal/ceiling"
	"github.com/dealflowhq/autopilot/internal/console/handler"
	"github.com/dealflowhq/autopilot/internal/console/server"
	"github.com/dealflowhq/autopilot/internal/console/service"
	"github.com/dealflowhq/autopilot/internal/domain"
	"github.com/dealflowhq/autopilot/internal/infra"
	"github.com/dealflowhq/autopilot/internal/infra/auth"
	"github.com/dealflowhq/autopilot/internal/notify"
	"github.com/dealflowhq/autopilot/internal/repository/postgres"
	"github.com/dealflowhq/autopilot/internal/signals"
	"github.com/dealflowhq/autopilot/internal/simulation"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. Ресурсы: Postgres и Redis
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := postgres.NewRepo(appCtx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to init postgres pool", zap.Error(err))
	}
	defer repo.Close()

	// Проверяем соединение с таймаутом
	pingCtx, pingCancel := context.WithTimeout(appCtx, 5*time.Second)
	if err := repo.Ping(pingCtx); err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	pingCancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// 3. Метрики на отдельном порту
	reg := prometheus.NewRegistry()
	metrics := infra.NewMetrics(reg)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		logger.Info("metrics endpoint started", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	// 4. Control Plane: кэш оргпотолков + подписка на обновления
	ceilings := ceiling.NewManager(rdb, repo, logger)
	if err := ceilings.Init(appCtx); err != nil {
		logger.Fatal("failed to init ceiling manager", zap.Error(err))
	}
	go ceilings.StartListener(appCtx)

	// 5. Журнал сырых сигналов (асинхронная пакетная запись)
	journal := signals.NewJournal(repo, cfg.Journal, metrics, logger)
	journal.Start()
	defer journal.Stop()

	// 6. Ядро: движок переходов, оценщик времени, доставка webhook
	engine := autonomy.NewEngine(ladderFromConfig(cfg.Tiering), cfg.Tiering.Cooldown)
	estimator := autonomy.NewEstimator(cfg.Estimator.Weights, cfg.Estimator.DefaultMinutes)
	notifier := notify.NewWebhookNotifier(cfg.Notify, metrics, logger)

	autonomyService := service.NewAutonomyService(
		repo, rdb, engine, estimator, ceilings, notifier, journal, metrics, logger,
	)

	// 7. Проверка токенов: публичный ключ identity-сервиса CRM
	pubKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("failed to parse auth public key", zap.Error(err))
	}
	validator := auth.NewBaseValidator(pubKey)

	// 8. HTTP сервер
	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: server.NewConsoleServer(
			cfg,
			logger,
			validator,
			handler.NewAutonomyHandler(autonomyService),
			handler.NewSignalHandler(autonomyService),
			handler.NewTeamHandler(autonomyService),
			handler.NewDemoHandler(simulation.DefaultScript()),
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("autopilot API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("autopilot stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("autopilot exited properly")
}

// ladderFromConfig переводит строковые ключи конфига в доменную лестницу.
func ladderFromConfig(cfg infra.TieringConfig) autonomy.Ladder {
	if len(cfg.Ladder) == 0 {
		return autonomy.DefaultLadder()
	}
	ladder := make(autonomy.Ladder, len(cfg.Ladder))
	for name, rung := range cfg.Ladder {
		tier, err := domain.ParseTier(name)
		if err != nil {
			log.Fatalf("invalid tier %q in tiering.ladder", name)
		}
		ladder[tier] = autonomy.Rung{MinSignals: rung.MinSignals, MinRate: rung.MinRate}
	}
	return ladder
}
