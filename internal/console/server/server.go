package server

import (
	"net/http"

	"github.com/dealflowhq/autopilot/internal/console/handler"
	"github.com/dealflowhq/autopilot/internal/infra"
	"github.com/dealflowhq/autopilot/internal/infra/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	// Интерфейс для проверки токенов (RS256), ключ принадлежит
	// identity-сервису CRM
	authValidator auth.TokenValidator

	// Обработчики бизнес-доменов
	autonomyHandler *handler.AutonomyHandler // /v1/reps/{id}/autonomy
	signalHandler   *handler.SignalHandler   // /v1/reps/{id}/signals
	teamHandler     *handler.TeamHandler     // /v1/team, /v1/ceilings
	demoHandler     *handler.DemoHandler     // /v1/demo
}

// NewConsoleServer инициализирует сервер со всеми зависимостями
func NewConsoleServer(
	cfg *infra.Config,
	logger *zap.Logger,
	validator auth.TokenValidator,
	autonomyH *handler.AutonomyHandler,
	signalH *handler.SignalHandler,
	teamH *handler.TeamHandler,
	demoH *handler.DemoHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:          chi.NewRouter(),
		logger:          logger.Named("console-api"),
		cfg:             cfg,
		authValidator:   validator,
		autonomyHandler: autonomyH,
		signalHandler:   signalH,
		teamHandler:     teamH,
		demoHandler:     demoH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	r.Group(func(r chi.Router) {
		// Healthcheck для мониторинга
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют RS256 токен) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))

		// Автономия менеджера
		r.Route("/v1/reps/{id}", func(r chi.Router) {
			r.Get("/autonomy", s.autonomyHandler.GetRep)             // Карточка: статистики + score
			r.Get("/autonomy/history", s.autonomyHandler.GetHistory) // Ряд для графика (?days=N)
			r.Post("/signals", s.signalHandler.Ingest)               // Прием сигнала одобрения

			// Операции над конкретным типом действия
			r.Route("/actions/{type}", func(r chi.Router) {
				r.Post("/promote", s.autonomyHandler.Promote)                 // Подтверждение повышения
				r.Post("/emergency-demote", s.autonomyHandler.EmergencyDemote) // Аварийный сброс
			})
		})

		// Командный дашборд и оргпотолки
		r.Get("/v1/team/autonomy", s.teamHandler.GetTeam)
		r.Get("/v1/ceilings", s.teamHandler.GetCeilings)

		// Демо-режим (песочница для прод-демо, реальных данных не трогает)
		r.Get("/v1/demo/state", s.demoHandler.GetState)
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
