package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/persona-chat/internal/api/http"
	"github.com/spec-kit/persona-chat/internal/api/http/handlers"
	"github.com/spec-kit/persona-chat/internal/app"
	"github.com/spec-kit/persona-chat/internal/auth"
	"github.com/spec-kit/persona-chat/internal/config"
	"github.com/spec-kit/persona-chat/internal/events"
	"github.com/spec-kit/persona-chat/internal/observability"
	"github.com/spec-kit/persona-chat/internal/service"
	"github.com/spec-kit/persona-chat/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, cfg.Logger.Service, cfg.App.Version, logger)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	core, err := app.NewCore(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Fatal("failed to init core", zap.Error(err))
	}
	defer core.Close()

	worker.StartNotificationWorker(service.NewNotificationService(core.Dispatcher, logger, cfg.Notification))

	var forwarder *events.NATSForwarder
	if cfg.NATS.URL != "" {
		nc, err := events.Connect(cfg.NATS.URL, cfg.App.Name)
		if err != nil {
			logger.Fatal("failed to connect nats", zap.Error(err))
		}
		defer nc.Drain() //nolint:errcheck
		forwarder = events.NewNATSForwarder(nc, cfg.NATS.SubjectPrefix)
	}
	worker.StartEventForwarder(core.Dispatcher, forwarder, logger)

	probes := map[string]handlers.Pinger{"store": core.Store}
	if core.Redis.Configured() {
		probes["redis"] = core.Redis
	}

	server := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(server, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, probes),
		Auth:           handlers.NewAuthHandler(core.Auth),
		Sessions:       handlers.NewSessionsHandler(core.Sessions, core.Footprints, logger),
		Messages:       handlers.NewMessagesHandler(core.Messages),
		Credits:        handlers.NewCreditsHandler(core.Ledger),
		Invitations:    handlers.NewInvitationsHandler(core.Invitations, nil),
		Footprints:     handlers.NewFootprintsHandler(core.Footprints),
		Personas:       handlers.NewPersonasHandler(core.Personas),
		Admin:          handlers.NewAdminHandler(core.Staff),
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(core.Tokens, core.Store),
	})

	go func() {
		if err := server.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
