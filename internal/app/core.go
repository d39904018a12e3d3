// Package app assembles the datastore, caches and services from configuration
// for the API server and the admin CLI.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/persona-chat/internal/auth"
	"github.com/spec-kit/persona-chat/internal/cache"
	"github.com/spec-kit/persona-chat/internal/config"
	"github.com/spec-kit/persona-chat/internal/events"
	"github.com/spec-kit/persona-chat/internal/observability"
	"github.com/spec-kit/persona-chat/internal/persistence"
	"github.com/spec-kit/persona-chat/internal/repository"
	"github.com/spec-kit/persona-chat/internal/repository/memory"
	"github.com/spec-kit/persona-chat/internal/service"
)

// Core holds the wired services and the resources they depend on.
type Core struct {
	Store      repository.Store
	Postgres   *persistence.Postgres
	Redis      *persistence.Redis
	Hints      cache.HighWaterMarks
	Dispatcher events.Dispatcher
	Tokens     *auth.TokenManager

	Auth        *service.AuthService
	Ledger      *service.LedgerService
	Sessions    *service.SessionService
	Messages    *service.MessageService
	Invitations *service.InvitationService
	Footprints  *service.FootprintService
	Personas    *service.PersonaService
	Staff       *service.StaffService
}

// NewCore connects to the configured datastore and builds the services.
// Without a Postgres DSN the in-memory store is used; poll hints then live
// in process. With Postgres but no Redis the hint cache is disabled.
func NewCore(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) (*Core, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	core := &Core{Postgres: pg, Dispatcher: events.NewInMemoryDispatcher()}

	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		core.Store = repository.NewPostgresStore(pool)
		core.Redis = persistence.NewRedis(cfg.Redis, logger)
		if core.Redis.Configured() {
			core.Hints = cache.NewRedis(core.Redis.Client, cfg.Redis.Prefix, cfg.Redis.HintTTL)
		} else {
			core.Hints = cache.Noop{}
		}
	} else {
		core.Store = memory.NewStore()
		core.Redis = &persistence.Redis{}
		core.Hints = cache.NewLocal()
	}

	core.Tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	deps := service.Dependencies{
		Store:      core.Store,
		Dispatcher: core.Dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	}
	core.Auth = service.NewAuthService(deps, core.Tokens)
	core.Ledger = service.NewLedgerService(deps)
	core.Sessions = service.NewSessionService(deps)
	core.Messages = service.NewMessageService(deps, core.Hints, cfg.Chat.MessageCost)
	core.Invitations = service.NewInvitationService(deps, service.InvitationConfig{
		DefaultTTL: cfg.Chat.InvitationTTL,
		BaseURL:    cfg.Chat.InviteBaseURL,
		BcryptCost: cfg.Auth.BcryptCost,
	}, core.Tokens)
	core.Footprints = service.NewFootprintService(deps)
	core.Personas = service.NewPersonaService(deps)
	core.Staff = service.NewStaffService(deps, cfg.Auth.BcryptCost)
	return core, nil
}

// Close releases the datastore and cache connections.
func (c *Core) Close() {
	c.Redis.Close()
	c.Postgres.Close()
}
