package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/persona-chat/internal/api/http/handlers"
	"github.com/spec-kit/persona-chat/internal/auth"
	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Sessions       *handlers.SessionsHandler
	Messages       *handlers.MessagesHandler
	Credits        *handlers.CreditsHandler
	Invitations    *handlers.InvitationsHandler
	Footprints     *handlers.FootprintsHandler
	Personas       *handlers.PersonasHandler
	Admin          *handlers.AdminHandler
	Metrics        *observability.Metrics
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/users/login", cfg.Auth.LoginUser)
	authGroup.Post("/staff/login", cfg.Auth.LoginStaff)

	invitations := app.Group("/invitations")
	invitations.Get("/:token/verify", cfg.Invitations.Verify)
	invitations.Post("/:token/register", cfg.Invitations.Register)

	authed := cfg.AuthMiddleware.Handle
	admin := auth.RequireStaffRole(domain.StaffRoleAdmin)
	user := auth.RequireUser()

	invitations.Post("", authed, admin, cfg.Invitations.Issue)
	invitations.Get("", authed, admin, cfg.Invitations.List)
	invitations.Post("/:token/redeem", authed, admin, cfg.Invitations.Redeem)

	staff := auth.RequireStaffRole()

	personas := app.Group("/personas", authed, auth.RequireAnyRole())
	personas.Get("", cfg.Personas.List)
	personas.Get("/mine", staff, cfg.Personas.Mine)
	personas.Get("/:id", cfg.Personas.Get)
	personas.Patch("/:id", staff, cfg.Personas.Update)

	sessions := app.Group("/sessions", authed, auth.RequireAnyRole())
	sessions.Post("", user, cfg.Sessions.Open)
	sessions.Get("", cfg.Sessions.List)
	sessions.Post("/:id/close", cfg.Sessions.Close)

	messages := app.Group("/messages", authed, auth.RequireAnyRole())
	messages.Post("", cfg.Messages.Append)
	messages.Get("", cfg.Messages.Poll)

	credits := app.Group("/credits", authed, user)
	credits.Get("/balance", cfg.Credits.Balance)
	credits.Get("/entries", cfg.Credits.Entries)
	credits.Post("/charge", cfg.Credits.Charge)

	footprints := app.Group("/footprints", authed)
	footprints.Post("", user, cfg.Footprints.Record)
	footprints.Get("/mine", user, cfg.Footprints.Mine)
	footprints.Get("/persona/:id", staff, cfg.Footprints.ForPersona)

	adminGroup := app.Group("/admin", authed, admin)
	adminGroup.Post("/credits/:user_id/grant", cfg.Credits.Grant)
	adminGroup.Post("/credits/:user_id/debit", cfg.Credits.Debit)
	adminGroup.Post("/staff", cfg.Admin.CreateStaff)
	adminGroup.Post("/personas", cfg.Admin.CreatePersona)
	adminGroup.Post("/users", cfg.Admin.CreateUser)
}
