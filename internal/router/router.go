package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-settlement/internal/handler"
	"github.com/iliyamo/event-ticket-settlement/internal/middleware"
	"github.com/iliyamo/event-ticket-settlement/internal/utils"
)

// Handlers bundles everything RegisterRoutes wires up.
type Handlers struct {
	Health  *handler.HealthHandler
	Catalog *handler.CatalogHandler
	Tickets *handler.TicketHandler
	Payouts *handler.PayoutHandler

	// DevLedger is set only with the in-memory ledger.
	DevLedger *handler.DevLedgerHandler
}

// RegisterRoutes registers the public, authenticated and admin routes.
// cache wraps only read-only catalog routes; ticket state is never cached
// because it changes with every reservation and settlement.
func RegisterRoutes(e *echo.Echo, h Handlers, jwtSecret string, cache echo.MiddlewareFunc) {
	if cache == nil {
		cache = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	// Liveness for load balancers.
	e.GET("/healthz", h.Health.Health)

	// Public browse endpoints.
	pub := e.Group("/v1")
	pub.GET("/events", h.Catalog.ListEvents, cache)
	pub.GET("/events/:id", h.Catalog.GetEvent, cache)
	pub.GET("/events/:id/tickets", h.Tickets.EventTickets)
	pub.GET("/events/:id/sold", h.Tickets.SoldTickets)
	pub.GET("/tickets", h.Tickets.Pending)
	pub.GET("/users", h.Catalog.ListUsers)
	pub.GET("/users/:id", h.Catalog.GetUser)
	pub.GET("/address/:principal", h.Catalog.Address, cache)

	// Everything below runs as the token's subject.
	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.POST("/events", h.Catalog.CreateEvent)
	auth.PUT("/events/:id", h.Catalog.UpdateEvent)
	auth.DELETE("/events/:id", h.Catalog.DeleteEvent)
	auth.POST("/users", h.Catalog.CreateUser)
	auth.PUT("/users/:id", h.Catalog.UpdateUser)
	auth.POST("/tickets", h.Tickets.Reserve)
	auth.POST("/tickets/settle", h.Tickets.Settle)
	auth.POST("/payments/verify", h.Tickets.Verify)
	auth.GET("/me/tickets", h.Tickets.Mine)

	// Payouts move the service's own funds.
	if h.Payouts != nil {
		auth.POST("/payouts", h.Payouts.Payout, middleware.RequireRole(utils.RoleAdmin))
	}

	if h.DevLedger != nil {
		auth.POST("/dev/transfers", h.DevLedger.Transfer)
		auth.POST("/dev/mint", h.DevLedger.Mint, middleware.RequireRole(utils.RoleAdmin))
	}
}
