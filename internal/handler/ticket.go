package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-settlement/internal/middleware"
	"github.com/iliyamo/event-ticket-settlement/internal/service"
)

// TicketHandler exposes reservation, settlement and verification. Every
// method runs as the identity JWTAuth put into the context.
type TicketHandler struct {
	Coordinator *service.Coordinator
}

// NewTicketHandler panics on a nil coordinator.
func NewTicketHandler(c *service.Coordinator) *TicketHandler {
	if c == nil {
		panic("nil coordinator passed to NewTicketHandler")
	}
	return &TicketHandler{Coordinator: c}
}

type reserveRequest struct {
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
}

type settleRequest struct {
	Seller  string `json:"seller"`
	EventID string `json:"event_id"`
	Amount  uint64 `json:"amount"`
	Block   uint64 `json:"block"`
	Memo    uint64 `json:"memo"`
}

// Reserve handles POST /v1/tickets. The response carries the memo the
// buyer must attach to the payment and the frozen price.
func (h *TicketHandler) Reserve(c echo.Context) error {
	caller, ok := middleware.Identity(c)
	if !ok {
		return unauthorized(c)
	}
	var req reserveRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	sum, err := h.Coordinator.Reserve(c.Request().Context(), caller, req.EventID, req.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, sum)
}

// Settle handles POST /v1/tickets/settle.
func (h *TicketHandler) Settle(c echo.Context) error {
	caller, ok := middleware.Identity(c)
	if !ok {
		return unauthorized(c)
	}
	var req settleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Seller == "" || req.EventID == "" {
		return badRequest(c, "seller and event_id are required")
	}
	s, err := h.Coordinator.Settle(c.Request().Context(), caller, req.Seller, req.EventID, req.Amount, req.Block, req.Memo)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// Verify handles POST /v1/payments/verify. It never changes state.
func (h *TicketHandler) Verify(c echo.Context) error {
	caller, ok := middleware.Identity(c)
	if !ok {
		return unauthorized(c)
	}
	var req settleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	verified, err := h.Coordinator.Verify(c.Request().Context(), caller, req.Seller, req.Amount, req.Block, req.Memo)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"verified": verified})
}

// Mine handles GET /v1/me/tickets.
func (h *TicketHandler) Mine(c echo.Context) error {
	caller, ok := middleware.Identity(c)
	if !ok {
		return unauthorized(c)
	}
	owned, err := h.Coordinator.ListOwnedTickets(c.Request().Context(), caller)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, owned)
}

// Pending handles GET /v1/tickets: every pending reservation.
func (h *TicketHandler) Pending(c echo.Context) error {
	pending, err := h.Coordinator.ListPendingTickets(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, pending)
}

// EventTickets handles GET /v1/events/:id/tickets.
func (h *TicketHandler) EventTickets(c echo.Context) error {
	pending, err := h.Coordinator.GetEventTickets(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, pending)
}

// SoldTickets handles GET /v1/events/:id/sold.
func (h *TicketHandler) SoldTickets(c echo.Context) error {
	sold, err := h.Coordinator.GetSoldTickets(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sold)
}
