package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-settlement/internal/middleware"
	"github.com/iliyamo/event-ticket-settlement/internal/service"
)

// PayoutHandler sends tokens from the service account. Routes using it must
// be restricted to administrators.
type PayoutHandler struct {
	Payouts *service.Payouts
}

type payoutRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// Payout handles POST /v1/payouts.
func (h *PayoutHandler) Payout(c echo.Context) error {
	caller, ok := middleware.Identity(c)
	if !ok {
		return unauthorized(c)
	}
	var req payoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.Payouts.Payout(c.Request().Context(), caller, req.To, req.Amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
