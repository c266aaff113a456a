package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-settlement/internal/ledger"
	"github.com/iliyamo/event-ticket-settlement/internal/middleware"
	"github.com/iliyamo/event-ticket-settlement/internal/service"
)

// DevLedgerHandler writes to the in-memory ledger so a local setup can be
// driven end to end. It is only mounted when LEDGER_MODE=memory.
type DevLedgerHandler struct {
	Ledger *ledger.MemoryLedger
}

type devTransferRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
	Memo   uint64 `json:"memo"`
}

type devMintRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// Transfer handles POST /v1/dev/transfers: it records a transfer from the
// caller's default account, which is what a buyer's wallet would do.
func (h *DevLedgerHandler) Transfer(c echo.Context) error {
	caller, ok := middleware.Identity(c)
	if !ok {
		return unauthorized(c)
	}
	var req devTransferRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	from, err := ledger.AccountFromIdentity(caller)
	if err != nil {
		return badRequest(c, "caller is not a principal")
	}
	to, err := ledger.AccountFromIdentity(req.To)
	if err != nil {
		return badRequest(c, "to is not a principal or account")
	}
	if req.Amount == 0 {
		return writeError(c, service.ErrInvalidInput)
	}
	block := h.Ledger.RecordTransfer(from, to, req.Amount, req.Memo)
	return c.JSON(http.StatusCreated, echo.Map{"block": block, "from": from.Hex(), "to": to.Hex()})
}

// Mint handles POST /v1/dev/mint.
func (h *DevLedgerHandler) Mint(c echo.Context) error {
	var req devMintRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	to, err := ledger.AccountFromIdentity(req.To)
	if err != nil {
		return badRequest(c, "to is not a principal or account")
	}
	block := h.Ledger.Mint(to, req.Amount)
	return c.JSON(http.StatusCreated, echo.Map{"block": block, "balance": h.Ledger.Balance(to)})
}
