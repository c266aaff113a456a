package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-settlement/internal/repository"
	"github.com/iliyamo/event-ticket-settlement/internal/service"
)

// errorBody is the JSON shape of every failed request. Retryable tells the
// caller whether sending the same request again, possibly with a corrected
// block number, can succeed.
type errorBody struct {
	Error     string `json:"error"`
	Reason    string `json:"reason"`
	Retryable bool   `json:"retryable"`
}

// writeError maps a service error onto a status code and errorBody.
func writeError(c echo.Context, err error) error {
	status, reason := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status, reason = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, service.ErrForbidden):
		status, reason = http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrPaymentNotVerified):
		status, reason = http.StatusNotFound, "payment_not_verified"
	case errors.Is(err, service.ErrReservationNotFound):
		status, reason = http.StatusNotFound, "reservation_not_found"
	case errors.Is(err, service.ErrEventNotFound):
		status, reason = http.StatusNotFound, "event_not_found"
	case errors.Is(err, service.ErrUserNotFound):
		status, reason = http.StatusNotFound, "user_not_found"
	case errors.Is(err, service.ErrNotFound):
		status, reason = http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrDuplicateMemo):
		status, reason = http.StatusConflict, "duplicate_memo"
	case errors.Is(err, service.ErrLedgerUnavailable):
		status, reason = http.StatusServiceUnavailable, "ledger_unavailable"
	case errors.Is(err, service.ErrPaymentFailed):
		status, reason = http.StatusBadGateway, "payment_failed"
	case errors.Is(err, service.ErrInconsistent):
		reason = "inconsistent"
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
		if reason == "internal" {
			msg = "internal error"
		}
	}
	return c.JSON(status, errorBody{Error: msg, Reason: reason, Retryable: service.Retryable(err)})
}

// badRequest answers 400 for malformed bodies and parameters.
func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: msg, Reason: "invalid_input"})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized", Reason: "unauthorized"})
}
