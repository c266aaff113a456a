// Package service holds the ticket reservation and settlement flow: memo
// derivation, the expiry watchdog, ledger verification and the coordinator
// that ties them together, plus the catalog and payout operations exposed
// next to it.
package service

import (
	"errors"

	"github.com/iliyamo/event-ticket-settlement/internal/repository"
)

// ErrNotFound is the only failure kind the settlement flow propagates for
// business outcomes. The more specific errors below all match it with
// errors.Is.
var ErrNotFound = repository.ErrNotFound

type notFound struct{ msg string }

func (e *notFound) Error() string        { return e.msg }
func (e *notFound) Is(target error) bool { return target == ErrNotFound }

var (
	// ErrPaymentNotVerified means the ledger block did not prove the
	// payment. The reservation is untouched and a retry with a corrected
	// block number may succeed.
	ErrPaymentNotVerified error = &notFound{"payment not verified"}
	// ErrReservationNotFound means the memo is unknown, expired or already
	// settled. Retrying never helps.
	ErrReservationNotFound error = &notFound{"reservation not found"}
	// ErrEventNotFound and ErrUserNotFound are catalog misses.
	ErrEventNotFound error = &notFound{"event not found"}
	ErrUserNotFound  error = &notFound{"user not found"}
)

var (
	// ErrInconsistent is returned when an event disappeared between reserve
	// and settle. The reservation is put back before returning.
	ErrInconsistent = errors.New("event vanished after reservation")
	// ErrPaymentFailed wraps a ledger rejection during a payout.
	ErrPaymentFailed = errors.New("payment failed")
	// ErrLedgerUnavailable means the ledger could not be queried at all.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	// ErrForbidden is returned when the caller may not act on the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput covers malformed identities and empty required fields.
	ErrInvalidInput = errors.New("invalid input")
)

// Retryable reports whether repeating the failed call with corrected
// parameters, or later, may succeed.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrPaymentNotVerified), errors.Is(err, ErrLedgerUnavailable):
		return true
	default:
		return false
	}
}
