package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/iliyamo/event-ticket-settlement/internal/ledger"
)

// Verifier checks a single ledger block against an expected payment.
type Verifier struct {
	ledger ledger.Client
}

// NewVerifier returns a Verifier reading from client.
func NewVerifier(client ledger.Client) *Verifier { return &Verifier{ledger: client} }

// Verify reports whether block holds a transfer of exactly amount e8s from
// the default account of caller to the default account of receiver,
// tagged with memo. Any mismatch, a missing block or a block without a
// transfer gives false, and so does a reply that cannot be decoded. The
// error is reserved for a ledger that could not be reached; it is never
// retried here.
func (v *Verifier) Verify(ctx context.Context, caller, receiver string, amount, block, memo uint64) (bool, error) {
	from, err := ledger.AccountFromIdentity(caller)
	if err != nil {
		log.Printf("verifier: memo %d: caller %q is not a principal: %v", memo, caller, err)
		return false, nil
	}
	to, err := ledger.AccountFromIdentity(receiver)
	if err != nil {
		log.Printf("verifier: memo %d: receiver %q is not a principal: %v", memo, receiver, err)
		return false, nil
	}

	resp, err := v.ledger.QueryBlocks(ctx, block, 1)
	if errors.Is(err, ledger.ErrMalformed) {
		log.Printf("verifier: memo %d: block %d unreadable: %v", memo, block, err)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: query block %d: %v", ErrLedgerUnavailable, block, err)
	}
	if len(resp.Blocks) == 0 || resp.FirstBlockIndex != block {
		log.Printf("verifier: memo %d: block %d not found", memo, block)
		return false, nil
	}

	tx := resp.Blocks[0].Transaction
	if tx.Memo != memo {
		log.Printf("verifier: block %d: memo %d does not match %d", block, tx.Memo, memo)
		return false, nil
	}
	if tx.Operation == nil || tx.Operation.Transfer == nil {
		log.Printf("verifier: block %d: memo %d has no transfer", block, memo)
		return false, nil
	}
	t := tx.Operation.Transfer
	switch {
	case !ledger.SameAddress(t.From, from[:]):
		log.Printf("verifier: block %d: memo %d sender mismatch", block, memo)
		return false, nil
	case !ledger.SameAddress(t.To, to[:]):
		log.Printf("verifier: block %d: memo %d receiver mismatch", block, memo)
		return false, nil
	case t.Amount.E8s != amount:
		log.Printf("verifier: block %d: memo %d amount %d does not match %d", block, memo, t.Amount.E8s, amount)
		return false, nil
	}
	return true, nil
}
