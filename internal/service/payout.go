package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/iliyamo/event-ticket-settlement/internal/ledger"
)

// Payouts moves tokens out of the service's own ledger account.
type Payouts struct {
	Ledger ledger.Client
}

// PayoutResult is the outcome of a successful payout.
type PayoutResult struct {
	Block  uint64 `json:"block"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
	Fee    uint64 `json:"fee"`
}

// Payout sends amount e8s to the default account of to, paying the fee the
// ledger currently asks for. Transfers carry memo 0.
func (p *Payouts) Payout(ctx context.Context, caller, to string, amount uint64) (PayoutResult, error) {
	if amount == 0 {
		return PayoutResult{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	dest, err := ledger.AccountFromIdentity(to)
	if err != nil {
		return PayoutResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	fee, err := p.Ledger.TransferFee(ctx)
	if err != nil {
		return PayoutResult{}, fmt.Errorf("%w: transfer fee: %v", ErrLedgerUnavailable, err)
	}
	block, err := p.Ledger.Transfer(ctx, ledger.TransferArgs{
		Memo:   0,
		Amount: ledger.Tokens{E8s: amount},
		Fee:    fee,
		To:     dest.Bytes(),
	})
	if err != nil {
		var terr *ledger.TransferError
		if errors.As(err, &terr) {
			return PayoutResult{}, fmt.Errorf("%w: %v", ErrPaymentFailed, terr)
		}
		return PayoutResult{}, fmt.Errorf("%w: transfer: %v", ErrLedgerUnavailable, err)
	}
	log.Printf("payout: %s sent %d e8s to %s at block %d", caller, amount, to, block)
	return PayoutResult{Block: block, To: dest.Hex(), Amount: amount, Fee: fee.E8s}, nil
}
