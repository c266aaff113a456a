// Package ledger is the client side of the external token ledger. The ledger
// is authoritative for payments: the service never holds balances itself,
// it only reads blocks to prove that a transfer happened and, for payouts,
// submits transfers from its own account.
package ledger

import (
	"context"
	"errors"
)

// E8sPerToken is the number of minor units in one token.
const E8sPerToken = 100_000_000

// Tokens is an amount expressed in e8s.
type Tokens struct {
	E8s uint64 `cbor:"e8s" json:"e8s"`
}

// Transfer is the operation payload that moves tokens between two
// accounts. From and To are raw account identifier bytes exactly as the
// ledger returns them.
type Transfer struct {
	From   []byte `cbor:"from" json:"from"`
	To     []byte `cbor:"to" json:"to"`
	Amount Tokens `cbor:"amount" json:"amount"`
	Fee    Tokens `cbor:"fee" json:"fee"`
}

// Mint credits an account without a sender.
type Mint struct {
	To     []byte `cbor:"to" json:"to"`
	Amount Tokens `cbor:"amount" json:"amount"`
}

// Burn debits an account without a receiver.
type Burn struct {
	From   []byte `cbor:"from" json:"from"`
	Amount Tokens `cbor:"amount" json:"amount"`
}

// Operation is a variant: at most one of the fields is set. A block whose
// transaction carries no operation at all has a nil *Operation.
type Operation struct {
	Transfer *Transfer `cbor:"Transfer,omitempty" json:"Transfer,omitempty"`
	Mint     *Mint     `cbor:"Mint,omitempty" json:"Mint,omitempty"`
	Burn     *Burn     `cbor:"Burn,omitempty" json:"Burn,omitempty"`
}

// Transaction is the body of a block.
type Transaction struct {
	Memo          uint64     `cbor:"memo" json:"memo"`
	Operation     *Operation `cbor:"operation,omitempty" json:"operation,omitempty"`
	CreatedAtTime *uint64    `cbor:"created_at_time,omitempty" json:"created_at_time,omitempty"`
}

// Block is an immutable, numbered ledger record.
type Block struct {
	ParentHash  []byte      `cbor:"parent_hash,omitempty" json:"parent_hash,omitempty"`
	Transaction Transaction `cbor:"transaction" json:"transaction"`
	Timestamp   uint64      `cbor:"timestamp" json:"timestamp"`
}

// QueryBlocksRequest selects Length blocks starting at Start.
type QueryBlocksRequest struct {
	Start  uint64 `cbor:"start" json:"start"`
	Length uint64 `cbor:"length" json:"length"`
}

// QueryBlocksResponse carries the blocks the ledger still holds locally.
// Blocks that were moved to an archive are not returned, so Blocks may be
// shorter than requested; FirstBlockIndex is the index of Blocks[0].
type QueryBlocksResponse struct {
	ChainLength     uint64  `cbor:"chain_length" json:"chain_length"`
	FirstBlockIndex uint64  `cbor:"first_block_index" json:"first_block_index"`
	Blocks          []Block `cbor:"blocks" json:"blocks"`
}

// TransferArgs are the arguments of a transfer submitted by this service.
type TransferArgs struct {
	Memo           uint64  `cbor:"memo" json:"memo"`
	Amount         Tokens  `cbor:"amount" json:"amount"`
	Fee            Tokens  `cbor:"fee" json:"fee"`
	FromSubaccount []byte  `cbor:"from_subaccount,omitempty" json:"from_subaccount,omitempty"`
	To             []byte  `cbor:"to" json:"to"`
	CreatedAtTime  *uint64 `cbor:"created_at_time,omitempty" json:"created_at_time,omitempty"`
}

// TransferError describes why the ledger rejected a transfer.
type TransferError struct {
	Kind    string `cbor:"kind" json:"kind"`
	Message string `cbor:"message,omitempty" json:"message,omitempty"`
}

func (e *TransferError) Error() string {
	if e.Message == "" {
		return "ledger: transfer rejected: " + e.Kind
	}
	return "ledger: transfer rejected: " + e.Kind + ": " + e.Message
}

// ErrUnavailable wraps transport failures talking to the ledger.
var ErrUnavailable = errors.New("ledger unavailable")

// ErrMalformed wraps a ledger reply that arrived but could not be decoded.
var ErrMalformed = errors.New("ledger: malformed response")

// Client is the capability the service needs from the ledger.
type Client interface {
	// QueryBlocks returns up to length blocks starting at start.
	QueryBlocks(ctx context.Context, start, length uint64) (QueryBlocksResponse, error)
	// Transfer submits a transfer from this service's account and returns
	// the index of the block that recorded it. A rejection is returned as
	// *TransferError.
	Transfer(ctx context.Context, args TransferArgs) (uint64, error)
	// TransferFee returns the fee the ledger currently charges.
	TransferFee(ctx context.Context) (Tokens, error)
}
