package ledger

import (
	"context"
	"sync"
	"time"
)

// DefaultFee is the transfer fee charged by MemoryLedger unless changed.
var DefaultFee = Tokens{E8s: 10_000}

// MemoryLedger is an in-process ledger used in development mode and tests.
// It keeps an append-only block list and a balance per account; only
// transfers it submits on behalf of its own account are balance checked.
type MemoryLedger struct {
	mu       sync.Mutex
	blocks   []Block
	balances map[AccountIdentifier]uint64
	self     AccountIdentifier
	fee      Tokens
	now      func() time.Time
}

// NewMemoryLedger returns an empty ledger whose Transfer calls are made
// from the account self.
func NewMemoryLedger(self AccountIdentifier) *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[AccountIdentifier]uint64),
		self:     self,
		fee:      DefaultFee,
		now:      time.Now,
	}
}

// SetFee changes the transfer fee.
func (l *MemoryLedger) SetFee(fee Tokens) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fee = fee
}

// Mint credits amount to account and records a Mint block.
func (l *MemoryLedger) Mint(to AccountIdentifier, amount uint64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[to] += amount
	return l.appendLocked(Transaction{Operation: &Operation{Mint: &Mint{To: to.Bytes(), Amount: Tokens{E8s: amount}}}})
}

// RecordTransfer appends a transfer made by some external wallet, the way
// a buyer's payment shows up on the real ledger. It returns the block index.
func (l *MemoryLedger) RecordTransfer(from, to AccountIdentifier, amount, memo uint64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[to] += amount
	return l.appendLocked(Transaction{
		Memo: memo,
		Operation: &Operation{Transfer: &Transfer{
			From:   from.Bytes(),
			To:     to.Bytes(),
			Amount: Tokens{E8s: amount},
			Fee:    l.fee,
		}},
	})
}

// AppendBlock appends an arbitrary block and returns its index.
func (l *MemoryLedger) AppendBlock(b Block) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := uint64(len(l.blocks))
	l.blocks = append(l.blocks, b)
	return idx
}

// Balance returns the balance of account.
func (l *MemoryLedger) Balance(account AccountIdentifier) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// QueryBlocks implements Client.
func (l *MemoryLedger) QueryBlocks(_ context.Context, start, length uint64) (QueryBlocksResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := uint64(len(l.blocks))
	resp := QueryBlocksResponse{ChainLength: total, FirstBlockIndex: start}
	if start >= total {
		return resp, nil
	}
	end := start + length
	if end > total || end < start {
		end = total
	}
	resp.Blocks = append([]Block(nil), l.blocks[start:end]...)
	return resp, nil
}

// Transfer implements Client.
func (l *MemoryLedger) Transfer(_ context.Context, args TransferArgs) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if args.Fee.E8s != l.fee.E8s {
		return 0, &TransferError{Kind: "BadFee", Message: "expected fee does not match"}
	}
	to, err := accountFromBytes(args.To)
	if err != nil {
		return 0, &TransferError{Kind: "InvalidAccount", Message: err.Error()}
	}
	debit := args.Amount.E8s + args.Fee.E8s
	if l.balances[l.self] < debit {
		return 0, &TransferError{Kind: "InsufficientFunds"}
	}
	l.balances[l.self] -= debit
	l.balances[to] += args.Amount.E8s
	return l.appendLocked(Transaction{
		Memo:          args.Memo,
		CreatedAtTime: args.CreatedAtTime,
		Operation: &Operation{Transfer: &Transfer{
			From:   l.self.Bytes(),
			To:     to.Bytes(),
			Amount: args.Amount,
			Fee:    args.Fee,
		}},
	}), nil
}

// TransferFee implements Client.
func (l *MemoryLedger) TransferFee(context.Context) (Tokens, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fee, nil
}

func (l *MemoryLedger) appendLocked(tx Transaction) uint64 {
	idx := uint64(len(l.blocks))
	l.blocks = append(l.blocks, Block{Transaction: tx, Timestamp: uint64(l.now().UnixNano())})
	return idx
}

func accountFromBytes(b []byte) (AccountIdentifier, error) {
	var id AccountIdentifier
	if len(b) != len(id) {
		return id, errInvalidAccountLength
	}
	copy(id[:], b)
	return id, nil
}
