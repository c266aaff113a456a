package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/event-ticket-settlement/internal/model"
)

// SettlementStore is the append-only record of paid tickets.
type SettlementStore interface {
	// Put appends s. A second settlement for the same memo fails with
	// ErrDuplicateMemo.
	Put(ctx context.Context, s model.Settlement) error
	// ListByOwner returns the settlements filed under owner, newest first.
	ListByOwner(ctx context.Context, owner string) ([]model.Settlement, error)
	// ListByEvent returns the settlements of an event, newest first.
	ListByEvent(ctx context.Context, eventID string) ([]model.Settlement, error)
}

// SettlementRepo stores settlements in the MySQL `settlements` table.
// Rows are inserted once and never updated or deleted.
type SettlementRepo struct {
	db *sql.DB
}

// NewSettlementRepo returns a SettlementRepo bound to db.
func NewSettlementRepo(db *sql.DB) *SettlementRepo { return &SettlementRepo{db: db} }

const settlementColumns = `id, memo, owner, event_id, buyer_id, price_e8s, reserved_by, paid_at_block, reserved_at, settled_at`

// Put implements SettlementStore.
func (r *SettlementRepo) Put(ctx context.Context, s model.Settlement) error {
	const q = `INSERT INTO settlements (` + settlementColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.Memo, s.Owner, s.EventID, s.BuyerID, s.Price, s.ReservedBy, s.PaidAtBlock,
		s.CreatedAt.UTC(), s.SettledAt.UTC(),
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == 1062 {
			return ErrDuplicateMemo
		}
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

// ListByOwner implements SettlementStore.
func (r *SettlementRepo) ListByOwner(ctx context.Context, owner string) ([]model.Settlement, error) {
	const q = `SELECT ` + settlementColumns + ` FROM settlements WHERE owner = ? ORDER BY settled_at DESC, memo`
	return r.list(ctx, q, owner)
}

// ListByEvent implements SettlementStore.
func (r *SettlementRepo) ListByEvent(ctx context.Context, eventID string) ([]model.Settlement, error) {
	const q = `SELECT ` + settlementColumns + ` FROM settlements WHERE event_id = ? ORDER BY settled_at DESC, memo`
	return r.list(ctx, q, eventID)
}

func (r *SettlementRepo) list(ctx context.Context, q string, arg string) ([]model.Settlement, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("query settlements: %w", err)
	}
	defer rows.Close()
	out := []model.Settlement{}
	for rows.Next() {
		var s model.Settlement
		if err := rows.Scan(
			&s.ID, &s.Memo, &s.Owner, &s.EventID, &s.BuyerID, &s.Price, &s.ReservedBy,
			&s.PaidAtBlock, &s.CreatedAt, &s.SettledAt,
		); err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlements: %w", err)
	}
	return out, nil
}
