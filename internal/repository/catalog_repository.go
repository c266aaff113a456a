package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/event-ticket-settlement/internal/model"
)

// CatalogStore holds events and users.
type CatalogStore interface {
	CreateEvent(ctx context.Context, e model.Event) error
	GetEvent(ctx context.Context, id string) (model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	// IncrementSoldAmount adds one to the event's sold counter and returns
	// the new value, or ErrNotFound when the event does not exist.
	IncrementSoldAmount(ctx context.Context, id string) (uint64, error)
	// UpdateEvent rewrites the descriptive fields and price of e.ID. Seller,
	// SoldAmount and CreatedAt are never touched.
	UpdateEvent(ctx context.Context, e model.Event) error
	DeleteEvent(ctx context.Context, id string) error
	CreateUser(ctx context.Context, u model.User) error
	GetUser(ctx context.Context, id string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, u model.User) error
}

// CatalogRepo implements CatalogStore on the MySQL `events` and `users`
// tables.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo returns a CatalogRepo bound to db.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// DB exposes the underlying handle for health checks.
func (r *CatalogRepo) DB() *sql.DB { return r.db }

const eventColumns = `id, title, description, event_date, start_time, attachment_url, location, price_e8s, seller, sold_amount, created_at`

// CreateEvent inserts a new event row. SoldAmount is taken from e, which
// callers set to zero.
func (r *CatalogRepo) CreateEvent(ctx context.Context, e model.Event) error {
	const q = `INSERT INTO events (` + eventColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.Title, e.Description, e.Date, e.StartTime, e.AttachmentURL, e.Location,
		e.Price, e.Seller, e.SoldAmount, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvent fetches one event by id.
func (r *CatalogRepo) GetEvent(ctx context.Context, id string) (model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ? LIMIT 1`
	var e model.Event
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.StartTime, &e.AttachmentURL, &e.Location,
		&e.Price, &e.Seller, &e.SoldAmount, &e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	if err != nil {
		return e, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// ListEvents returns every event ordered by creation time.
func (r *CatalogRepo) ListEvents(ctx context.Context) ([]model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	out := []model.Event{}
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.Date, &e.StartTime, &e.AttachmentURL, &e.Location,
			&e.Price, &e.Seller, &e.SoldAmount, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// IncrementSoldAmount bumps sold_amount in place so concurrent settlements
// of different memos never lose an increment.
func (r *CatalogRepo) IncrementSoldAmount(ctx context.Context, id string) (uint64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE events SET sold_amount = sold_amount + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("increment sold amount: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("increment sold amount: %w", err)
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	var sold uint64
	if err := r.db.QueryRowContext(ctx, `SELECT sold_amount FROM events WHERE id = ?`, id).Scan(&sold); err != nil {
		return 0, fmt.Errorf("read sold amount: %w", err)
	}
	return sold, nil
}

// UpdateEvent implements CatalogStore. sold_amount is left out of the SET
// list so a concurrent settlement's increment survives the edit.
func (r *CatalogRepo) UpdateEvent(ctx context.Context, e model.Event) error {
	const q = `UPDATE events SET title = ?, description = ?, event_date = ?, start_time = ?, attachment_url = ?, location = ?, price_e8s = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		e.Title, e.Description, e.Date, e.StartTime, e.AttachmentURL, e.Location, e.Price, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEvent removes an event. Pending reservations and settlements that
// reference it are left alone.
func (r *CatalogRepo) DeleteEvent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateUser inserts a new user row.
func (r *CatalogRepo) CreateUser(ctx context.Context, u model.User) error {
	const q = `INSERT INTO users (id, name, email, phone, address, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, u.ID, u.Name, u.Email, u.Phone, u.Address, u.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = `id, name, email, phone, address, created_at`

// ListUsers returns every user ordered by creation time.
func (r *CatalogRepo) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Address, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateUser rewrites the profile fields of u.ID.
func (r *CatalogRepo) UpdateUser(ctx context.Context, u model.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, phone = ?, address = ? WHERE id = ?`,
		u.Name, u.Email, u.Phone, u.Address, u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUser fetches one user by id.
func (r *CatalogRepo) GetUser(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Address, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	if err != nil {
		return u, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
