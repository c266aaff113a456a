package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-settlement/internal/model"
)

func TestCatalogRepoGetEventNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = ?")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = NewCatalogRepo(db).GetEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogRepoGetEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = ?")).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "event_date", "start_time", "attachment_url", "location", "price_e8s", "seller", "sold_amount", "created_at"}).
			AddRow("ev-1", "Concert", "", "2026-05-01", "20:00", "", "Hall", int64(500_000_000), "seller", int64(3), created))

	e, err := NewCatalogRepo(db).GetEvent(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "Concert", e.Title)
	assert.Equal(t, uint64(500_000_000), e.Price)
	assert.Equal(t, uint64(3), e.SoldAmount)
}

func TestCatalogRepoIncrementSoldAmount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET sold_amount = sold_amount + 1 WHERE id = ?")).
		WithArgs("ev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT sold_amount FROM events WHERE id = ?")).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"sold_amount"}).AddRow(int64(1)))

	sold, err := NewCatalogRepo(db).IncrementSoldAmount(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sold)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepoIncrementSoldAmountMissingEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET sold_amount")).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = NewCatalogRepo(db).IncrementSoldAmount(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogRepoDeleteEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE id = ?")).
		WithArgs("ev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE id = ?")).
		WithArgs("ev-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCatalogRepo(db)
	require.NoError(t, repo.DeleteEvent(context.Background(), "ev-1"))
	assert.ErrorIs(t, repo.DeleteEvent(context.Background(), "ev-1"), ErrNotFound)
}

func TestCatalogRepoUpdateEventLeavesCounterAlone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	e := model.Event{ID: "ev-1", Title: "Concert II", Location: "Arena", Price: 700_000_000, SoldAmount: 99}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET title = ?, description = ?, event_date = ?, start_time = ?, attachment_url = ?, location = ?, price_e8s = ? WHERE id = ?")).
		WithArgs("Concert II", "", "", "", "", "Arena", uint64(700_000_000), "ev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCatalogRepo(db)
	require.NoError(t, repo.UpdateEvent(context.Background(), e))
	assert.ErrorIs(t, repo.UpdateEvent(context.Background(), e), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepoUsers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users ORDER BY created_at, id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone", "address", "created_at"}).
			AddRow("u-1", "Ada", "ada@example.com", "", "", created).
			AddRow("u-2", "Grace", "", "", "", created))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name = ?, email = ?, phone = ?, address = ? WHERE id = ?")).
		WithArgs("Ada L.", "ada@example.com", "", "", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCatalogRepo(db)
	users, err := repo.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Grace", users[1].Name)

	require.NoError(t, repo.UpdateUser(context.Background(), model.User{ID: "u-1", Name: "Ada L.", Email: "ada@example.com"}))
	assert.ErrorIs(t, repo.UpdateUser(context.Background(), model.User{ID: "gone"}), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryCatalogUpdateEventKeepsSoldAmount(t *testing.T) {
	c := NewMemoryCatalog()
	ctx := context.Background()
	require.NoError(t, c.CreateEvent(ctx, model.Event{ID: "ev", Title: "A", Price: 1, Seller: "s"}))
	_, err := c.IncrementSoldAmount(ctx, "ev")
	require.NoError(t, err)

	require.NoError(t, c.UpdateEvent(ctx, model.Event{ID: "ev", Title: "B", Price: 2, Seller: "intruder"}))
	got, err := c.GetEvent(ctx, "ev")
	require.NoError(t, err)
	assert.Equal(t, "B", got.Title)
	assert.Equal(t, uint64(2), got.Price)
	assert.Equal(t, "s", got.Seller)
	assert.Equal(t, uint64(1), got.SoldAmount)

	assert.ErrorIs(t, c.UpdateEvent(ctx, model.Event{ID: "nope"}), ErrNotFound)
}
