package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-settlement/internal/clock"
	"github.com/iliyamo/event-ticket-settlement/internal/ledger"
	"github.com/iliyamo/event-ticket-settlement/internal/middleware"
	"github.com/iliyamo/event-ticket-settlement/internal/model"
	"github.com/iliyamo/event-ticket-settlement/internal/repository"
	"github.com/iliyamo/event-ticket-settlement/internal/service"
	"github.com/iliyamo/event-ticket-settlement/internal/utils"
)

const secret = "handler-secret"

var (
	buyer  = ledger.Principal{0xb0}.String()
	seller = ledger.Principal{0x5e}.String()
)

type testAPI struct {
	e      *echo.Echo
	ledger *ledger.MemoryLedger
	clk    *clock.FakeClock
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	clk := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	self, err := ledger.AccountFromIdentity("aaaaa-aa")
	require.NoError(t, err)
	led := ledger.NewMemoryLedger(self)
	catalog := repository.NewMemoryCatalog()
	pending := repository.NewMemoryReservationStore()

	coord := &service.Coordinator{
		Catalog:     catalog,
		Pending:     pending,
		Settlements: repository.NewMemorySettlementStore(),
		Verifier:    service.NewVerifier(led),
		Watchdog:    service.NewWatchdog(clk, pending, nil),
		Generator:   service.NewGenerator(),
		Clock:       clk,
		Timeout:     time.Minute,
	}
	tickets := NewTicketHandler(coord)
	cat := NewCatalogHandler(&service.Catalog{Store: catalog, Clock: clk})

	e := echo.New()
	e.GET("/v1/events/:id", cat.GetEvent)
	e.GET("/v1/events/:id/tickets", tickets.EventTickets)
	e.GET("/v1/address/:principal", cat.Address)
	auth := e.Group("/v1", middleware.JWTAuth(secret))
	auth.POST("/events", cat.CreateEvent)
	auth.POST("/users", cat.CreateUser)
	auth.POST("/tickets", tickets.Reserve)
	auth.POST("/tickets/settle", tickets.Settle)
	auth.POST("/payments/verify", tickets.Verify)
	auth.GET("/me/tickets", tickets.Mine)
	return &testAPI{e: e, ledger: led, clk: clk}
}

func (a *testAPI) call(t *testing.T, method, path, as string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if as != "" {
		tok, err := utils.NewAccessToken(secret, as, utils.RoleUser, time.Hour)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// setup lists an event as seller and creates a buyer profile.
func (a *testAPI) setup(t *testing.T) (model.Event, model.User) {
	rec := a.call(t, http.MethodPost, "/v1/events", seller, model.EventPayload{Title: "Concert", Price: 500_000_000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ev := decode[model.Event](t, rec)

	rec = a.call(t, http.MethodPost, "/v1/users", buyer, model.UserPayload{Name: "Ada", Email: "ada@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return ev, decode[model.User](t, rec)
}

func TestReserveAndSettleOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	ev, user := a.setup(t)

	rec := a.call(t, http.MethodPost, "/v1/tickets", buyer, echo.Map{"event_id": ev.ID, "user_id": user.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sum := decode[model.ReservationSummary](t, rec)
	assert.Equal(t, uint64(500_000_000), sum.Price)
	assert.Equal(t, "Ada", sum.UserName)

	rec = a.call(t, http.MethodGet, "/v1/events/"+ev.ID+"/tickets", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.ReservationSummary](t, rec), 1)

	from, _ := ledger.AccountFromIdentity(buyer)
	to, _ := ledger.AccountFromIdentity(seller)
	block := a.ledger.RecordTransfer(from, to, sum.Price, sum.Memo)
	settle := echo.Map{"seller": seller, "event_id": ev.ID, "amount": sum.Price, "block": block, "memo": sum.Memo}

	rec = a.call(t, http.MethodPost, "/v1/payments/verify", buyer, settle)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"verified":true}`, rec.Body.String())

	rec = a.call(t, http.MethodPost, "/v1/tickets/settle", buyer, settle)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	s := decode[model.Settlement](t, rec)
	assert.Equal(t, block, s.PaidAtBlock)
	assert.Equal(t, sum.Memo, s.Memo)

	rec = a.call(t, http.MethodPost, "/v1/tickets/settle", buyer, settle)
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "reservation_not_found", body.Reason)
	assert.False(t, body.Retryable)

	rec = a.call(t, http.MethodGet, "/v1/me/tickets", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Settlement](t, rec), 1)

	rec = a.call(t, http.MethodGet, "/v1/events/"+ev.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(1), decode[model.Event](t, rec).SoldAmount)
}

func TestSettleUnverifiedIsRetryable(t *testing.T) {
	a := newTestAPI(t)
	ev, user := a.setup(t)
	sum := decode[model.ReservationSummary](t, a.call(t, http.MethodPost, "/v1/tickets", buyer, echo.Map{"event_id": ev.ID, "user_id": user.ID}))

	rec := a.call(t, http.MethodPost, "/v1/tickets/settle", buyer,
		echo.Map{"seller": seller, "event_id": ev.ID, "amount": sum.Price, "block": 999, "memo": sum.Memo})
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "payment_not_verified", body.Reason)
	assert.True(t, body.Retryable)
}

func TestReserveErrors(t *testing.T) {
	a := newTestAPI(t)
	ev, _ := a.setup(t)

	rec := a.call(t, http.MethodPost, "/v1/tickets", buyer, echo.Map{"event_id": ev.ID, "user_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "user_not_found", decode[errorBody](t, rec).Reason)

	rec = a.call(t, http.MethodPost, "/v1/tickets", buyer, echo.Map{"event_id": ev.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.call(t, http.MethodPost, "/v1/tickets", "", echo.Map{"event_id": ev.ID, "user_id": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateEventRequiresPrincipalCaller(t *testing.T) {
	a := newTestAPI(t)
	rec := a.call(t, http.MethodPost, "/v1/events", "alice", model.EventPayload{Title: "x", Price: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddressEndpoint(t *testing.T) {
	a := newTestAPI(t)
	rec := a.call(t, http.MethodGet, "/v1/address/"+seller, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	want, _ := ledger.AccountFromIdentity(seller)
	assert.Equal(t, want.Hex(), body["account"])

	rec = a.call(t, http.MethodGet, "/v1/address/not-valid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		err       error
		status    int
		reason    string
		retryable bool
	}{
		{service.ErrPaymentNotVerified, http.StatusNotFound, "payment_not_verified", true},
		{service.ErrReservationNotFound, http.StatusNotFound, "reservation_not_found", false},
		{fmt.Errorf("wrapped: %w", repository.ErrNotFound), http.StatusNotFound, "not_found", false},
		{service.ErrInconsistent, http.StatusInternalServerError, "inconsistent", false},
		{fmt.Errorf("%w: down", service.ErrLedgerUnavailable), http.StatusServiceUnavailable, "ledger_unavailable", true},
		{service.ErrPaymentFailed, http.StatusBadGateway, "payment_failed", false},
		{service.ErrForbidden, http.StatusForbidden, "forbidden", false},
		{repository.ErrDuplicateMemo, http.StatusConflict, "duplicate_memo", false},
		{errors.New("boom"), http.StatusInternalServerError, "internal", false},
	}
	e := echo.New()
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, writeError(c, tc.err))
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		body := decode[errorBody](t, rec)
		assert.Equal(t, tc.reason, body.Reason)
		assert.Equal(t, tc.retryable, body.Retryable)
	}
}

func TestHealth(t *testing.T) {
	h := &HealthHandler{Checks: map[string]Pinger{
		"mysql": PingFunc(func(context.Context) error { return nil }),
	}}
	e := echo.New()
	rec := httptest.NewRecorder()
	require.NoError(t, h.Health(e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	h.Checks["redis"] = PingFunc(func(context.Context) error { return errors.New("connection refused") })
	rec = httptest.NewRecorder()
	require.NoError(t, h.Health(e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
