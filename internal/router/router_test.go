package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-settlement/internal/clock"
	"github.com/iliyamo/event-ticket-settlement/internal/handler"
	"github.com/iliyamo/event-ticket-settlement/internal/ledger"
	"github.com/iliyamo/event-ticket-settlement/internal/repository"
	"github.com/iliyamo/event-ticket-settlement/internal/service"
	"github.com/iliyamo/event-ticket-settlement/internal/utils"
)

const (
	secret      = "router-secret"
	serviceAcct = "aaaaa-aa"
)

var (
	seller = ledger.Principal{0x5e}.String()
	buyer  = ledger.Principal{0xb0}.String()
)

func newServer(t *testing.T, devRoutes bool) *echo.Echo {
	t.Helper()
	clk := clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	self, err := ledger.AccountFromIdentity(serviceAcct)
	require.NoError(t, err)
	led := ledger.NewMemoryLedger(self)
	catalog := repository.NewMemoryCatalog()
	pending := repository.NewMemoryReservationStore()
	coord := &service.Coordinator{
		Catalog: catalog, Pending: pending, Settlements: repository.NewMemorySettlementStore(),
		Verifier: service.NewVerifier(led), Watchdog: service.NewWatchdog(clk, pending, nil),
		Generator: service.NewGenerator(), Clock: clk,
	}
	h := Handlers{
		Health:  &handler.HealthHandler{},
		Catalog: handler.NewCatalogHandler(&service.Catalog{Store: catalog, Clock: clk}),
		Tickets: handler.NewTicketHandler(coord),
		Payouts: &handler.PayoutHandler{Payouts: &service.Payouts{Ledger: led}},
	}
	if devRoutes {
		h.DevLedger = &handler.DevLedgerHandler{Ledger: led}
	}
	e := echo.New()
	RegisterRoutes(e, h, secret, nil)
	return e
}

func send(e *echo.Echo, method, path, sub, role, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if role != "" {
		tok, _ := utils.NewAccessToken(secret, sub, role, time.Minute)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func request(e *echo.Echo, method, path, role, body string) int {
	return send(e, method, path, serviceAcct, role, body).Code
}

func jsonBody(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestPublicAndProtectedRoutes(t *testing.T) {
	e := newServer(t, false)

	assert.Equal(t, http.StatusOK, request(e, http.MethodGet, "/healthz", "", ""))
	assert.Equal(t, http.StatusOK, request(e, http.MethodGet, "/v1/events", "", ""))
	assert.Equal(t, http.StatusNotFound, request(e, http.MethodGet, "/v1/events/nope", "", ""))
	assert.Equal(t, http.StatusOK, request(e, http.MethodGet, "/v1/address/aaaaa-aa", "", ""))
	assert.Equal(t, http.StatusOK, request(e, http.MethodGet, "/v1/tickets", "", ""))
	assert.Equal(t, http.StatusOK, request(e, http.MethodGet, "/v1/users", "", ""))

	assert.Equal(t, http.StatusUnauthorized, request(e, http.MethodPost, "/v1/tickets", "", `{}`))
	assert.Equal(t, http.StatusUnauthorized, request(e, http.MethodPut, "/v1/events/x", "", `{}`))
	assert.Equal(t, http.StatusUnauthorized, request(e, http.MethodGet, "/v1/me/tickets", "", ""))
	assert.Equal(t, http.StatusOK, request(e, http.MethodGet, "/v1/me/tickets", utils.RoleUser, ""))

	// Without the in-memory ledger there is nothing to write payments to.
	assert.Equal(t, http.StatusNotFound, request(e, http.MethodPost, "/v1/dev/transfers", utils.RoleUser, `{}`))
}

func TestPayoutNeedsAdmin(t *testing.T) {
	e := newServer(t, true)
	body := jsonBody(t, echo.Map{"to": seller, "amount": 1_000})
	assert.Equal(t, http.StatusForbidden, request(e, http.MethodPost, "/v1/payouts", utils.RoleUser, body))
	// The service account starts empty.
	assert.Equal(t, http.StatusBadGateway, request(e, http.MethodPost, "/v1/payouts", utils.RoleAdmin, body))

	mint := jsonBody(t, echo.Map{"to": serviceAcct, "amount": 1_000_000})
	assert.Equal(t, http.StatusForbidden, request(e, http.MethodPost, "/v1/dev/mint", utils.RoleUser, mint))
	assert.Equal(t, http.StatusCreated, request(e, http.MethodPost, "/v1/dev/mint", utils.RoleAdmin, mint))
	assert.Equal(t, http.StatusOK, request(e, http.MethodPost, "/v1/payouts", utils.RoleAdmin, body))
}

func TestMemoryLedgerFlowEndToEnd(t *testing.T) {
	e := newServer(t, true)

	rec := send(e, http.MethodPost, "/v1/events", seller, utils.RoleUser, `{"title":"Gig","price":100}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ev struct {
		ID         string `json:"id"`
		SoldAmount uint64 `json:"sold_amount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))

	rec = send(e, http.MethodPost, "/v1/users", buyer, utils.RoleUser, `{"name":"Ada"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var user struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))

	rec = send(e, http.MethodPost, "/v1/tickets", buyer, utils.RoleUser, jsonBody(t, echo.Map{"event_id": ev.ID, "user_id": user.ID}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sum struct {
		Memo  uint64 `json:"memo"`
		Price uint64 `json:"price"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, uint64(100), sum.Price)

	rec = send(e, http.MethodPost, "/v1/dev/transfers", buyer, utils.RoleUser, jsonBody(t, echo.Map{"to": seller, "amount": sum.Price, "memo": sum.Memo}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var paid struct {
		Block uint64 `json:"block"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paid))

	settle := jsonBody(t, echo.Map{"seller": seller, "event_id": ev.ID, "amount": sum.Price, "block": paid.Block, "memo": sum.Memo})
	rec = send(e, http.MethodPost, "/v1/tickets/settle", buyer, utils.RoleUser, settle)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	edit := `{"title":"Gig (moved)","price":150}`
	assert.Equal(t, http.StatusForbidden, send(e, http.MethodPut, "/v1/events/"+ev.ID, buyer, utils.RoleUser, edit).Code)
	rec = send(e, http.MethodPut, "/v1/events/"+ev.ID, seller, utils.RoleUser, edit)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	assert.Equal(t, uint64(1), ev.SoldAmount)

	rec = send(e, http.MethodPut, "/v1/users/"+user.ID, buyer, utils.RoleUser, `{"name":"Ada L."}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
