package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-settlement/internal/clock"
	"github.com/iliyamo/event-ticket-settlement/internal/ledger"
	"github.com/iliyamo/event-ticket-settlement/internal/model"
	"github.com/iliyamo/event-ticket-settlement/internal/queue"
	"github.com/iliyamo/event-ticket-settlement/internal/repository"
)

var (
	buyerPrincipal   = ledger.Principal{0x10, 0x01}.String()
	sellerPrincipal  = ledger.Principal{0x20, 0x02}.String()
	otherPrincipal   = ledger.Principal{0x30, 0x03}.String()
	servicePrincipal = ledger.Principal{0x40, 0x04}.String()
)

func accountOf(t *testing.T, principal string) ledger.AccountIdentifier {
	t.Helper()
	a, err := ledger.AccountFromIdentity(principal)
	require.NoError(t, err)
	return a
}

type recordingPublisher struct {
	mu      sync.Mutex
	settled []queue.TicketSettledEvent
	expired []queue.TicketExpiredEvent
}

func (p *recordingPublisher) TicketSettled(_ context.Context, ev queue.TicketSettledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settled = append(p.settled, ev)
	return nil
}

func (p *recordingPublisher) TicketExpired(_ context.Context, ev queue.TicketExpiredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expired = append(p.expired, ev)
	return nil
}

func (p *recordingPublisher) counts() (settled, expired int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.settled), len(p.expired)
}

type fixture struct {
	clk      *clock.FakeClock
	ledger   *ledger.MemoryLedger
	catalog  *repository.MemoryCatalog
	pending  *repository.MemoryReservationStore
	settled  *repository.MemorySettlementStore
	events   *recordingPublisher
	watchdog *Watchdog
	coord    *Coordinator
	event    model.Event
	user     model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clk:     clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		ledger:  ledger.NewMemoryLedger(accountOf(t, servicePrincipal)),
		catalog: repository.NewMemoryCatalog(),
		pending: repository.NewMemoryReservationStore(),
		settled: repository.NewMemorySettlementStore(),
		events:  &recordingPublisher{},
	}
	f.watchdog = NewWatchdog(f.clk, f.pending, f.events)
	f.coord = &Coordinator{
		Catalog:     f.catalog,
		Pending:     f.pending,
		Settlements: f.settled,
		Verifier:    NewVerifier(f.ledger),
		Watchdog:    f.watchdog,
		Generator:   NewGenerator(),
		Clock:       f.clk,
		Events:      f.events,
		Owner:       OwnerCaller,
		Timeout:     2 * time.Minute,
	}

	ctx := context.Background()
	f.event = model.Event{ID: "ev-1", Title: "Concert", Price: 500_000_000, Seller: sellerPrincipal, CreatedAt: f.clk.Now()}
	f.user = model.User{ID: "user-1", Name: "Ada", Email: "ada@example.com", Phone: "555-0100", CreatedAt: f.clk.Now()}
	require.NoError(t, f.catalog.CreateEvent(ctx, f.event))
	require.NoError(t, f.catalog.CreateUser(ctx, f.user))
	return f
}

// pay records a transfer from buyer to seller on the ledger and returns
// its block index.
func (f *fixture) pay(t *testing.T, amount, memo uint64) uint64 {
	t.Helper()
	return f.ledger.RecordTransfer(accountOf(t, buyerPrincipal), accountOf(t, sellerPrincipal), amount, memo)
}

func (f *fixture) soldAmount(t *testing.T) uint64 {
	t.Helper()
	ev, err := f.catalog.GetEvent(context.Background(), f.event.ID)
	require.NoError(t, err)
	return ev.SoldAmount
}
