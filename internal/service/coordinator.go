package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticket-settlement/internal/clock"
	"github.com/iliyamo/event-ticket-settlement/internal/model"
	"github.com/iliyamo/event-ticket-settlement/internal/queue"
	"github.com/iliyamo/event-ticket-settlement/internal/repository"
)

// OwnerPolicy decides which identity a settlement is filed under.
type OwnerPolicy string

const (
	// OwnerCaller files the ticket under the identity that settled it.
	OwnerCaller OwnerPolicy = "caller"
	// OwnerBuyer files the ticket under the reservation's buyer id.
	OwnerBuyer OwnerPolicy = "buyer"
)

// ParseOwnerPolicy accepts "caller" or "buyer", case-insensitive.
func ParseOwnerPolicy(s string) (OwnerPolicy, error) {
	switch p := OwnerPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case OwnerCaller, OwnerBuyer:
		return p, nil
	case "":
		return OwnerCaller, nil
	default:
		return "", fmt.Errorf("unknown settlement owner policy %q", s)
	}
}

// DefaultReservationTimeout is how long an unpaid reservation lives.
const DefaultReservationTimeout = 2 * time.Minute

// Coordinator drives a ticket from reservation to settlement.
//
// Every step touches one key: the pending reservation, the event counter
// or the settlement row. The atomic TakeByMemo is what makes a memo
// settle at most once, whether the competitor is the watchdog or another
// settle call.
type Coordinator struct {
	Catalog     repository.CatalogStore
	Pending     repository.ReservationStore
	Settlements repository.SettlementStore
	Verifier    *Verifier
	Watchdog    *Watchdog
	Generator   *Generator
	Clock       clock.Clock
	Events      EventPublisher
	Owner       OwnerPolicy
	Timeout     time.Duration
}

// Reserve creates a pending ticket for buyerID on eventID and arms its
// expiry. Nothing is written when the event or the buyer is unknown.
func (c *Coordinator) Reserve(ctx context.Context, caller, eventID, buyerID string) (model.ReservationSummary, error) {
	if eventID == "" || buyerID == "" {
		return model.ReservationSummary{}, fmt.Errorf("%w: event_id and user_id are required", ErrInvalidInput)
	}
	ev, err := c.Catalog.GetEvent(ctx, eventID)
	if err != nil {
		return model.ReservationSummary{}, catalogErr(err, ErrEventNotFound)
	}
	user, err := c.Catalog.GetUser(ctx, buyerID)
	if err != nil {
		return model.ReservationSummary{}, catalogErr(err, ErrUserNotFound)
	}

	now := c.Clock.Now()
	r := model.Reservation{
		ID:         uuid.NewString(),
		Memo:       c.Generator.Generate(eventID, caller, now),
		EventID:    ev.ID,
		BuyerID:    user.ID,
		Price:      ev.Price,
		ReservedBy: caller,
		CreatedAt:  now,
		ExpiresAt:  now.Add(c.timeout()),
	}
	if err := c.Pending.Put(ctx, r); err != nil {
		return model.ReservationSummary{}, fmt.Errorf("store reservation: %w", err)
	}
	c.Watchdog.Schedule(r.Memo, c.timeout())
	log.Printf("coordinator: memo %d reserved on event %s for user %s, expires %s", r.Memo, ev.ID, user.ID, r.ExpiresAt.Format(time.RFC3339))

	return summarize(r, ev, user), nil
}

// Verify is the read-only check behind Settle: it reports whether block
// proves a payment of amount from caller to sellerID tagged with memo.
func (c *Coordinator) Verify(ctx context.Context, caller, sellerID string, amount, block, memo uint64) (bool, error) {
	return c.Verifier.Verify(ctx, caller, sellerID, amount, block, memo)
}

// Settle turns the reservation behind memo into a settlement once block
// proves the payment.
//
// Everything that can reject the request is checked before the memo is
// taken: the block, the reservation's event, its frozen price and the
// event's seller. A rejected request therefore never removes the
// reservation, and a competing settle never sees it missing. Once taken,
// the only way back into the store is an event that vanished before it
// could be counted. The sold counter is bumped before the settlement row
// is written; a crash between the two under-counts the event but keeps
// the settlement.
func (c *Coordinator) Settle(ctx context.Context, caller, sellerID, eventID string, amount, block, memo uint64) (model.Settlement, error) {
	ok, err := c.Verifier.Verify(ctx, caller, sellerID, amount, block, memo)
	if err != nil {
		return model.Settlement{}, err
	}
	if !ok {
		return model.Settlement{}, ErrPaymentNotVerified
	}

	pending, err := c.Pending.Get(ctx, memo)
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("coordinator: memo %d paid at block %d but no pending reservation; reconcile manually", memo, block)
		return model.Settlement{}, ErrReservationNotFound
	}
	if err != nil {
		return model.Settlement{}, fmt.Errorf("get reservation: %w", err)
	}
	if pending.EventID != eventID {
		log.Printf("coordinator: memo %d belongs to event %s, not %s", memo, pending.EventID, eventID)
		return model.Settlement{}, ErrPaymentNotVerified
	}
	if amount != pending.Price {
		log.Printf("coordinator: memo %d paid %d e8s, reserved at %d", memo, amount, pending.Price)
		return model.Settlement{}, ErrPaymentNotVerified
	}

	ev, err := c.Catalog.GetEvent(ctx, eventID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("coordinator: memo %d: event %s vanished after reservation", memo, eventID)
		return model.Settlement{}, ErrInconsistent
	}
	if err != nil {
		return model.Settlement{}, fmt.Errorf("get event: %w", err)
	}
	if ev.Seller != sellerID {
		// The block paid someone, just not this event's seller.
		log.Printf("coordinator: memo %d: event %s is sold by %s, not %s", memo, ev.ID, ev.Seller, sellerID)
		return model.Settlement{}, ErrPaymentNotVerified
	}

	r, err := c.Pending.TakeByMemo(ctx, memo)
	if errors.Is(err, repository.ErrNotFound) {
		// Lost the race to the watchdog or another settle.
		log.Printf("coordinator: memo %d paid at block %d but no pending reservation; reconcile manually", memo, block)
		return model.Settlement{}, ErrReservationNotFound
	}
	if err != nil {
		return model.Settlement{}, fmt.Errorf("take reservation: %w", err)
	}

	sold, err := c.Catalog.IncrementSoldAmount(ctx, ev.ID)
	if err != nil {
		c.restore(r)
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("coordinator: memo %d: event %s vanished before counting", memo, ev.ID)
			return model.Settlement{}, ErrInconsistent
		}
		return model.Settlement{}, fmt.Errorf("increment sold amount: %w", err)
	}

	s := model.Settlement{
		Reservation: r,
		PaidAtBlock: block,
		Owner:       c.ownerOf(caller, r),
		SettledAt:   c.Clock.Now(),
	}
	if err := c.Settlements.Put(ctx, s); err != nil {
		log.Printf("coordinator: memo %d counted on event %s but settlement write failed: %v", memo, ev.ID, err)
		return model.Settlement{}, fmt.Errorf("store settlement: %w", err)
	}
	log.Printf("coordinator: memo %d settled at block %d for %s, event %s sold %d", memo, block, s.Owner, ev.ID, sold)

	settled := queue.TicketSettledEvent{
		TicketID:    s.ID,
		Memo:        s.Memo,
		EventID:     ev.ID,
		EventTitle:  ev.Title,
		BuyerID:     s.BuyerID,
		Owner:       s.Owner,
		Seller:      ev.Seller,
		PriceE8s:    s.Price,
		PaidAtBlock: block,
		SoldAmount:  sold,
		SettledAt:   s.SettledAt.UTC().Format(time.RFC3339),
	}
	if err := c.events().TicketSettled(ctx, settled); err != nil {
		log.Printf("coordinator: publish settlement of memo %d failed: %v", memo, err)
	}
	return s, nil
}

// GetEventTickets lists the pending reservations of an event with display
// fields filled in. Buyers missing from the catalog get empty fields.
func (c *Coordinator) GetEventTickets(ctx context.Context, eventID string) ([]model.ReservationSummary, error) {
	ev, err := c.Catalog.GetEvent(ctx, eventID)
	if err != nil {
		return nil, catalogErr(err, ErrEventNotFound)
	}
	pending, err := c.Pending.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	out := make([]model.ReservationSummary, 0, len(pending))
	for _, r := range pending {
		user, err := c.Catalog.GetUser(ctx, r.BuyerID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("get user: %w", err)
		}
		out = append(out, summarize(r, ev, user))
	}
	return out, nil
}

// GetSoldTickets lists the settlements of an event.
func (c *Coordinator) GetSoldTickets(ctx context.Context, eventID string) ([]model.Settlement, error) {
	if _, err := c.Catalog.GetEvent(ctx, eventID); err != nil {
		return nil, catalogErr(err, ErrEventNotFound)
	}
	return c.Settlements.ListByEvent(ctx, eventID)
}

// ListPendingTickets lists every pending reservation across events.
func (c *Coordinator) ListPendingTickets(ctx context.Context) ([]model.Reservation, error) {
	return c.Pending.All(ctx)
}

// ListOwnedTickets lists the settlements filed under caller.
func (c *Coordinator) ListOwnedTickets(ctx context.Context, caller string) ([]model.Settlement, error) {
	return c.Settlements.ListByOwner(ctx, caller)
}

// restore puts a taken reservation back and re-arms its expiry, since the
// original timer may already have fired against the empty slot. It is only
// used when the event disappears between the checks and the count.
func (c *Coordinator) restore(r model.Reservation) {
	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()
	if err := c.Pending.Put(ctx, r); err != nil {
		log.Printf("coordinator: restore memo %d failed: %v", r.Memo, err)
		return
	}
	c.Watchdog.Schedule(r.Memo, r.ExpiresAt.Sub(c.Clock.Now()))
}

func (c *Coordinator) ownerOf(caller string, r model.Reservation) string {
	if c.Owner == OwnerBuyer {
		return r.BuyerID
	}
	return caller
}

func (c *Coordinator) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultReservationTimeout
	}
	return c.Timeout
}

func (c *Coordinator) events() EventPublisher {
	if c.Events == nil {
		return NopPublisher{}
	}
	return c.Events
}

func summarize(r model.Reservation, ev model.Event, user model.User) model.ReservationSummary {
	return model.ReservationSummary{
		ID:        r.ID,
		Memo:      r.Memo,
		EventID:   r.EventID,
		EventName: ev.Title,
		Price:     r.Price,
		Seller:    ev.Seller,
		UserID:    r.BuyerID,
		UserName:  user.Name,
		UserEmail: user.Email,
		UserPhone: user.Phone,
		ExpiresAt: r.ExpiresAt,
	}
}

// catalogErr maps a catalog miss to the specific not-found error.
func catalogErr(err, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return err
}
