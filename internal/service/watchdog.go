package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/iliyamo/event-ticket-settlement/internal/clock"
	"github.com/iliyamo/event-ticket-settlement/internal/queue"
	"github.com/iliyamo/event-ticket-settlement/internal/repository"
)

// fireTimeout bounds the store call made when a timer fires.
const fireTimeout = 5 * time.Second

// A fire whose store call fails is retried after fireRetryBase, doubling
// up to fireRetryMax.
const (
	fireRetryBase = time.Second
	fireRetryMax  = 30 * time.Second
)

// Watchdog discards reservations that were not paid in time. A scheduled
// timer cannot be cancelled: when it fires it simply tries to take the memo
// and does nothing if a settlement got there first.
type Watchdog struct {
	clock  clock.Clock
	store  repository.ReservationStore
	events EventPublisher

	mu      sync.Mutex
	seq     uint64
	timers  map[uint64]*armed
	stopped bool
}

// armed tracks one scheduled timer until it fires or is stopped.
type armed struct {
	timer clock.Timer
}

// NewWatchdog returns a Watchdog that evicts from store on clk.
func NewWatchdog(clk clock.Clock, store repository.ReservationStore, events EventPublisher) *Watchdog {
	if events == nil {
		events = NopPublisher{}
	}
	return &Watchdog{clock: clk, store: store, events: events, timers: make(map[uint64]*armed)}
}

// Schedule arms a one-shot timer that takes memo after delay.
func (w *Watchdog) Schedule(memo uint64, delay time.Duration) {
	w.arm(memo, delay, 0)
}

func (w *Watchdog) arm(memo uint64, delay time.Duration, attempt int) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.seq++
	id := w.seq
	a := &armed{}
	w.timers[id] = a
	w.mu.Unlock()

	// The clock may run the callback before AfterFunc returns, so the lock
	// is not held across the call.
	t := w.clock.AfterFunc(delay, func() { w.fire(id, memo, attempt) })

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timers[id] == a {
		a.timer = t
		return
	}
	if w.stopped {
		t.Stop()
	}
}

func (w *Watchdog) fire(id, memo uint64, attempt int) {
	w.mu.Lock()
	delete(w.timers, id)
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	r, err := w.store.TakeByMemo(ctx, memo)
	if errors.Is(err, repository.ErrNotFound) {
		return // settled before the deadline
	}
	if err != nil {
		backoff := retryDelay(attempt)
		log.Printf("watchdog: take memo %d failed (attempt %d), retrying in %s: %v", memo, attempt+1, backoff, err)
		w.arm(memo, backoff, attempt+1)
		return
	}
	log.Printf("watchdog: memo %d expired, ticket %s for event %s discarded", memo, r.ID, r.EventID)
	ev := queue.TicketExpiredEvent{
		TicketID:   r.ID,
		Memo:       r.Memo,
		EventID:    r.EventID,
		BuyerID:    r.BuyerID,
		ReservedBy: r.ReservedBy,
		PriceE8s:   r.Price,
		ExpiredAt:  w.clock.Now().UTC().Format(time.RFC3339),
	}
	if err := w.events.TicketExpired(ctx, ev); err != nil {
		log.Printf("watchdog: publish expiry of memo %d failed: %v", memo, err)
	}
}

func retryDelay(attempt int) time.Duration {
	d := fireRetryBase
	for i := 0; i < attempt && d < fireRetryMax; i++ {
		d *= 2
	}
	if d > fireRetryMax {
		d = fireRetryMax
	}
	return d
}

// Recover re-arms a timer for every reservation already in the store,
// using what is left of its lifetime. Overdue ones fire immediately.
func (w *Watchdog) Recover(ctx context.Context) (int, error) {
	pending, err := w.store.All(ctx)
	if err != nil {
		return 0, err
	}
	now := w.clock.Now()
	for _, r := range pending {
		w.Schedule(r.Memo, r.ExpiresAt.Sub(now))
	}
	return len(pending), nil
}

// Pending returns the number of armed timers.
func (w *Watchdog) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timers)
}

// Stop disarms every timer and refuses new ones. Reservations stay in the
// store and are picked up by Recover on the next start.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	for id, a := range w.timers {
		if a.timer != nil {
			a.timer.Stop()
		}
		delete(w.timers, id)
	}
}
