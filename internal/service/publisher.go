package service

import (
	"context"

	"github.com/iliyamo/event-ticket-settlement/internal/queue"
)

// EventPublisher receives ticket lifecycle notifications. Failures are
// logged by the caller and never undo the transition that produced them.
type EventPublisher interface {
	TicketSettled(ctx context.Context, ev queue.TicketSettledEvent) error
	TicketExpired(ctx context.Context, ev queue.TicketExpiredEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) TicketSettled(context.Context, queue.TicketSettledEvent) error { return nil }
func (NopPublisher) TicketExpired(context.Context, queue.TicketExpiredEvent) error { return nil }
