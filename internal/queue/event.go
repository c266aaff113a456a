// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that moves them.
package queue

// Queue names. Both are durable and routed through the default exchange.
const (
	TicketSettledQueue = "ticket.settled"
	TicketExpiredQueue = "ticket.expired"
)

// TicketSettledEvent is published once a payment has been verified and the
// reservation turned into a settlement. It carries enough for downstream
// consumers to log or notify without querying the primary database.
type TicketSettledEvent struct {
	TicketID    string `json:"ticket_id"`
	Memo        uint64 `json:"memo"`
	EventID     string `json:"event_id"`
	EventTitle  string `json:"event_title"`
	BuyerID     string `json:"buyer_id"`
	Owner       string `json:"owner"`
	Seller      string `json:"seller"`
	PriceE8s    uint64 `json:"price_e8s"`
	PaidAtBlock uint64 `json:"paid_at_block"`
	SoldAmount  uint64 `json:"sold_amount"`
	SettledAt   string `json:"settled_at"`
}

// TicketExpiredEvent is published when the watchdog discards an unpaid
// reservation. A payment that later shows up with this memo can no longer
// be settled automatically and has to be reconciled by hand.
type TicketExpiredEvent struct {
	TicketID   string `json:"ticket_id"`
	Memo       uint64 `json:"memo"`
	EventID    string `json:"event_id"`
	BuyerID    string `json:"buyer_id"`
	ReservedBy string `json:"reserved_by"`
	PriceE8s   uint64 `json:"price_e8s"`
	ExpiredAt  string `json:"expired_at"`
}
