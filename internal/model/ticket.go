package model

import "time"

// Reservation is a pending ticket. It is keyed by Memo, the correlation id
// the buyer must attach to the ledger transfer that pays for it. A
// reservation is never updated: it is consumed exactly once, either by the
// timeout watchdog or by a successful settlement.
//
// Fields:
//  ID         – uuid of the ticket, carried over into the settlement.
//  Memo       – correlation id; the only lookup key during settlement.
//  EventID    – event the ticket is for.
//  BuyerID    – catalog user the ticket was reserved for.
//  Price      – event price in e8s frozen at reservation time.
//  ReservedBy – principal that requested the reservation.
//  ExpiresAt  – when the watchdog discards the reservation.
type Reservation struct {
	ID         string    `json:"id"`
	Memo       uint64    `json:"memo"`
	EventID    string    `json:"event_id"`
	BuyerID    string    `json:"buyer_id"`
	Price      uint64    `json:"price"`
	ReservedBy string    `json:"reserved_by"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Settlement is a paid ticket: the consumed reservation plus the ledger
// block that proved the payment. Owner is the identity the ticket is filed
// under.
type Settlement struct {
	Reservation
	PaidAtBlock uint64    `json:"paid_at_block"`
	Owner       string    `json:"owner"`
	SettledAt   time.Time `json:"settled_at"`
}

// ReservationSummary is what a buyer gets back from a reservation: the
// pending ticket plus read-only event and buyer display fields.
type ReservationSummary struct {
	ID        string    `json:"id"`
	Memo      uint64    `json:"memo"`
	EventID   string    `json:"event_id"`
	EventName string    `json:"event_name"`
	Price     uint64    `json:"price"`
	Seller    string    `json:"seller"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email"`
	UserPhone string    `json:"user_phone"`
	ExpiresAt time.Time `json:"expires_at"`
}
