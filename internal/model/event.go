package model

import "time"

// Event is a listing created by a seller. Price is the per ticket amount in
// e8s and SoldAmount counts settled tickets; it only ever grows.
//
// Fields:
//  ID            – uuid assigned at creation.
//  Seller        – principal of the identity that listed the event; payments
//                  for its tickets must go to this principal's account.
//  Price         – ticket price in e8s.
//  SoldAmount    – number of settled tickets.
type Event struct {
	ID            string    `json:"id"`             // events.id
	Title         string    `json:"title"`          // events.title
	Description   string    `json:"description"`    // events.description
	Date          string    `json:"date"`           // events.event_date
	StartTime     string    `json:"start_time"`     // events.start_time
	AttachmentURL string    `json:"attachment_url"` // events.attachment_url
	Location      string    `json:"location"`       // events.location
	Price         uint64    `json:"price"`          // events.price_e8s
	Seller        string    `json:"seller"`         // events.seller
	SoldAmount    uint64    `json:"sold_amount"`    // events.sold_amount
	CreatedAt     time.Time `json:"created_at"`     // events.created_at
}

// EventPayload carries the seller supplied fields of a new event.
type EventPayload struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	AttachmentURL string `json:"attachment_url"`
	Location      string `json:"location"`
	Price         uint64 `json:"price"`
}
