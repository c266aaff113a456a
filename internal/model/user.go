package model

import "time"

// User is a buyer profile in the catalog. Tickets are reserved on behalf
// of a user; the name and contact fields are only used for display.
type User struct {
	ID        string    `json:"id"`         // users.id
	Name      string    `json:"name"`       // users.name
	Email     string    `json:"email"`      // users.email
	Phone     string    `json:"phone"`      // users.phone
	Address   string    `json:"address"`    // users.address
	CreatedAt time.Time `json:"created_at"` // users.created_at
}

// UserPayload carries the fields of a new user.
type UserPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}
