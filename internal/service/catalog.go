package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticket-settlement/internal/clock"
	"github.com/iliyamo/event-ticket-settlement/internal/ledger"
	"github.com/iliyamo/event-ticket-settlement/internal/model"
	"github.com/iliyamo/event-ticket-settlement/internal/repository"
)

// Catalog wraps the event and user store with the rules of the public API.
type Catalog struct {
	Store repository.CatalogStore
	Clock clock.Clock
}

// CreateEvent lists a new event with caller as its seller. The seller must
// be a principal, since buyers pay to its ledger account.
func (c *Catalog) CreateEvent(ctx context.Context, caller string, p model.EventPayload) (model.Event, error) {
	if _, err := ledger.ParsePrincipal(caller); err != nil {
		return model.Event{}, fmt.Errorf("%w: seller must be a principal", ErrInvalidInput)
	}
	if strings.TrimSpace(p.Title) == "" {
		return model.Event{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if p.Price == 0 {
		return model.Event{}, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	e := model.Event{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(p.Title),
		Description:   p.Description,
		Date:          p.Date,
		StartTime:     p.StartTime,
		AttachmentURL: p.AttachmentURL,
		Location:      p.Location,
		Price:         p.Price,
		Seller:        caller,
		SoldAmount:    0,
		CreatedAt:     c.now(),
	}
	if err := c.Store.CreateEvent(ctx, e); err != nil {
		return model.Event{}, err
	}
	return e, nil
}

// GetEvent returns one event.
func (c *Catalog) GetEvent(ctx context.Context, id string) (model.Event, error) {
	e, err := c.Store.GetEvent(ctx, id)
	if err != nil {
		return model.Event{}, catalogErr(err, ErrEventNotFound)
	}
	return e, nil
}

// ListEvents returns every event.
func (c *Catalog) ListEvents(ctx context.Context) ([]model.Event, error) {
	return c.Store.ListEvents(ctx)
}

// UpdateEvent edits an event listed by caller. The id, seller, sold
// counter and creation time stay as they are. Pending reservations keep
// the price they were made at.
func (c *Catalog) UpdateEvent(ctx context.Context, caller, id string, p model.EventPayload) (model.Event, error) {
	if strings.TrimSpace(p.Title) == "" {
		return model.Event{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if p.Price == 0 {
		return model.Event{}, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	e, err := c.Store.GetEvent(ctx, id)
	if err != nil {
		return model.Event{}, catalogErr(err, ErrEventNotFound)
	}
	if e.Seller != caller {
		return model.Event{}, ErrForbidden
	}
	e.Title = strings.TrimSpace(p.Title)
	e.Description = p.Description
	e.Date = p.Date
	e.StartTime = p.StartTime
	e.AttachmentURL = p.AttachmentURL
	e.Location = p.Location
	e.Price = p.Price
	if err := c.Store.UpdateEvent(ctx, e); err != nil {
		return model.Event{}, catalogErr(err, ErrEventNotFound)
	}
	return c.GetEvent(ctx, id)
}

// DeleteEvent removes an event listed by caller. Reservations already
// taken on it fail to settle with ErrInconsistent.
func (c *Catalog) DeleteEvent(ctx context.Context, caller, id string) error {
	e, err := c.Store.GetEvent(ctx, id)
	if err != nil {
		return catalogErr(err, ErrEventNotFound)
	}
	if e.Seller != caller {
		return ErrForbidden
	}
	return catalogErr(c.Store.DeleteEvent(ctx, id), ErrEventNotFound)
}

// CreateUser adds a buyer profile.
func (c *Catalog) CreateUser(ctx context.Context, p model.UserPayload) (model.User, error) {
	if strings.TrimSpace(p.Name) == "" {
		return model.User{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	u := model.User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(p.Name),
		Email:     strings.TrimSpace(p.Email),
		Phone:     strings.TrimSpace(p.Phone),
		Address:   strings.TrimSpace(p.Address),
		CreatedAt: c.now(),
	}
	if err := c.Store.CreateUser(ctx, u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// GetUser returns one user.
func (c *Catalog) GetUser(ctx context.Context, id string) (model.User, error) {
	u, err := c.Store.GetUser(ctx, id)
	if err != nil {
		return model.User{}, catalogErr(err, ErrUserNotFound)
	}
	return u, nil
}

// ListUsers returns every user.
func (c *Catalog) ListUsers(ctx context.Context) ([]model.User, error) {
	return c.Store.ListUsers(ctx)
}

// UpdateUser replaces the profile fields of a user.
func (c *Catalog) UpdateUser(ctx context.Context, id string, p model.UserPayload) (model.User, error) {
	if strings.TrimSpace(p.Name) == "" {
		return model.User{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	u, err := c.Store.GetUser(ctx, id)
	if err != nil {
		return model.User{}, catalogErr(err, ErrUserNotFound)
	}
	u.Name = strings.TrimSpace(p.Name)
	u.Email = strings.TrimSpace(p.Email)
	u.Phone = strings.TrimSpace(p.Phone)
	u.Address = strings.TrimSpace(p.Address)
	if err := c.Store.UpdateUser(ctx, u); err != nil {
		return model.User{}, catalogErr(err, ErrUserNotFound)
	}
	return u, nil
}

// AddressOf returns the hex account identifier of principal's default
// subaccount.
func AddressOf(principal string) (string, error) {
	account, err := ledger.AccountFromIdentity(principal)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return account.Hex(), nil
}

func (c *Catalog) now() time.Time {
	if c.Clock == nil {
		return time.Now().UTC()
	}
	return c.Clock.Now()
}
