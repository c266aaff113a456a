package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/event-ticket-settlement/internal/model"
)

// MemoryCatalog is an in-process CatalogStore.
type MemoryCatalog struct {
	mu     sync.Mutex
	events map[string]model.Event
	users  map[string]model.User
}

// NewMemoryCatalog returns an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{events: make(map[string]model.Event), users: make(map[string]model.User)}
}

func (c *MemoryCatalog) CreateEvent(_ context.Context, e model.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[e.ID] = e
	return nil
}

func (c *MemoryCatalog) GetEvent(_ context.Context, id string) (model.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.events[id]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	return e, nil
}

func (c *MemoryCatalog) ListEvents(context.Context) ([]model.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Event, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (c *MemoryCatalog) IncrementSoldAmount(_ context.Context, id string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.events[id]
	if !ok {
		return 0, ErrNotFound
	}
	e.SoldAmount++
	c.events[id] = e
	return e.SoldAmount, nil
}

func (c *MemoryCatalog) UpdateEvent(_ context.Context, e model.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.events[e.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Title, cur.Description, cur.Date, cur.StartTime = e.Title, e.Description, e.Date, e.StartTime
	cur.AttachmentURL, cur.Location, cur.Price = e.AttachmentURL, e.Location, e.Price
	c.events[e.ID] = cur
	return nil
}

func (c *MemoryCatalog) DeleteEvent(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.events[id]; !ok {
		return ErrNotFound
	}
	delete(c.events, id)
	return nil
}

func (c *MemoryCatalog) CreateUser(_ context.Context, u model.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[u.ID] = u
	return nil
}

func (c *MemoryCatalog) GetUser(_ context.Context, id string) (model.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (c *MemoryCatalog) ListUsers(context.Context) ([]model.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.User, 0, len(c.users))
	for _, u := range c.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (c *MemoryCatalog) UpdateUser(_ context.Context, u model.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Name, cur.Email, cur.Phone, cur.Address = u.Name, u.Email, u.Phone, u.Address
	c.users[u.ID] = cur
	return nil
}
