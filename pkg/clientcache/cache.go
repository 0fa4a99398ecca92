// Package clientcache mirrors a user's pending negotiations on the client
// side: one Cache per negotiation kind, keyed by counterparty, seeded from
// the server and reconciled by lifecycle events. The server stays the source
// of truth; the cache only saves round trips and drives countdown UI.
package clientcache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Common errors
var (
	// ErrAlreadyPending mirrors the server's at-most-one-pending rule so a
	// duplicate request is rejected without a round trip.
	ErrAlreadyPending = errors.New("a request with this user is already pending")
	// ErrNoPending means no cached entry exists for the counterparty.
	ErrNoPending = errors.New("no pending request with this user")
	// ErrStale is returned (possibly wrapped) by Backend implementations when
	// the server no longer knows the request. The cache drops its entry and
	// treats the operation as a no-op.
	ErrStale = errors.New("request no longer exists")
)

// Direction says which party opened the negotiation.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Entry is one active negotiation as the client sees it.
type Entry struct {
	RequestID    string
	Counterparty int64
	Direction    Direction
	ItemIDs      []int64
	ExpiresAt    time.Time
}

// Event lifecycle names, matching the server's channel events.
const (
	EventRequest   = "request"
	EventApproved  = "approved"
	EventDeclined  = "declined"
	EventCancelled = "cancelled"
)

// Event is a lifecycle notification received over the realtime channel.
type Event struct {
	Name         string
	RequestID    string
	Counterparty int64
	Direction    Direction
	ItemIDs      []int64
	ExpiresAt    time.Time
}

// Backend is the server surface the cache drives. One Backend is bound to one
// negotiation kind and one authenticated user. Implementations return errors
// wrapping ErrStale when the server no longer knows the request.
type Backend interface {
	Request(ctx context.Context, counterparty int64, itemIDs []int64) (*Entry, error)
	Respond(ctx context.Context, requestID string, accept bool) error
	Cancel(ctx context.Context, requestID string) error
	FetchPending(ctx context.Context) ([]*Entry, error)
}

// Cache holds the pending negotiations of one user for one kind, keyed by
// counterparty. Safe for concurrent use.
type Cache struct {
	backend Backend
	ttl     time.Duration

	mu      sync.Mutex
	entries map[int64]*Entry

	now func() time.Time
}

// New creates an empty cache. ttl sizes the optimistic placeholder deadline
// until the server's authoritative one arrives; it should match the server's
// negotiation TTL.
func New(backend Backend, ttl time.Duration) *Cache {
	return &Cache{
		backend: backend,
		ttl:     ttl,
		entries: make(map[int64]*Entry),
		now:     time.Now,
	}
}

// Seed replaces the cache with the server's pending set. Called on mount and
// whenever the client reconnects.
func (c *Cache) Seed(ctx context.Context) error {
	pending, err := c.backend.FetchPending(ctx)
	if err != nil {
		return err
	}

	entries := make(map[int64]*Entry, len(pending))
	for _, e := range pending {
		cp := *e
		entries[e.Counterparty] = &cp
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

// Apply is the event reducer: insert on request, delete on any terminal
// event. Duplicate delivery is harmless; deleting an absent entry or
// re-inserting the same request is a no-op.
func (c *Cache) Apply(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Name {
	case EventRequest:
		c.entries[ev.Counterparty] = &Entry{
			RequestID:    ev.RequestID,
			Counterparty: ev.Counterparty,
			Direction:    ev.Direction,
			ItemIDs:      ev.ItemIDs,
			ExpiresAt:    ev.ExpiresAt,
		}
	case EventApproved, EventDeclined, EventCancelled:
		if cur, ok := c.entries[ev.Counterparty]; ok && cur.RequestID == ev.RequestID {
			delete(c.entries, ev.Counterparty)
		}
	}
}

// Request opens a negotiation with the counterparty. The entry is inserted
// optimistically before the call and rolled back if the server rejects it.
func (c *Cache) Request(ctx context.Context, counterparty int64, itemIDs []int64) (*Entry, error) {
	c.mu.Lock()
	if _, ok := c.entries[counterparty]; ok {
		c.mu.Unlock()
		return nil, ErrAlreadyPending
	}
	placeholder := &Entry{
		Counterparty: counterparty,
		Direction:    DirectionOutgoing,
		ItemIDs:      itemIDs,
		ExpiresAt:    c.now().Add(c.ttl),
	}
	c.entries[counterparty] = placeholder
	c.mu.Unlock()

	entry, err := c.backend.Request(ctx, counterparty, itemIDs)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if c.entries[counterparty] == placeholder {
			delete(c.entries, counterparty)
		}
		return nil, err
	}
	cp := *entry
	c.entries[counterparty] = &cp
	return entry, nil
}

// Respond accepts or declines the counterparty's request and drops the cache
// entry. A stale entry the server no longer knows is dropped silently.
func (c *Cache) Respond(ctx context.Context, counterparty int64, accept bool) error {
	entry, ok := c.Get(counterparty)
	if !ok {
		return ErrNoPending
	}

	err := c.backend.Respond(ctx, entry.RequestID, accept)
	if err != nil && !errors.Is(err, ErrStale) {
		return err
	}
	c.drop(counterparty, entry.RequestID)
	return nil
}

// Cancel withdraws the caller's own request to the counterparty.
func (c *Cache) Cancel(ctx context.Context, counterparty int64) error {
	entry, ok := c.Get(counterparty)
	if !ok {
		return ErrNoPending
	}

	err := c.backend.Cancel(ctx, entry.RequestID)
	if err != nil && !errors.Is(err, ErrStale) {
		return err
	}
	c.drop(counterparty, entry.RequestID)
	return nil
}

// Get returns a copy of the entry for the counterparty.
func (c *Cache) Get(counterparty int64) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[counterparty]
	if !ok {
		return nil, false
	}
	cp := *entry
	return &cp, true
}

// Pending returns a snapshot of all cached entries.
func (c *Cache) Pending() []*Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		cp := *entry
		out = append(out, &cp)
	}
	return out
}

// TimeRemaining returns the seconds-granularity countdown for the entry with
// the counterparty, and false when none exists.
func (c *Cache) TimeRemaining(counterparty int64) (time.Duration, bool) {
	entry, ok := c.Get(counterparty)
	if !ok {
		return 0, false
	}
	remaining := entry.ExpiresAt.Sub(c.now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining.Truncate(time.Second), true
}

// Run ticks once a second and removes entries past their deadline without
// waiting for server confirmation. A late server-side accept can race this
// local expiry; the next Seed or event reconciles either way. Blocks until
// the context is cancelled.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.expireLocal()
		}
	}
}

func (c *Cache) expireLocal() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for counterparty, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, counterparty)
		}
	}
}

func (c *Cache) drop(counterparty int64, requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[counterparty]; ok && cur.RequestID == requestID {
		delete(c.entries, counterparty)
	}
}
