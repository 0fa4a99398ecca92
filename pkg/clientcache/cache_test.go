package clientcache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	pending    []*Entry
	requestErr error
	respondErr error
	cancelErr  error

	requested []int64
	responded []string
	cancelled []string
}

func (b *fakeBackend) Request(ctx context.Context, counterparty int64, itemIDs []int64) (*Entry, error) {
	if b.requestErr != nil {
		return nil, b.requestErr
	}
	b.requested = append(b.requested, counterparty)
	return &Entry{
		RequestID:    fmt.Sprintf("req-%d", counterparty),
		Counterparty: counterparty,
		Direction:    DirectionOutgoing,
		ItemIDs:      itemIDs,
		ExpiresAt:    time.Now().Add(time.Minute),
	}, nil
}

func (b *fakeBackend) Respond(ctx context.Context, requestID string, accept bool) error {
	if b.respondErr != nil {
		return b.respondErr
	}
	b.responded = append(b.responded, requestID)
	return nil
}

func (b *fakeBackend) Cancel(ctx context.Context, requestID string) error {
	if b.cancelErr != nil {
		return b.cancelErr
	}
	b.cancelled = append(b.cancelled, requestID)
	return nil
}

func (b *fakeBackend) FetchPending(ctx context.Context) ([]*Entry, error) {
	return b.pending, nil
}

func TestSeed(t *testing.T) {
	backend := &fakeBackend{pending: []*Entry{
		{RequestID: "req-2", Counterparty: 2, Direction: DirectionIncoming},
		{RequestID: "req-3", Counterparty: 3, Direction: DirectionOutgoing},
	}}
	cache := New(backend, time.Minute)

	require.NoError(t, cache.Seed(context.Background()))
	assert.Len(t, cache.Pending(), 2)

	entry, ok := cache.Get(2)
	require.True(t, ok)
	assert.Equal(t, "req-2", entry.RequestID)
}

func TestRequestGuardsPending(t *testing.T) {
	backend := &fakeBackend{}
	cache := New(backend, time.Minute)

	_, err := cache.Request(context.Background(), 2, []int64{10})
	require.NoError(t, err)

	// No second round trip while one is pending with the same counterparty.
	_, err = cache.Request(context.Background(), 2, []int64{11})
	assert.ErrorIs(t, err, ErrAlreadyPending)
	assert.Len(t, backend.requested, 1)
}

func TestRequestRollsBackOnFailure(t *testing.T) {
	backend := &fakeBackend{requestErr: errors.New("boom")}
	cache := New(backend, time.Minute)

	_, err := cache.Request(context.Background(), 2, []int64{10})
	require.Error(t, err)

	_, ok := cache.Get(2)
	assert.False(t, ok, "optimistic entry must be rolled back")
}

func TestRespondDropsEntry(t *testing.T) {
	backend := &fakeBackend{pending: []*Entry{
		{RequestID: "req-2", Counterparty: 2, Direction: DirectionIncoming},
	}}
	cache := New(backend, time.Minute)
	require.NoError(t, cache.Seed(context.Background()))

	require.NoError(t, cache.Respond(context.Background(), 2, true))
	assert.Equal(t, []string{"req-2"}, backend.responded)

	_, ok := cache.Get(2)
	assert.False(t, ok)

	assert.ErrorIs(t, cache.Respond(context.Background(), 2, true), ErrNoPending)
}

func TestRespondDropsStaleEntry(t *testing.T) {
	backend := &fakeBackend{
		pending:    []*Entry{{RequestID: "req-2", Counterparty: 2}},
		respondErr: fmt.Errorf("server said: %w", ErrStale),
	}
	cache := New(backend, time.Minute)
	require.NoError(t, cache.Seed(context.Background()))

	// The server no longer knows the request; the entry goes quietly.
	require.NoError(t, cache.Respond(context.Background(), 2, true))
	_, ok := cache.Get(2)
	assert.False(t, ok)
}

func TestCancel(t *testing.T) {
	backend := &fakeBackend{}
	cache := New(backend, time.Minute)

	_, err := cache.Request(context.Background(), 2, []int64{10})
	require.NoError(t, err)

	require.NoError(t, cache.Cancel(context.Background(), 2))
	assert.Equal(t, []string{"req-2"}, backend.cancelled)
	_, ok := cache.Get(2)
	assert.False(t, ok)
}

func TestApplyReducer(t *testing.T) {
	cache := New(&fakeBackend{}, time.Minute)

	ev := Event{
		Name:         EventRequest,
		RequestID:    "req-2",
		Counterparty: 2,
		Direction:    DirectionIncoming,
		ExpiresAt:    time.Now().Add(time.Minute),
	}
	cache.Apply(ev)
	_, ok := cache.Get(2)
	assert.True(t, ok)

	terminal := Event{Name: EventDeclined, RequestID: "req-2", Counterparty: 2}
	cache.Apply(terminal)
	_, ok = cache.Get(2)
	assert.False(t, ok)

	// Duplicate terminal delivery is a no-op.
	cache.Apply(terminal)
	_, ok = cache.Get(2)
	assert.False(t, ok)
}

func TestApplyIgnoresMismatchedTerminal(t *testing.T) {
	cache := New(&fakeBackend{}, time.Minute)

	cache.Apply(Event{Name: EventRequest, RequestID: "req-new", Counterparty: 2})
	// Stale terminal for an older request must not delete the newer one.
	cache.Apply(Event{Name: EventCancelled, RequestID: "req-old", Counterparty: 2})

	entry, ok := cache.Get(2)
	require.True(t, ok)
	assert.Equal(t, "req-new", entry.RequestID)
}

func TestTimeRemainingAndLocalExpiry(t *testing.T) {
	cache := New(&fakeBackend{}, time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Apply(Event{Name: EventRequest, RequestID: "req-2", Counterparty: 2, ExpiresAt: now.Add(45 * time.Second)})

	remaining, ok := cache.TimeRemaining(2)
	require.True(t, ok)
	assert.Equal(t, 45*time.Second, remaining)

	now = now.Add(50 * time.Second)
	remaining, ok = cache.TimeRemaining(2)
	require.True(t, ok)
	assert.Zero(t, remaining)

	// The ticker body removes the entry once the deadline passed.
	cache.expireLocal()
	_, ok = cache.Get(2)
	assert.False(t, ok)
}
