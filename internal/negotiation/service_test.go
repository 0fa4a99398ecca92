package negotiation

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/housetab/housetab/internal/house"
	"github.com/housetab/housetab/internal/item"
	"github.com/housetab/housetab/internal/ledger"
	"github.com/housetab/housetab/internal/realtime"
)

type fakeStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[uuid.UUID]*Record)}
}

func (s *fakeStore) Create(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.records {
		samePair := (other.FromUserID == rec.FromUserID && other.ToUserID == rec.ToUserID) ||
			(other.FromUserID == rec.ToUserID && other.ToUserID == rec.FromUserID)
		if other.Status == StatusPending && other.Kind == rec.Kind && samePair {
			return ErrAlreadyPending
		}
	}
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) ListPendingForUser(ctx context.Context, userID int64, now time.Time) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Record
	for _, rec := range s.records {
		if rec.Status != StatusPending || rec.ExpiredAt(now) {
			continue
		}
		if rec.FromUserID == userID || rec.ToUserID == userID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) Claim(ctx context.Context, id uuid.UUID, to Status, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok || rec.Status != StatusPending || rec.ExpiredAt(now) {
		return false, nil
	}
	rec.Status = to
	return true, nil
}

func (s *fakeStore) ClaimTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, to Status, now time.Time) (bool, error) {
	return s.Claim(ctx, id, to, now)
}

func (s *fakeStore) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok || rec.Status != StatusPending {
		return false, nil
	}
	rec.Status = StatusExpired
	return true, nil
}

func (s *fakeStore) ExpireDue(ctx context.Context, now time.Time) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var swept []*Record
	for _, rec := range s.records {
		if rec.Status == StatusPending && rec.ExpiredAt(now) {
			rec.Status = StatusExpired
			cp := *rec
			swept = append(swept, &cp)
		}
	}
	return swept, nil
}

func (s *fakeStore) status(id uuid.UUID) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id].Status
}

type fakeItems struct {
	items map[int64]*item.Item
}

func (f *fakeItems) FindByIDs(ctx context.Context, ids []int64) ([]*item.Item, error) {
	var out []*item.Item
	for _, id := range ids {
		if it, ok := f.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeItems) ListByHouse(ctx context.Context, houseID int64) ([]*item.Item, error) {
	var out []*item.Item
	for _, it := range f.items {
		if it.HouseID == houseID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeItems) BulkSetMemberPaidTx(ctx context.Context, tx *sql.Tx, itemIDs, userIDs []int64) (int64, error) {
	var n int64
	for _, itemID := range itemIDs {
		it, ok := f.items[itemID]
		if !ok {
			continue
		}
		for _, m := range it.Members {
			for _, userID := range userIDs {
				if m.UserID == userID && !m.Paid {
					m.Paid = true
					n++
				}
			}
		}
	}
	return n, nil
}

type fakeLedger struct {
	entries   []*ledger.Entry
	createErr error
}

func (f *fakeLedger) CreateTx(ctx context.Context, tx *sql.Tx, entry *ledger.Entry) error {
	if f.createErr != nil {
		return f.createErr
	}
	entry.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, entry)
	return nil
}

type fakeDirectory struct {
	users map[int64]*house.User
}

func (f *fakeDirectory) GetUser(ctx context.Context, id int64) (*house.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, house.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeDirectory) SameHouse(ctx context.Context, userID, otherID int64) (*house.User, *house.User, error) {
	a, err := f.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	b, err := f.GetUser(ctx, otherID)
	if err != nil {
		return nil, nil, err
	}
	if a.HouseID != b.HouseID {
		return nil, nil, house.ErrDifferentHouse
	}
	return a, b, nil
}

// rollbackTxRunner gives the fakes transaction semantics: state is
// snapshotted before the closure and restored when it fails, so a partial
// accept can never leave a paid flag or ledger entry behind.
type rollbackTxRunner struct {
	store  *fakeStore
	items  *fakeItems
	ledger *fakeLedger
}

func (r rollbackTxRunner) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	statuses := make(map[uuid.UUID]Status, len(r.store.records))
	r.store.mu.Lock()
	for id, rec := range r.store.records {
		statuses[id] = rec.Status
	}
	r.store.mu.Unlock()

	paid := make(map[int64][]bool, len(r.items.items))
	for id, it := range r.items.items {
		flags := make([]bool, len(it.Members))
		for i, m := range it.Members {
			flags[i] = m.Paid
		}
		paid[id] = flags
	}
	entries := len(r.ledger.entries)

	err := fn(nil)
	if err == nil {
		return nil
	}

	r.store.mu.Lock()
	for id, status := range statuses {
		r.store.records[id].Status = status
	}
	r.store.mu.Unlock()
	for id, flags := range paid {
		for i, m := range r.items.items[id].Members {
			m.Paid = flags[i]
		}
	}
	r.ledger.entries = r.ledger.entries[:entries]
	return err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *fakePublisher) Publish(channel, event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, realtime.Event{Channel: channel, Name: event, Payload: payload})
}

func (p *fakePublisher) named(name string) []realtime.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []realtime.Event
	for _, e := range p.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	service   *Service
	store     *fakeStore
	items     *fakeItems
	ledger    *fakeLedger
	publisher *fakePublisher
	now       time.Time
}

const (
	userAlice = int64(1)
	userBob   = int64(2)
	userCarol = int64(3)
	userEve   = int64(9)
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     newFakeStore(),
		items:     &fakeItems{items: make(map[int64]*item.Item)},
		ledger:    &fakeLedger{},
		publisher: &fakePublisher{},
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	directory := &fakeDirectory{users: map[int64]*house.User{
		userAlice: {ID: userAlice, HouseID: 1, Username: "alice", HouseCode: "HSE123"},
		userBob:   {ID: userBob, HouseID: 1, Username: "bob", HouseCode: "HSE123"},
		userCarol: {ID: userCarol, HouseID: 1, Username: "carol", HouseCode: "HSE123"},
		userEve:   {ID: userEve, HouseID: 2, Username: "eve", HouseCode: "OTHER1"},
	}}
	runner := rollbackTxRunner{store: f.store, items: f.items, ledger: f.ledger}
	f.service = NewService(f.store, f.items, f.ledger, directory, runner, f.publisher, time.Minute)
	f.service.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) addItem(id, authorID int64, name string, price string, paid map[int64]bool) {
	members := make([]*item.Member, 0, len(paid))
	for userID, isPaid := range paid {
		members = append(members, &item.Member{ItemID: id, UserID: userID, Paid: isPaid})
	}
	f.items.items[id] = &item.Item{
		ID:       id,
		HouseID:  1,
		AuthorID: authorID,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Members:  members,
	}
}

func (f *fixture) memberPaid(itemID, userID int64) bool {
	for _, m := range f.items.items[itemID].Members {
		if m.UserID == userID {
			return m.Paid
		}
	}
	return false
}

func TestCreatePaymentApproval(t *testing.T) {
	f := newFixture(t)
	f.addItem(10, userBob, "Groceries", "40.00", map[int64]bool{userAlice: false, userBob: true})

	rec, err := f.service.Create(context.Background(), userAlice, userBob, KindPaymentApproval, []int64{10})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, rec.Status)
	assert.Equal(t, KindPaymentApproval, rec.Kind)
	assert.Equal(t, []int64{10}, rec.ItemIDs)
	assert.Equal(t, f.now.Add(time.Minute), rec.ExpiresAt)

	events := f.publisher.named(realtime.EventRequest)
	require.Len(t, events, 2)
	assert.Equal(t, realtime.UserChannel("payment-approval", userAlice), events[0].Channel)
	assert.Equal(t, realtime.UserChannel("payment-approval", userBob), events[1].Channel)
}

func TestCreateSettlementIgnoresItems(t *testing.T) {
	f := newFixture(t)

	rec, err := f.service.Create(context.Background(), userAlice, userBob, KindSettlement, []int64{10, 11})
	require.NoError(t, err)
	assert.Empty(t, rec.ItemIDs)
}

func TestCreateRejectsSelf(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), userAlice, userAlice, KindSettlement, nil)
	assert.ErrorIs(t, err, ErrSelfNegotiation)
}

func TestCreateRejectsDifferentHouse(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), userAlice, userEve, KindSettlement, nil)
	assert.ErrorIs(t, err, house.ErrDifferentHouse)
}

func TestCreatePaymentApprovalValidation(t *testing.T) {
	f := newFixture(t)
	f.addItem(10, userAlice, "Rent", "100.00", map[int64]bool{userAlice: true, userBob: false})

	_, err := f.service.Create(context.Background(), userAlice, userBob, KindPaymentApproval, nil)
	assert.ErrorIs(t, err, ErrNoItems)

	// Item authored by the requester, not the recipient.
	_, err = f.service.Create(context.Background(), userAlice, userBob, KindPaymentApproval, []int64{10})
	assert.ErrorIs(t, err, ErrNotItemAuthor)

	_, err = f.service.Create(context.Background(), userAlice, userBob, KindPaymentApproval, []int64{404})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateConflictSamePair(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), userAlice, userBob, KindSettlement, nil)
	require.NoError(t, err)

	// Same pair, either direction, while the first is still pending.
	_, err = f.service.Create(context.Background(), userBob, userAlice, KindSettlement, nil)
	assert.ErrorIs(t, err, ErrAlreadyPending)
}

func TestRespondAcceptSettlement(t *testing.T) {
	f := newFixture(t)
	// Alice authored rent 100 split with Bob, Bob authored utilities 40
	// split with Alice. Bob's net position: owes 50, is owed 20.
	f.addItem(10, userAlice, "Rent", "100.00", map[int64]bool{userAlice: true, userBob: false})
	f.addItem(11, userBob, "Utilities", "40.00", map[int64]bool{userAlice: false, userBob: true})

	rec, err := f.service.Create(context.Background(), userAlice, userBob, KindSettlement, nil)
	require.NoError(t, err)

	result, err := f.service.Respond(context.Background(), rec.ID, userBob, true, nil)
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, StatusApproved, f.store.status(rec.ID))

	require.Len(t, f.ledger.entries, 1)
	entry := f.ledger.entries[0]
	assert.Equal(t, ledger.EntryKindSettlement, entry.Kind)
	assert.Equal(t, userBob, entry.FromUserID)
	assert.Equal(t, userAlice, entry.ToUserID)
	assert.True(t, entry.Amount.Equal(decimal.RequireFromString("30.00")), "amount %s", entry.Amount)
	assert.True(t, entry.TheyOwe.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, entry.YouOwe.Equal(decimal.RequireFromString("50.00")))
	require.Len(t, entry.Items, 2)

	// Both directions cleared.
	assert.True(t, f.memberPaid(10, userBob))
	assert.True(t, f.memberPaid(11, userAlice))

	approved := f.publisher.named(realtime.EventApproved)
	require.Len(t, approved, 2)
	refresh := f.publisher.named(realtime.EventFetchUpdate)
	require.Len(t, refresh, 1)
	assert.Equal(t, realtime.HouseChannel("HSE123"), refresh[0].Channel)
}

func TestRespondAcceptPaymentApproval(t *testing.T) {
	f := newFixture(t)
	f.addItem(10, userBob, "Groceries", "40.00", map[int64]bool{userAlice: false, userBob: true})

	rec, err := f.service.Create(context.Background(), userAlice, userBob, KindPaymentApproval, []int64{10})
	require.NoError(t, err)

	result, err := f.service.Respond(context.Background(), rec.ID, userBob, true, nil)
	require.NoError(t, err)
	assert.True(t, result.Processed)

	require.Len(t, f.ledger.entries, 1)
	entry := f.ledger.entries[0]
	assert.Equal(t, ledger.EntryKindSingle, entry.Kind)
	assert.Equal(t, userAlice, entry.FromUserID)
	assert.Equal(t, userBob, entry.ToUserID)
	assert.True(t, entry.Amount.Equal(decimal.RequireFromString("20.00")), "amount %s", entry.Amount)

	// Only the requester's share clears.
	assert.True(t, f.memberPaid(10, userAlice))
}

func TestRespondAcceptNothingToResolve(t *testing.T) {
	f := newFixture(t)
	// Every bilateral share already paid.
	f.addItem(10, userAlice, "Rent", "100.00", map[int64]bool{userAlice: true, userBob: true})

	rec, err := f.service.Create(context.Background(), userAlice, userBob, KindSettlement, nil)
	require.NoError(t, err)

	result, err := f.service.Respond(context.Background(), rec.ID, userBob, true, nil)
	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Nil(t, result.Entry)
	assert.Equal(t, StatusApproved, f.store.status(rec.ID))
	assert.Empty(t, f.ledger.entries)
}

func TestRespondAcceptExplicitListOutsidePair(t *testing.T) {
	f := newFixture(t)
	f.addItem(10, userAlice, "Rent", "100.00", map[int64]bool{userAlice: true, userBob: false})
	// Carol's item has Alice unpaid but is not part of the Alice/Bob pair.
	f.addItem(11, userCarol, "Internet", "80.00", map[int64]bool{userAlice: false, userCarol: true})

	rec, err := f.service.Create(context.Background(), userAlice, userBob, KindSettlement, nil)
	require.NoError(t, err)

	result, err := f.service.Respond(context.Background(), rec.ID, userBob, true, []int64{10, 11})
	require.NoError(t, err)
	assert.True(t, result.Processed)

	require.Len(t, f.ledger.entries, 1)
	entry := f.ledger.entries[0]
	require.Len(t, entry.Items, 1)
	assert.Equal(t, int64(10), entry.Items[0].ItemID)
	assert.True(t, entry.Amount.Equal(decimal.RequireFromString("50.00")), "amount %s", entry.Amount)

	// Carol's receivable survives the Alice/Bob settlement untouched.
	assert.False(t, f.memberPaid(11, userAlice))
	assert.True(t, f.memberPaid(10, userBob))
}

func TestRespondAcceptExplicitListNotRecipientAuthored(t *testing.T) {
	f := newFixture(t)
	f.addItem(10, userBob, "Groceries", "40.00", map[int64]bool{userAlice: false, userBob: true})
	f.addItem(11, userCarol, "Internet", "80.00", map[int64]bool{userAlice: false, userCarol: true})

	rec, err := f.service.Create(context.Background(), userAlice, userBob, KindPaymentApproval, []int64{10})
	require.NoError(t, err)

	// The response list cannot widen the approval to items the recipient
	// never authored.
	result, err := f.service.Respond(context.Background(), rec.ID, userBob, true, []int64{10, 11})
	require.NoError(t, err)
	assert.True(t, result.Processed)

	require.Len(t, f.ledger.entries, 1)
	require.Len(t, f.ledger.entries[0].Items, 1)
	assert.Equal(t, int64(10), f.ledger.entries[0].Items[0].ItemID)
	assert.True(t, f.memberPaid(10, userAlice))
	assert.False(t, f.memberPaid(11, userAlice))
}

func TestRespondAcceptExplicitListAlreadyPaid(t *testing.T) {
	f := newFixture(t)
	f.addItem(10, userAlice, "Rent", "100.00", map[int64]bool{userAlice: true, userBob: true})

	rec, err := f.service.Create(context.Background(), userAlice, userBob, KindSettlement, nil)
	require.NoError(t, err)

	// Naming a fully paid item resolves nothing and must not mint a
	// zero-amount ledger entry.
	result, err := f.service.Respond(context.Background(), rec.ID, userBob, true, []int64{10})
	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Nil(t, result.Entry)
	assert.Empty(t, f.ledger.entries)
	assert.Equal(t, StatusApproved, f.store.status(rec.ID))
}

func TestRespondAcceptRollsBackOnLedgerFailure(t *testing.T) {
	f := newFixture(t)
	f.addItem(10, userAlice, "Rent", "100.00", map[int64]bool{userAlice: true, userBob: false})

	rec, err := f.service.Create(context.Background(), userAlice, userBob, KindSettlement, nil)
	require.NoError(t, err)

	f.ledger.createErr = errors.New("insert failed")
	_, err = f.service.Respond(context.Background(), rec.ID, userBob, true, nil)
	require.Error(t, err)

	// The failed transaction leaves no partial state: the record is still
	// pending and no paid flag stuck.
	assert.Equal(t, StatusPending, f.store.status(rec.ID))
	assert.False(t, f.memberPaid(10, userBob))
	assert.Empty(t, f.ledger.entries)

	// Once the ledger recovers the same record accepts cleanly.
	f.ledger.createErr = nil
	result, err := f.service.Respond(context.Background(), rec.ID, userBob, true, nil)
	require.NoError(t, err)
	assert.True(t, result.Processed)
	require.Len(t, f.ledger.entries, 1)
	assert.True(t, f.memberPaid(10, userBob))
}

func TestRespondDecline(t *testing.T) {
	f := newFixture(t)
	f.addItem(10, userBob, "Groceries", "40.00", map[int64]bool{userAlice: false, userBob: true})

	rec, err := f.service.Create(context.Background(), userAlice, userBob, KindPaymentApproval, []int64{10})
	require.NoError(t, err)

	result, err := f.service.Respond(context.Background(), rec.ID, userBob, false, nil)
	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Equal(t, StatusDeclined, f.store.status(rec.ID))

	// Declining has no ledger or paid-flag effect.
	assert.Empty(t, f.ledger.entries)
	assert.False(t, f.memberPaid(10, userAlice))
	require.Len(t, f.publisher.named(realtime.EventDeclined), 2)
}

func TestRespondOnlyRecipient(t *testing.T) {
	f := newFixture(t)

	rec, err := f.service.Create(context.Background(), userAlice, userBob, KindSettlement, nil)
	require.NoError(t, err)

	_, err = f.service.Respond(context.Background(), rec.ID, userAlice, true, nil)
	assert.ErrorIs(t, err, ErrNotRecipient)
}

func TestRespondTerminalIsFinal(t *testing.T) {
	f := newFixture(t)
	f.addItem(10, userAlice, "Rent", "100.00", map[int64]bool{userAlice: true, userBob: false})

	rec, err := f.service.Create(context.Background(), userAlice, userBob, KindSettlement, nil)
	require.NoError(t, err)

	_, err = f.service.Respond(context.Background(), rec.ID, userBob, true, nil)
	require.NoError(t, err)

	// A second response loses the claim and must not double-settle.
	_, err = f.service.Respond(context.Background(), rec.ID, userBob, true, nil)
	assert.ErrorIs(t, err, ErrNotPending)
	assert.Len(t, f.ledger.entries, 1)
}

func TestRespondExpired(t *testing.T) {
	f := newFixture(t)

	rec, err := f.service.Create(context.Background(), userAlice, userBob, KindSettlement, nil)
	require.NoError(t, err)

	f.now = f.now.Add(2 * time.Minute)

	_, err = f.service.Respond(context.Background(), rec.ID, userBob, true, nil)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, StatusExpired, f.store.status(rec.ID))
	assert.Empty(t, f.ledger.entries)
}

func TestRespondUnknownRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Respond(context.Background(), uuid.New(), userBob, true, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)

	rec, err := f.service.Create(context.Background(), userAlice, userBob, KindSettlement, nil)
	require.NoError(t, err)

	_, err = f.service.Cancel(context.Background(), rec.ID, userBob)
	assert.ErrorIs(t, err, ErrNotRequester)

	cancelled, err := f.service.Cancel(context.Background(), rec.ID, userAlice)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	// A cancelled pair can open a fresh request.
	_, err = f.service.Create(context.Background(), userBob, userAlice, KindSettlement, nil)
	require.NoError(t, err)
}

func TestCancelAfterResolve(t *testing.T) {
	f := newFixture(t)

	rec, err := f.service.Create(context.Background(), userAlice, userBob, KindSettlement, nil)
	require.NoError(t, err)

	_, err = f.service.Respond(context.Background(), rec.ID, userBob, false, nil)
	require.NoError(t, err)

	_, err = f.service.Cancel(context.Background(), rec.ID, userAlice)
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestListPendingFiltersKindAndExpiry(t *testing.T) {
	f := newFixture(t)
	f.addItem(10, userBob, "Groceries", "40.00", map[int64]bool{userAlice: false, userBob: true})

	settlement, err := f.service.Create(context.Background(), userAlice, userBob, KindSettlement, nil)
	require.NoError(t, err)
	_, err = f.service.Create(context.Background(), userAlice, userBob, KindPaymentApproval, []int64{10})
	require.NoError(t, err)

	records, err := f.service.ListPending(context.Background(), userBob, KindSettlement)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, settlement.ID, records[0].ID)

	// Past the deadline nothing surfaces, swept or not.
	f.now = f.now.Add(2 * time.Minute)
	records, err = f.service.ListPending(context.Background(), userBob, KindSettlement)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExpireDue(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), userAlice, userBob, KindSettlement, nil)
	require.NoError(t, err)

	n, err := f.service.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	f.now = f.now.Add(2 * time.Minute)
	n, err = f.service.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, f.publisher.named(realtime.EventCancelled), 2)

	// The pair is free again once the stale request is swept.
	_, err = f.service.Create(context.Background(), userAlice, userBob, KindSettlement, nil)
	require.NoError(t, err)
}
