package negotiation

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/housetab/housetab/internal/balance"
	"github.com/housetab/housetab/internal/house"
	"github.com/housetab/housetab/internal/item"
	"github.com/housetab/housetab/internal/ledger"
	"github.com/housetab/housetab/internal/realtime"
	"github.com/housetab/housetab/pkg/metrics"
)

// Common errors
var (
	ErrNotFound         = errors.New("negotiation not found")
	ErrAlreadyPending   = errors.New("a pending request already exists with this user")
	ErrExpired          = errors.New("negotiation has expired")
	ErrNotPending       = errors.New("negotiation is no longer pending")
	ErrNotRecipient     = errors.New("only the recipient can respond")
	ErrNotRequester     = errors.New("only the requester can cancel")
	ErrSelfNegotiation  = errors.New("cannot negotiate with yourself")
	ErrNoItems          = errors.New("payment approval requires at least one item")
	ErrNotItemAuthor    = errors.New("every item must be authored by the recipient")
	ErrItemOutsideHouse = errors.New("item belongs to a different house")
)

// Store persists negotiation records.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	ListPendingForUser(ctx context.Context, userID int64, now time.Time) ([]*Record, error)
	Claim(ctx context.Context, id uuid.UUID, to Status, now time.Time) (bool, error)
	ClaimTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, to Status, now time.Time) (bool, error)
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)
	ExpireDue(ctx context.Context, now time.Time) ([]*Record, error)
}

// ItemStore gives the engine access to line items and their paid flags.
type ItemStore interface {
	FindByIDs(ctx context.Context, ids []int64) ([]*item.Item, error)
	ListByHouse(ctx context.Context, houseID int64) ([]*item.Item, error)
	BulkSetMemberPaidTx(ctx context.Context, tx *sql.Tx, itemIDs, userIDs []int64) (int64, error)
}

// LedgerStore appends payment records.
type LedgerStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, entry *ledger.Entry) error
}

// Directory resolves users for party validation.
type Directory interface {
	GetUser(ctx context.Context, id int64) (*house.User, error)
	SameHouse(ctx context.Context, userID, otherID int64) (*house.User, *house.User, error)
}

// TxRunner runs a function inside a database transaction. The accept path
// needs one transaction spanning the status claim, the paid-flag updates and
// the ledger insert, so a crash between steps can never leave items marked
// paid without a matching ledger entry.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// errClaimLost signals that the conditional status transition matched no
// row; the caller classifies why outside the transaction.
var errClaimLost = errors.New("claim lost")

// Service is the negotiation engine: the state machine governing a pairwise
// request from creation to its single terminal state, including the atomic
// ledger effect on acceptance.
type Service struct {
	store     Store
	items     ItemStore
	ledger    LedgerStore
	directory Directory
	tx        TxRunner
	publisher realtime.Publisher

	ttl time.Duration
	now func() time.Time
}

// NewService creates a new negotiation engine
func NewService(store Store, items ItemStore, ledgerStore LedgerStore, directory Directory, tx TxRunner, publisher realtime.Publisher, ttl time.Duration) *Service {
	return &Service{
		store:     store,
		items:     items,
		ledger:    ledgerStore,
		directory: directory,
		tx:        tx,
		publisher: publisher,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Create opens a new pending negotiation from one user to another. For
// payment approvals the item list is mandatory and every item must be
// authored by the recipient; for settlements the item set is derived at
// accept time instead.
func (s *Service) Create(ctx context.Context, fromUserID, toUserID int64, kind Kind, itemIDs []int64) (*Record, error) {
	if fromUserID == toUserID {
		return nil, ErrSelfNegotiation
	}

	from, _, err := s.directory.SameHouse(ctx, fromUserID, toUserID)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindPaymentApproval:
		if len(itemIDs) == 0 {
			return nil, ErrNoItems
		}
		items, err := s.items.FindByIDs(ctx, itemIDs)
		if err != nil {
			return nil, err
		}
		if len(items) != len(itemIDs) {
			return nil, ErrNotFound
		}
		for _, it := range items {
			if it.HouseID != from.HouseID {
				return nil, ErrItemOutsideHouse
			}
			if it.AuthorID != toUserID {
				return nil, ErrNotItemAuthor
			}
		}
	case KindSettlement:
		// The bilateral item set is resolved when the recipient accepts,
		// so a payment made in the meantime is never double-settled.
		itemIDs = nil
	}

	now := s.now()
	rec := &Record{
		ID:         uuid.New(),
		HouseID:    from.HouseID,
		HouseCode:  from.HouseCode,
		Kind:       kind,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Status:     StatusPending,
		ItemIDs:    itemIDs,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}

	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}

	metrics.NegotiationsCreated.WithLabelValues(string(kind)).Inc()
	s.publishToPair(rec, realtime.EventRequest, rec.toEventPayload())
	return rec, nil
}

// RespondResult reports what an accepted or declined negotiation did.
type RespondResult struct {
	Record *Record
	// Processed is false when acceptance found zero items left to resolve
	// (for example a direct payment raced the settlement).
	Processed bool
	Entry     *ledger.Entry
}

// Respond lets the recipient accept or decline a pending negotiation. On
// accept the resolved items' shares are marked paid and exactly one ledger
// entry is appended, all inside a single transaction gated by the atomic
// pending -> approved claim.
func (s *Service) Respond(ctx context.Context, requestID uuid.UUID, responderID int64, accept bool, explicitItemIDs []int64) (*RespondResult, error) {
	rec, err := s.store.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if rec.ToUserID != responderID {
		return nil, ErrNotRecipient
	}

	if !accept {
		claimed, err := s.store.Claim(ctx, requestID, StatusDeclined, s.now())
		if err != nil {
			return nil, err
		}
		if !claimed {
			return nil, s.classifyClaimLoss(ctx, requestID)
		}
		rec.Status = StatusDeclined
		metrics.NegotiationsResolved.WithLabelValues(string(rec.Kind), string(StatusDeclined)).Inc()
		s.publishToPair(rec, realtime.EventDeclined, rec.toEventPayload())
		return &RespondResult{Record: rec}, nil
	}

	var entry *ledger.Entry
	var processed bool
	err = s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		claimed, err := s.store.ClaimTx(ctx, tx, requestID, StatusApproved, s.now())
		if err != nil {
			return err
		}
		if !claimed {
			return errClaimLost
		}

		items, err := s.resolveItems(ctx, rec, explicitItemIDs)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			// Nothing left to resolve; the record still completes.
			return nil
		}

		itemIDs := make([]int64, len(items))
		for i, it := range items {
			itemIDs[i] = it.ID
		}
		clearUsers := []int64{rec.FromUserID}
		if rec.Kind == KindSettlement {
			// Both directions clear in the same statement.
			clearUsers = append(clearUsers, rec.ToUserID)
		}
		if _, err := s.items.BulkSetMemberPaidTx(ctx, tx, itemIDs, clearUsers); err != nil {
			return err
		}

		entry = s.buildEntry(rec, items)
		if err := s.ledger.CreateTx(ctx, tx, entry); err != nil {
			return err
		}
		processed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, errClaimLost) {
			return nil, s.classifyClaimLoss(ctx, requestID)
		}
		return nil, err
	}

	rec.Status = StatusApproved
	metrics.NegotiationsResolved.WithLabelValues(string(rec.Kind), string(StatusApproved)).Inc()
	if entry != nil {
		metrics.LedgerEntriesCreated.Inc()
	}

	payload := rec.toEventPayload()
	payload.Processed = &processed
	if entry != nil {
		payload.LedgerEntryID = &entry.ID
		ids := entry.SettledItemIDs()
		payload.ItemIDs = ids
	}
	s.publishToPair(rec, realtime.EventApproved, payload)
	s.publisher.Publish(realtime.HouseChannel(rec.HouseCode), realtime.EventFetchUpdate, nil)

	return &RespondResult{Record: rec, Processed: processed, Entry: entry}, nil
}

// Cancel lets the requester withdraw a pending negotiation. No ledger effect
// has occurred yet, so there is nothing to unwind.
func (s *Service) Cancel(ctx context.Context, requestID uuid.UUID, requesterID int64) (*Record, error) {
	rec, err := s.store.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if rec.FromUserID != requesterID {
		return nil, ErrNotRequester
	}

	claimed, err := s.store.Claim(ctx, requestID, StatusCancelled, s.now())
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, s.classifyClaimLoss(ctx, requestID)
	}

	rec.Status = StatusCancelled
	metrics.NegotiationsResolved.WithLabelValues(string(rec.Kind), string(StatusCancelled)).Inc()
	s.publishToPair(rec, realtime.EventCancelled, rec.toEventPayload())
	return rec, nil
}

// ListPending returns every live pending negotiation involving the user, in
// both directions, for the given kind. Records past their deadline never
// surface.
func (s *Service) ListPending(ctx context.Context, userID int64, kind Kind) ([]*Record, error) {
	records, err := s.store.ListPendingForUser(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	filtered := records[:0]
	for _, rec := range records {
		if rec.Kind == kind {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// ExpireDue sweeps pending records past their deadline and notifies both
// parties. Run periodically by the reaper.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	swept, err := s.store.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, rec := range swept {
		metrics.NegotiationsResolved.WithLabelValues(string(rec.Kind), string(StatusExpired)).Inc()
		s.publishToPair(rec, realtime.EventCancelled, rec.toEventPayload())
	}
	return len(swept), nil
}

// resolveItems determines exactly which items the acceptance touches: the
// explicit list when given, the record's own list for payment approvals,
// else the whole house pool. Every candidate set is filtered down to items
// the pair may actually settle, so a responder-supplied list can never clear
// shares outside the record's house, outside the bilateral pair, or already
// paid on the relevant side.
func (s *Service) resolveItems(ctx context.Context, rec *Record, explicitItemIDs []int64) ([]*item.Item, error) {
	ids := explicitItemIDs
	if len(ids) == 0 {
		ids = rec.ItemIDs
	}

	var candidates []*item.Item
	var err error
	if len(ids) > 0 {
		candidates, err = s.items.FindByIDs(ctx, ids)
	} else {
		candidates, err = s.items.ListByHouse(ctx, rec.HouseID)
	}
	if err != nil {
		return nil, err
	}

	var inHouse []*item.Item
	for _, it := range candidates {
		if it.HouseID == rec.HouseID {
			inHouse = append(inHouse, it)
		}
	}

	if rec.Kind == KindPaymentApproval {
		// Only the requester's unpaid share of recipient-authored items
		// clears, mirroring the create-time authorship check.
		var resolved []*item.Item
		for _, it := range inHouse {
			if it.AuthorID == rec.ToUserID && unpaidMember(it, rec.FromUserID) {
				resolved = append(resolved, it)
			}
		}
		return resolved, nil
	}

	bilateral := balance.BilateralItems(rec.FromUserID, rec.ToUserID, item.ToBalanceItems(inHouse))
	inSet := make(map[int64]bool, len(bilateral))
	for _, it := range bilateral {
		inSet[it.ID] = true
	}
	var resolved []*item.Item
	for _, it := range inHouse {
		if inSet[it.ID] {
			resolved = append(resolved, it)
		}
	}
	return resolved, nil
}

func unpaidMember(it *item.Item, userID int64) bool {
	for _, m := range it.Members {
		if m.UserID == userID {
			return !m.Paid
		}
	}
	return false
}

// buildEntry computes the settlement snapshot from the payer's perspective
// and assembles the ledger entry for the resolved items.
func (s *Service) buildEntry(rec *Record, items []*item.Item) *ledger.Entry {
	pair := balance.Bilateral(rec.FromUserID, rec.ToUserID, item.ToBalanceItems(items))

	// pair.Total is positive when the recipient owes the requester; the
	// payer is whichever side the net points away from.
	payerID, payeeID := rec.FromUserID, rec.ToUserID
	if pair.Total.IsPositive() {
		payerID, payeeID = rec.ToUserID, rec.FromUserID
	}

	var kind ledger.EntryKind
	switch {
	case rec.Kind == KindSettlement:
		kind = ledger.EntryKindSettlement
	case len(items) == 1:
		kind = ledger.EntryKindSingle
	default:
		kind = ledger.EntryKindBulk
	}

	// Snapshot from the payer's perspective.
	theyOwe, youOwe := pair.TheyOwe, pair.YouOwe
	if payerID != rec.FromUserID {
		theyOwe, youOwe = youOwe, theyOwe
	}

	negID := rec.ID
	entry := &ledger.Entry{
		HouseID:       rec.HouseID,
		Kind:          kind,
		FromUserID:    payerID,
		ToUserID:      payeeID,
		Amount:        balance.RoundCurrency(pair.Total.Abs()),
		NegotiationID: &negID,
		TheyOwe:       balance.RoundCurrency(theyOwe),
		YouOwe:        balance.RoundCurrency(youOwe),
		Net:           balance.RoundCurrency(theyOwe.Sub(youOwe)),
	}

	for _, it := range items {
		share := balance.RoundCurrency(it.Share())
		direction := ledger.DirectionTheyOwe
		if it.AuthorID != payerID {
			direction = ledger.DirectionYouOwe
		}
		entry.Items = append(entry.Items, &ledger.EntryItem{
			ItemID:    it.ID,
			ItemName:  it.Name,
			Share:     share,
			Direction: direction,
		})
	}
	return entry
}

// classifyClaimLoss explains a failed conditional transition: the record is
// gone, already terminal, or pending but past its deadline. An expired
// pending record is flipped to expired on the spot rather than waiting for
// the reaper.
func (s *Service) classifyClaimLoss(ctx context.Context, requestID uuid.UUID) error {
	rec, err := s.store.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrNotFound
	}
	if rec.Status.Terminal() {
		return ErrNotPending
	}
	if rec.ExpiredAt(s.now()) {
		if flipped, err := s.store.MarkExpired(ctx, requestID); err == nil && flipped {
			metrics.NegotiationsResolved.WithLabelValues(string(rec.Kind), string(StatusExpired)).Inc()
			s.publishToPair(rec, realtime.EventCancelled, rec.toEventPayload())
		}
		slog.Warn("negotiation expired at action time",
			"request_id", requestID, "kind", rec.Kind)
		return ErrExpired
	}
	return ErrNotPending
}

// publishToPair sends a lifecycle event to both parties' private channels.
// Delivery is fire-and-forget: a lost event degrades UX only, clients also
// poll pending requests.
func (s *Service) publishToPair(rec *Record, event string, payload interface{}) {
	kind := string(rec.Kind)
	s.publisher.Publish(realtime.UserChannel(kind, rec.FromUserID), event, payload)
	s.publisher.Publish(realtime.UserChannel(kind, rec.ToUserID), event, payload)
}
