package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/housetab/housetab/internal/balance"
	"github.com/housetab/housetab/internal/house"
	"github.com/housetab/housetab/internal/realtime"
)

// Common errors
var (
	ErrItemNotFound   = errors.New("item not found")
	ErrNotAuthor      = errors.New("only the author can edit this item")
	ErrNotMember      = errors.New("not a member of this item")
	ErrAlreadyPaid    = errors.New("share already paid")
	ErrAuthorPaysSelf = errors.New("the author does not owe their own item")
)

// Service handles item business logic
type Service struct {
	repo      *Repository
	houses    *house.Service
	publisher realtime.Publisher
}

// NewService creates a new item service
func NewService(repo *Repository, houses *house.Service, publisher realtime.Publisher) *Service {
	return &Service{repo: repo, houses: houses, publisher: publisher}
}

// Create creates a new item authored by the given user
func (s *Service) Create(ctx context.Context, authorID int64, req *CreateItemRequest) (*Item, error) {
	author, err := s.houses.GetUser(ctx, authorID)
	if err != nil {
		return nil, err
	}

	price := decimal.NewFromFloat(req.Price)
	item, err := s.repo.Create(ctx, author.HouseID, authorID, req.Name, price, req.MemberIDs)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(realtime.HouseChannel(author.HouseCode), realtime.EventFetchUpdate, nil)
	return item, nil
}

// GetByID retrieves an item
func (s *Service) GetByID(ctx context.Context, id int64) (*Item, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// ListForUser retrieves all items of the user's house
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]*Item, error) {
	user, err := s.houses.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByHouse(ctx, user.HouseID)
}

// Update edits an item. Only the author may edit.
func (s *Service) Update(ctx context.Context, id, userID int64, req *UpdateItemRequest) (*Item, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.AuthorID != userID {
		return nil, ErrNotAuthor
	}

	var price *decimal.Decimal
	if req.Price != nil {
		p := decimal.NewFromFloat(*req.Price)
		price = &p
	}
	if err := s.repo.Update(ctx, id, req.Name, price, req.MemberIDs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	s.publishHouseRefresh(ctx, userID)
	return s.GetByID(ctx, id)
}

// Delete removes an item. Only the author may delete.
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item.AuthorID != userID {
		return ErrNotAuthor
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrItemNotFound
		}
		return err
	}

	s.publishHouseRefresh(ctx, userID)
	return nil
}

// PayShare lets a member settle their own share of one item directly,
// outside any negotiation.
func (s *Service) PayShare(ctx context.Context, itemID, userID int64) (*Item, error) {
	item, err := s.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.AuthorID == userID {
		return nil, ErrAuthorPaysSelf
	}

	var member *Member
	for _, m := range item.Members {
		if m.UserID == userID {
			member = m
			break
		}
	}
	if member == nil {
		return nil, ErrNotMember
	}
	if member.Paid {
		return nil, ErrAlreadyPaid
	}

	flipped, err := s.repo.SetMemberPaid(ctx, itemID, userID)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, ErrAlreadyPaid
	}

	s.publishHouseRefresh(ctx, userID)
	return s.GetByID(ctx, itemID)
}

// Balances computes the netted per-member balances and totals for the user.
func (s *Service) Balances(ctx context.Context, userID int64) (*BalanceSummaryResponse, error) {
	user, err := s.houses.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListByHouse(ctx, user.HouseID)
	if err != nil {
		return nil, err
	}
	roster, err := s.houses.Roster(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := balance.ForUser(userID, ToBalanceItems(items))

	resp := &BalanceSummaryResponse{
		TotalOwed:  balance.RoundCurrency(summary.TotalOwed).InexactFloat64(),
		TotalOwing: balance.RoundCurrency(summary.TotalOwing).InexactFloat64(),
		Net:        balance.RoundCurrency(summary.Net).InexactFloat64(),
	}
	for _, m := range roster {
		amount, ok := summary.NetPerMember[m.ID]
		if !ok || amount.IsZero() {
			continue
		}
		rounded := balance.RoundCurrency(amount)
		var message string
		if rounded.IsPositive() {
			message = fmt.Sprintf("%s owes you $%s", m.Username, rounded.StringFixed(2))
		} else {
			message = fmt.Sprintf("You owe %s $%s", m.Username, rounded.Neg().StringFixed(2))
		}
		resp.Members = append(resp.Members, &MemberBalanceResponse{
			UserID:   m.ID,
			Username: m.Username,
			Amount:   rounded.InexactFloat64(),
			Message:  message,
		})
	}
	return resp, nil
}

// BalanceWith computes the gross bilateral breakdown against one
// counterparty, including the item set a settlement would touch.
func (s *Service) BalanceWith(ctx context.Context, userID, otherID int64) (*BilateralBalanceResponse, error) {
	user, other, err := s.houses.SameHouse(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListByHouse(ctx, user.HouseID)
	if err != nil {
		return nil, err
	}

	balanceItems := ToBalanceItems(items)
	pair := balance.Bilateral(userID, otherID, balanceItems)
	bilateral := balance.BilateralItems(userID, otherID, balanceItems)

	inSet := make(map[int64]bool, len(bilateral))
	for _, it := range bilateral {
		inSet[it.ID] = true
	}

	resp := &BilateralBalanceResponse{
		UserID:   other.ID,
		Username: other.Username,
		TheyOwe:  balance.RoundCurrency(pair.TheyOwe).InexactFloat64(),
		YouOwe:   balance.RoundCurrency(pair.YouOwe).InexactFloat64(),
		Total:    balance.RoundCurrency(pair.Total).InexactFloat64(),
	}
	for _, it := range items {
		if inSet[it.ID] {
			resp.Items = append(resp.Items, it.ToResponse())
		}
	}
	return resp, nil
}

func (s *Service) publishHouseRefresh(ctx context.Context, userID int64) {
	user, err := s.houses.GetUser(ctx, userID)
	if err != nil {
		return
	}
	s.publisher.Publish(realtime.HouseChannel(user.HouseCode), realtime.EventFetchUpdate, nil)
}
