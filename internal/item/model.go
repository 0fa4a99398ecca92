package item

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/housetab/housetab/internal/balance"
)

// Item represents a shared expense line item. The author is the user who is
// owed the money; each member owes an even share while their paid flag is
// false.
type Item struct {
	ID        int64           `json:"id"`
	HouseID   int64           `json:"house_id"`
	AuthorID  int64           `json:"author_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`

	// Populated via JOIN
	AuthorUsername string `json:"author_username,omitempty"`

	Members []*Member `json:"members"`
}

// Member represents one user's share of an item.
type Member struct {
	ItemID int64 `json:"item_id"`
	UserID int64 `json:"user_id"`
	Paid   bool  `json:"paid"`

	// Populated via JOIN
	Username string `json:"username,omitempty"`
}

// Share returns the per-member share of this item.
func (i *Item) Share() decimal.Decimal {
	return i.ToBalanceItem().Share()
}

// ToBalanceItem converts to the balance package's input type.
func (i *Item) ToBalanceItem() balance.Item {
	members := make([]balance.MemberShare, len(i.Members))
	for idx, m := range i.Members {
		members[idx] = balance.MemberShare{UserID: m.UserID, Paid: m.Paid}
	}
	return balance.Item{
		ID:       i.ID,
		Name:     i.Name,
		AuthorID: i.AuthorID,
		Price:    i.Price,
		Members:  members,
	}
}

// ToBalanceItems converts a slice of items for the balance calculator.
func ToBalanceItems(items []*Item) []balance.Item {
	out := make([]balance.Item, len(items))
	for i, it := range items {
		out[i] = it.ToBalanceItem()
	}
	return out
}
