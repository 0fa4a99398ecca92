package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind distinguishes how a payment came about.
type EntryKind string

const (
	// EntryKindSettlement is a full bilateral settle-up.
	EntryKindSettlement EntryKind = "settlement"
	// EntryKindSingle is an approved payment for one item.
	EntryKindSingle EntryKind = "single"
	// EntryKindBulk is an approved payment covering several items.
	EntryKindBulk EntryKind = "bulk"
)

// ItemDirection records which side of the pair an audited item share sat on,
// from the payer's perspective.
type ItemDirection string

const (
	DirectionTheyOwe ItemDirection = "they-owe"
	DirectionYouOwe  ItemDirection = "you-owe"
)

// Entry is the durable financial record created when a negotiation is
// accepted. Append-only: never mutated, deleted only by explicit purge.
type Entry struct {
	ID            int64           `json:"id"`
	HouseID       int64           `json:"house_id"`
	Kind          EntryKind       `json:"kind"`
	FromUserID    int64           `json:"from_user_id"` // payer
	ToUserID      int64           `json:"to_user_id"`   // payee
	Amount        decimal.Decimal `json:"amount"`
	NegotiationID *uuid.UUID      `json:"negotiation_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`

	// Settlement snapshot from the payer's perspective, for audit/display.
	TheyOwe decimal.Decimal `json:"they_owe"`
	YouOwe  decimal.Decimal `json:"you_owe"`
	Net     decimal.Decimal `json:"net"`

	Items []*EntryItem `json:"items,omitempty"`

	// Populated via JOIN
	FromUsername string `json:"from_username,omitempty"`
	ToUsername   string `json:"to_username,omitempty"`
}

// EntryItem is a per-item audit line of a settled entry.
type EntryItem struct {
	ItemID    int64           `json:"item_id"`
	ItemName  string          `json:"item_name"`
	Share     decimal.Decimal `json:"share"`
	Direction ItemDirection   `json:"direction"`
}

// SettledItemIDs lists the line items this entry resolved.
func (e *Entry) SettledItemIDs() []int64 {
	ids := make([]int64, len(e.Items))
	for i, it := range e.Items {
		ids[i] = it.ItemID
	}
	return ids
}
