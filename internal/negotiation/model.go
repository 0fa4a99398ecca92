package negotiation

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the two pairwise request flavors.
type Kind string

const (
	// KindPaymentApproval asks the recipient to approve the requester
	// paying off specific items the recipient authored.
	KindPaymentApproval Kind = "payment-approval"
	// KindSettlement asks the recipient to settle everything between the
	// pair in one move.
	KindSettlement Kind = "settlement"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindPaymentApproval || k == KindSettlement
}

// Status is the negotiation state machine. A record starts pending and
// reaches exactly one terminal state; terminal states are final.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Terminal reports whether the status permits no further transition.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Record is a single pairwise negotiation request.
type Record struct {
	ID         uuid.UUID `json:"id"`
	HouseID    int64     `json:"house_id"`
	Kind       Kind      `json:"kind"`
	FromUserID int64     `json:"from_user_id"`
	ToUserID   int64     `json:"to_user_id"`
	Status     Status    `json:"status"`
	ItemIDs    []int64   `json:"item_ids"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`

	// Populated via JOIN
	HouseCode string `json:"house_code,omitempty"`
}

// ExpiredAt reports whether the record's deadline has passed at the given
// instant. A pending record past its deadline is treated as expired on every
// read, whether or not the reaper has swept it yet.
func (r *Record) ExpiredAt(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Counterparty returns the other party of the pair from the given user's
// point of view.
func (r *Record) Counterparty(userID int64) int64 {
	if r.FromUserID == userID {
		return r.ToUserID
	}
	return r.FromUserID
}
