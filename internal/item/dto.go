package item

import "github.com/housetab/housetab/internal/balance"

// CreateItemRequest represents the request body for creating an item
type CreateItemRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=200"`
	Price     float64 `json:"price" validate:"required,gt=0"`
	MemberIDs []int64 `json:"member_ids" validate:"required,min=1"`
}

// UpdateItemRequest represents the request body for editing an item
type UpdateItemRequest struct {
	Name      *string  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Price     *float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
	MemberIDs []int64  `json:"member_ids,omitempty" validate:"omitempty,min=1"`
}

// MemberShareResponse represents one member's share of an item
type MemberShareResponse struct {
	UserID   int64   `json:"user_id"`
	Username string  `json:"username,omitempty"`
	Paid     bool    `json:"paid"`
	Share    float64 `json:"share"`
}

// ItemResponse represents the response for a single item
type ItemResponse struct {
	ID             int64                  `json:"id"`
	AuthorID       int64                  `json:"author_id"`
	AuthorUsername string                 `json:"author_username,omitempty"`
	Name           string                 `json:"name"`
	Price          float64                `json:"price"`
	Members        []*MemberShareResponse `json:"members"`
	CreatedAt      string                 `json:"created_at"`
}

// MemberBalanceResponse represents the netted balance with one counterparty
type MemberBalanceResponse struct {
	UserID   int64   `json:"user_id"`
	Username string  `json:"username,omitempty"`
	Amount   float64 `json:"amount"` // Positive = they owe you, negative = you owe them
	Message  string  `json:"message"`
}

// BalanceSummaryResponse represents the user's balances across the house
type BalanceSummaryResponse struct {
	Members    []*MemberBalanceResponse `json:"members"`
	TotalOwed  float64                  `json:"total_owed"`
	TotalOwing float64                  `json:"total_owing"`
	Net        float64                  `json:"net"`
}

// BilateralBalanceResponse is the gross breakdown against one counterparty
// plus the items a settlement between the pair would touch
type BilateralBalanceResponse struct {
	UserID   int64           `json:"user_id"`
	Username string          `json:"username,omitempty"`
	TheyOwe  float64         `json:"they_owe"`
	YouOwe   float64         `json:"you_owe"`
	Total    float64         `json:"total"`
	Items    []*ItemResponse `json:"items"`
}

// ToResponse converts an Item model to an ItemResponse DTO
func (i *Item) ToResponse() *ItemResponse {
	share := balance.RoundCurrency(i.Share()).InexactFloat64()
	members := make([]*MemberShareResponse, len(i.Members))
	for idx, m := range i.Members {
		members[idx] = &MemberShareResponse{
			UserID:   m.UserID,
			Username: m.Username,
			Paid:     m.Paid,
			Share:    share,
		}
	}
	return &ItemResponse{
		ID:             i.ID,
		AuthorID:       i.AuthorID,
		AuthorUsername: i.AuthorUsername,
		Name:           i.Name,
		Price:          i.Price.InexactFloat64(),
		Members:        members,
		CreatedAt:      i.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
