package ledger

// EntryItemResponse represents one audited item share of a payment
type EntryItemResponse struct {
	ItemID    int64   `json:"item_id"`
	ItemName  string  `json:"item_name"`
	Share     float64 `json:"share"`
	Direction string  `json:"direction"`
}

// EntryResponse represents the response for a payment record
type EntryResponse struct {
	ID             int64                `json:"id"`
	Kind           string               `json:"kind"`
	FromUserID     int64                `json:"from_user_id"`
	FromUsername   string               `json:"from_username,omitempty"`
	ToUserID       int64                `json:"to_user_id"`
	ToUsername     string               `json:"to_username,omitempty"`
	Amount         float64              `json:"amount"`
	TheyOwe        float64              `json:"they_owe"`
	YouOwe         float64              `json:"you_owe"`
	Net            float64              `json:"net"`
	SettledItemIDs []int64              `json:"settled_item_ids"`
	Items          []*EntryItemResponse `json:"items,omitempty"`
	CreatedAt      string               `json:"created_at"`
}

// ToResponse converts an Entry model to an EntryResponse DTO
func (e *Entry) ToResponse() *EntryResponse {
	items := make([]*EntryItemResponse, len(e.Items))
	for i, it := range e.Items {
		items[i] = &EntryItemResponse{
			ItemID:    it.ItemID,
			ItemName:  it.ItemName,
			Share:     it.Share.InexactFloat64(),
			Direction: string(it.Direction),
		}
	}
	return &EntryResponse{
		ID:             e.ID,
		Kind:           string(e.Kind),
		FromUserID:     e.FromUserID,
		FromUsername:   e.FromUsername,
		ToUserID:       e.ToUserID,
		ToUsername:     e.ToUsername,
		Amount:         e.Amount.InexactFloat64(),
		TheyOwe:        e.TheyOwe.InexactFloat64(),
		YouOwe:         e.YouOwe.InexactFloat64(),
		Net:            e.Net.InexactFloat64(),
		SettledItemIDs: e.SettledItemIDs(),
		Items:          items,
		CreatedAt:      e.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
