package negotiation

// CreateApprovalRequest represents the request body for a payment-approval
type CreateApprovalRequest struct {
	ToUserID int64   `json:"to_user_id" validate:"required"`
	ItemIDs  []int64 `json:"item_ids" validate:"required,min=1"`
}

// CreateSettlementRequest represents the request body for a settlement
type CreateSettlementRequest struct {
	TargetUserID int64 `json:"target_user_id" validate:"required"`
}

// RespondRequest represents the request body for accepting or declining
type RespondRequest struct {
	RequestID string  `json:"request_id" validate:"required,uuid"`
	Accept    bool    `json:"accept"`
	ItemIDs   []int64 `json:"item_ids,omitempty"`
}

// CancelRequest represents the request body for cancelling
type CancelRequest struct {
	RequestID string `json:"request_id" validate:"required,uuid"`
}

// RecordResponse represents a negotiation record as seen by one user
type RecordResponse struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	FromUserID int64   `json:"from_user_id"`
	ToUserID   int64   `json:"to_user_id"`
	ItemIDs    []int64 `json:"items"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
	ExpiresAt  string  `json:"expires_at"`
	// Direction is "incoming" when the viewer is the recipient,
	// "outgoing" when they are the requester.
	Direction string `json:"direction,omitempty"`
}

// RespondResponse reports the outcome of a respond call
type RespondResponse struct {
	Processed bool `json:"processed"`
}

// EventPayload is published on the parties' private channels. It carries
// enough of the record for a client cache to apply the mutation without a
// refetch.
type EventPayload struct {
	RequestID     string  `json:"request_id"`
	Kind          string  `json:"kind"`
	FromUserID    int64   `json:"from_user_id"`
	ToUserID      int64   `json:"to_user_id"`
	ItemIDs       []int64 `json:"items,omitempty"`
	ExpiresAt     string  `json:"expires_at,omitempty"`
	Processed     *bool   `json:"processed,omitempty"`
	LedgerEntryID *int64  `json:"ledger_entry_id,omitempty"`
}

// ToResponse converts a Record to a RecordResponse from the viewer's side
func (r *Record) ToResponse(viewerID int64) *RecordResponse {
	direction := "outgoing"
	if r.ToUserID == viewerID {
		direction = "incoming"
	}
	return &RecordResponse{
		ID:         r.ID.String(),
		Kind:       string(r.Kind),
		FromUserID: r.FromUserID,
		ToUserID:   r.ToUserID,
		ItemIDs:    r.ItemIDs,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		ExpiresAt:  r.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
		Direction:  direction,
	}
}

func (r *Record) toEventPayload() *EventPayload {
	return &EventPayload{
		RequestID:  r.ID.String(),
		Kind:       string(r.Kind),
		FromUserID: r.FromUserID,
		ToUserID:   r.ToUserID,
		ItemIDs:    r.ItemIDs,
		ExpiresAt:  r.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
