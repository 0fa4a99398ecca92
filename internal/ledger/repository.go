package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Repository handles payment record persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new ledger repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx appends a payment record with its item audit lines inside the
// caller's transaction. The unique constraint on negotiation_id guarantees
// at most one entry per accepted negotiation.
func (r *Repository) CreateTx(ctx context.Context, tx *sql.Tx, entry *Entry) error {
	query := `
		INSERT INTO payments (house_id, kind, from_user_id, to_user_id, amount, they_owe, you_owe, net, negotiation_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := tx.QueryRowContext(ctx, query,
		entry.HouseID,
		entry.Kind,
		entry.FromUserID,
		entry.ToUserID,
		entry.Amount,
		entry.TheyOwe,
		entry.YouOwe,
		entry.Net,
		entry.NegotiationID,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	for _, it := range entry.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO payment_items (payment_id, item_id, item_name, share, direction)
			VALUES ($1, $2, $3, $4, $5)
		`, entry.ID, it.ItemID, it.ItemName, it.Share, it.Direction)
		if err != nil {
			return fmt.Errorf("failed to create payment item: %w", err)
		}
	}

	return nil
}

// GetByID retrieves a payment record with its item audit lines
func (r *Repository) GetByID(ctx context.Context, id int64) (*Entry, error) {
	query := `
		SELECT p.id, p.house_id, p.kind, p.from_user_id, p.to_user_id, p.amount,
		       COALESCE(p.they_owe, 0), COALESCE(p.you_owe, 0), COALESCE(p.net, 0),
		       p.negotiation_id, p.created_at,
		       fu.username, tu.username
		FROM payments p
		JOIN users fu ON p.from_user_id = fu.id
		JOIN users tu ON p.to_user_id = tu.id
		WHERE p.id = $1
	`

	entry := &Entry{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&entry.ID,
		&entry.HouseID,
		&entry.Kind,
		&entry.FromUserID,
		&entry.ToUserID,
		&entry.Amount,
		&entry.TheyOwe,
		&entry.YouOwe,
		&entry.Net,
		&entry.NegotiationID,
		&entry.CreatedAt,
		&entry.FromUsername,
		&entry.ToUsername,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	items, err := r.itemsFor(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	entry.Items = items[id]

	return entry, nil
}

// ListByHouse retrieves a page of the house's payment records, newest first
func (r *Repository) ListByHouse(ctx context.Context, houseID int64, limit, offset int) ([]*Entry, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM payments WHERE house_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, houseID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	query := `
		SELECT p.id, p.house_id, p.kind, p.from_user_id, p.to_user_id, p.amount,
		       COALESCE(p.they_owe, 0), COALESCE(p.you_owe, 0), COALESCE(p.net, 0),
		       p.negotiation_id, p.created_at,
		       fu.username, tu.username
		FROM payments p
		JOIN users fu ON p.from_user_id = fu.id
		JOIN users tu ON p.to_user_id = tu.id
		WHERE p.house_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, houseID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	ids := []int64{}
	for rows.Next() {
		entry := &Entry{}
		if err := rows.Scan(
			&entry.ID,
			&entry.HouseID,
			&entry.Kind,
			&entry.FromUserID,
			&entry.ToUserID,
			&entry.Amount,
			&entry.TheyOwe,
			&entry.YouOwe,
			&entry.Net,
			&entry.NegotiationID,
			&entry.CreatedAt,
			&entry.FromUsername,
			&entry.ToUsername,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan payment: %w", err)
		}
		entries = append(entries, entry)
		ids = append(ids, entry.ID)
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, entry := range entries {
		entry.Items = items[entry.ID]
	}

	return entries, total, nil
}

// Delete purges a payment record. Admin-only escape hatch; entries are
// otherwise append-only.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *Repository) itemsFor(ctx context.Context, paymentIDs []int64) (map[int64][]*EntryItem, error) {
	if len(paymentIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT payment_id, item_id, item_name, share, direction
		FROM payment_items
		WHERE payment_id = ANY($1)
		ORDER BY payment_id, item_id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(paymentIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get payment items: %w", err)
	}
	defer rows.Close()

	items := make(map[int64][]*EntryItem)
	for rows.Next() {
		var paymentID int64
		it := &EntryItem{}
		if err := rows.Scan(&paymentID, &it.ItemID, &it.ItemName, &it.Share, &it.Direction); err != nil {
			return nil, fmt.Errorf("failed to scan payment item: %w", err)
		}
		items[paymentID] = append(items[paymentID], it)
	}
	return items, rows.Err()
}
