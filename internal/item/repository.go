package item

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Repository handles item and member-share data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new item repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new item with its member shares in one transaction
func (r *Repository) Create(ctx context.Context, houseID, authorID int64, name string, price decimal.Decimal, memberIDs []int64) (*Item, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO items (house_id, author_id, name, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, house_id, author_id, name, price, created_at
	`

	item := &Item{}
	err = tx.QueryRowContext(ctx, query, houseID, authorID, name, price).Scan(
		&item.ID,
		&item.HouseID,
		&item.AuthorID,
		&item.Name,
		&item.Price,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	for _, userID := range memberIDs {
		// The author's own share starts paid: they fronted the money.
		paid := userID == authorID
		_, err := tx.ExecContext(ctx,
			`INSERT INTO item_members (item_id, user_id, paid) VALUES ($1, $2, $3)`,
			item.ID, userID, paid,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create item member: %w", err)
		}
		item.Members = append(item.Members, &Member{ItemID: item.ID, UserID: userID, Paid: paid})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit item: %w", err)
	}
	return item, nil
}

// GetByID retrieves an item with its member shares
func (r *Repository) GetByID(ctx context.Context, id int64) (*Item, error) {
	query := `
		SELECT i.id, i.house_id, i.author_id, i.name, i.price, i.created_at, u.username
		FROM items i
		JOIN users u ON i.author_id = u.id
		WHERE i.id = $1
	`

	item := &Item{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.HouseID,
		&item.AuthorID,
		&item.Name,
		&item.Price,
		&item.CreatedAt,
		&item.AuthorUsername,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	members, err := r.membersFor(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	item.Members = members[id]

	return item, nil
}

// ListByHouse retrieves all items of a house with member shares
func (r *Repository) ListByHouse(ctx context.Context, houseID int64) ([]*Item, error) {
	query := `
		SELECT i.id, i.house_id, i.author_id, i.name, i.price, i.created_at, u.username
		FROM items i
		JOIN users u ON i.author_id = u.id
		WHERE i.house_id = $1
		ORDER BY i.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, houseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	return r.attachMembers(ctx, items)
}

// FindByIDs retrieves the given items with member shares
func (r *Repository) FindByIDs(ctx context.Context, ids []int64) ([]*Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT i.id, i.house_id, i.author_id, i.name, i.price, i.created_at, u.username
		FROM items i
		JOIN users u ON i.author_id = u.id
		WHERE i.id = ANY($1)
		ORDER BY i.id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to find items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	return r.attachMembers(ctx, items)
}

// Update edits an item's name, price or member set. A nil memberIDs slice
// leaves the member set untouched; otherwise it is replaced and existing
// paid flags for kept members are preserved.
func (r *Repository) Update(ctx context.Context, id int64, name *string, price *decimal.Decimal, memberIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE items
		SET name = COALESCE($2, name), price = COALESCE($3, price)
		WHERE id = $1
	`, id, name, price)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if memberIDs != nil {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM item_members WHERE item_id = $1 AND user_id <> ALL($2)`,
			id, pq.Array(memberIDs),
		); err != nil {
			return fmt.Errorf("failed to remove item members: %w", err)
		}
		for _, userID := range memberIDs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO item_members (item_id, user_id, paid)
				VALUES ($1, $2, FALSE)
				ON CONFLICT (item_id, user_id) DO NOTHING
			`, id, userID); err != nil {
				return fmt.Errorf("failed to add item member: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit item update: %w", err)
	}
	return nil
}

// Delete removes an item and its member shares
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetMemberPaid flips one member's paid flag on one item. Returns false when
// no matching unpaid share exists.
func (r *Repository) SetMemberPaid(ctx context.Context, itemID, userID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE item_members SET paid = TRUE
		WHERE item_id = $1 AND user_id = $2 AND paid = FALSE
	`, itemID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to mark share paid: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// BulkSetMemberPaidTx marks the given users' shares paid across the given
// items inside the caller's transaction. Returns the number of shares
// flipped; already-paid shares are not counted.
func (r *Repository) BulkSetMemberPaidTx(ctx context.Context, tx *sql.Tx, itemIDs, userIDs []int64) (int64, error) {
	if len(itemIDs) == 0 || len(userIDs) == 0 {
		return 0, nil
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE item_members SET paid = TRUE
		WHERE item_id = ANY($1) AND user_id = ANY($2) AND paid = FALSE
	`, pq.Array(itemIDs), pq.Array(userIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to bulk mark shares paid: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count marked shares: %w", err)
	}
	return n, nil
}

func scanItems(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		item := &Item{}
		if err := rows.Scan(
			&item.ID,
			&item.HouseID,
			&item.AuthorID,
			&item.Name,
			&item.Price,
			&item.CreatedAt,
			&item.AuthorUsername,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// attachMembers loads member shares for the given items in one query
func (r *Repository) attachMembers(ctx context.Context, items []*Item) ([]*Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	ids := make([]int64, len(items))
	byID := make(map[int64]*Item, len(items))
	for i, it := range items {
		ids[i] = it.ID
		byID[it.ID] = it
	}

	members, err := r.membersFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, ms := range members {
		byID[id].Members = ms
	}
	return items, nil
}

func (r *Repository) membersFor(ctx context.Context, itemIDs []int64) (map[int64][]*Member, error) {
	query := `
		SELECT m.item_id, m.user_id, m.paid, u.username
		FROM item_members m
		JOIN users u ON m.user_id = u.id
		WHERE m.item_id = ANY($1)
		ORDER BY m.item_id, m.user_id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(itemIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get item members: %w", err)
	}
	defer rows.Close()

	members := make(map[int64][]*Member)
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(&m.ItemID, &m.UserID, &m.Paid, &m.Username); err != nil {
			return nil, fmt.Errorf("failed to scan item member: %w", err)
		}
		members[m.ItemID] = append(members[m.ItemID], m)
	}
	return members, rows.Err()
}
