package negotiation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code raised when the partial unique
// index on pending negotiations rejects a second pending record for a pair.
const uniqueViolation = "23505"

// Repository handles negotiation record persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new negotiation repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new pending record with its item references. Returns
// ErrAlreadyPending when a pending record already exists for the pair and
// kind; the unique index makes the check race-free.
func (r *Repository) Create(ctx context.Context, rec *Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO negotiations (id, house_id, kind, from_user_id, to_user_id, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, query,
		rec.ID, rec.HouseID, rec.Kind, rec.FromUserID, rec.ToUserID,
		rec.Status, rec.CreatedAt, rec.ExpiresAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrAlreadyPending
		}
		return fmt.Errorf("failed to create negotiation: %w", err)
	}

	for _, itemID := range rec.ItemIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO negotiation_items (negotiation_id, item_id) VALUES ($1, $2)`,
			rec.ID, itemID,
		); err != nil {
			return fmt.Errorf("failed to create negotiation item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit negotiation: %w", err)
	}
	return nil
}

// GetByID retrieves a record with its item references
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	query := `
		SELECT n.id, n.house_id, n.kind, n.from_user_id, n.to_user_id, n.status,
		       n.created_at, n.expires_at, h.code,
		       COALESCE(array_agg(ni.item_id) FILTER (WHERE ni.item_id IS NOT NULL), '{}')
		FROM negotiations n
		JOIN houses h ON n.house_id = h.id
		LEFT JOIN negotiation_items ni ON ni.negotiation_id = n.id
		WHERE n.id = $1
		GROUP BY n.id, h.code
	`

	rec := &Record{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.HouseID,
		&rec.Kind,
		&rec.FromUserID,
		&rec.ToUserID,
		&rec.Status,
		&rec.CreatedAt,
		&rec.ExpiresAt,
		&rec.HouseCode,
		pq.Array(&rec.ItemIDs),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get negotiation: %w", err)
	}

	return rec, nil
}

// ListPendingForUser retrieves all live pending records involving the user,
// in both directions and across both kinds. Records past their deadline are
// excluded: a read never surfaces an expired-but-unswept record.
func (r *Repository) ListPendingForUser(ctx context.Context, userID int64, now time.Time) ([]*Record, error) {
	query := `
		SELECT n.id, n.house_id, n.kind, n.from_user_id, n.to_user_id, n.status,
		       n.created_at, n.expires_at, h.code,
		       COALESCE(array_agg(ni.item_id) FILTER (WHERE ni.item_id IS NOT NULL), '{}')
		FROM negotiations n
		JOIN houses h ON n.house_id = h.id
		LEFT JOIN negotiation_items ni ON ni.negotiation_id = n.id
		WHERE (n.from_user_id = $1 OR n.to_user_id = $1)
		  AND n.status = 'pending'
		  AND n.expires_at >= $2
		GROUP BY n.id, h.code
		ORDER BY n.created_at
	`

	rows, err := r.db.QueryContext(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending negotiations: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(
			&rec.ID,
			&rec.HouseID,
			&rec.Kind,
			&rec.FromUserID,
			&rec.ToUserID,
			&rec.Status,
			&rec.CreatedAt,
			&rec.ExpiresAt,
			&rec.HouseCode,
			pq.Array(&rec.ItemIDs),
		); err != nil {
			return nil, fmt.Errorf("failed to scan negotiation: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// claimQuery transitions pending -> terminal in one conditional update. The
// expiry re-check lives inside the same statement so a late respond can
// never claim a record the reaper is about to expire.
const claimQuery = `
	UPDATE negotiations
	SET status = $2
	WHERE id = $1 AND status = 'pending' AND expires_at >= $3
`

// Claim atomically transitions a live pending record to the given terminal
// status. Returns false when the record was missing, already terminal, or
// past its deadline.
func (r *Repository) Claim(ctx context.Context, id uuid.UUID, to Status, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, claimQuery, id, to, now)
	if err != nil {
		return false, fmt.Errorf("failed to claim negotiation: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// ClaimTx is Claim inside the caller's transaction. The accept path claims
// first so that a second concurrent accept finds zero rows and performs no
// side effects.
func (r *Repository) ClaimTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, to Status, now time.Time) (bool, error) {
	result, err := tx.ExecContext(ctx, claimQuery, id, to, now)
	if err != nil {
		return false, fmt.Errorf("failed to claim negotiation: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// MarkExpired flips a pending record to expired regardless of deadline.
// Used when an active check notices the deadline passed.
func (r *Repository) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE negotiations SET status = 'expired' WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("failed to expire negotiation: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// ExpireDue sweeps every pending record past its deadline to expired and
// returns them so lifecycle events can be published.
func (r *Repository) ExpireDue(ctx context.Context, now time.Time) ([]*Record, error) {
	query := `
		WITH swept AS (
			UPDATE negotiations
			SET status = 'expired'
			WHERE status = 'pending' AND expires_at < $1
			RETURNING id, house_id, kind, from_user_id, to_user_id, status, created_at, expires_at
		)
		SELECT s.id, s.house_id, s.kind, s.from_user_id, s.to_user_id, s.status,
		       s.created_at, s.expires_at, h.code
		FROM swept s
		JOIN houses h ON s.house_id = h.id
	`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep expired negotiations: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(
			&rec.ID,
			&rec.HouseID,
			&rec.Kind,
			&rec.FromUserID,
			&rec.ToUserID,
			&rec.Status,
			&rec.CreatedAt,
			&rec.ExpiresAt,
			&rec.HouseCode,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expired negotiation: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
