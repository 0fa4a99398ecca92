package house

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository handles house and user data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new house repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateHouse inserts a new house into the database
func (r *Repository) CreateHouse(ctx context.Context, code, name string) (*House, error) {
	query := `
		INSERT INTO houses (code, name)
		VALUES ($1, $2)
		RETURNING id, code, name, created_at
	`

	house := &House{}
	err := r.db.QueryRowContext(ctx, query, code, name).Scan(
		&house.ID,
		&house.Code,
		&house.Name,
		&house.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create house: %w", err)
	}

	return house, nil
}

// GetHouseByCode retrieves a house by its join code
func (r *Repository) GetHouseByCode(ctx context.Context, code string) (*House, error) {
	query := `SELECT id, code, name, created_at FROM houses WHERE code = $1`

	house := &House{}
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&house.ID,
		&house.Code,
		&house.Name,
		&house.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get house: %w", err)
	}

	return house, nil
}

// GetHouseByID retrieves a house by its ID
func (r *Repository) GetHouseByID(ctx context.Context, id int64) (*House, error) {
	query := `SELECT id, code, name, created_at FROM houses WHERE id = $1`

	house := &House{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&house.ID,
		&house.Code,
		&house.Name,
		&house.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get house: %w", err)
	}

	return house, nil
}

// CreateUser inserts a new user into the database
func (r *Repository) CreateUser(ctx context.Context, houseID int64, username, email string) (*User, error) {
	query := `
		INSERT INTO users (house_id, username, email)
		VALUES ($1, $2, $3)
		RETURNING id, house_id, username, email, created_at
	`

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, houseID, username, email).Scan(
		&user.ID,
		&user.HouseID,
		&user.Username,
		&user.Email,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by ID, including the house join code
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT u.id, u.house_id, u.username, u.email, u.created_at, h.code
		FROM users u
		JOIN houses h ON u.house_id = h.id
		WHERE u.id = $1
	`

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.HouseID,
		&user.Username,
		&user.Email,
		&user.CreatedAt,
		&user.HouseCode,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// ListMembers retrieves the full roster of a house
func (r *Repository) ListMembers(ctx context.Context, houseID int64) ([]*User, error) {
	query := `
		SELECT id, house_id, username, email, created_at
		FROM users
		WHERE house_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, houseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*User
	for rows.Next() {
		user := &User{}
		if err := rows.Scan(
			&user.ID,
			&user.HouseID,
			&user.Username,
			&user.Email,
			&user.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, user)
	}

	return members, nil
}
