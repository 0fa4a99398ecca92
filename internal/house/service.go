package house

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
)

// Common errors
var (
	ErrHouseNotFound  = errors.New("house not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrDifferentHouse = errors.New("users belong to different houses")
)

const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Service handles house business logic
type Service struct {
	repo *Repository
}

// NewService creates a new house service
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// CreateHouse creates a house with a fresh join code and its first member.
func (s *Service) CreateHouse(ctx context.Context, req *CreateHouseRequest) (*House, *User, error) {
	code, err := generateCode(6)
	if err != nil {
		return nil, nil, err
	}

	house, err := s.repo.CreateHouse(ctx, code, req.Name)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.repo.CreateUser(ctx, house.ID, req.Username, req.Email)
	if err != nil {
		return nil, nil, err
	}

	return house, user, nil
}

// JoinHouse adds a new member to an existing house by join code.
func (s *Service) JoinHouse(ctx context.Context, req *JoinHouseRequest) (*House, *User, error) {
	house, err := s.repo.GetHouseByCode(ctx, req.Code)
	if err != nil {
		return nil, nil, err
	}
	if house == nil {
		return nil, nil, ErrHouseNotFound
	}

	user, err := s.repo.CreateUser(ctx, house.ID, req.Username, req.Email)
	if err != nil {
		return nil, nil, err
	}

	return house, user, nil
}

// GetUser resolves a user by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Roster lists all members of the user's house.
func (s *Service) Roster(ctx context.Context, userID int64) ([]*User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, user.HouseID)
}

// SameHouse resolves both users and verifies they share a house. Used by the
// negotiation engine to validate the two parties before creating a request.
func (s *Service) SameHouse(ctx context.Context, userID, otherID int64) (*User, *User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	other, err := s.GetUser(ctx, otherID)
	if err != nil {
		return nil, nil, err
	}
	if user.HouseID != other.HouseID {
		return nil, nil, ErrDifferentHouse
	}
	return user, other, nil
}

// generateCode builds a random join code avoiding ambiguous characters.
func generateCode(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}
