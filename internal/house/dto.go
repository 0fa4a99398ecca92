package house

// CreateHouseRequest represents the request body for creating a house
type CreateHouseRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
}

// JoinHouseRequest represents the request body for joining an existing house
type JoinHouseRequest struct {
	Code     string `json:"code" validate:"required,len=6"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
}

// HouseResponse represents the response for a house
type HouseResponse struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// MemberResponse represents one member of the house roster
type MemberResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ToResponse converts a House model to a HouseResponse DTO
func (h *House) ToResponse() *HouseResponse {
	return &HouseResponse{
		ID:        h.ID,
		Code:      h.Code,
		Name:      h.Name,
		CreatedAt: h.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ToMemberResponse converts a User model to a MemberResponse DTO
func (u *User) ToMemberResponse() *MemberResponse {
	return &MemberResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}
