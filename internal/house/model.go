package house

import "time"

// House represents a shared household. Members join with the house code.
type House struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User represents a member of a house. A user belongs to exactly one house.
type User struct {
	ID        int64     `json:"id"`
	HouseID   int64     `json:"house_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`

	// Populated via JOIN
	HouseCode string `json:"house_code,omitempty"`
}
