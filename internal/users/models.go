package users

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies what a user can do on the marketplace
type Role string

const (
	RoleClient   Role = "CLIENT"
	RoleProvider Role = "PROVIDER"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleClient, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// User is the boundary model for marketplace accounts. Account management
// itself lives in a separate service; this backend only reads identity from
// verified JWTs and joins against this table for bookings and receipts.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email     string    `gorm:"unique;not null" json:"email"`
	FullName  string    `gorm:"not null" json:"full_name"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `gorm:"type:varchar(20);check:role IN ('CLIENT', 'PROVIDER', 'ADMIN');default:'CLIENT'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for User
func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == string(RoleAdmin)
}

func (u *User) IsProvider() bool {
	return u.Role == string(RoleProvider)
}
