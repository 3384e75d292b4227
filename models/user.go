package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's role, either globally or within an organization.
// Roles are ordered: member < admin < superadmin.
type Role string

const (
	RoleMember     Role = "member"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// roleLevels orders roles for minimum-role comparisons
var roleLevels = map[Role]int{
	RoleMember:     1,
	RoleAdmin:      2,
	RoleSuperadmin: 3,
}

// Valid returns true if the role is a known role
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// AtLeast returns true if the role meets or exceeds the minimum role
func (r Role) AtLeast(min Role) bool {
	return roleLevels[r] >= roleLevels[min]
}

// User represents a user account in the system.
//
// Role is the user's global role: RoleSuperadmin overrides every
// organization-scoped check; everyone else holds RoleMember globally and
// gains per-organization privileges through Membership records.
//
// SessionVersion is a monotonic counter embedded in issued session tokens.
// Incrementing it (password change, logout-everywhere) invalidates every
// previously issued token.
type User struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Email          string    `json:"email" db:"email"`
	Name           string    `json:"name" db:"name"`
	Role           Role      `json:"role" db:"role"`
	SessionVersion int64     `json:"-" db:"session_version"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new User instance
func NewUser(email, name string, role Role) *User {
	now := time.Now()
	return &User{
		ID:             uuid.New(),
		Email:          email,
		Name:           name,
		Role:           role,
		SessionVersion: 1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsSuperadmin returns true if the user has the global superadmin role
func (u *User) IsSuperadmin() bool {
	return u.Role == RoleSuperadmin
}
