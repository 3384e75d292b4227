package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership ties a user to an organization with a role scoped to that
// organization. A user's effective role for an operation targeting an
// organization is the membership role, unless the user is a global
// superadmin.
type Membership struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	OrgID     uuid.UUID `json:"org_id" db:"org_id"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Membership model
func (Membership) TableName() string {
	return "memberships"
}

// NewMembership creates a new Membership instance
func NewMembership(userID, orgID uuid.UUID, role Role) *Membership {
	return &Membership{
		UserID:    userID,
		OrgID:     orgID,
		Role:      role,
		CreatedAt: time.Now(),
	}
}

// IsAdmin returns true if the membership carries the admin role
func (m *Membership) IsAdmin() bool {
	return m.Role == RoleAdmin
}
