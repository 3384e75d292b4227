package identity

import (
	"github.com/google/uuid"

	"github.com/orgdesk/console/models"
)

// AuthMode tags how a principal was authenticated
type AuthMode string

const (
	// AuthModeSession is cookie-session authentication. Session principals
	// may span multiple organization memberships.
	AuthModeSession AuthMode = "session"

	// AuthModeAPIKey is bearer API key authentication. API key principals
	// are constrained to the single organization the key was minted for.
	AuthModeAPIKey AuthMode = "api_key"
)

// Principal is the resolved caller identity for one request. It is owned by
// the request that produced it and never persisted.
//
// ScopedOrgID is set only for AuthModeAPIKey and pins every operation to one
// organization; it is nil for session principals.
type Principal struct {
	UserID      uuid.UUID
	Email       string
	Role        models.Role
	AuthMode    AuthMode
	ScopedOrgID *uuid.UUID
}

// IsSuperadmin returns true iff the principal's global role is superadmin
func (p *Principal) IsSuperadmin() bool {
	return p.Role == models.RoleSuperadmin
}
