package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/orgdesk/console/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetSessionVersion retrieves the current session version for a user.
	// Tokens carrying any other version are stale and must be rejected.
	GetSessionVersion(ctx context.Context, userID uuid.UUID) (int64, error)

	// IncrementSessionVersion bumps the session version, invalidating every
	// previously issued session token. Returns the new version.
	IncrementSessionVersion(ctx context.Context, userID uuid.UUID) (int64, error)
}

// OrganizationRepository handles organization data operations
type OrganizationRepository interface {
	// Create creates a new organization
	Create(ctx context.Context, org *models.Organization) error

	// GetByID retrieves an organization by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)

	// GetBySlug retrieves an organization by slug
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)

	// ListForUser retrieves the organizations a user belongs to
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error)
}

// MembershipRepository handles membership data operations
type MembershipRepository interface {
	// Create creates a new membership
	Create(ctx context.Context, membership *models.Membership) error

	// Get retrieves a membership for a user and organization.
	// Returns nil (not an error) when no membership exists.
	Get(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error)

	// ListByOrg retrieves all memberships of an organization
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Membership, error)
}

// APIKeyRepository handles API key data operations
type APIKeyRepository interface {
	// Create creates a new API key record
	Create(ctx context.Context, key *models.APIKey) error

	// GetByID retrieves an API key by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.APIKey, error)

	// GetByPrefix retrieves an API key by its non-secret prefix.
	// The prefix column is uniquely indexed; secrets are never scanned.
	GetByPrefix(ctx context.Context, prefix string) (*models.APIKey, error)

	// ListByOrg retrieves all API keys of an organization
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.APIKey, error)

	// SetRevoked marks a key revoked at the given time. The transition is a
	// compare-and-set on revoked_at: it fails with ErrKeyAlreadyRevoked when
	// the key was revoked concurrently, so one logical revocation can never
	// produce two audit entries.
	SetRevoked(ctx context.Context, id uuid.UUID, at time.Time) (*models.APIKey, error)
}

// AuditRepository handles audit log data operations. The log is append-only:
// entries are never updated or deleted.
type AuditRepository interface {
	// Insert appends a new audit log entry. Failures must propagate to the
	// caller; audit continuity is a compliance requirement.
	Insert(ctx context.Context, log *models.AuditLog) error

	// GetByID retrieves an audit log by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)

	// GetByOrgID retrieves audit logs for an organization with pagination
	GetByOrgID(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)

	// GetByAction retrieves audit logs by action type
	GetByAction(ctx context.Context, orgID uuid.UUID, action models.AuditAction, limit, offset int) ([]*models.AuditLog, error)
}

// Repositories bundles all repository instances
type Repositories struct {
	Users         UserRepository
	Organizations OrganizationRepository
	Memberships   MembershipRepository
	APIKeys       APIKeyRepository
	AuditLogs     AuditRepository
}
