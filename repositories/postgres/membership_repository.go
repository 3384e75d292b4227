package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/orgdesk/console/models"
	"github.com/orgdesk/console/repositories"
	"go.uber.org/zap"
)

// MembershipRepository implements the repositories.MembershipRepository interface
type MembershipRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB, logger *zap.Logger) repositories.MembershipRepository {
	return &MembershipRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new membership
func (r *MembershipRepository) Create(ctx context.Context, membership *models.Membership) error {
	query := `
		INSERT INTO memberships (user_id, org_id, role, created_at)
		VALUES ($1, $2, $3, $4)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		membership.UserID,
		membership.OrgID,
		membership.Role,
		membership.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}

	r.logger.Debug("membership created",
		zap.String("user_id", membership.UserID.String()),
		zap.String("org_id", membership.OrgID.String()),
		zap.String("role", string(membership.Role)))
	return nil
}

// Get retrieves a membership for a user and organization.
// Returns nil (not an error) when no membership exists.
func (r *MembershipRepository) Get(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	query := `
		SELECT user_id, org_id, role, created_at
		FROM memberships
		WHERE user_id = $1 AND org_id = $2
	`

	executor := GetExecutor(ctx, r.db)
	membership := &models.Membership{}

	err := executor.QueryRowContext(ctx, query, userID, orgID).Scan(
		&membership.UserID,
		&membership.OrgID,
		&membership.Role,
		&membership.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return membership, nil
}

// ListByOrg retrieves all memberships of an organization
func (r *MembershipRepository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Membership, error) {
	query := `
		SELECT user_id, org_id, role, created_at
		FROM memberships
		WHERE org_id = $1
		ORDER BY created_at
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		membership := &models.Membership{}
		err := rows.Scan(
			&membership.UserID,
			&membership.OrgID,
			&membership.Role,
			&membership.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, membership)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating membership rows: %w", err)
	}

	return memberships, nil
}
