package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/orgdesk/console/models"
	"github.com/orgdesk/console/repositories"
	"go.uber.org/zap"
)

// APIKeyRepository implements the repositories.APIKeyRepository interface
type APIKeyRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db *DB, logger *zap.Logger) repositories.APIKeyRepository {
	return &APIKeyRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new API key record
func (r *APIKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	query := `
		INSERT INTO api_keys (id, prefix, secret_hash, user_id, org_id, name, expires_at, created_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		key.ID,
		key.Prefix,
		key.SecretHash,
		key.UserID,
		key.OrgID,
		key.Name,
		key.ExpiresAt,
		key.CreatedAt,
		key.RevokedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}

	r.logger.Debug("api key created",
		zap.String("id", key.ID.String()),
		zap.String("prefix", key.Prefix))
	return nil
}

// GetByID retrieves an API key by ID
func (r *APIKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.APIKey, error) {
	query := `
		SELECT id, prefix, secret_hash, user_id, org_id, name, expires_at, created_at, revoked_at
		FROM api_keys
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	return r.scanOne(executor.QueryRowContext(ctx, query, id), id.String())
}

// GetByPrefix retrieves an API key by its non-secret prefix
func (r *APIKeyRepository) GetByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	query := `
		SELECT id, prefix, secret_hash, user_id, org_id, name, expires_at, created_at, revoked_at
		FROM api_keys
		WHERE prefix = $1
	`

	executor := GetExecutor(ctx, r.db)
	return r.scanOne(executor.QueryRowContext(ctx, query, prefix), prefix)
}

// ListByOrg retrieves all API keys of an organization
func (r *APIKeyRepository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.APIKey, error) {
	query := `
		SELECT id, prefix, secret_hash, user_id, org_id, name, expires_at, created_at, revoked_at
		FROM api_keys
		WHERE org_id = $1
		ORDER BY created_at DESC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		key := &models.APIKey{}
		err := rows.Scan(
			&key.ID,
			&key.Prefix,
			&key.SecretHash,
			&key.UserID,
			&key.OrgID,
			&key.Name,
			&key.ExpiresAt,
			&key.CreatedAt,
			&key.RevokedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating api key rows: %w", err)
	}

	return keys, nil
}

// SetRevoked marks a key revoked at the given time. The WHERE clause makes
// the transition a compare-and-set: a key revoked concurrently matches zero
// rows and the caller gets ErrKeyAlreadyRevoked, not a second success.
func (r *APIKeyRepository) SetRevoked(ctx context.Context, id uuid.UUID, at time.Time) (*models.APIKey, error) {
	query := `
		UPDATE api_keys
		SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL
		RETURNING id, prefix, secret_hash, user_id, org_id, name, expires_at, created_at, revoked_at
	`

	executor := GetExecutor(ctx, r.db)
	key := &models.APIKey{}

	err := executor.QueryRowContext(ctx, query, id, at).Scan(
		&key.ID,
		&key.Prefix,
		&key.SecretHash,
		&key.UserID,
		&key.OrgID,
		&key.Name,
		&key.ExpiresAt,
		&key.CreatedAt,
		&key.RevokedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			// Zero rows means the key is missing or already revoked;
			// re-fetch to tell the two apart.
			existing, getErr := r.GetByID(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			if existing.Revoked() {
				return nil, fmt.Errorf("api key %s: %w", id, repositories.ErrKeyAlreadyRevoked)
			}
			return nil, fmt.Errorf("failed to revoke api key %s: %w", id, err)
		}
		return nil, fmt.Errorf("failed to revoke api key: %w", err)
	}

	r.logger.Debug("api key revoked",
		zap.String("id", key.ID.String()),
		zap.String("prefix", key.Prefix))
	return key, nil
}

// scanOne scans a single API key row
func (r *APIKeyRepository) scanOne(row *sql.Row, ref string) (*models.APIKey, error) {
	key := &models.APIKey{}
	err := row.Scan(
		&key.ID,
		&key.Prefix,
		&key.SecretHash,
		&key.UserID,
		&key.OrgID,
		&key.Name,
		&key.ExpiresAt,
		&key.CreatedAt,
		&key.RevokedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("api key %s: %w", ref, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return key, nil
}
