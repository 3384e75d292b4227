// Package apikeys implements the API key lifecycle: creation, listing, and
// one-way revocation with a synchronous audit trail.
package apikeys

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orgdesk/console/models"
	"github.com/orgdesk/console/repositories"
	"github.com/orgdesk/console/services"
	"github.com/orgdesk/console/services/audit"
	"github.com/orgdesk/console/services/identity"
)

const (
	// prefixRandomBytes sizes the random part of the lookup prefix
	prefixRandomBytes = 6

	// secretBytes sizes the secret portion of a credential
	secretBytes = 32

	maxKeyNameLength = 100
)

// CreateInput carries the caller-supplied attributes of a new key
type CreateInput struct {
	Name      string
	ExpiresAt *time.Time
}

// CreatedKey is the one-time creation result. Credential is the full
// "prefix.secret" plaintext; it is never recoverable after this response.
type CreatedKey struct {
	Key        *models.APIKey
	Credential string
}

// Service manages API keys for organizations
type Service struct {
	apiKeys   repositories.APIKeyRepository
	orgs      repositories.OrganizationRepository
	txManager repositories.TransactionManager
	identity  *identity.Service
	recorder  *audit.Recorder
	prefixTag string
	logger    *zap.Logger
}

// NewService creates a new API key Service. prefixTag is the fixed leading
// tag of generated prefixes (for example "ak_").
func NewService(
	apiKeys repositories.APIKeyRepository,
	orgs repositories.OrganizationRepository,
	txManager repositories.TransactionManager,
	identitySvc *identity.Service,
	recorder *audit.Recorder,
	prefixTag string,
	logger *zap.Logger,
) *Service {
	return &Service{
		apiKeys:   apiKeys,
		orgs:      orgs,
		txManager: txManager,
		identity:  identitySvc,
		recorder:  recorder,
		prefixTag: prefixTag,
		logger:    logger,
	}
}

// Create mints a new API key owned by the caller and scoped to the
// organization. The record and its audit entry commit atomically; the
// plaintext credential is returned exactly once.
func (s *Service) Create(ctx context.Context, p *identity.Principal, orgSlug string, input CreateInput, meta audit.RequestMeta) (*CreatedKey, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > maxKeyNameLength {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "key name must be between 1 and 100 characters", nil)
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(time.Now()) {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "expiry must be in the future", nil)
	}

	org, err := s.resolveOrg(ctx, orgSlug)
	if err != nil {
		return nil, err
	}
	if err := identity.ValidateAPIKeyOrgAccess(p, org.ID); err != nil {
		return nil, err
	}
	if err := s.identity.RequireMember(ctx, p, org.ID); err != nil {
		return nil, err
	}

	prefix, secret, err := s.generateCredential()
	if err != nil {
		return nil, services.WrapInternal("failed to generate API key material", err)
	}

	key := models.NewAPIKey(prefix, identity.HashSecret(secret), p.UserID, org.ID, name)
	key.ExpiresAt = input.ExpiresAt

	err = s.txManager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		if err := s.apiKeys.Create(txCtx, key); err != nil {
			return services.WrapInternal("failed to create API key", err)
		}
		return s.recorder.RecordAction(txCtx, org.ID, models.AuditActionAPIKeyCreated,
			p.UserID, p.Email,
			map[string]interface{}{
				"key_id": key.ID.String(),
				"prefix": key.Prefix,
				"name":   key.Name,
			}, meta)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("api key created",
		zap.String("key_id", key.ID.String()),
		zap.String("prefix", key.Prefix),
		zap.String("org_id", org.ID.String()),
		zap.String("user_id", p.UserID.String()))

	return &CreatedKey{
		Key:        key,
		Credential: fmt.Sprintf("%s.%s", prefix, secret),
	}, nil
}

// List returns the organization's keys, revoked ones included. Secret hashes
// never leave the model's json:"-" field.
func (s *Service) List(ctx context.Context, p *identity.Principal, orgSlug string) ([]*models.APIKey, error) {
	org, err := s.resolveOrg(ctx, orgSlug)
	if err != nil {
		return nil, err
	}
	if err := identity.ValidateAPIKeyOrgAccess(p, org.ID); err != nil {
		return nil, err
	}
	if err := s.identity.RequireMember(ctx, p, org.ID); err != nil {
		return nil, err
	}

	keys, err := s.apiKeys.ListByOrg(ctx, org.ID)
	if err != nil {
		return nil, services.WrapInternal("failed to list API keys", err)
	}
	return keys, nil
}

// Revoke permanently disables a key. Only the key's owner or a superadmin may
// revoke it; API key callers additionally cannot reach outside the
// organization their credential is scoped to. Revoking an already revoked key
// is rejected, and the compare-and-set in the repository guarantees that two
// racing revocations produce exactly one audit entry.
func (s *Service) Revoke(ctx context.Context, p *identity.Principal, keyID uuid.UUID, meta audit.RequestMeta) (*models.APIKey, error) {
	key, err := s.apiKeys.GetByID(ctx, keyID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrAPIKeyNotFound
		}
		return nil, services.WrapInternal("failed to load API key", err)
	}

	// Keys are personal credentials: ownership gates revocation, with one
	// widening beyond strict owner-only — superadmins can clean up keys
	// left behind by departed users.
	if key.UserID != p.UserID && !p.IsSuperadmin() {
		return nil, services.ErrNotKeyOwner
	}
	if err := identity.ValidateAPIKeyOrgAccess(p, key.OrgID); err != nil {
		return nil, err
	}
	if key.Revoked() {
		return nil, services.ErrAlreadyRevoked
	}

	var revoked *models.APIKey
	err = s.txManager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		revoked, err = s.apiKeys.SetRevoked(txCtx, key.ID, time.Now())
		if err != nil {
			if errors.Is(err, repositories.ErrKeyAlreadyRevoked) {
				// Lost the race with a concurrent revocation
				return services.ErrAlreadyRevoked
			}
			if errors.Is(err, repositories.ErrNotFound) {
				return services.ErrAPIKeyNotFound
			}
			return services.WrapInternal("failed to revoke API key", err)
		}
		return s.recorder.RecordAction(txCtx, key.OrgID, models.AuditActionAPIKeyRevoked,
			p.UserID, p.Email,
			map[string]interface{}{
				"key_id": key.ID.String(),
				"prefix": key.Prefix,
				"name":   key.Name,
			}, meta)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("api key revoked",
		zap.String("key_id", key.ID.String()),
		zap.String("prefix", key.Prefix),
		zap.String("org_id", key.OrgID.String()),
		zap.String("revoked_by", p.UserID.String()))

	return revoked, nil
}

func (s *Service) resolveOrg(ctx context.Context, slug string) (*models.Organization, error) {
	org, err := s.orgs.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrOrganizationNotFound
		}
		return nil, services.WrapInternal("failed to load organization", err)
	}
	return org, nil
}

// generateCredential produces the prefix and secret halves of a new key
func (s *Service) generateCredential() (prefix, secret string, err error) {
	buf := make([]byte, prefixRandomBytes+secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	prefix = s.prefixTag + hex.EncodeToString(buf[:prefixRandomBytes])
	secret = hex.EncodeToString(buf[prefixRandomBytes:])
	return prefix, secret, nil
}
