package apikeys

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orgdesk/console/models"
	"github.com/orgdesk/console/repositories"
	"github.com/orgdesk/console/services"
	"github.com/orgdesk/console/services/audit"
	"github.com/orgdesk/console/services/identity"
	"github.com/orgdesk/console/token"
)

// MockAPIKeyRepository is a mock implementation of APIKeyRepository
type MockAPIKeyRepository struct {
	mock.Mock
}

func (m *MockAPIKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.APIKey, error) {
	args := m.Called(ctx, id)
	if key := args.Get(0); key != nil {
		return key.(*models.APIKey), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIKeyRepository) GetByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	args := m.Called(ctx, prefix)
	if key := args.Get(0); key != nil {
		return key.(*models.APIKey), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIKeyRepository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.APIKey, error) {
	args := m.Called(ctx, orgID)
	if keys := args.Get(0); keys != nil {
		return keys.([]*models.APIKey), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIKeyRepository) SetRevoked(ctx context.Context, id uuid.UUID, at time.Time) (*models.APIKey, error) {
	args := m.Called(ctx, id, at)
	if key := args.Get(0); key != nil {
		return key.(*models.APIKey), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockOrganizationRepository is a mock implementation of OrganizationRepository
type MockOrganizationRepository struct {
	mock.Mock
}

func (m *MockOrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	args := m.Called(ctx, org)
	return args.Error(0)
}

func (m *MockOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	args := m.Called(ctx, id)
	if org := args.Get(0); org != nil {
		return org.(*models.Organization), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrganizationRepository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	args := m.Called(ctx, slug)
	if org := args.Get(0); org != nil {
		return org.(*models.Organization), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrganizationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error) {
	args := m.Called(ctx, userID)
	if orgs := args.Get(0); orgs != nil {
		return orgs.([]*models.Organization), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMembershipRepository is a mock implementation of MembershipRepository
type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) Create(ctx context.Context, membership *models.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepository) Get(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, userID, orgID)
	if membership := args.Get(0); membership != nil {
		return membership.(*models.Membership), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMembershipRepository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Membership, error) {
	args := m.Called(ctx, orgID)
	if memberships := args.Get(0); memberships != nil {
		return memberships.([]*models.Membership), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAuditRepository is a mock implementation of AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockAuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	args := m.Called(ctx, id)
	if log := args.Get(0); log != nil {
		return log.(*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuditRepository) GetByOrgID(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, orgID, limit, offset)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuditRepository) GetByAction(ctx context.Context, orgID uuid.UUID, action models.AuditAction, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, orgID, action, limit, offset)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

// stubTxManager runs the function inline without a real database transaction
type stubTxManager struct{}

func (stubTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return nil, errors.New("not supported in tests")
}

func (stubTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return fn(ctx, nil)
}

type fixture struct {
	svc         *Service
	apiKeys     *MockAPIKeyRepository
	orgs        *MockOrganizationRepository
	memberships *MockMembershipRepository
	auditRepo   *MockAuditRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	apiKeys := new(MockAPIKeyRepository)
	orgs := new(MockOrganizationRepository)
	memberships := new(MockMembershipRepository)
	auditRepo := new(MockAuditRepository)

	verifier := token.NewVerifier(token.Config{Secret: "test-secret", Issuer: "orgdesk-test", TTL: time.Hour})
	identitySvc := identity.NewService(verifier, nil, apiKeys, memberships, zap.NewNop())
	recorder := audit.NewRecorder(auditRepo, zap.NewNop())

	svc := NewService(apiKeys, orgs, stubTxManager{}, identitySvc, recorder, "ak_", zap.NewNop())
	return &fixture{svc: svc, apiKeys: apiKeys, orgs: orgs, memberships: memberships, auditRepo: auditRepo}
}

func member(orgID uuid.UUID) *identity.Principal {
	return &identity.Principal{
		UserID:   uuid.New(),
		Email:    "alice@example.com",
		Role:     models.RoleMember,
		AuthMode: identity.AuthModeSession,
	}
}

func TestCreate(t *testing.T) {
	org := models.NewOrganization("Acme", "acme")
	meta := audit.RequestMeta{RequestID: "req-1"}

	t.Run("member creates a key and sees the credential once", func(t *testing.T) {
		f := newFixture(t)
		p := member(org.ID)

		f.orgs.On("GetBySlug", mock.Anything, "acme").Return(org, nil)
		f.memberships.On("Get", mock.Anything, p.UserID, org.ID).
			Return(models.NewMembership(p.UserID, org.ID, models.RoleMember), nil)
		f.apiKeys.On("Create", mock.Anything, mock.AnythingOfType("*models.APIKey")).Return(nil)

		var auditLog *models.AuditLog
		f.auditRepo.On("Insert", mock.Anything, mock.AnythingOfType("*models.AuditLog")).
			Run(func(args mock.Arguments) { auditLog = args.Get(1).(*models.AuditLog) }).
			Return(nil)

		created, err := f.svc.Create(context.Background(), p, "acme", CreateInput{Name: "ci key"}, meta)
		require.NoError(t, err)

		prefix, secret, ok := strings.Cut(created.Credential, ".")
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(prefix, "ak_"))
		assert.Equal(t, prefix, created.Key.Prefix)
		// Stored hash must match the issued secret, plaintext is not stored
		assert.Equal(t, identity.HashSecret(secret), created.Key.SecretHash)
		assert.NotContains(t, created.Key.SecretHash, secret)

		require.NotNil(t, auditLog)
		assert.Equal(t, models.AuditActionAPIKeyCreated, auditLog.Action)
		assert.Equal(t, org.ID, auditLog.OrgID)
	})

	t.Run("blank name is rejected before any store access", func(t *testing.T) {
		f := newFixture(t)
		p := member(org.ID)

		_, err := f.svc.Create(context.Background(), p, "acme", CreateInput{Name: "   "}, meta)
		assert.True(t, services.IsValidationError(err))
		f.orgs.AssertNotCalled(t, "GetBySlug", mock.Anything, mock.Anything)
	})

	t.Run("unknown organization", func(t *testing.T) {
		f := newFixture(t)
		p := member(org.ID)

		f.orgs.On("GetBySlug", mock.Anything, "ghost").
			Return(nil, fmt.Errorf("organization %s: %w", "ghost", repositories.ErrNotFound))

		_, err := f.svc.Create(context.Background(), p, "ghost", CreateInput{Name: "ci key"}, meta)
		assert.ErrorIs(t, err, services.ErrOrganizationNotFound)
	})

	t.Run("non-member cannot create", func(t *testing.T) {
		f := newFixture(t)
		p := member(org.ID)

		f.orgs.On("GetBySlug", mock.Anything, "acme").Return(org, nil)
		f.memberships.On("Get", mock.Anything, p.UserID, org.ID).Return(nil, nil)

		_, err := f.svc.Create(context.Background(), p, "acme", CreateInput{Name: "ci key"}, meta)
		assert.True(t, services.IsForbiddenError(err))
		f.apiKeys.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("expiry in the past is rejected", func(t *testing.T) {
		f := newFixture(t)
		p := member(org.ID)
		past := time.Now().Add(-time.Hour)

		_, err := f.svc.Create(context.Background(), p, "acme", CreateInput{Name: "ci key", ExpiresAt: &past}, meta)
		assert.True(t, services.IsValidationError(err))
	})
}

func TestList(t *testing.T) {
	org := models.NewOrganization("Acme", "acme")

	t.Run("member lists keys including revoked", func(t *testing.T) {
		f := newFixture(t)
		p := member(org.ID)
		active := models.NewAPIKey("ak_aaa", "hash", p.UserID, org.ID, "active")
		revoked := models.NewAPIKey("ak_bbb", "hash", p.UserID, org.ID, "old")
		at := time.Now()
		revoked.RevokedAt = &at

		f.orgs.On("GetBySlug", mock.Anything, "acme").Return(org, nil)
		f.memberships.On("Get", mock.Anything, p.UserID, org.ID).
			Return(models.NewMembership(p.UserID, org.ID, models.RoleMember), nil)
		f.apiKeys.On("ListByOrg", mock.Anything, org.ID).
			Return([]*models.APIKey{active, revoked}, nil)

		keys, err := f.svc.List(context.Background(), p, "acme")
		require.NoError(t, err)
		assert.Len(t, keys, 2)
	})

	t.Run("api key principal cannot list another organization", func(t *testing.T) {
		f := newFixture(t)
		otherOrg := uuid.New()
		p := member(org.ID)
		p.AuthMode = identity.AuthModeAPIKey
		p.ScopedOrgID = &otherOrg

		f.orgs.On("GetBySlug", mock.Anything, "acme").Return(org, nil)

		_, err := f.svc.List(context.Background(), p, "acme")
		assert.ErrorIs(t, err, services.ErrOrgScopeMismatch)
	})
}

func TestRevoke(t *testing.T) {
	org := models.NewOrganization("Acme", "acme")
	meta := audit.RequestMeta{RequestID: "req-1"}

	newKey := func(owner uuid.UUID) *models.APIKey {
		return models.NewAPIKey("ak_7f3abc", "hash", owner, org.ID, "ci key")
	}

	t.Run("owner revokes active key with one audit entry", func(t *testing.T) {
		f := newFixture(t)
		p := member(org.ID)
		key := newKey(p.UserID)
		at := time.Now()
		revokedCopy := *key
		revokedCopy.RevokedAt = &at

		f.apiKeys.On("GetByID", mock.Anything, key.ID).Return(key, nil)
		f.apiKeys.On("SetRevoked", mock.Anything, key.ID, mock.AnythingOfType("time.Time")).
			Return(&revokedCopy, nil)
		f.auditRepo.On("Insert", mock.Anything, mock.AnythingOfType("*models.AuditLog")).Return(nil)

		revoked, err := f.svc.Revoke(context.Background(), p, key.ID, meta)
		require.NoError(t, err)
		assert.NotNil(t, revoked.RevokedAt)
		f.auditRepo.AssertNumberOfCalls(t, "Insert", 1)
	})

	t.Run("already revoked is rejected without a second audit entry", func(t *testing.T) {
		f := newFixture(t)
		p := member(org.ID)
		key := newKey(p.UserID)
		at := time.Now().Add(-time.Hour)
		key.RevokedAt = &at

		f.apiKeys.On("GetByID", mock.Anything, key.ID).Return(key, nil)

		_, err := f.svc.Revoke(context.Background(), p, key.ID, meta)
		assert.ErrorIs(t, err, services.ErrAlreadyRevoked)
		f.auditRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
		f.apiKeys.AssertNotCalled(t, "SetRevoked", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("concurrent revocation loses the compare-and-set race", func(t *testing.T) {
		f := newFixture(t)
		p := member(org.ID)
		key := newKey(p.UserID)

		f.apiKeys.On("GetByID", mock.Anything, key.ID).Return(key, nil)
		f.apiKeys.On("SetRevoked", mock.Anything, key.ID, mock.AnythingOfType("time.Time")).
			Return(nil, fmt.Errorf("api key %s: %w", key.ID, repositories.ErrKeyAlreadyRevoked))

		_, err := f.svc.Revoke(context.Background(), p, key.ID, meta)
		assert.ErrorIs(t, err, services.ErrAlreadyRevoked)
		f.auditRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("non-owner cannot revoke", func(t *testing.T) {
		f := newFixture(t)
		p := member(org.ID)
		key := newKey(uuid.New())

		f.apiKeys.On("GetByID", mock.Anything, key.ID).Return(key, nil)

		_, err := f.svc.Revoke(context.Background(), p, key.ID, meta)
		assert.ErrorIs(t, err, services.ErrNotKeyOwner)
	})

	t.Run("superadmin may revoke another user's key", func(t *testing.T) {
		f := newFixture(t)
		p := member(org.ID)
		p.Role = models.RoleSuperadmin
		key := newKey(uuid.New())
		at := time.Now()
		revokedCopy := *key
		revokedCopy.RevokedAt = &at

		f.apiKeys.On("GetByID", mock.Anything, key.ID).Return(key, nil)
		f.apiKeys.On("SetRevoked", mock.Anything, key.ID, mock.AnythingOfType("time.Time")).
			Return(&revokedCopy, nil)
		f.auditRepo.On("Insert", mock.Anything, mock.AnythingOfType("*models.AuditLog")).Return(nil)

		_, err := f.svc.Revoke(context.Background(), p, key.ID, meta)
		assert.NoError(t, err)
	})

	t.Run("api key from another organization cannot revoke here", func(t *testing.T) {
		f := newFixture(t)
		p := member(org.ID)
		key := newKey(p.UserID)
		otherOrg := uuid.New()
		p.AuthMode = identity.AuthModeAPIKey
		p.ScopedOrgID = &otherOrg

		f.apiKeys.On("GetByID", mock.Anything, key.ID).Return(key, nil)

		_, err := f.svc.Revoke(context.Background(), p, key.ID, meta)
		assert.ErrorIs(t, err, services.ErrOrgScopeMismatch)
	})

	t.Run("missing key", func(t *testing.T) {
		f := newFixture(t)
		p := member(org.ID)
		id := uuid.New()

		f.apiKeys.On("GetByID", mock.Anything, id).
			Return(nil, fmt.Errorf("api key %s: %w", id, repositories.ErrNotFound))

		_, err := f.svc.Revoke(context.Background(), p, id, meta)
		assert.ErrorIs(t, err, services.ErrAPIKeyNotFound)
	})

	t.Run("audit failure fails the revocation", func(t *testing.T) {
		f := newFixture(t)
		p := member(org.ID)
		key := newKey(p.UserID)
		at := time.Now()
		revokedCopy := *key
		revokedCopy.RevokedAt = &at

		f.apiKeys.On("GetByID", mock.Anything, key.ID).Return(key, nil)
		f.apiKeys.On("SetRevoked", mock.Anything, key.ID, mock.AnythingOfType("time.Time")).
			Return(&revokedCopy, nil)
		f.auditRepo.On("Insert", mock.Anything, mock.AnythingOfType("*models.AuditLog")).
			Return(errors.New("disk full"))

		_, err := f.svc.Revoke(context.Background(), p, key.ID, meta)
		assert.True(t, services.IsInternalError(err))
	})
}
