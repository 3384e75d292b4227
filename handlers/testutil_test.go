package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orgdesk/console/app"
	"github.com/orgdesk/console/config"
	"github.com/orgdesk/console/middleware"
	"github.com/orgdesk/console/models"
	"github.com/orgdesk/console/repositories"
	"github.com/orgdesk/console/routes"
	"github.com/orgdesk/console/services/apikeys"
	"github.com/orgdesk/console/services/audit"
	"github.com/orgdesk/console/services/identity"
	"github.com/orgdesk/console/services/integrations"
	"github.com/orgdesk/console/services/orgs"
	"github.com/orgdesk/console/services/sessions"
	"github.com/orgdesk/console/token"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetSessionVersion(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) IncrementSessionVersion(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
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
	if orgList := args.Get(0); orgList != nil {
		return orgList.([]*models.Organization), args.Error(1)
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

// testEnv bundles the mocked stores behind a fully wired router
type testEnv struct {
	router      http.Handler
	deps        *app.Dependencies
	verifier    *token.Verifier
	users       *MockUserRepository
	orgs        *MockOrganizationRepository
	memberships *MockMembershipRepository
	apiKeys     *MockAPIKeyRepository
	auditRepo   *MockAuditRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Auth: config.AuthConfig{
			TokenSecret:   "test-secret",
			TokenIssuer:   "orgdesk-test",
			TokenTTL:      time.Hour,
			StateTokenTTL: 10 * time.Minute,
			APIKeyPrefix:  "ak_",
		},
		Integrations: config.IntegrationsConfig{
			Providers: map[string]config.ProviderConfig{
				"google": {
					ClientID:     "google-client",
					AuthorizeURL: "https://accounts.google.com/o/oauth2/v2/auth",
					RedirectURI:  "https://console.example.com/oauth/callback",
					Scopes:       "openid email",
				},
				"notion": {
					ClientID:     "notion-client",
					AuthorizeURL: "https://api.notion.com/v1/oauth/authorize",
				},
			},
		},
		Environment: "test",
	}

	logger := zap.NewNop()
	users := new(MockUserRepository)
	orgRepo := new(MockOrganizationRepository)
	memberships := new(MockMembershipRepository)
	apiKeyRepo := new(MockAPIKeyRepository)
	auditRepo := new(MockAuditRepository)

	verifier := token.NewVerifier(token.Config{
		Secret: cfg.Auth.TokenSecret,
		Issuer: cfg.Auth.TokenIssuer,
		TTL:    cfg.Auth.TokenTTL,
	})
	signer := token.NewStateSigner(token.Config{
		Secret: cfg.Auth.TokenSecret,
		Issuer: cfg.Auth.TokenIssuer,
		TTL:    cfg.Auth.StateTokenTTL,
	})
	recorder := audit.NewRecorder(auditRepo, logger)
	identitySvc := identity.NewService(verifier, users, apiKeyRepo, memberships, logger)

	deps := &app.Dependencies{
		Config:         cfg,
		Logger:         logger,
		TxManager:      stubTxManager{},
		TokenVerifier:  verifier,
		StateSigner:    signer,
		Identity:       identitySvc,
		Sessions:       sessions.NewService(users, stubTxManager{}, recorder, logger),
		APIKeys:        apikeys.NewService(apiKeyRepo, orgRepo, stubTxManager{}, identitySvc, recorder, cfg.Auth.APIKeyPrefix, logger),
		Integrations:   integrations.NewService(cfg.Integrations, orgRepo, identitySvc, signer, recorder, logger),
		Orgs:           orgs.NewService(orgRepo, auditRepo, identitySvc, logger),
		Audit:          recorder,
		AuthMiddleware: middleware.NewAuthMiddleware(identitySvc, logger),
		CSRFMiddleware: middleware.NewCSRFMiddleware(logger),
	}

	return &testEnv{
		router:      routes.SetupRoutes(deps),
		deps:        deps,
		verifier:    verifier,
		users:       users,
		orgs:        orgRepo,
		memberships: memberships,
		apiKeys:     apiKeyRepo,
		auditRepo:   auditRepo,
	}
}

// sessionFor issues a session token and stubs the session-version lookup
func (e *testEnv) sessionFor(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()
	signed, err := e.verifier.Issue(user)
	require.NoError(t, err)
	e.users.On("GetSessionVersion", mock.Anything, user.ID).Return(user.SessionVersion, nil)
	return &http.Cookie{Name: "session", Value: signed}
}

// withCSRF attaches a matching double-submit pair to the request
func withCSRF(r *http.Request) {
	r.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: "csrf-tok"})
	r.Header.Set(middleware.CSRFHeaderName, "csrf-tok")
}
