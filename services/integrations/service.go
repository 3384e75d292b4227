// Package integrations implements OAuth authorization initiation for
// third-party integration providers. It only builds the provider authorize
// URL; the token exchange and callback handling live elsewhere.
package integrations

import (
	"context"
	"errors"
	"net/url"

	"go.uber.org/zap"

	"github.com/orgdesk/console/config"
	"github.com/orgdesk/console/models"
	"github.com/orgdesk/console/repositories"
	"github.com/orgdesk/console/services"
	"github.com/orgdesk/console/services/audit"
	"github.com/orgdesk/console/services/identity"
	"github.com/orgdesk/console/token"
)

// notionProvider is the allow-listed provider name whose public-integration
// variant is gated by a deployment flag
const notionProvider = "notion"

// Authorization is the result of a successful initiation. Nonce must be bound
// to the caller's browser so the callback can check both halves of the state.
type Authorization struct {
	Provider     string
	AuthorizeURL string
	Nonce        string
}

// Service initiates OAuth authorization flows against allow-listed providers
type Service struct {
	cfg         config.IntegrationsConfig
	orgs        repositories.OrganizationRepository
	identity    *identity.Service
	stateSigner *token.StateSigner
	recorder    *audit.Recorder
	logger      *zap.Logger
}

// NewService creates a new integrations Service
func NewService(
	cfg config.IntegrationsConfig,
	orgs repositories.OrganizationRepository,
	identitySvc *identity.Service,
	stateSigner *token.StateSigner,
	recorder *audit.Recorder,
	logger *zap.Logger,
) *Service {
	return &Service{
		cfg:         cfg,
		orgs:        orgs,
		identity:    identitySvc,
		stateSigner: stateSigner,
		recorder:    recorder,
		logger:      logger,
	}
}

// Initiate starts an OAuth authorization for a provider on behalf of an
// organization. Checks run strictly in order: organization existence, org
// admin privilege, API key org scope, provider allow-list and variant flag.
// Only then is the signed state minted and the authorize URL built.
func (s *Service) Initiate(ctx context.Context, p *identity.Principal, orgSlug, provider string, meta audit.RequestMeta) (*Authorization, error) {
	org, err := s.orgs.GetBySlug(ctx, orgSlug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrOrganizationNotFound
		}
		return nil, services.WrapInternal("failed to load organization", err)
	}

	if err := identity.ValidateAPIKeyOrgAccess(p, org.ID); err != nil {
		return nil, err
	}
	if err := s.identity.RequireAdminOrSuperadmin(ctx, p, org.ID); err != nil {
		return nil, err
	}

	providerCfg, allowed := s.cfg.Provider(provider)
	if !allowed {
		return nil, services.ErrProviderNotAllowed
	}

	// The variant flag is a deployment property: it rejects regardless of
	// the caller's role.
	if provider == notionProvider && !s.cfg.NotionPublicEnabled {
		return nil, services.ErrProviderVariantDisabled
	}

	if providerCfg.ClientID == "" || providerCfg.AuthorizeURL == "" {
		return nil, services.ErrProviderNotConfigured
	}

	state, nonce, err := s.stateSigner.Sign(org.ID, p.UserID, provider)
	if err != nil {
		return nil, services.WrapInternal("failed to sign authorization state", err)
	}

	authorizeURL, err := buildAuthorizeURL(providerCfg, state)
	if err != nil {
		return nil, services.WrapInternal("failed to build authorize URL", err)
	}

	if err := s.recorder.RecordAction(ctx, org.ID, models.AuditActionOAuthInitiated,
		p.UserID, p.Email,
		map[string]interface{}{"provider": provider}, meta); err != nil {
		return nil, err
	}

	s.logger.Info("oauth authorization initiated",
		zap.String("provider", provider),
		zap.String("org_id", org.ID.String()),
		zap.String("user_id", p.UserID.String()))

	return &Authorization{
		Provider:     provider,
		AuthorizeURL: authorizeURL,
		Nonce:        nonce,
	}, nil
}

// buildAuthorizeURL assembles the provider authorize URL with the standard
// OAuth query parameters and the signed state
func buildAuthorizeURL(cfg config.ProviderConfig, state string) (string, error) {
	u, err := url.Parse(cfg.AuthorizeURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("client_id", cfg.ClientID)
	q.Set("response_type", "code")
	q.Set("state", state)
	if cfg.RedirectURI != "" {
		q.Set("redirect_uri", cfg.RedirectURI)
	}
	if cfg.Scopes != "" {
		q.Set("scope", cfg.Scopes)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
