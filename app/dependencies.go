package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/orgdesk/console/config"
	"github.com/orgdesk/console/middleware"
	"github.com/orgdesk/console/repositories"
	"github.com/orgdesk/console/repositories/postgres"
	"github.com/orgdesk/console/services/apikeys"
	"github.com/orgdesk/console/services/audit"
	"github.com/orgdesk/console/services/identity"
	"github.com/orgdesk/console/services/integrations"
	"github.com/orgdesk/console/services/orgs"
	"github.com/orgdesk/console/services/sessions"
	"github.com/orgdesk/console/token"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Repos     *repositories.Repositories
	TxManager repositories.TransactionManager

	// Token machinery
	TokenVerifier *token.Verifier
	StateSigner   *token.StateSigner

	// Services
	Identity     *identity.Service
	Sessions     *sessions.Service
	APIKeys      *apikeys.Service
	Integrations *integrations.Service
	Orgs         *orgs.Service
	Audit        *audit.Recorder

	// Middleware
	AuthMiddleware *middleware.AuthMiddleware
	CSRFMiddleware *middleware.CSRFMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initTokens(cfg)
	deps.initServices(cfg)
	deps.initMiddleware()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection pool, repositories, and
// schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := d.DB.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Repos = factory.NewRepositories()
	d.TxManager = factory.GetTransactionManager()

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initTokens initializes the session token verifier and OAuth state signer
func (d *Dependencies) initTokens(cfg *config.Config) {
	d.TokenVerifier = token.NewVerifier(token.Config{
		Secret: cfg.Auth.TokenSecret,
		Issuer: cfg.Auth.TokenIssuer,
		TTL:    cfg.Auth.TokenTTL,
	})
	d.StateSigner = token.NewStateSigner(token.Config{
		Secret: cfg.Auth.TokenSecret,
		Issuer: cfg.Auth.TokenIssuer,
		TTL:    cfg.Auth.StateTokenTTL,
	})
}

// initServices wires the domain services on top of the repositories
func (d *Dependencies) initServices(cfg *config.Config) {
	d.Audit = audit.NewRecorder(d.Repos.AuditLogs, d.Logger)
	d.Identity = identity.NewService(
		d.TokenVerifier,
		d.Repos.Users,
		d.Repos.APIKeys,
		d.Repos.Memberships,
		d.Logger,
	)
	d.Sessions = sessions.NewService(d.Repos.Users, d.TxManager, d.Audit, d.Logger)
	d.APIKeys = apikeys.NewService(
		d.Repos.APIKeys,
		d.Repos.Organizations,
		d.TxManager,
		d.Identity,
		d.Audit,
		cfg.Auth.APIKeyPrefix,
		d.Logger,
	)
	d.Integrations = integrations.NewService(
		cfg.Integrations,
		d.Repos.Organizations,
		d.Identity,
		d.StateSigner,
		d.Audit,
		d.Logger,
	)
	d.Orgs = orgs.NewService(d.Repos.Organizations, d.Repos.AuditLogs, d.Identity, d.Logger)
}

// initMiddleware initializes the HTTP middleware stack
func (d *Dependencies) initMiddleware() {
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Identity, d.Logger)
	d.CSRFMiddleware = middleware.NewCSRFMiddleware(d.Logger)
}

// Close releases held resources
func (d *Dependencies) Close() error {
	if d.RepoFactory != nil {
		return d.RepoFactory.Close()
	}
	return nil
}
