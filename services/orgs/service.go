// Package orgs implements the organization read surface of the console:
// listing the caller's organizations, organization detail, and the
// admin-gated audit trail view.
package orgs

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/orgdesk/console/models"
	"github.com/orgdesk/console/repositories"
	"github.com/orgdesk/console/services"
	"github.com/orgdesk/console/services/identity"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// AuditQuery selects a page of an organization's audit trail. Action is
// optional; when set, only entries with that action are returned.
type AuditQuery struct {
	Action models.AuditAction
	Limit  int
	Offset int
}

// Service serves organization reads
type Service struct {
	orgs      repositories.OrganizationRepository
	auditRepo repositories.AuditRepository
	identity  *identity.Service
	logger    *zap.Logger
}

// NewService creates a new orgs Service
func NewService(
	orgsRepo repositories.OrganizationRepository,
	auditRepo repositories.AuditRepository,
	identitySvc *identity.Service,
	logger *zap.Logger,
) *Service {
	return &Service{
		orgs:      orgsRepo,
		auditRepo: auditRepo,
		identity:  identitySvc,
		logger:    logger,
	}
}

// ListForCaller returns the organizations the caller is a member of
func (s *Service) ListForCaller(ctx context.Context, p *identity.Principal) ([]*models.Organization, error) {
	orgs, err := s.orgs.ListForUser(ctx, p.UserID)
	if err != nil {
		return nil, services.WrapInternal("failed to list organizations", err)
	}
	return orgs, nil
}

// GetBySlug returns an organization the caller can see: members of the
// organization and superadmins
func (s *Service) GetBySlug(ctx context.Context, p *identity.Principal, slug string) (*models.Organization, error) {
	org, err := s.resolveOrg(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := identity.ValidateAPIKeyOrgAccess(p, org.ID); err != nil {
		return nil, err
	}
	if err := s.identity.RequireMember(ctx, p, org.ID); err != nil {
		return nil, err
	}
	return org, nil
}

// AuditLogs returns a page of an organization's audit trail, admin-gated
func (s *Service) AuditLogs(ctx context.Context, p *identity.Principal, slug string, query AuditQuery) ([]*models.AuditLog, error) {
	org, err := s.resolveOrg(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := identity.ValidateAPIKeyOrgAccess(p, org.ID); err != nil {
		return nil, err
	}
	if err := s.identity.RequireAdminOrSuperadmin(ctx, p, org.ID); err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	var logs []*models.AuditLog
	if query.Action != "" {
		logs, err = s.auditRepo.GetByAction(ctx, org.ID, query.Action, limit, offset)
	} else {
		logs, err = s.auditRepo.GetByOrgID(ctx, org.ID, limit, offset)
	}
	if err != nil {
		return nil, services.WrapInternal("failed to list audit logs", err)
	}
	return logs, nil
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
