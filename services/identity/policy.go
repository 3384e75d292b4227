package identity

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orgdesk/console/models"
	"github.com/orgdesk/console/services"
)

// ValidateAPIKeyOrgAccess rejects an API key principal that is trying to act
// outside the organization its key was minted for. The scope is a property
// of the credential, not the holder: it binds regardless of role, so a leaked
// superadmin key stays confined to its organization. Session principals are
// not constrained by it. The check is pure: it consults only the principal,
// never the store.
func ValidateAPIKeyOrgAccess(p *Principal, orgID uuid.UUID) error {
	if p.AuthMode != AuthModeAPIKey {
		return nil
	}
	if p.ScopedOrgID == nil || *p.ScopedOrgID != orgID {
		return services.ErrOrgScopeMismatch
	}
	return nil
}

// RequireRole requires the principal to hold at least minRole within the
// organization. Superadmins pass unconditionally regardless of membership.
// A missing membership and an insufficient role are both Forbidden; only a
// store failure surfaces as internal.
func (s *Service) RequireRole(ctx context.Context, p *Principal, orgID uuid.UUID, minRole models.Role) error {
	if p.IsSuperadmin() {
		return nil
	}

	membership, err := s.memberships.Get(ctx, p.UserID, orgID)
	if err != nil {
		s.logger.Error("membership lookup failed",
			zap.String("user_id", p.UserID.String()),
			zap.String("org_id", orgID.String()),
			zap.Error(err))
		return services.WrapInternal("failed to check organization membership", err)
	}
	if membership == nil {
		return services.NewDomainError(services.ErrorTypeForbidden, "no membership in this organization", nil).
			WithDetail("org_id", orgID.String())
	}

	if !membership.Role.AtLeast(minRole) {
		return services.NewDomainError(services.ErrorTypeForbidden, "insufficient role", nil).
			WithDetail("required_role", string(minRole)).
			WithDetail("org_id", orgID.String())
	}

	return nil
}

// RequireMember requires any membership in the organization
func (s *Service) RequireMember(ctx context.Context, p *Principal, orgID uuid.UUID) error {
	return s.RequireRole(ctx, p, orgID, models.RoleMember)
}

// RequireAdminOrSuperadmin gates privileged organization operations: the
// principal must be an org admin or a superadmin
func (s *Service) RequireAdminOrSuperadmin(ctx context.Context, p *Principal, orgID uuid.UUID) error {
	return s.RequireRole(ctx, p, orgID, models.RoleAdmin)
}
