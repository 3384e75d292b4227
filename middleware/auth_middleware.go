package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/orgdesk/console/services"
	"github.com/orgdesk/console/services/identity"
	"github.com/orgdesk/console/utils"
)

// RequestResolver resolves the credentials on a request into a principal
type RequestResolver interface {
	ResolveRequest(ctx context.Context, r *http.Request) (*identity.Principal, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	resolver RequestResolver
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(resolver RequestResolver, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		logger:   logger,
	}
}

// RequireAuth resolves the request's credentials (bearer API key or session
// cookie) and stores the principal in the request context. Missing or invalid
// credentials are 401; a valid but revoked or expired API key is 403.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		principal, err := m.resolver.ResolveRequest(ctx, r)
		if err != nil {
			m.logger.Warn("authentication failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			if services.IsForbiddenError(err) {
				_ = utils.WriteForbidden(w, "API key is revoked or expired")
				return
			}
			_ = utils.WriteUnauthorized(w, "Missing or invalid credentials")
			return
		}

		ctx = WithPrincipal(ctx, principal)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("user_id", principal.UserID.String()),
			zap.String("auth_mode", string(principal.AuthMode)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSuperadmin rejects any principal without the global superadmin role.
// Must run after RequireAuth.
func (m *AuthMiddleware) RequireSuperadmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		principal := GetPrincipalFromContext(ctx)
		if principal == nil {
			m.logger.Error("principal not found in context",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		if !principal.IsSuperadmin() {
			m.logger.Warn("superadmin required",
				zap.String("request_id", requestID),
				zap.String("user_id", principal.UserID.String()),
				zap.String("role", string(principal.Role)))
			_ = utils.WriteForbidden(w, "Insufficient permissions")
			return
		}

		next.ServeHTTP(w, r)
	})
}
