package middleware

import (
	"context"

	"github.com/orgdesk/console/services/identity"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// PrincipalKey is the context key for the resolved principal
	PrincipalKey contextKey = "principal"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetPrincipalFromContext retrieves the resolved principal from context.
// Returns nil on routes that did not pass through RequireAuth.
func GetPrincipalFromContext(ctx context.Context) *identity.Principal {
	if val := ctx.Value(PrincipalKey); val != nil {
		if principal, ok := val.(*identity.Principal); ok {
			return principal
		}
	}
	return nil
}

// WithPrincipal adds a resolved principal to the context
func WithPrincipal(ctx context.Context, principal *identity.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}
