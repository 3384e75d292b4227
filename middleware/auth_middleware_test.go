package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/orgdesk/console/models"
	"github.com/orgdesk/console/services"
	"github.com/orgdesk/console/services/identity"
)

// MockRequestResolver is a mock implementation of RequestResolver
type MockRequestResolver struct {
	mock.Mock
}

func (m *MockRequestResolver) ResolveRequest(ctx context.Context, r *http.Request) (*identity.Principal, error) {
	args := m.Called(ctx, r)
	if principal := args.Get(0); principal != nil {
		return principal.(*identity.Principal), args.Error(1)
	}
	return nil, args.Error(1)
}

func okHandler(sawPrincipal **identity.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*sawPrincipal = GetPrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	t.Run("resolved principal is stored in context", func(t *testing.T) {
		resolver := new(MockRequestResolver)
		m := NewAuthMiddleware(resolver, zap.NewNop())
		p := &identity.Principal{UserID: uuid.New(), Role: models.RoleMember, AuthMode: identity.AuthModeSession}
		resolver.On("ResolveRequest", mock.Anything, mock.Anything).Return(p, nil)

		var saw *identity.Principal
		rec := httptest.NewRecorder()
		m.RequireAuth(okHandler(&saw)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, p, saw)
	})

	t.Run("unauthenticated is 401", func(t *testing.T) {
		resolver := new(MockRequestResolver)
		m := NewAuthMiddleware(resolver, zap.NewNop())
		resolver.On("ResolveRequest", mock.Anything, mock.Anything).Return(nil, services.ErrUnauthenticated)

		var saw *identity.Principal
		rec := httptest.NewRecorder()
		m.RequireAuth(okHandler(&saw)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, saw)
	})

	t.Run("revoked api key is 403", func(t *testing.T) {
		resolver := new(MockRequestResolver)
		m := NewAuthMiddleware(resolver, zap.NewNop())
		resolver.On("ResolveRequest", mock.Anything, mock.Anything).Return(nil, services.ErrAPIKeyRevokedOrExpired)

		var saw *identity.Principal
		rec := httptest.NewRecorder()
		m.RequireAuth(okHandler(&saw)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown api key prefix is 401, not 404", func(t *testing.T) {
		resolver := new(MockRequestResolver)
		m := NewAuthMiddleware(resolver, zap.NewNop())
		resolver.On("ResolveRequest", mock.Anything, mock.Anything).Return(nil, services.ErrAPIKeyNotFound)

		rec := httptest.NewRecorder()
		m.RequireAuth(okHandler(new(*identity.Principal))).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireSuperadmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("superadmin passes", func(t *testing.T) {
		m := NewAuthMiddleware(new(MockRequestResolver), zap.NewNop())
		p := &identity.Principal{UserID: uuid.New(), Role: models.RoleSuperadmin}

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(WithPrincipal(r.Context(), p))
		rec := httptest.NewRecorder()
		m.RequireSuperadmin(next).ServeHTTP(rec, r)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("member is forbidden", func(t *testing.T) {
		m := NewAuthMiddleware(new(MockRequestResolver), zap.NewNop())
		p := &identity.Principal{UserID: uuid.New(), Role: models.RoleMember}

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(WithPrincipal(r.Context(), p))
		rec := httptest.NewRecorder()
		m.RequireSuperadmin(next).ServeHTTP(rec, r)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing principal is 401", func(t *testing.T) {
		m := NewAuthMiddleware(new(MockRequestResolver), zap.NewNop())

		rec := httptest.NewRecorder()
		m.RequireSuperadmin(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
