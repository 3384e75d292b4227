package identity

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/orgdesk/console/repositories"
	"github.com/orgdesk/console/services"
	"github.com/orgdesk/console/token"
)

// timeNow is swapped out by tests that need a fixed clock
var timeNow = time.Now

// sessionCookieName is where the session token is carried. A bearer
// Authorization header always takes precedence over the cookie.
const sessionCookieName = "session"

// Service resolves request credentials into a Principal and answers
// authorization questions about one. Every resolution path fails closed:
// any ambiguity or store failure yields an unauthenticated error, never a
// partially-trusted principal.
type Service struct {
	verifier    *token.Verifier
	users       repositories.UserRepository
	apiKeys     repositories.APIKeyRepository
	memberships repositories.MembershipRepository
	logger      *zap.Logger
}

// NewService creates a new identity Service
func NewService(
	verifier *token.Verifier,
	users repositories.UserRepository,
	apiKeys repositories.APIKeyRepository,
	memberships repositories.MembershipRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		verifier:    verifier,
		users:       users,
		apiKeys:     apiKeys,
		memberships: memberships,
		logger:      logger,
	}
}

// VerifyToken checks a session token's signature, expiry, and issuer without
// touching the store. The result is provisional: it does not account for
// logout-everywhere, so privilege-sensitive paths must use ResolveSession.
func (s *Service) VerifyToken(raw string) (*token.SessionClaims, error) {
	claims, err := s.verifier.Verify(raw)
	if err != nil {
		return nil, services.WrapError(services.ErrorTypeUnauthenticated, "invalid or expired session token", err)
	}
	return claims, nil
}

// ResolveSession performs the full session decision: signature and expiry via
// the verifier, then a store round-trip to compare the token's version against
// the user's current session version. A mismatch means the user has logged out
// everywhere since the token was issued.
func (s *Service) ResolveSession(ctx context.Context, raw string) (*Principal, error) {
	claims, err := s.verifier.Verify(raw)
	if err != nil {
		s.logger.Debug("session token rejected", zap.Error(err))
		return nil, services.ErrInvalidToken
	}

	current, err := s.users.GetSessionVersion(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Token subject no longer exists; treat as an invalid credential
			return nil, services.ErrInvalidToken
		}
		s.logger.Error("session version lookup failed",
			zap.String("user_id", claims.SubjectID.String()),
			zap.Error(err))
		return nil, services.ErrUnauthenticated
	}

	if claims.TokenVersion != current {
		s.logger.Info("stale session token",
			zap.String("user_id", claims.SubjectID.String()),
			zap.Int64("token_version", claims.TokenVersion),
			zap.Int64("current_version", current))
		return nil, services.ErrStaleSession
	}

	return &Principal{
		UserID:   claims.SubjectID,
		Email:    claims.Email,
		Role:     claims.Role,
		AuthMode: AuthModeSession,
	}, nil
}

// ResolveAPIKey resolves a "prefix.secret" bearer credential. The prefix is
// the lookup handle; the secret is hashed and compared in constant time
// against the stored digest. Revoked and expired keys are rejected even when
// the secret matches.
func (s *Service) ResolveAPIKey(ctx context.Context, credential string) (*Principal, error) {
	prefix, secret, ok := strings.Cut(credential, ".")
	if !ok || prefix == "" || secret == "" {
		return nil, services.ErrInvalidAPIKey
	}

	key, err := s.apiKeys.GetByPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrAPIKeyNotFound
		}
		s.logger.Error("api key lookup failed",
			zap.String("prefix", prefix),
			zap.Error(err))
		return nil, services.ErrUnauthenticated
	}

	if !secretMatches(key.SecretHash, secret) {
		s.logger.Warn("api key secret mismatch", zap.String("prefix", prefix))
		return nil, services.ErrInvalidAPIKey
	}

	if !key.Usable(timeNow()) {
		return nil, services.ErrAPIKeyRevokedOrExpired
	}

	user, err := s.users.GetByID(ctx, key.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Owner was deleted out from under the key
			return nil, services.ErrInvalidAPIKey
		}
		s.logger.Error("api key owner lookup failed",
			zap.String("user_id", key.UserID.String()),
			zap.Error(err))
		return nil, services.ErrUnauthenticated
	}

	orgID := key.OrgID
	return &Principal{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.Role,
		AuthMode:    AuthModeAPIKey,
		ScopedOrgID: &orgID,
	}, nil
}

// ResolveRequest unifies the two credential channels for one request. A
// bearer Authorization header is treated as an API key and takes precedence
// over the session cookie; with neither present the request is anonymous.
func (s *Service) ResolveRequest(ctx context.Context, r *http.Request) (*Principal, error) {
	if bearer := extractBearerToken(r); bearer != "" {
		principal, err := s.ResolveAPIKey(ctx, bearer)
		if err != nil {
			return nil, err
		}
		return principal, nil
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return s.ResolveSession(ctx, cookie.Value)
	}

	return nil, services.ErrUnauthenticated
}

// HashSecret returns the hex SHA-256 digest stored for an API key secret.
// A deterministic digest is required so the key can be located by prefix and
// verified without a per-row salt scan.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// secretMatches compares the presented secret against the stored digest in
// constant time
func secretMatches(storedHash, secret string) bool {
	sum := sha256.Sum256([]byte(secret))
	presented := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(presented)) == 1
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
