// Package token implements signed session tokens: issuance and the
// stateless signature/expiry check.
//
// Verify is deliberately store-free so it can run in contexts without
// database access (edge/gateway tier). A positive result is provisional: it
// cannot detect a session revoked after issuance. Call sites that need a
// final trust decision must go through the session resolver, which
// cross-checks the token version against the server-side session version.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/orgdesk/console/models"
)

var (
	// ErrInvalidToken is returned when the token is malformed or its signature fails
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidIssuer is returned when the token issuer is invalid
	ErrInvalidIssuer = errors.New("invalid issuer")
)

// Claims is the wire shape of a signed session token
type Claims struct {
	jwt.RegisteredClaims
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenVersion int64  `json:"token_version"`
}

// SessionClaims represents verified session-token claims. TokenVersion is
// the session version the token was issued under; it must match the stored
// session version before the token is trusted.
type SessionClaims struct {
	SubjectID    uuid.UUID
	Email        string
	Role         models.Role
	TokenVersion int64
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Verifier issues and verifies HMAC-signed session tokens
type Verifier struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// Config holds configuration for the Verifier
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// NewVerifier creates a new session token verifier
func NewVerifier(cfg Config) *Verifier {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Verifier{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
	}
}

// Issue creates a signed session token for a user at the given session version
func (v *Verifier) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
		Email:        user.Email,
		Role:         string(user.Role),
		TokenVersion: user.SessionVersion,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and expiry and returns its claims.
// It never consults the persistent store, so it cannot detect revocation.
func (v *Verifier) Verify(tokenString string) (*SessionClaims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidIssuer, v.issuer, claims.Issuer)
	}

	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid sub: %v", ErrInvalidToken, err)
	}

	role := models.Role(claims.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	parsed := &SessionClaims{
		SubjectID:    sub,
		Email:        claims.Email,
		Role:         role,
		TokenVersion: claims.TokenVersion,
	}
	if claims.IssuedAt != nil {
		parsed.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		parsed.ExpiresAt = claims.ExpiresAt.Time
	}
	return parsed, nil
}
