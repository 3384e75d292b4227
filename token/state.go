package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// StateClaims is the wire shape of an OAuth authorization state token
type stateClaims struct {
	jwt.RegisteredClaims
	OrgID    string `json:"org_id"`
	Provider string `json:"provider"`
	Nonce    string `json:"nonce"`
}

// AuthorizationState binds an OAuth authorization request to the
// organization, user, and provider it was initiated for, plus a single-use
// nonce. It travels as the OAuth "state" parameter and is consumed once by
// the callback handler.
type AuthorizationState struct {
	OrgID    uuid.UUID
	UserID   uuid.UUID
	Provider string
	Nonce    string
}

// StateSigner issues and verifies signed OAuth state tokens
type StateSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewStateSigner creates a new state signer
func NewStateSigner(cfg Config) *StateSigner {
	if cfg.TTL == 0 {
		cfg.TTL = 10 * time.Minute
	}
	return &StateSigner{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
	}
}

// Sign creates a signed state token. The returned nonce must also be bound
// to the browser (cookie) so the callback can verify both halves.
func (s *StateSigner) Sign(orgID, userID uuid.UUID, provider string) (state string, nonce string, err error) {
	nonce, err = NewNonce()
	if err != nil {
		return "", "", err
	}

	now := time.Now()
	claims := &stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		OrgID:    orgID.String(),
		Provider: provider,
		Nonce:    nonce,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	state, err = tok.SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign state token: %w", err)
	}
	return state, nonce, nil
}

// Verify checks a state token's signature and expiry and returns its binding
func (s *StateSigner) Verify(state string) (*AuthorizationState, error) {
	claims := &stateClaims{}
	tok, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid sub: %v", ErrInvalidToken, err)
	}
	orgID, err := uuid.Parse(claims.OrgID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid org_id: %v", ErrInvalidToken, err)
	}

	return &AuthorizationState{
		OrgID:    orgID,
		UserID:   userID,
		Provider: claims.Provider,
		Nonce:    claims.Nonce,
	}, nil
}

// NewNonce returns a fresh URL-safe random nonce
func NewNonce() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
