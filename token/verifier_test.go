package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgdesk/console/models"
)

func newTestVerifier(ttl time.Duration) *Verifier {
	return NewVerifier(Config{
		Secret: "test-secret",
		Issuer: "orgdesk-console",
		TTL:    ttl,
	})
}

func TestIssueAndVerify(t *testing.T) {
	v := newTestVerifier(time.Hour)
	user := models.NewUser("alice@example.com", "Alice", models.RoleMember)
	user.SessionVersion = 3

	signed, err := v.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := v.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.SubjectID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, models.RoleMember, claims.Role)
	assert.Equal(t, int64(3), claims.TokenVersion)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	v := newTestVerifier(-time.Minute)
	user := models.NewUser("alice@example.com", "Alice", models.RoleMember)

	signed, err := v.Issue(user)
	require.NoError(t, err)

	_, err = v.Verify(signed)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	v := newTestVerifier(time.Hour)
	user := models.NewUser("alice@example.com", "Alice", models.RoleMember)

	signed, err := v.Issue(user)
	require.NoError(t, err)

	other := NewVerifier(Config{Secret: "different-secret", Issuer: "orgdesk-console", TTL: time.Hour})
	_, err = other.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	v := newTestVerifier(time.Hour)
	user := models.NewUser("alice@example.com", "Alice", models.RoleMember)

	signed, err := v.Issue(user)
	require.NoError(t, err)

	tampered := signed[:len(signed)-2] + "xx"
	_, err = v.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	issued := NewVerifier(Config{Secret: "test-secret", Issuer: "other-app", TTL: time.Hour})
	user := models.NewUser("alice@example.com", "Alice", models.RoleMember)

	signed, err := issued.Issue(user)
	require.NoError(t, err)

	v := newTestVerifier(time.Hour)
	_, err = v.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidIssuer)
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	v := newTestVerifier(time.Hour)
	user := models.NewUser("alice@example.com", "Alice", models.Role("owner"))

	signed, err := v.Issue(user)
	require.NoError(t, err)

	_, err = v.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	v := newTestVerifier(time.Hour)
	_, err := v.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStateSignerRoundTrip(t *testing.T) {
	s := NewStateSigner(Config{Secret: "test-secret", Issuer: "orgdesk-console", TTL: 10 * time.Minute})
	orgID := uuid.New()
	userID := uuid.New()

	state, nonce, err := s.Sign(orgID, userID, "github")
	require.NoError(t, err)
	require.NotEmpty(t, state)
	require.NotEmpty(t, nonce)

	parsed, err := s.Verify(state)
	require.NoError(t, err)
	assert.Equal(t, orgID, parsed.OrgID)
	assert.Equal(t, userID, parsed.UserID)
	assert.Equal(t, "github", parsed.Provider)
	assert.Equal(t, nonce, parsed.Nonce)
}

func TestStateSignerNoncesAreUnique(t *testing.T) {
	s := NewStateSigner(Config{Secret: "test-secret", TTL: 10 * time.Minute})
	orgID := uuid.New()
	userID := uuid.New()

	_, n1, err := s.Sign(orgID, userID, "github")
	require.NoError(t, err)
	_, n2, err := s.Sign(orgID, userID, "github")
	require.NoError(t, err)
	assert.NotEqual(t, n1, n2)
}

func TestStateSignerRejectsExpired(t *testing.T) {
	s := NewStateSigner(Config{Secret: "test-secret", TTL: -time.Minute})
	state, _, err := s.Sign(uuid.New(), uuid.New(), "slack")
	require.NoError(t, err)

	_, err = s.Verify(state)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
