package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey represents a persistent bearer credential scoped to one
// organization. The wire form is "prefix.secret": Prefix is the non-secret
// lookup discriminator (unique, indexed), SecretHash is the SHA-256 digest of
// the secret portion. The plaintext secret is shown once at creation and
// never stored.
//
// Revocation is a one-way transition: RevokedAt is set once and the record
// stays forever. Re-revoking an already revoked key is rejected, not silently
// accepted.
type APIKey struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Prefix     string     `json:"prefix" db:"prefix"`
	SecretHash string     `json:"-" db:"secret_hash"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	OrgID      uuid.UUID  `json:"org_id" db:"org_id"`
	Name       string     `json:"name" db:"name"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
}

// TableName returns the table name for the APIKey model
func (APIKey) TableName() string {
	return "api_keys"
}

// NewAPIKey creates a new APIKey instance
func NewAPIKey(prefix, secretHash string, userID, orgID uuid.UUID, name string) *APIKey {
	return &APIKey{
		ID:         uuid.New(),
		Prefix:     prefix,
		SecretHash: secretHash,
		UserID:     userID,
		OrgID:      orgID,
		Name:       name,
		CreatedAt:  time.Now(),
	}
}

// Revoked returns true if the key has been revoked
func (k *APIKey) Revoked() bool {
	return k.RevokedAt != nil
}

// Expired returns true if the key has an expiry in the past
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// Usable returns true if the key is neither revoked nor expired
func (k *APIKey) Usable(now time.Time) bool {
	return !k.Revoked() && !k.Expired(now)
}
