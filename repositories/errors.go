package repositories

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrKeyAlreadyRevoked is returned by SetRevoked when the key's
	// revoked_at was already set. The revoked transition happens at most
	// once per key.
	ErrKeyAlreadyRevoked = errors.New("api key already revoked")
)
