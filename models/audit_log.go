package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionAPIKeyCreated     AuditAction = "api_key_created"
	AuditActionAPIKeyRevoked     AuditAction = "api_key_revoked"
	AuditActionSessionRevokedAll AuditAction = "session_revoked_all"
	AuditActionOAuthInitiated    AuditAction = "oauth_authorization_initiated"
)

// AuditLog represents an append-only audit trail entry for a
// security-relevant action. Entries are never mutated or deleted.
type AuditLog struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrgID     uuid.UUID       `json:"org_id" db:"org_id"`
	UserID    *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	Action    AuditAction     `json:"action" db:"action"`
	Email     string          `json:"email" db:"email"`
	Details   json.RawMessage `json:"details" db:"details"` // JSONB for flexible metadata
	IPAddress string          `json:"ip_address" db:"ip_address"`
	UserAgent string          `json:"user_agent" db:"user_agent"`
	RequestID string          `json:"request_id" db:"request_id"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(orgID uuid.UUID, action AuditAction) *AuditLog {
	return &AuditLog{
		ID:        uuid.New(),
		OrgID:     orgID,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// WithUser sets the acting user
func (a *AuditLog) WithUser(userID uuid.UUID, email string) *AuditLog {
	a.UserID = &userID
	a.Email = email
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(requestID, ipAddress, userAgent string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}
