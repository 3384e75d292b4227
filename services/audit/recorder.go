// Package audit records security-relevant actions to the append-only audit
// trail. Recording is synchronous: a failed write fails the operation that
// triggered it, so the trail can never silently miss a privileged action.
package audit

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orgdesk/console/models"
	"github.com/orgdesk/console/repositories"
	"github.com/orgdesk/console/services"
)

// RequestMeta carries per-request metadata attached to every entry
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}

// Recorder writes audit entries through the audit repository. When the
// triggering operation runs inside a transaction, Record participates in it
// via the executor carried in ctx, so the entry commits and rolls back with
// the state change it describes.
type Recorder struct {
	auditRepo repositories.AuditRepository
	logger    *zap.Logger
}

// NewRecorder creates a new Recorder
func NewRecorder(auditRepo repositories.AuditRepository, logger *zap.Logger) *Recorder {
	return &Recorder{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Record appends one entry. Failures propagate to the caller.
func (r *Recorder) Record(ctx context.Context, log *models.AuditLog) error {
	if err := r.auditRepo.Insert(ctx, log); err != nil {
		r.logger.Error("audit log write failed",
			zap.String("action", string(log.Action)),
			zap.String("org_id", log.OrgID.String()),
			zap.Error(err))
		return services.WrapError(services.ErrorTypeInternal, "audit log write failed", err)
	}
	return nil
}

// RecordAction builds and appends an entry for an acting user in one call
func (r *Recorder) RecordAction(
	ctx context.Context,
	orgID uuid.UUID,
	action models.AuditAction,
	userID uuid.UUID,
	email string,
	details interface{},
	meta RequestMeta,
) error {
	log := models.NewAuditLog(orgID, action).
		WithUser(userID, email).
		WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
	if details != nil {
		log.WithDetails(details)
	}
	return r.Record(ctx, log)
}
