// Package sessions implements server-side session invalidation. Session
// tokens are stateless, so "logout everywhere" works by bumping the user's
// session version: every token minted under an older version becomes stale.
package sessions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orgdesk/console/models"
	"github.com/orgdesk/console/repositories"
	"github.com/orgdesk/console/services"
	"github.com/orgdesk/console/services/audit"
	"github.com/orgdesk/console/services/identity"
)

// Service manages session-version state for users
type Service struct {
	users     repositories.UserRepository
	txManager repositories.TransactionManager
	recorder  *audit.Recorder
	logger    *zap.Logger
}

// NewService creates a new sessions Service
func NewService(
	users repositories.UserRepository,
	txManager repositories.TransactionManager,
	recorder *audit.Recorder,
	logger *zap.Logger,
) *Service {
	return &Service{
		users:     users,
		txManager: txManager,
		recorder:  recorder,
		logger:    logger,
	}
}

// RevokeAll invalidates every outstanding session token of the caller by
// incrementing their session version. Only session-mode principals may call
// it: an API key is not a session and cannot end one. Returns the new
// session version. The caller's own token goes stale with the rest; the
// handler clears the session cookie, so the current browser signs in again
// too.
func (s *Service) RevokeAll(ctx context.Context, p *identity.Principal, meta audit.RequestMeta) (int64, error) {
	if p.AuthMode != identity.AuthModeSession {
		return 0, services.NewDomainError(services.ErrorTypeForbidden, "API key credentials cannot revoke sessions", nil)
	}

	var newVersion int64
	err := s.txManager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		var err error
		newVersion, err = s.users.IncrementSessionVersion(txCtx, p.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return services.ErrUserNotFound
			}
			return services.WrapInternal("failed to increment session version", err)
		}
		// Global-scope entry: no single organization owns a logout
		return s.recorder.RecordAction(txCtx, uuid.Nil, models.AuditActionSessionRevokedAll,
			p.UserID, p.Email,
			map[string]interface{}{"new_session_version": newVersion}, meta)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("all sessions revoked",
		zap.String("user_id", p.UserID.String()),
		zap.Int64("new_session_version", newVersion))

	return newVersion, nil
}
