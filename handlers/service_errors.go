package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/orgdesk/console/services"
	"github.com/orgdesk/console/utils"
)

// HandleServiceError maps domain errors to HTTP responses.
//
// The status contract: 401 for missing or invalid credentials, 403 for
// insufficient role / wrong org scope / failed CSRF, 404 for missing
// resources, 400 for already-revoked keys and disallowed providers, 500 only
// for unexpected internal failure.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)

	switch {
	case services.IsUnauthenticatedError(err):
		if werr := utils.WriteUnauthorized(w, err.Error()); werr != nil {
			logger.Error("failed to write unauthorized response", zap.Error(werr))
		}

	case services.IsForbiddenError(err):
		if werr := utils.WriteForbidden(w, err.Error()); werr != nil {
			logger.Error("failed to write forbidden response", zap.Error(werr))
		}

	case services.IsNotFoundError(err):
		if werr := utils.WriteNotFound(w, err.Error()); werr != nil {
			logger.Error("failed to write not found response", zap.Error(werr))
		}

	case services.IsValidationError(err):
		if werr := utils.WriteBadRequest(w, err.Error(), details); werr != nil {
			logger.Error("failed to write bad request response", zap.Error(werr))
		}

	case services.IsAlreadyRevokedError(err):
		// A stable error code so clients can distinguish "already revoked"
		// from other bad requests
		if werr := utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse{
			Error:   "already_revoked",
			Message: err.Error(),
			Details: details,
		}); werr != nil {
			logger.Error("failed to write already revoked response", zap.Error(werr))
		}

	case services.IsProviderNotAllowedError(err):
		if werr := utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse{
			Error:   "provider_not_allowed",
			Message: err.Error(),
			Details: details,
		}); werr != nil {
			logger.Error("failed to write provider not allowed response", zap.Error(werr))
		}

	case services.IsInternalError(err):
		// Log internal errors but return a generic message
		logger.Error("internal server error", zap.Error(err))
		if werr := utils.WriteInternalServerError(w, "An internal error occurred"); werr != nil {
			logger.Error("failed to write internal error response", zap.Error(werr))
		}

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		if werr := utils.WriteInternalServerError(w, "An unexpected error occurred"); werr != nil {
			logger.Error("failed to write internal error response", zap.Error(werr))
		}
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{})
		for k, v := range fields {
			details[k] = v
		}
		if werr := utils.WriteBadRequest(w, "Validation failed", details); werr != nil {
			logger.Error("failed to write validation error response", zap.Error(werr))
		}
		return
	}

	if werr := utils.WriteBadRequest(w, err.Error(), nil); werr != nil {
		logger.Error("failed to write validation error response", zap.Error(werr))
	}
}
