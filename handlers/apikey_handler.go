package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orgdesk/console/app"
	"github.com/orgdesk/console/middleware"
	"github.com/orgdesk/console/models"
	"github.com/orgdesk/console/services/apikeys"
	"github.com/orgdesk/console/utils"
)

// CreateAPIKeyRequest is the request body for POST /organizations/{slug}/api-keys
type CreateAPIKeyRequest struct {
	Name      string     `json:"name" validate:"required,min=1,max=100"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateAPIKeyResponse carries the one-time plaintext credential
type CreateAPIKeyResponse struct {
	Key        *models.APIKey `json:"key"`
	Credential string         `json:"credential"`
}

// CreateAPIKeyHandler mints a new API key for the caller in the organization
func CreateAPIKeyHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.GetPrincipalFromContext(r.Context())
		if principal == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		var req CreateAPIKeyRequest
		if err := decodeJSON(r, &req); err != nil {
			_ = utils.WriteBadRequest(w, "Invalid request body", nil)
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			HandleValidationError(w, err, deps.Logger)
			return
		}

		created, err := deps.APIKeys.Create(r.Context(), principal, chi.URLParam(r, "slug"),
			apikeys.CreateInput{Name: req.Name, ExpiresAt: req.ExpiresAt}, requestMeta(r))
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		respondJSON(w, http.StatusCreated, SuccessResponse{Data: CreateAPIKeyResponse{
			Key:        created.Key,
			Credential: created.Credential,
		}})
	}
}

// ListAPIKeysHandler lists the organization's API keys
func ListAPIKeysHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.GetPrincipalFromContext(r.Context())
		if principal == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		keys, err := deps.APIKeys.List(r.Context(), principal, chi.URLParam(r, "slug"))
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		respondJSON(w, http.StatusOK, SuccessResponse{Data: keys})
	}
}

// RevokeAPIKeyHandler revokes one API key by ID
func RevokeAPIKeyHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.GetPrincipalFromContext(r.Context())
		if principal == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		keyID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid API key ID", nil)
			return
		}

		revoked, err := deps.APIKeys.Revoke(r.Context(), principal, keyID, requestMeta(r))
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		respondJSON(w, http.StatusOK, SuccessResponse{Data: revoked})
	}
}
