package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/orgdesk/console/app"
	"github.com/orgdesk/console/middleware"
	"github.com/orgdesk/console/models"
	"github.com/orgdesk/console/services/orgs"
	"github.com/orgdesk/console/utils"
)

// ListOrganizationsHandler lists the caller's organizations
func ListOrganizationsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.GetPrincipalFromContext(r.Context())
		if principal == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		list, err := deps.Orgs.ListForCaller(r.Context(), principal)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		respondJSON(w, http.StatusOK, SuccessResponse{Data: list})
	}
}

// GetOrganizationHandler returns one organization by slug
func GetOrganizationHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.GetPrincipalFromContext(r.Context())
		if principal == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		org, err := deps.Orgs.GetBySlug(r.Context(), principal, chi.URLParam(r, "slug"))
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		respondJSON(w, http.StatusOK, SuccessResponse{Data: org})
	}
}

// ListAuditLogsHandler returns a page of an organization's audit trail.
// Supports limit, offset, and action query parameters.
func ListAuditLogsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.GetPrincipalFromContext(r.Context())
		if principal == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		query := orgs.AuditQuery{
			Action: models.AuditAction(r.URL.Query().Get("action")),
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				_ = utils.WriteBadRequest(w, "limit must be an integer", nil)
				return
			}
			query.Limit = n
		}
		if v := r.URL.Query().Get("offset"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				_ = utils.WriteBadRequest(w, "offset must be an integer", nil)
				return
			}
			query.Offset = n
		}

		logs, err := deps.Orgs.AuditLogs(r.Context(), principal, chi.URLParam(r, "slug"), query)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		respondJSON(w, http.StatusOK, SuccessResponse{Data: logs})
	}
}
