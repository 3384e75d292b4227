package handlers

import (
	"net/http"

	"github.com/orgdesk/console/app"
	"github.com/orgdesk/console/middleware"
	"github.com/orgdesk/console/token"
	"github.com/orgdesk/console/utils"
)

// sessionCookieName matches the cookie the session resolver reads
const sessionCookieName = "session"

// CSRFTokenResponse is the response body for GET /api/v1/auth/csrf
type CSRFTokenResponse struct {
	CSRFToken string `json:"csrf_token"`
}

// CSRFTokenHandler mints the double-submit CSRF pair: the token is set as a
// cookie and returned in the body so the client can echo it in the
// X-CSRF-Token header on state-changing requests.
func CSRFTokenHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		csrfToken, err := token.NewNonce()
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		// Not HttpOnly: the client script must read it to echo the header
		http.SetCookie(w, &http.Cookie{
			Name:     middleware.CSRFCookieName,
			Value:    csrfToken,
			Path:     "/",
			Secure:   deps.Config.Server.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})

		respondJSON(w, http.StatusOK, SuccessResponse{Data: CSRFTokenResponse{CSRFToken: csrfToken}})
	}
}

// CurrentPrincipalResponse is the response body for GET /api/v1/me
type CurrentPrincipalResponse struct {
	UserID   string  `json:"user_id"`
	Email    string  `json:"email"`
	Role     string  `json:"role"`
	AuthMode string  `json:"auth_mode"`
	OrgID    *string `json:"org_id,omitempty"`
}

// GetCurrentPrincipalHandler returns the resolved principal of the request
func GetCurrentPrincipalHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.GetPrincipalFromContext(r.Context())
		if principal == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		resp := CurrentPrincipalResponse{
			UserID:   principal.UserID.String(),
			Email:    principal.Email,
			Role:     string(principal.Role),
			AuthMode: string(principal.AuthMode),
		}
		if principal.ScopedOrgID != nil {
			orgID := principal.ScopedOrgID.String()
			resp.OrgID = &orgID
		}

		respondJSON(w, http.StatusOK, SuccessResponse{Data: resp})
	}
}

// LogoutAllResponse is the response body for POST /api/v1/auth/logout-all
type LogoutAllResponse struct {
	Message string `json:"message"`
}

// LogoutAllHandler revokes every session of the caller by bumping their
// session version, then clears the session cookie on this browser
func LogoutAllHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.GetPrincipalFromContext(r.Context())
		if principal == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		if _, err := deps.Sessions.RevokeAll(r.Context(), principal, requestMeta(r)); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   deps.Config.Server.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})

		respondJSON(w, http.StatusOK, SuccessResponse{Data: LogoutAllResponse{
			Message: "all sessions revoked",
		}})
	}
}
