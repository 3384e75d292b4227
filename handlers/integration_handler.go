package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orgdesk/console/app"
	"github.com/orgdesk/console/middleware"
	"github.com/orgdesk/console/utils"
)

// oauthNonceCookieName binds the pending authorization's nonce to the browser
// so the callback can match it against the signed state
const oauthNonceCookieName = "oauth_nonce"

// InitiateIntegrationResponse is the response body for authorization initiation
type InitiateIntegrationResponse struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
}

// InitiateIntegrationHandler starts an OAuth authorization flow for an
// integration provider. CSRF runs before auth on this route; by the time the
// handler executes both have passed.
func InitiateIntegrationHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.GetPrincipalFromContext(r.Context())
		if principal == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		authz, err := deps.Integrations.Initiate(r.Context(), principal,
			chi.URLParam(r, "slug"), chi.URLParam(r, "provider"), requestMeta(r))
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     oauthNonceCookieName,
			Value:    authz.Nonce,
			Path:     "/",
			MaxAge:   int(deps.Config.Auth.StateTokenTTL.Seconds()),
			HttpOnly: true,
			Secure:   deps.Config.Server.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})

		respondJSON(w, http.StatusOK, SuccessResponse{Data: InitiateIntegrationResponse{
			Provider: authz.Provider,
			URL:      authz.AuthorizeURL,
		}})
	}
}
