package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/orgdesk/console/app"
	"github.com/orgdesk/console/handlers"
	"github.com/orgdesk/console/middleware"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(propagateRequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.CSRFHeaderName},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// CSRF bootstrap is public: the pair must exist before any
		// state-changing browser request
		r.Get("/auth/csrf", handlers.CSRFTokenHandler(deps))

		// Session management
		r.Group(func(r chi.Router) {
			r.Use(deps.CSRFMiddleware.RequireCSRF)
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Post("/auth/logout-all", handlers.LogoutAllHandler(deps))
		})

		// Current principal
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/me", handlers.GetCurrentPrincipalHandler(deps))
		})

		// Organization surface
		r.Route("/organizations", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/", handlers.ListOrganizationsHandler(deps))
			r.Get("/{slug}", handlers.GetOrganizationHandler(deps))
			r.Get("/{slug}/audit-logs", handlers.ListAuditLogsHandler(deps))
			r.Get("/{slug}/api-keys", handlers.ListAPIKeysHandler(deps))
		})

		// Mutating API key routes carry CSRF ahead of auth
		r.Group(func(r chi.Router) {
			r.Use(deps.CSRFMiddleware.RequireCSRF)
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Post("/organizations/{slug}/api-keys", handlers.CreateAPIKeyHandler(deps))
			r.Delete("/api-keys/{id}", handlers.RevokeAPIKeyHandler(deps))
		})

		// OAuth authorization initiation: CSRF strictly before auth
		r.Group(func(r chi.Router) {
			r.Use(deps.CSRFMiddleware.RequireCSRF)
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Post("/organizations/{slug}/integrations/{provider}/authorize", handlers.InitiateIntegrationHandler(deps))
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found","message":"Route not found"}`))
	})

	return r
}

// propagateRequestID copies chi's request ID into the application context key
// used by logging and audit metadata
func propagateRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
			ctx = middleware.WithRequestID(ctx, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
