package api

import (
	"net/http"

	"taskini/internal/api/handler"
	"taskini/internal/api/middleware"
	"taskini/internal/common"
	"taskini/internal/common/security"
	"taskini/internal/platform/config"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth    *handler.AuthHandler
	Tasks   *handler.TaskHandler
	Profile *handler.ProfileHandler
	Users   *handler.UserHandler
	Uploads *handler.UploadHandler
}

func NewRouter(h Handlers, revocations middleware.RevocationChecker) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.AppConfig.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Looks for "Authorization: Bearer T"; Authenticator decides what to do with the result.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithError(w, http.StatusNotFound, "Route not found")
	})

	timeout := chiMiddleware.Timeout(config.AppConfig.RequestTimeout)

	r.Route("/uploads", h.Uploads.RegisterRoutes)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Server is running"})
		})

		api.Route("/auth", func(auth chi.Router) {
			auth.Group(func(public chi.Router) {
				public.Use(timeout)
				h.Auth.RegisterRoutes(public)
			})
			auth.Group(func(protected chi.Router) {
				protected.Use(middleware.Authenticator(revocations))
				// Event streams live outside the request timeout.
				h.Auth.RegisterStreamRoutes(protected)
				protected.With(timeout).Group(h.Auth.RegisterProtectedRoutes)
			})
		})

		api.Group(func(protected chi.Router) {
			protected.Use(timeout)
			protected.Use(middleware.Authenticator(revocations))
			protected.Route("/tasks", h.Tasks.RegisterRoutes)
			protected.Route("/profile", h.Profile.RegisterRoutes)
			protected.Route("/users", h.Users.RegisterRoutes)
			protected.Route("/admin", func(admin chi.Router) {
				admin.Use(middleware.AdminOnly)
				h.Users.RegisterAdminRoutes(admin)
			})
		})
	})

	return r
}
