// Package devapi is an in-memory stand-in for the marketplace API's
// authentication and dashboard endpoints, for local development and tests.
package devapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jobmatch/jobmatch-portal/internal/middleware"
	"github.com/jobmatch/jobmatch-portal/internal/model"
)

// Router mounts the dev API under /api. Background goroutines stop when
// ctx ends.
func Router(ctx context.Context, h *Handler, secret string) http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(ctx, 5, 10))
			r.Post("/auth/register", h.HandleRegister)
			r.Post("/auth/login", h.HandleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(secret, h.auth.IsRevoked))
			r.Get("/auth/me", h.HandleMe)
			r.Post("/auth/logout", h.HandleLogout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleJobSeeker))
				r.Get("/jobseeker/profile", h.HandleJobSeekerProfile)
				r.Get("/jobseeker/applications", h.HandleEmptyList)
				r.Get("/jobseeker/recommendations", h.HandleRecommendations)
				r.Post("/search/hybrid", h.HandleHybridSearch)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleRecruiter, model.RoleAdmin))
				r.Get("/recruiter/jobs", h.HandleRecruiterJobs)
				r.Post("/recruiter/jobs", h.HandleCreateJob)
				r.Get("/recruiter/shortlist", h.HandleEmptyList)
				r.Get("/recruiter/applications", h.HandleEmptyList)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleAdmin))
				r.Get("/admin/statistics", h.HandleAdminStatistics)
				r.Get("/admin/users", h.HandleAdminUsers)
				r.Get("/admin/jobs", h.HandleAdminJobs)
			})
		})
	})

	return r
}
