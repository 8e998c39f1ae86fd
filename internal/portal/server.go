// Package portal is the browser-facing HTTP server. It keeps each
// browser's bearer token server-side and guards the role dashboards.
package portal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jobmatch/jobmatch-portal/internal/metrics"
	"github.com/jobmatch/jobmatch-portal/internal/middleware"
	"github.com/jobmatch/jobmatch-portal/internal/model"
	"github.com/jobmatch/jobmatch-portal/internal/router"
	"github.com/jobmatch/jobmatch-portal/internal/session"
)

type Server struct {
	registry *Registry
	metrics  *metrics.Metrics
	cookie   CookieConfig
	logger   *slog.Logger
}

func NewServer(registry *Registry, m *metrics.Metrics, cookie CookieConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{registry: registry, metrics: m, cookie: cookie, logger: logger}
}

// Handler returns the portal with its request middleware. Rate limits key
// on the connection address; forwarded-for headers are ignored.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	s.Routes(ctx, r)
	return r
}

// Routes mounts the portal on r. Rate limiter goroutines stop when ctx ends.
func (s *Server) Routes(ctx context.Context, r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	r.Get("/phone-hint", s.HandlePhoneHint)

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/", s.HandleLanding)
		r.Get("/session", s.HandleSession)
		r.Post("/logout", s.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(ctx, 5, 10))
			r.Post("/login", s.HandleLogin)
			r.Post("/register", s.HandleRegister)
		})

		for _, role := range model.AllRoles() {
			root, _ := router.LandingRoot(role)
			r.Route(root, func(r chi.Router) {
				r.Use(s.guard(role))
				r.Get("/", s.HandleDashboard(role))
				r.HandleFunc("/api/*", s.HandleForward(role, "/"+string(role)+"/"))
				if role == model.RoleJobSeeker {
					r.HandleFunc("/search/*", s.HandleForward(role, "/search/"))
				}
			})
		}
	})
}

// guard admits only sessions that router.Decide lets onto role's pages.
func (s *Server) guard(role model.Role) func(http.Handler) http.Handler {
	route := router.ForRole(role)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := entryFrom(r.Context()).Manager.Bootstrap(r.Context())
			if s.decide(w, r, snap, route) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// decide writes the response for a pending or redirecting decision and
// reports whether the request may proceed.
func (s *Server) decide(w http.ResponseWriter, r *http.Request, snap session.Snapshot, route router.Route) bool {
	d := router.Decide(snap, route)
	switch {
	case d.Pending:
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "session loading", "session": snap})
		return false
	case d.Redirect:
		s.redirect(w, r, d)
		return false
	}
	return true
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, d router.Decision) {
	if strings.TrimSuffix(r.URL.Path, "/") == strings.TrimSuffix(d.Location, "/") {
		s.logger.Error("refusing redirect loop", "path", r.URL.Path, "reason", d.Reason)
		writeJSON(w, http.StatusConflict, errorResponse(string(d.Reason)))
		return
	}

	if !wantsJSON(r) {
		http.Redirect(w, r, d.Location, http.StatusSeeOther)
		return
	}

	status := http.StatusOK
	switch d.Reason {
	case router.ReasonUnauthenticated:
		status = http.StatusUnauthorized
	case router.ReasonWrongRole:
		status = http.StatusForbidden
	}
	writeJSON(w, status, map[string]string{"error": string(d.Reason), "redirect": d.Location})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(msg string) map[string]string {
	return map[string]string{"error": msg}
}
