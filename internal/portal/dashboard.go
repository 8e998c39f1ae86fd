package portal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/jobmatch/jobmatch-portal/internal/apiclient"
	"github.com/jobmatch/jobmatch-portal/internal/model"
	"github.com/jobmatch/jobmatch-portal/internal/router"
)

type widget struct {
	name  string
	fetch func(*apiclient.Client, context.Context) (json.RawMessage, error)
}

var dashboards = map[model.Role][]widget{
	model.RoleJobSeeker: {
		{"profile", (*apiclient.Client).JobSeekerProfile},
		{"applications", (*apiclient.Client).JobSeekerApplications},
		{"recommendations", func(c *apiclient.Client, ctx context.Context) (json.RawMessage, error) {
			return c.Recommendations(ctx, 5)
		}},
	},
	model.RoleRecruiter: {
		{"jobs", (*apiclient.Client).RecruiterJobs},
		{"shortlist", func(c *apiclient.Client, ctx context.Context) (json.RawMessage, error) {
			return c.Shortlist(ctx, "")
		}},
		{"applications", func(c *apiclient.Client, ctx context.Context) (json.RawMessage, error) {
			return c.RecruiterApplications(ctx, "")
		}},
	},
	model.RoleAdmin: {
		{"statistics", (*apiclient.Client).AdminStatistics},
		{"users", func(c *apiclient.Client, ctx context.Context) (json.RawMessage, error) {
			return c.AdminUsers(ctx, "")
		}},
		{"jobs", func(c *apiclient.Client, ctx context.Context) (json.RawMessage, error) {
			return c.AdminJobs(ctx, "")
		}},
	},
}

// WidgetResult is one dashboard panel: its data or the error it hit.
type WidgetResult struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// HandleDashboard loads role's widgets concurrently. A widget error stays
// in that widget unless the API rejected the session's token, in which
// case the whole page is guarded again.
func (s *Server) HandleDashboard(role model.Role) http.HandlerFunc {
	widgets := dashboards[role]
	route := router.ForRole(role)

	return func(w http.ResponseWriter, r *http.Request) {
		e := entryFrom(r.Context())
		results := make([]WidgetResult, len(widgets))

		g, ctx := errgroup.WithContext(r.Context())
		for i, wd := range widgets {
			i, wd := i, wd
			g.Go(func() error {
				data, err := wd.fetch(e.API, ctx)
				if err != nil {
					results[i].Error = apiclient.Message(err, "Failed to load "+wd.name)
					if errors.Is(err, apiclient.ErrUnauthorized) {
						return err
					}
					return nil
				}
				results[i].Data = data
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			// a stale token's 401 leaves the session alone; the page then
			// renders with the failed widgets
			if !s.decide(w, r, e.Manager.Snapshot(), route) {
				return
			}
		}

		byName := make(map[string]WidgetResult, len(widgets))
		for i, wd := range widgets {
			byName[wd.name] = results[i]
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"role":    role,
			"user":    e.Manager.Snapshot().User,
			"widgets": byName,
		})
	}
}

// HandleForward relays the rest of the path to upstreamPrefix on the API
// with the session's token attached.
func (s *Server) HandleForward(role model.Role, upstreamPrefix string) http.HandlerFunc {
	route := router.ForRole(role)
	return func(w http.ResponseWriter, r *http.Request) {
		e := entryFrom(r.Context())
		path := upstreamPrefix + chi.URLParam(r, "*")

		resp, err := e.API.Forward(r.Context(), r.Method, path, r.URL.RawQuery, r.Header, r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, errorResponse("upstream unavailable"))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized {
			if !s.decide(w, r, e.Manager.Snapshot(), route) {
				return
			}
		}

		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			s.logger.Warn("copying upstream response", "path", path, "error", err)
		}
	}
}
