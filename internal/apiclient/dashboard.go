package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jobmatch/jobmatch-portal/internal/model"
)

// Dashboard reads. Payloads are passed through untouched.

func (c *Client) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, query, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) JobSeekerProfile(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/jobseeker/profile", nil)
}

func (c *Client) JobSeekerApplications(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/jobseeker/applications", nil)
}

func (c *Client) Recommendations(ctx context.Context, limit int) (json.RawMessage, error) {
	return c.get(ctx, "/jobseeker/recommendations", url.Values{"limit": {strconv.Itoa(limit)}})
}

func (c *Client) RecruiterJobs(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/recruiter/jobs", nil)
}

// Shortlist lists shortlisted candidates, optionally filtered by status.
func (c *Client) Shortlist(ctx context.Context, status string) (json.RawMessage, error) {
	return c.get(ctx, "/recruiter/shortlist", optional("status", status))
}

func (c *Client) RecruiterApplications(ctx context.Context, status string) (json.RawMessage, error) {
	return c.get(ctx, "/recruiter/applications", optional("status", status))
}

func (c *Client) AdminStatistics(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/admin/statistics", nil)
}

// AdminUsers lists users; an empty role lists everyone.
func (c *Client) AdminUsers(ctx context.Context, role model.Role) (json.RawMessage, error) {
	return c.get(ctx, "/admin/users", optional("role", string(role)))
}

func (c *Client) AdminJobs(ctx context.Context, status string) (json.RawMessage, error) {
	return c.get(ctx, "/admin/jobs", optional("status", status))
}

func optional(key, value string) url.Values {
	if value == "" {
		return nil
	}
	return url.Values{key: {value}}
}
