package router

import (
	"testing"

	"github.com/jobmatch/jobmatch-portal/internal/model"
	"github.com/jobmatch/jobmatch-portal/internal/session"
)

func authed(role model.Role) session.Snapshot {
	return session.Snapshot{
		State:           session.StateAuthenticated,
		IsAuthenticated: true,
		User:            &model.UserSummary{ID: 1, Email: "u@example.com", Role: role},
	}
}

var anonymous = session.Snapshot{State: session.StateAnonymous}

func TestLandingRoot_EveryRole(t *testing.T) {
	seen := map[string]model.Role{}
	for _, role := range model.AllRoles() {
		root, ok := LandingRoot(role)
		if !ok || root == "" || root == PublicLanding {
			t.Fatalf("LandingRoot(%q) = %q, %v", role, root, ok)
		}
		if other, dup := seen[root]; dup {
			t.Fatalf("roles %q and %q share root %q", role, other, root)
		}
		seen[root] = role
	}

	if _, ok := LandingRoot("superuser"); ok {
		t.Error("LandingRoot() accepted an unknown role")
	}
}

func TestLandingRoot_Table(t *testing.T) {
	want := map[model.Role]string{
		model.RoleJobSeeker: "/jobseeker",
		model.RoleRecruiter: "/recruiter",
		model.RoleAdmin:     "/admin",
	}
	for role, path := range want {
		if got, _ := LandingRoot(role); got != path {
			t.Errorf("LandingRoot(%q) = %q, want %q", role, got, path)
		}
	}
}

func TestHome(t *testing.T) {
	if got := Home(anonymous); got != "/" {
		t.Errorf("Home(anonymous) = %q", got)
	}
	if got := Home(authed(model.RoleRecruiter)); got != "/recruiter" {
		t.Errorf("Home(recruiter) = %q", got)
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name  string
		snap  session.Snapshot
		route Route
		want  Decision
	}{
		{"loading", session.Snapshot{State: session.StateAuthenticating, Loading: true}, ForRole(model.RoleAdmin), Decision{Pending: true}},
		{"anonymous on public", anonymous, Public(), Decision{}},
		{"anonymous on dashboard", anonymous, ForRole(model.RoleJobSeeker), Decision{Redirect: true, Location: "/", Reason: ReasonUnauthenticated}},
		{"authenticated on public", authed(model.RoleJobSeeker), Public(), Decision{Redirect: true, Location: "/jobseeker", Reason: ReasonAuthenticated}},
		{"own dashboard", authed(model.RoleAdmin), ForRole(model.RoleAdmin), Decision{}},
		{"other dashboard", authed(model.RoleJobSeeker), ForRole(model.RoleRecruiter), Decision{Redirect: true, Location: "/jobseeker", Reason: ReasonWrongRole}},
		{"admin on recruiter", authed(model.RoleAdmin), ForRole(model.RoleRecruiter), Decision{Redirect: true, Location: "/admin", Reason: ReasonWrongRole}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.snap, tt.route); got != tt.want {
				t.Errorf("Decide() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// Following a redirect always lands on a page that does not redirect again.
func TestDecide_NoLoops(t *testing.T) {
	snaps := []session.Snapshot{anonymous}
	for _, role := range model.AllRoles() {
		snaps = append(snaps, authed(role))
	}

	routes := []Route{Public()}
	for _, role := range model.AllRoles() {
		routes = append(routes, ForRole(role))
	}
	routeAt := func(path string) Route {
		for _, role := range model.AllRoles() {
			if root, _ := LandingRoot(role); root == path {
				return ForRole(role)
			}
		}
		return Public()
	}

	for _, snap := range snaps {
		for _, route := range routes {
			d := Decide(snap, route)
			if !d.Redirect {
				continue
			}
			if next := Decide(snap, routeAt(d.Location)); next.Redirect {
				t.Errorf("redirect loop: %+v on %+v -> %s -> %+v", snap.User, route, d.Location, next)
			}
		}
	}
}
