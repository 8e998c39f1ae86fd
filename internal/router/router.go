// Package router decides which view a session may see.
package router

import (
	"github.com/jobmatch/jobmatch-portal/internal/model"
	"github.com/jobmatch/jobmatch-portal/internal/session"
)

// PublicLanding is where anonymous viewers land.
const PublicLanding = "/"

// LandingRoot returns the dashboard root of role.
func LandingRoot(role model.Role) (string, bool) {
	switch role {
	case model.RoleJobSeeker:
		return "/jobseeker", true
	case model.RoleRecruiter:
		return "/recruiter", true
	case model.RoleAdmin:
		return "/admin", true
	}
	return "", false
}

// Home returns where a session belongs.
func Home(snap session.Snapshot) string {
	if role, ok := snap.Role(); ok {
		if root, ok := LandingRoot(role); ok {
			return root
		}
	}
	return PublicLanding
}

// Route describes who may view a page. The zero Route is the public page.
type Route struct {
	Required model.Role
}

// Public is the landing page.
func Public() Route { return Route{} }

// ForRole is a dashboard page of role.
func ForRole(role model.Role) Route { return Route{Required: role} }

// Reason explains a redirect.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonWrongRole       Reason = "forbidden"
	ReasonAuthenticated   Reason = "authenticated"
)

// Decision is the outcome of guarding a route.
type Decision struct {
	// Pending means the session has not settled; render a loading state.
	Pending  bool
	Redirect bool
	Location string
	Reason   Reason
}

// Decide guards route for snap. A session already on the page it belongs
// to never gets a redirect, so rendering the same page again is stable.
func Decide(snap session.Snapshot, route Route) Decision {
	if snap.Loading {
		return Decision{Pending: true}
	}

	role, authed := snap.Role()

	if route.Required == "" {
		if !authed {
			return Decision{}
		}
		return redirect(Home(snap), ReasonAuthenticated)
	}

	if !authed {
		return redirect(PublicLanding, ReasonUnauthenticated)
	}
	if role != route.Required {
		return redirect(Home(snap), ReasonWrongRole)
	}
	return Decision{}
}

func redirect(to string, why Reason) Decision {
	return Decision{Redirect: true, Location: to, Reason: why}
}
