package session

import "github.com/jobmatch/jobmatch-portal/internal/model"

// State is the position of a session in its lifecycle.
type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	// StateUnauthorized is transient: it is only observed on the
	// EventInvalidated event, after which the session is anonymous.
	StateUnauthorized State = "unauthorized"
)

// Snapshot is a read-only copy of the session. It never carries the token.
type Snapshot struct {
	State           State              `json:"state"`
	User            *model.UserSummary `json:"user,omitempty"`
	IsAuthenticated bool               `json:"is_authenticated"`
	Loading         bool               `json:"loading"`
}

// Role returns the role of the authenticated user.
func (s Snapshot) Role() (model.Role, bool) {
	if !s.IsAuthenticated || s.User == nil {
		return "", false
	}
	return s.User.Role, true
}
