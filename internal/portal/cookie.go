package portal

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const entryKey contextKey = "portal_entry"

// CookieConfig names and secures the browser session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// withSession resolves the browser session from its cookie, issuing a new
// id when the cookie is missing or malformed.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if c, err := r.Cookie(s.cookie.Name); err == nil {
			if id, err := uuid.Parse(c.Value); err == nil {
				sid = id.String()
			}
		}
		if sid == "" {
			sid = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     s.cookie.Name,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cookie.Secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		e := s.registry.Get(sid)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), entryKey, e)))
	})
}

func entryFrom(ctx context.Context) *Entry {
	e, _ := ctx.Value(entryKey).(*Entry)
	return e
}
