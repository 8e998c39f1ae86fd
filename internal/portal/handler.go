package portal

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jobmatch/jobmatch-portal/internal/apiclient"
	"github.com/jobmatch/jobmatch-portal/internal/model"
	"github.com/jobmatch/jobmatch-portal/internal/phone"
	"github.com/jobmatch/jobmatch-portal/internal/router"
	"github.com/jobmatch/jobmatch-portal/internal/session"
)

const maxFormBytes = 1 << 20 // 1MB

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return false
	}
	return true
}

// HandleLanding serves the public landing page data. Authenticated viewers
// are sent to their dashboard.
func (s *Server) HandleLanding(w http.ResponseWriter, r *http.Request) {
	snap := entryFrom(r.Context()).Manager.Bootstrap(r.Context())
	if !s.decide(w, r, snap, router.Public()) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"page": "landing", "session": snap})
}

// HandleSession returns the settled session and the notices raised since
// the last call.
func (s *Server) HandleSession(w http.ResponseWriter, r *http.Request) {
	e := entryFrom(r.Context())
	snap := e.Manager.Bootstrap(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"session": snap,
		"home":    router.Home(snap),
		"notices": e.Drain(),
	})
}

type loginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResult struct {
	Success  bool               `json:"success"`
	User     *model.UserSummary `json:"user,omitempty"`
	Message  string             `json:"message,omitempty"`
	Error    string             `json:"error,omitempty"`
	Redirect string             `json:"redirect,omitempty"`
}

func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if !decodeBody(w, r, &form) {
		return
	}
	form.Email = strings.TrimSpace(form.Email)
	if form.Email == "" || form.Password == "" {
		writeJSON(w, http.StatusBadRequest, authResult{Error: "Email and password are required"})
		return
	}

	user, err := entryFrom(r.Context()).Manager.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		writeJSON(w, failureStatus(err), authResult{Error: failureMessage(err, "Login failed")})
		return
	}

	home, _ := router.LandingRoot(user.Role)
	writeJSON(w, http.StatusOK, authResult{Success: true, User: &user, Redirect: home})
}

type registerForm struct {
	model.RegisterRequest
	CountryCode string `json:"country_code"`
}

func (s *Server) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var form registerForm
	if !decodeBody(w, r, &form) {
		return
	}

	req := form.RegisterRequest
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, authResult{Error: "Email and password are required"})
		return
	}
	if !req.Role.Valid() {
		writeJSON(w, http.StatusBadRequest, authResult{Error: "Please choose jobseeker, recruiter or admin"})
		return
	}
	if req.Phone != "" {
		digits, err := phone.Validate(req.Phone, form.CountryCode)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, authResult{Error: phone.Message(err)})
			return
		}
		req.Phone = digits
	}

	if _, err := entryFrom(r.Context()).Manager.Register(r.Context(), req); err != nil {
		writeJSON(w, failureStatus(err), authResult{Error: failureMessage(err, "Registration failed")})
		return
	}

	writeJSON(w, http.StatusCreated, authResult{
		Success:  true,
		Message:  "Registration successful! Please login.",
		Redirect: router.PublicLanding,
	})
}

func (s *Server) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := entryFrom(r.Context()).Manager.Logout(r.Context()); err != nil {
		s.logger.Error("logout failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, authResult{Error: "Logout failed"})
		return
	}
	writeJSON(w, http.StatusOK, authResult{Success: true, Redirect: router.PublicLanding})
}

// HandlePhoneHint returns the input hints for a country's phone numbers.
func (s *Server) HandlePhoneHint(w http.ResponseWriter, r *http.Request) {
	cc := r.URL.Query().Get("country")
	writeJSON(w, http.StatusOK, map[string]string{
		"placeholder": phone.Placeholder(cc),
		"help":        phone.HelpText(cc),
	})
}

func failureMessage(err error, fallback string) string {
	var f *session.Failure
	if errors.As(err, &f) && f.Message != "" {
		return f.Message
	}
	return apiclient.Message(err, fallback)
}

func failureStatus(err error) int {
	var apiErr *apiclient.APIError
	switch {
	case errors.Is(err, session.ErrSuperseded), errors.Is(err, session.ErrClosed):
		return http.StatusConflict
	case apiclient.IsTransient(err):
		return http.StatusBadGateway
	case errors.As(err, &apiErr) && apiErr.StatusCode < 500:
		return apiErr.StatusCode
	}
	return http.StatusBadRequest
}
