package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jobmatch/jobmatch-portal/internal/model"
)

type staticTokens struct {
	mu    sync.Mutex
	token string
}

func (s *staticTokens) Read(context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

type hookRecorder struct {
	mu       sync.Mutex
	rejected []string
}

func (h *hookRecorder) record(_ context.Context, token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rejected = append(h.rejected, token)
}

func (h *hookRecorder) calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.rejected...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newTestAPI(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_LoginThenMe(t *testing.T) {
	srv := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var req model.LoginRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Email != "js@example.com" || req.Password != "pw" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect email or password"})
				return
			}
			writeJSON(w, http.StatusOK, model.TokenResponse{AccessToken: "abc", TokenType: "bearer"})
		case "/api/auth/me":
			if r.Header.Get("Authorization") != "Bearer abc" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
				return
			}
			writeJSON(w, http.StatusOK, model.UserSummary{ID: 1, Email: "js@example.com", Role: model.RoleJobSeeker})
		default:
			http.NotFound(w, r)
		}
	})

	tokens := &staticTokens{}
	c := New(srv.URL+"/api/", time.Second).WithAuth(tokens, nil)

	tok, err := c.Login(context.Background(), "js@example.com", "pw")
	if err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}
	if tok.AccessToken != "abc" || tok.TokenType != "bearer" {
		t.Fatalf("Login() = %+v", tok)
	}

	tokens.token = tok.AccessToken
	u, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() unexpected error: %v", err)
	}
	if u.Role != model.RoleJobSeeker || u.Email != "js@example.com" {
		t.Errorf("Me() = %+v", u)
	}
}

func TestClient_LoginFailureDetail(t *testing.T) {
	srv := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect email or password"})
	})
	hook := &hookRecorder{}
	c := New(srv.URL, time.Second).WithAuth(&staticTokens{token: "stale"}, hook.record)

	_, err := c.Login(context.Background(), "js@example.com", "wrong")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Login() error = %v, want ErrUnauthorized", err)
	}
	if got := Message(err, "Login failed"); got != "Incorrect email or password" {
		t.Errorf("Message() = %q", got)
	}
	if calls := hook.calls(); len(calls) != 0 {
		t.Errorf("a failed login must not report a rejected session token, got %v", calls)
	}
}

func TestClient_LoginSendsNoBearer(t *testing.T) {
	srv := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("login request carried Authorization %q", got)
		}
		writeJSON(w, http.StatusOK, model.TokenResponse{AccessToken: "new", TokenType: "bearer"})
	})
	c := New(srv.URL, time.Second).WithAuth(&staticTokens{token: "old"}, nil)

	if _, err := c.Login(context.Background(), "a@example.com", "pw"); err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}
}

func TestClient_LoginEmptyToken(t *testing.T) {
	srv := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"token_type": "bearer"})
	})

	_, err := New(srv.URL, time.Second).Login(context.Background(), "a@example.com", "pw")
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("Login() error = %v, want ErrNoToken", err)
	}
}

func TestClient_UnauthorizedHook(t *testing.T) {
	srv := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token expired"})
	})

	t.Run("with token", func(t *testing.T) {
		hook := &hookRecorder{}
		c := New(srv.URL, time.Second).WithAuth(&staticTokens{token: "t1"}, hook.record)

		_, err := c.Me(context.Background())
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("Me() error = %v, want ErrUnauthorized", err)
		}
		if calls := hook.calls(); len(calls) != 1 || calls[0] != "t1" {
			t.Errorf("hook calls = %v, want [t1]", calls)
		}
	})

	t.Run("without token", func(t *testing.T) {
		hook := &hookRecorder{}
		c := New(srv.URL, time.Second).WithAuth(&staticTokens{}, hook.record)

		c.Me(context.Background())
		if calls := hook.calls(); len(calls) != 0 {
			t.Errorf("hook called without a token: %v", calls)
		}
	})
}

func TestClient_ErrorShapes(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantMsg   string
		wantError string
	}{
		{"string detail", 400, `{"detail":"Email already registered"}`, "Email already registered", "Email already registered"},
		{"validation list", 422, `{"detail":[{"loc":["body","email"],"msg":"field required"},{"msg":"value is not a valid email"}]}`, "field required; value is not a valid email", "field required; value is not a valid email"},
		{"no detail", 404, `{"error":"nope"}`, "fallback", "HTTP 404"},
		{"not json", 502, `<html>bad gateway</html>`, "fallback", "HTTP 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := New(srv.URL, time.Second).Me(context.Background())
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %T %v, want *APIError", err, err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if got := Message(err, "fallback"); got != tt.wantMsg {
				t.Errorf("Message() = %q, want %q", got, tt.wantMsg)
			}
			if err.Error() != tt.wantError {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.wantError)
			}
		})
	}
}

func TestClient_TransientFailures(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
		defer close(release)

		_, err := New(srv.URL, 50*time.Millisecond).Me(context.Background())
		if !IsTransient(err) || !errors.Is(err, ErrUnavailable) {
			t.Fatalf("Me() error = %v, want transient", err)
		}
		if errors.Is(err, ErrUnauthorized) {
			t.Fatal("timeout must not look like a rejected token")
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		_, err := New(addr, time.Second).Me(context.Background())
		if !IsTransient(err) {
			t.Fatalf("Me() error = %v, want transient", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		srv := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "database down"})
		})

		_, err := New(srv.URL, time.Second).Me(context.Background())
		if !IsTransient(err) {
			t.Fatalf("Me() error = %v, want transient", err)
		}
	})

	t.Run("rejected token is not transient", func(t *testing.T) {
		srv := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := New(srv.URL, time.Second).Me(context.Background())
		if IsTransient(err) {
			t.Fatalf("401 reported as transient: %v", err)
		}
	})
}

func TestClient_DashboardQueries(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]string{}
	srv := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.URL.Path] = r.URL.RawQuery
		mu.Unlock()
		io.WriteString(w, `{"ok":true}`)
	})
	c := New(srv.URL, time.Second)
	ctx := context.Background()

	raw, err := c.Recommendations(ctx, 5)
	if err != nil {
		t.Fatalf("Recommendations() unexpected error: %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Errorf("payload not passed through: %s", raw)
	}
	c.AdminUsers(ctx, model.RoleRecruiter)
	c.Shortlist(ctx, "")

	want := map[string]string{
		"/jobseeker/recommendations": "limit=5",
		"/admin/users":               "role=recruiter",
		"/recruiter/shortlist":       "",
	}
	for path, q := range want {
		if got, ok := seen[path]; !ok || got != q {
			t.Errorf("%s query = %q (seen %v), want %q", path, got, ok, q)
		}
	}
}

func TestClient_Forward(t *testing.T) {
	srv := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"path":"`+r.URL.Path+`","query":"`+r.URL.RawQuery+`","body":`+string(body)+`}`)
	})
	c := New(srv.URL+"/api", time.Second).WithAuth(&staticTokens{token: "t1"}, nil)

	header := http.Header{"Content-Type": {"application/json"}}
	resp, err := c.Forward(context.Background(), http.MethodPost, "/recruiter/jobs", "draft=1", header, strings.NewReader(`{"title":"Go dev"}`))
	if err != nil {
		t.Fatalf("Forward() unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var got struct {
		Path  string         `json:"path"`
		Query string         `json:"query"`
		Body  map[string]any `json:"body"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Path != "/api/recruiter/jobs" || got.Query != "draft=1" || got.Body["title"] != "Go dev" {
		t.Errorf("forwarded request = %+v", got)
	}
}
