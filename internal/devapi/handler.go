package devapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jobmatch/jobmatch-portal/internal/middleware"
	"github.com/jobmatch/jobmatch-portal/internal/model"
)

// Handler serves the dev API. Error bodies are {"detail": ...}.
type Handler struct {
	auth  *AuthService
	users *UserRepository
	jobs  *JobRepository
}

func NewHandler(auth *AuthService, users *UserRepository, jobs *JobRepository) *Handler {
	return &Handler{auth: auth, users: users, jobs: jobs}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("Request body too large"))
			return false
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": "Invalid request body"}},
		})
		return false
	}
	return true
}

// HandleRegister handles POST /auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.auth.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailRequired), errors.Is(err, ErrPasswordTooShort),
			errors.Is(err, ErrInvalidRole), errors.Is(err, ErrEmailTaken):
			writeJSON(w, http.StatusBadRequest, errorResponse(Detail(err)))
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse("Internal server error"))
		}
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleLogin handles POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, errorResponse(Detail(err)))
		case errors.Is(err, ErrInactiveUser):
			writeJSON(w, http.StatusBadRequest, errorResponse(Detail(err)))
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse("Internal server error"))
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleMe handles GET /auth/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("Not authenticated"))
		return
	}

	user, err := h.auth.GetUser(r.Context(), claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			writeJSON(w, http.StatusUnauthorized, errorResponse("Could not validate credentials"))
		case errors.Is(err, ErrInactiveUser):
			writeJSON(w, http.StatusBadRequest, errorResponse(Detail(err)))
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse("Internal server error"))
		}
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleLogout handles POST /auth/logout by revoking the presented token.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("Not authenticated"))
		return
	}

	exp := time.Now().Add(24 * time.Hour)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	h.auth.Revoke(claims.ID, exp)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleJobSeekerProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	user, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse("Profile not found"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    user.ID,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"location":   user.Location,
		"phone":      user.Phone,
	})
}

func (h *Handler) HandleEmptyList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []any{})
}

type scoredJob struct {
	Job
	MatchScore float64 `json:"match_score"`
}

// score is a stand-in relevance score in [0.5, 1).
func score(job Job, query string) float64 {
	s := 0.5 + float64(job.ID%5)/10
	if query != "" && strings.Contains(strings.ToLower(job.Title), strings.ToLower(query)) {
		s = 0.99
	}
	return s
}

func (h *Handler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	jobs := h.jobs.List(r.Context(), func(j Job) bool { return j.Status == "active" })
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}

	out := make([]scoredJob, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, scoredJob{Job: j, MatchScore: score(j, "")})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleHybridSearch handles POST /search/hybrid.
func (h *Handler) HandleHybridSearch(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if !decodeBody(w, r, &req) {
		return
	}
	query, _ := req["query"].(string)
	delete(req, "query")

	jobs := h.jobs.List(r.Context(), func(j Job) bool { return j.Status == "active" })
	results := make([]scoredJob, 0, len(jobs))
	for _, j := range jobs {
		results = append(results, scoredJob{Job: j, MatchScore: score(j, query)})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":           query,
		"results":         results,
		"filters_applied": req,
	})
}

type createJobRequest struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

func (h *Handler) HandleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": "title is required"}},
		})
		return
	}

	claims, _ := middleware.ClaimsFromContext(r.Context())
	job := &Job{
		RecruiterID: claims.UserID,
		Title:       req.Title,
		Company:     req.Company,
		Location:    req.Location,
		Description: req.Description,
	}
	h.jobs.Create(r.Context(), job)
	writeJSON(w, http.StatusCreated, job)
}

// HandleRecruiterJobs lists the caller's postings; admins see all.
func (h *Handler) HandleRecruiterJobs(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	jobs := h.jobs.List(r.Context(), func(j Job) bool {
		return claims.Role == model.RoleAdmin || j.RecruiterID == claims.UserID
	})
	writeJSON(w, http.StatusOK, jobs)
}

func (h *Handler) HandleAdminStatistics(w http.ResponseWriter, r *http.Request) {
	users := h.users.List(r.Context(), "")
	byRole := map[model.Role]int{}
	for _, u := range users {
		byRole[u.Role]++
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"total_users":      len(users),
		"total_jobseekers": byRole[model.RoleJobSeeker],
		"total_recruiters": byRole[model.RoleRecruiter],
		"total_admins":     byRole[model.RoleAdmin],
		"total_jobs":       len(h.jobs.List(r.Context(), nil)),
	})
}

func (h *Handler) HandleAdminUsers(w http.ResponseWriter, r *http.Request) {
	var role model.Role
	if v := r.URL.Query().Get("role"); v != "" {
		parsed, err := model.ParseRole(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse(Detail(ErrInvalidRole)))
			return
		}
		role = parsed
	}
	writeJSON(w, http.StatusOK, h.users.List(r.Context(), role))
}

func (h *Handler) HandleAdminJobs(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	writeJSON(w, http.StatusOK, h.jobs.List(r.Context(), func(j Job) bool {
		return status == "" || j.Status == status
	}))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(msg string) map[string]string {
	return map[string]string{"detail": msg}
}
