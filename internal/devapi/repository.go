package devapi

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jobmatch/jobmatch-portal/internal/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository keeps accounts in memory.
type UserRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*model.User
	byEmail map[string]int64
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[int64]*model.User),
		byEmail: make(map[string]int64),
	}
}

// Create stores user and sets its ID. Emails are case-insensitive.
func (r *UserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, ok := r.byEmail[key]; ok {
		return ErrDuplicateEmail
	}

	r.nextID++
	user.ID = r.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	u := *user
	r.byID[u.ID] = &u
	r.byEmail[key] = u.ID
	return nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *r.byID[id]
	return &u, nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// List returns users ordered by ID, optionally only those with role.
func (r *UserRepository) List(_ context.Context, role model.Role) []model.UserSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.UserSummary, 0, len(r.byID))
	for _, u := range r.byID {
		if role == "" || u.Role == role {
			out = append(out, u.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Job is a posting created by a recruiter.
type Job struct {
	ID          int64     `json:"id"`
	RecruiterID int64     `json:"recruiter_id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// JobRepository keeps postings in memory.
type JobRepository struct {
	mu     sync.RWMutex
	nextID int64
	jobs   []Job
}

func NewJobRepository() *JobRepository {
	return &JobRepository{}
}

func (r *JobRepository) Create(_ context.Context, job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	job.ID = r.nextID
	if job.Status == "" {
		job.Status = "active"
	}
	job.CreatedAt = time.Now().UTC()
	r.jobs = append(r.jobs, *job)
}

// List returns jobs matching the filter, oldest first.
func (r *JobRepository) List(_ context.Context, match func(Job) bool) []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		if match == nil || match(j) {
			out = append(out, j)
		}
	}
	return out
}
