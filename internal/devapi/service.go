package devapi

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jobmatch/jobmatch-portal/internal/crypto"
	"github.com/jobmatch/jobmatch-portal/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrInvalidRole        = errors.New("invalid role")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInactiveUser       = errors.New("inactive user")
)

// details are the "detail" texts the API answers with.
var details = map[error]string{
	ErrInvalidCredentials: "Incorrect email or password",
	ErrEmailRequired:      "Email is required",
	ErrPasswordTooShort:   "Password must be at least 6 characters",
	ErrInvalidRole:        "Role must be one of jobseeker, recruiter, admin",
	ErrEmailTaken:         "Email already registered",
	ErrInactiveUser:       "Inactive user",
}

// Detail returns the client-facing text for a service error.
func Detail(err error) string {
	for sentinel, msg := range details {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return "Internal server error"
}

const minPasswordLen = 6

// AuthService issues and revokes access tokens for dev API accounts.
type AuthService struct {
	users     *UserRepository
	hasher    *crypto.PasswordHasher
	jwtSecret string
	jwtExpiry time.Duration

	mu      sync.RWMutex
	revoked map[string]time.Time
}

func NewAuthService(users *UserRepository, hasher *crypto.PasswordHasher, secret string, expiry time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		hasher:    hasher,
		jwtSecret: secret,
		jwtExpiry: expiry,
		revoked:   make(map[string]time.Time),
	}
}

// Register creates an account. It does not issue a token.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.UserSummary, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return model.UserSummary{}, ErrEmailRequired
	}
	if len(req.Password) < minPasswordLen {
		return model.UserSummary{}, ErrPasswordTooShort
	}
	if !req.Role.Valid() {
		return model.UserSummary{}, ErrInvalidRole
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.UserSummary{}, err
	}

	user := &model.User{
		Email:       email,
		AuthHash:    hash,
		Role:        req.Role,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		Location:    req.Location,
		CompanyName: req.CompanyName,
		Active:      true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return model.UserSummary{}, ErrEmailTaken
		}
		return model.UserSummary{}, err
	}

	slog.Info("dev api user registered", "user_id", user.ID, "role", user.Role)
	return user.Summary(), nil
}

// Login checks credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return model.TokenResponse{}, ErrInvalidCredentials
		}
		return model.TokenResponse{}, err
	}

	match, err := s.hasher.Verify(req.Password, user.AuthHash)
	if err != nil {
		return model.TokenResponse{}, err
	}
	if !match {
		return model.TokenResponse{}, ErrInvalidCredentials
	}
	if !user.Active {
		return model.TokenResponse{}, ErrInactiveUser
	}

	token, err := crypto.GenerateToken(user.Summary(), s.jwtSecret, s.jwtExpiry)
	if err != nil {
		return model.TokenResponse{}, err
	}
	return model.TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// GetUser returns the identity of userID.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (model.UserSummary, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.UserSummary{}, err
	}
	if !user.Active {
		return model.UserSummary{}, ErrInactiveUser
	}
	return user.Summary(), nil
}

// Revoke invalidates the token with tokenID until it would have expired anyway.
func (s *AuthService) Revoke(tokenID string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	s.revoked[tokenID] = expiresAt
}

func (s *AuthService) IsRevoked(tokenID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[tokenID]
	return ok
}

// Seed creates one account per role with the given password.
func (s *AuthService) Seed(ctx context.Context, password string) error {
	accounts := []model.RegisterRequest{
		{Email: "jobseeker@example.com", Role: model.RoleJobSeeker, FirstName: "Jamie", LastName: "Seeker", Location: "Remote"},
		{Email: "recruiter@example.com", Role: model.RoleRecruiter, FirstName: "Riley", CompanyName: "Acme Corp"},
		{Email: "admin@example.com", Role: model.RoleAdmin, FirstName: "Ada"},
	}
	for _, a := range accounts {
		a.Password = password
		if _, err := s.Register(ctx, a); err != nil && !errors.Is(err, ErrEmailTaken) {
			return err
		}
	}
	return nil
}
