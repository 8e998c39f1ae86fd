package model

import (
	"fmt"
	"time"
)

// Role is the marketplace role a user signs up with. The set is closed.
type Role string

const (
	RoleJobSeeker Role = "jobseeker"
	RoleRecruiter Role = "recruiter"
	RoleAdmin     Role = "admin"
)

// AllRoles returns every known role in a stable order.
func AllRoles() []Role {
	return []Role{RoleJobSeeker, RoleRecruiter, RoleAdmin}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleJobSeeker, RoleRecruiter, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts s into a Role, rejecting anything outside the known set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// User is a dev API account.
type User struct {
	ID          int64
	Email       string
	AuthHash    string
	Role        Role
	FirstName   string
	LastName    string
	Phone       string
	Location    string
	CompanyName string
	Active      bool
	CreatedAt   time.Time
}

// UserSummary is the identity returned by GET /auth/me.
type UserSummary struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
	FirstName   string `json:"first_name,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
}

// Summary returns the identity view of u.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Email:       u.Email,
		Role:        u.Role,
		FirstName:   u.FirstName,
		CompanyName: u.CompanyName,
	}
}
