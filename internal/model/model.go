package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// Privileged reports whether the role may act on other students' data and
// bypass entitlement checks.
func (r UserRole) Privileged() bool {
	return r == UserRoleAdmin || r == UserRoleTeacher
}

// User represents a system user.
type User struct {
	ID           string    `json:"id"`
	PublicID     string    `json:"public_id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Governorate  string    `json:"governorate,omitempty"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Caller is the identity the engine acts on behalf of.
type Caller struct {
	StudentID  string
	Privileged bool
}

// CallerOf derives the engine caller from an authenticated user.
func CallerOf(u *User) Caller {
	return Caller{StudentID: u.ID, Privileged: u.Role.Privileged()}
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Page is a 1-based pagination request.
type Page struct {
	Number int
	Limit  int
}

// Normalize applies the defaults used by list endpoints.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit < 1 {
		p.Limit = 10
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// Pagination describes a page of results.
type Pagination struct {
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
}

// NewPagination computes page counts for total items.
func NewPagination(p Page, total int) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{TotalItems: total, TotalPages: pages, CurrentPage: p.Number}
}
