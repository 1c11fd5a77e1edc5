package auth

import (
	"context"
	"errors"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	// ErrDuplicateUser maps the store's unique-index violation on
	// username or email.
	ErrDuplicateUser = errors.New("user with this email or username already exists")
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidUserID = errors.New("invalid user id")
)

type User struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	Role               string     `json:"role"`
	EmailVerified      bool       `json:"email_verified"`
	VerificationToken  *string    `json:"-"`
	VerificationSentAt *time.Time `json:"-"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	IsActive           bool       `json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
	LastLogin          *time.Time `json:"last_login,omitempty"`
	CreatedBy          string     `json:"created_by,omitempty"`
}

// UserStore is the credential store the auth flows run against. The Mongo
// implementation lives in internal/store; tests substitute in-memory fakes.
//
// Uniqueness of username and email is a store invariant (unique indexes);
// Create surfaces a violation as ErrDuplicateUser. Lookups return (nil, nil)
// when no user matches.
type UserStore interface {
	// FindByUsernameOrEmail matches value against either field exactly.
	FindByUsernameOrEmail(ctx context.Context, value string) (*User, error)
	// FindByEmail matches the normalized (lowercased) email exactly.
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]User, error)
	// Create inserts the user and returns the store-assigned id.
	Create(ctx context.Context, u *User) (string, error)
	// UpdateFields atomically sets the given fields and unsets the named
	// ones on a single user document.
	UpdateFields(ctx context.Context, id string, set map[string]interface{}, unset ...string) error
	Delete(ctx context.Context, id string) error
}
