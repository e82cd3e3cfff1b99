package domain

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// User-specific validation errors
var (
	ErrUserIDEmpty       = errors.New("user ID cannot be empty")
	ErrUserEmailEmpty    = errors.New("user email cannot be empty")
	ErrUserPasswordShort = errors.New("user password must be at least 12 characters")
)

// emailRegex is a pragmatic format check, not full RFC 5322.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// User represents a registered learner. Only the fields the platform shell
// needs for authentication live here; learning state is keyed by user ID in
// sessions and events.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a new User with the given email and an already-hashed
// password. Returns an error if validation fails.
func NewUser(email, hashedPassword string) (*User, error) {
	user := &User{
		ID:             uuid.New(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrUserIDEmpty
	}
	if u.Email == "" {
		return ErrUserEmailEmpty
	}
	if !emailRegex.MatchString(u.Email) {
		return ErrInvalidEmail
	}
	return nil
}
