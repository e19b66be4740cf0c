package types

import (
	"strings"
	"time"
)

// UserType is the authorization level of an account.
type UserType string

const (
	UserTypeRegular UserType = "REGULAR_USER"
	UserTypeAdmin   UserType = "ADMIN"
)

// User represents an account in the book exchange.
// It contains identity, contact details, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// FirstName and LastName make up the display name.
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// Phone is an optional contact number.
	Phone string `json:"phone" db:"phone"`

	// DateOfBirth is stored as a calendar date (YYYY-MM-DD).
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty" db:"date_of_birth"`

	// UserType indicates the user's authorization level.
	UserType UserType `json:"userType" db:"user_type"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// FullName returns "first last", trimmed when either part is empty.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsAdmin reports whether the user has the ADMIN type.
func (u User) IsAdmin() bool {
	return u.UserType == UserTypeAdmin
}
