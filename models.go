package carbonview

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus mirrors the platform's account status field
type UserStatus = string

const (
	// UserStatusPending account created, email not yet verified
	UserStatusPending UserStatus = "PENDING"
	// UserStatusActive account in good standing
	UserStatusActive UserStatus = "ACTIVE"
	// UserStatusSuspended account blocked by an admin
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the console's read-only copy of the platform profile. The platform
// owns the record; the console caches it alongside the credential so a
// restart does not force a re-login.
type User struct {
	ID        uuid.UUID  `json:"id,omitempty"`
	Email     string     `json:"email,omitempty"`
	FullName  string     `json:"full_name,omitempty"`
	Role      Role       `json:"role,omitempty"`
	Status    UserStatus `json:"status,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Active reports whether the account may use the console.
func (u *User) Active() bool {
	return u != nil && u.Status == UserStatusActive
}

// DisplayName returns the full name, falling back to the email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
