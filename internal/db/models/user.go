// Package models - user.go defines the marketplace account model and its role tags.
package models

import (
	"time"

	"github.com/lib/pq"
)

// Role tags carried in users.roles
const (
	RoleAdmin    = "admin"
	RoleHelper   = "helper"
	RoleProvider = "provider"
	RoleCustomer = "customer"
)

// User represents a marketplace account. PasswordHash never leaves the
// process: it is excluded from JSON and therefore from audit snapshots.
type User struct {
	ID           string         `db:"id" json:"id"`
	Username     string         `db:"username" json:"username"`
	Email        string         `db:"email" json:"email"`
	Firstname    string         `db:"firstname" json:"firstname"`
	Lastname     string         `db:"lastname" json:"lastname"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Roles        pq.StringArray `db:"roles" json:"roles"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// HasRole reports whether the user carries the given role tag
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user may use the back office
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// ActorSummary holds the display fields joined onto audit entries, sessions
// and analytics events. All fields are nil when the actor no longer exists.
type ActorSummary struct {
	Username *string        `db:"username" json:"username"`
	Email    *string        `db:"email" json:"email"`
	Roles    pq.StringArray `db:"roles" json:"roles,omitempty"`
}
