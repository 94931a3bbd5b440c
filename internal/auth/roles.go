// Package auth - roles.go defines the role tags an account may carry and the
// helpers used to check them.
package auth

import (
	"fmt"

	"github.com/servicehub/backoffice/internal/db/models"
)

// AllRoles returns every valid role tag
func AllRoles() []string {
	return []string{
		models.RoleAdmin,
		models.RoleHelper,
		models.RoleProvider,
		models.RoleCustomer,
	}
}

// ValidRoles returns a set of valid role tags
func ValidRoles() map[string]bool {
	valid := make(map[string]bool)
	for _, r := range AllRoles() {
		valid[r] = true
	}
	return valid
}

// ValidateRoles checks that roles is non-empty and holds only known tags
func ValidateRoles(roles []string) error {
	if len(roles) == 0 {
		return fmt.Errorf("at least one role is required")
	}
	valid := ValidRoles()
	for _, r := range roles {
		if !valid[r] {
			return fmt.Errorf("invalid role: %s", r)
		}
	}
	return nil
}

// HasRole checks if a set of role tags contains required
func HasRole(roles []string, required string) bool {
	for _, r := range roles {
		if r == required {
			return true
		}
	}
	return false
}

// HasAnyRole checks if roles contains at least one of required
func HasAnyRole(roles []string, required ...string) bool {
	for _, r := range required {
		if HasRole(roles, r) {
			return true
		}
	}
	return false
}
