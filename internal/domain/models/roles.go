// internal/domain/models/roles.go
package models

import "strings"

// Site roles.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Share roles granted to map invitees.
const (
	ShareRead  = "READ"
	ShareWrite = "WRITE"
)

// NormalizeShareRole upper-cases a submitted share role and defaults
// anything unrecognised to READ.
func NormalizeShareRole(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), ShareWrite) {
		return ShareWrite
	}
	return ShareRead
}

// IsValidRole reports whether s is a known site role.
func IsValidRole(s string) bool {
	return s == RoleUser || s == RoleAdmin
}
