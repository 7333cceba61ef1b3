package domain

import (
	"context"
	"time"
)

// Role is the tagged access level of a principal. RoleUnknown is used when a
// principal exists but no user record could be resolved for it.
type Role string

const (
	RoleUnknown Role = ""
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// ParseRole maps a stored role string to a Role. Anything unrecognised is RoleUnknown.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin
	case RoleStudent:
		return RoleStudent
	default:
		return RoleUnknown
	}
}

// Home returns the landing route for the role.
func (r Role) Home() string {
	if r == RoleAdmin {
		return "/admin"
	}
	return "/student"
}

// UserRecord is the role record written once at signup, keyed by principal id.
type UserRecord struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// UserRepository is the "users" collection of the record store.
type UserRepository interface {
	Create(ctx context.Context, user *UserRecord) error
	GetByID(ctx context.Context, id string) (*UserRecord, error)
}
