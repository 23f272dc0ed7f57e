// Package authz decides whether a caller may read or mutate client records.
//
// Every route and every record service operation goes through Check, so the
// role rule lives in exactly one place.
package authz

import (
	"context"
	"errors"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ParseRole maps a claim value onto a known role. Anything else is treated as
// no role at all.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleMember:
		return Role(s)
	}
	return ""
}

// Identity is the caller as resolved from the session token.
type Identity struct {
	UserID string
	Role   Role
}

// Anonymous is the identity of a request without a valid session.
var Anonymous = Identity{}

func (i Identity) Authenticated() bool { return i.UserID != "" }

func (i Identity) IsAdmin() bool { return i.Authenticated() && i.Role == RoleAdmin }

type Action int

const (
	// ActionRead covers listing records.
	ActionRead Action = iota
	// ActionWrite covers create, update and delete.
	ActionWrite
)

func (a Action) String() string {
	if a == ActionWrite {
		return "write"
	}
	return "read"
}

var (
	ErrUnauthenticated = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden: not an admin")
)

// Check returns ErrUnauthenticated when no identity is present and
// ErrForbidden when a write is attempted without the admin role.
func Check(id Identity, action Action) error {
	if !id.Authenticated() {
		return ErrUnauthenticated
	}
	if action == ActionWrite && !id.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// unexported type prevents collisions in context
type ctxKey int

const identityKey ctxKey = iota

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity stored on ctx, or Anonymous.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey).(Identity); ok {
		return id
	}
	return Anonymous
}
