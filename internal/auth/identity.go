// Package auth carries the authenticated caller through a request. The
// session middleware resolves an Identity from the signed cookie and
// attaches it to the request context; services receive it explicitly.
package auth

import (
	"context"

	"github.com/admissions-portal/portal/internal/model"
)

// Identity is the resolved caller.
type Identity struct {
	UserID string
	Role   model.Role
}

// Anonymous is the zero identity used when no valid session exists.
var Anonymous = Identity{}

func (i Identity) IsAdmin() bool     { return i.UserID != "" && i.Role == model.RoleAdmin }
func (i Identity) IsApplicant() bool { return i.UserID != "" && i.Role == model.RoleApplicant }

// Authenticated reports whether the identity came from a valid session.
func (i Identity) Authenticated() bool { return i.UserID != "" }

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored in ctx, or Anonymous.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(ctxKey{}).(Identity); ok {
		return id
	}
	return Anonymous
}
