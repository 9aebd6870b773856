// ABOUTME: Authenticated identity propagation through request handlers
// ABOUTME: Provides WithIdentity/FromContext for passing identity via context

package auth

import (
	"context"
)

// Identity holds the verified identity of a caller after it cleared one of
// the gateway predicates. For operators, DeviceID and DeviceUUID identify
// the token-verified device the request arrived from.
type Identity struct {
	EmployeeID int64
	Username   string
	Role       string
	DeviceID   int64  // 0 for admin identities
	DeviceUUID string // empty for admin identities
}

// IsAdmin returns true if the identity belongs to an administrator.
func (id *Identity) IsAdmin() bool {
	return id.Role == "admin"
}

// identityKey is the key type for storing Identity in context.Context.
type identityKey struct{}

// WithIdentity returns a new context with the Identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext retrieves the Identity from the context, returning nil if not present.
func FromContext(ctx context.Context) *Identity {
	val := ctx.Value(identityKey{})
	if val == nil {
		return nil
	}
	id, ok := val.(*Identity)
	if !ok {
		return nil
	}
	return id
}

// MustFromContext retrieves the Identity from the context, panicking if not present.
func MustFromContext(ctx context.Context) *Identity {
	id := FromContext(ctx)
	if id == nil {
		panic("auth: Identity not found in context")
	}
	return id
}
