package auth

import (
	"context"
)

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	identityKey  contextKey = "identity"
)

// NewContextWithSessionID returns a context carrying the session ID.
func NewContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// GetSessionIDFromContext extracts the session ID from the context.
func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionIDKey).(string)
	return sessionID, ok
}

// SessionIDFromContext returns the session ID or "guest" when none is set.
func SessionIDFromContext(ctx context.Context) string {
	sessionID, ok := GetSessionIDFromContext(ctx)
	if !ok || sessionID == "" {
		return "guest"
	}
	return sessionID
}

// AddIdentityToContext stores a validated identity in the context. The
// session ID is also stored separately for SessionIDFromContext.
func AddIdentityToContext(ctx context.Context, identity *Identity) context.Context {
	ctx = context.WithValue(ctx, identityKey, identity)
	if identity != nil {
		ctx = NewContextWithSessionID(ctx, identity.SessionID)
	}
	return ctx
}

// GetIdentityFromContext extracts the validated identity from the context.
func GetIdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	return identity, ok
}
