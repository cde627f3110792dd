package auth

import (
	"context"
)

// ContextKey is a type-safe key for context values
type ContextKey string

const (
	// PrincipalContextKey is the key used to store the principal in the context
	PrincipalContextKey ContextKey = "auth:principal"

	// AuthTypeContextKey is the key used to store the authentication type
	AuthTypeContextKey ContextKey = "auth:type"
)

// AuthType represents how the principal in the context was established
type AuthType string

const (
	// AuthTypeSession represents a principal restored from the session cookie
	AuthTypeSession AuthType = "session"

	// AuthTypeReverseProxy represents a principal established by the header handshake
	AuthTypeReverseProxy AuthType = "reverseproxy"
)

// PrincipalFromContext extracts the principal from the request context
func PrincipalFromContext(ctx context.Context) *Principal {
	if principal, ok := ctx.Value(PrincipalContextKey).(*Principal); ok {
		return principal
	}
	return nil
}

// ContextWithPrincipal adds a principal to a context
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, principal)
}

// AuthTypeFromContext extracts the authentication type from the context
func AuthTypeFromContext(ctx context.Context) AuthType {
	if authType, ok := ctx.Value(AuthTypeContextKey).(AuthType); ok {
		return authType
	}
	return ""
}

// ContextWithAuthType adds an authentication type to a context
func ContextWithAuthType(ctx context.Context, authType AuthType) context.Context {
	return context.WithValue(ctx, AuthTypeContextKey, authType)
}
