// internal/authz/types.go
package authz

import (
	"context"

	"proxyauth/internal/auth"
)

// Decision represents an authorization decision
type Decision int

const (
	// Allow indicates the request is allowed
	Allow Decision = iota
	// Deny indicates the request is denied
	Deny
	// Unauthorized indicates the request is unauthorized (no principal)
	Unauthorized
	// Error indicates an error occurred during authorization
	Error
)

// String returns the decision name used in logs
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case Unauthorized:
		return "unauthorized"
	default:
		return "error"
	}
}

// Request represents an authorization request
type Request struct {
	// Principal is the authenticated user to authorize
	Principal *auth.Principal

	// Resource is the resource being accessed
	Resource string

	// Permission is the permission being checked
	Permission string

	// Context is the request context
	Context context.Context
}

// Response represents an authorization response
type Response struct {
	// Decision is the authorization decision
	Decision Decision

	// Reason provides additional information about the decision
	Reason string

	// Error is set if an error occurred during authorization
	Error error
}

// Authorizer defines the interface for authorization
type Authorizer interface {
	// Authorize checks if the principal has the specified permission on the resource
	Authorize(req *Request) *Response
}

// AuthenticatedOnly allows every request that carries a principal
type AuthenticatedOnly struct{}

// Authorize allows any principal
func (AuthenticatedOnly) Authorize(req *Request) *Response {
	if req.Principal == nil {
		return &Response{Decision: Unauthorized, Reason: "No principal"}
	}
	return &Response{Decision: Allow, Reason: "Authenticated"}
}
