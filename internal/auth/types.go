package auth

import (
	"context"
	"net/http"
)

// Principal is the authenticated user record bound to a session
type Principal struct {
	// Login is the identity the principal was resolved from
	Login string

	// Name is the display name reported by the identity provider
	Name string

	// Email is the email address reported by the identity provider
	Email string

	// DN is the directory entry name, empty for non-directory providers
	DN string

	// Provider names the identity provider that resolved the principal
	Provider string

	// Groups lists group memberships, when the provider reports them
	Groups []string
}

// Provider resolves a login to a Principal.
//
// Authenticate returns (nil, nil) when the login is unknown or the credential
// is rejected. A non-nil error means the provider itself could not answer and
// should wrap ErrProviderUnavailable.
type Provider interface {
	// Name returns the name of this provider
	Name() string

	// Authenticate resolves login using the given credential
	Authenticate(ctx context.Context, login string, credential Credential) (*Principal, error)
}

// Session is the per-request view of a user's session
type Session interface {
	// Principal returns the bound principal, or nil
	Principal() *Principal

	// BindPrincipal binds p as the authenticated user of this session and
	// forgets any rejected login
	BindPrincipal(p *Principal)

	// ClearPrincipal unbinds the authenticated user, if any
	ClearPrincipal()

	// RememberRejected records a login the identity provider refused
	RememberRejected(login string)

	// RejectedLogin returns the last refused login, or ""
	RejectedLogin() string

	// RememberDestination records the URL the user attempted to reach
	RememberDestination(target string)

	// TakeDestination returns and forgets the recorded destination.
	// It returns "" when nothing was recorded.
	TakeDestination() string

	// Save persists pending changes to the response
	Save(w http.ResponseWriter) error
}

// SessionStore opens the session attached to a request
type SessionStore interface {
	Open(r *http.Request) (Session, error)
}

// Authenticator defines the interface for request authentication middleware
type Authenticator interface {
	// Name returns the name of this authenticator
	Name() string

	// GetMiddleware returns an http.Handler middleware that performs authentication
	GetMiddleware(next http.Handler) http.Handler
}
