package session

import (
	"net/http"

	"proxyauth/internal/auth"
	"proxyauth/internal/auth/reverseproxy"
	"proxyauth/internal/observability/logging"
)

// Authenticator restores the principal bound by a previous handshake
type Authenticator struct {
	logger    *logging.Logger
	store     auth.SessionStore
	headerKey string
}

var _ auth.Authenticator = (*Authenticator)(nil)

// NewAuthenticator creates a session authenticator reading from store.
// When headerKey is set, a session principal is only restored while the
// identity header, if present, still names the same login.
func NewAuthenticator(store auth.SessionStore, headerKey string, logger *logging.Logger) *Authenticator {
	return &Authenticator{
		logger:    logger.WithModule("auth.session"),
		store:     store,
		headerKey: headerKey,
	}
}

// Name returns the name of this authenticator
func (a *Authenticator) Name() string {
	return string(auth.AuthTypeSession)
}

// GetMiddleware returns an http.Handler middleware that adds the session
// principal to the request context
func (a *Authenticator) GetMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.LoggerFromContext(ctx)
		if logger == nil {
			logger = a.logger
		}

		// An earlier authenticator already settled the principal
		if auth.PrincipalFromContext(ctx) != nil {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := a.store.Open(r)
		if err != nil {
			logger.Error("Failed to open session", logging.Err(err))
			next.ServeHTTP(w, r)
			return
		}

		principal := sess.Principal()
		if principal == nil {
			logger.Debug("No principal in session")
			next.ServeHTTP(w, r)
			return
		}

		if a.headerKey != "" {
			if login, present := reverseproxy.ExtractIdentity(r, a.headerKey); present && login != principal.Login {
				logger.Info("Identity header names another user, ignoring session",
					"login", login,
					"session_login", principal.Login,
				)
				next.ServeHTTP(w, r)
				return
			}
		}

		logger.Debug("Session authentication successful", "login", principal.Login)
		ctx = auth.ContextWithPrincipal(ctx, principal)
		ctx = auth.ContextWithAuthType(ctx, auth.AuthTypeSession)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
