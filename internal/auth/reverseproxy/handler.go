package reverseproxy

import (
	"context"
	"fmt"
	"net/http"

	"proxyauth/internal/auth"
	"proxyauth/internal/observability/logging"
	"proxyauth/internal/observability/metrics"
	"proxyauth/internal/util"
)

// Outcome is the terminal state of the session step of a handshake
type Outcome string

const (
	// OutcomeAbsent means the request carried no identity header
	OutcomeAbsent Outcome = "absent"

	// OutcomeRejected means the identity provider did not know the login
	OutcomeRejected Outcome = "rejected"

	// OutcomeBound means a principal was bound to the session
	OutcomeBound Outcome = "bound"

	// OutcomeError means the identity provider could not be reached
	OutcomeError Outcome = "error"
)

// Config holds the handshake configuration. It is read once at construction.
type Config struct {
	// HeaderName is the configured identity header name, in any casing
	HeaderName string

	// HomeURL is the redirect target when no destination was recorded
	HomeURL string

	// BaseURL is the external URL of the service. Recorded absolute
	// destinations are only honored on its host.
	BaseURL string

	// LoginPath is the application login page watched by LoginFilter
	LoginPath string

	// ValidatePath is the path this handler is mounted on
	ValidatePath string
}

// Handler performs the header handshake on the validate endpoint
type Handler struct {
	logger       *logging.Logger
	metrics      *metrics.Collector
	provider     auth.Provider
	sessions     auth.SessionStore
	headerKey    string
	homeURL      string
	baseURL      string
	loginPath    string
	validatePath string
}

// New creates a handshake handler. A missing header name or collaborator is
// a configuration error and is reported here, before any request is served.
func New(config Config, provider auth.Provider, sessions auth.SessionStore, logger *logging.Logger, metrics *metrics.Collector) (*Handler, error) {
	headerKey, err := ResolveHeaderKey(config.HeaderName)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: no identity provider", auth.ErrConfigurationMissing)
	}
	if sessions == nil {
		return nil, fmt.Errorf("%w: no session store", auth.ErrConfigurationMissing)
	}

	homeURL := config.HomeURL
	if homeURL == "" {
		homeURL = "/"
	}
	loginPath := config.LoginPath
	if loginPath == "" {
		loginPath = "/sessions/new"
	}
	validatePath := config.ValidatePath
	if validatePath == "" {
		validatePath = "/ldap/validate"
	}

	return &Handler{
		logger:       logger.WithModule("auth.reverseproxy"),
		metrics:      metrics,
		provider:     provider,
		sessions:     sessions,
		headerKey:    headerKey,
		homeURL:      homeURL,
		baseURL:      config.BaseURL,
		loginPath:    loginPath,
		validatePath: validatePath,
	}, nil
}

// Name returns the name of this authentication method
func (h *Handler) Name() string {
	return string(auth.AuthTypeReverseProxy)
}

// HeaderKey returns the resolved identity header key
func (h *Handler) HeaderKey() string {
	return h.headerKey
}

// LoginPath returns the watched login page path
func (h *Handler) LoginPath() string {
	return h.loginPath
}

// ValidatePath returns the path the handler expects to be mounted on
func (h *Handler) ValidatePath() string {
	return h.validatePath
}

// Establish binds the principal for login to sess. An empty login is the
// absent identity and leaves sess untouched. A login the provider does not
// know unbinds any earlier principal and is remembered as rejected. Provider
// failures are returned unchanged.
//
// The provider is always called with auth.NoCredential: the front proxy has
// already verified the user.
func (h *Handler) Establish(ctx context.Context, sess auth.Session, login string) (Outcome, *auth.Principal, error) {
	if login == "" {
		return OutcomeAbsent, nil, nil
	}

	principal, err := h.provider.Authenticate(ctx, login, auth.NoCredential())
	if err != nil {
		return OutcomeError, nil, err
	}
	if principal == nil {
		if sess.Principal() != nil {
			sess.ClearPrincipal()
		}
		sess.RememberRejected(login)
		return OutcomeRejected, nil, nil
	}

	sess.BindPrincipal(principal)
	return OutcomeBound, principal, nil
}

// ResolveDestination returns the destination recorded in sess, consuming it,
// or defaultURL when none was recorded or the recorded one is not a safe
// redirect target for baseURL.
func ResolveDestination(sess auth.Session, defaultURL, baseURL string) string {
	target := sess.TakeDestination()
	if target == "" || !util.IsRedirectSafe(target, baseURL) {
		return defaultURL
	}
	return target
}

// ServeHTTP runs the handshake and always answers with a single redirect,
// unless the identity provider or the session store fails.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.LoggerFromContext(ctx)
	if logger == nil {
		logger = h.logger
	}

	sess, err := h.sessions.Open(r)
	if err != nil {
		logger.Error("Failed to open session", logging.Err(err))
		http.Error(w, "Failed to open session", http.StatusInternalServerError)
		return
	}

	login, present := ExtractIdentity(r, h.headerKey)
	if !present {
		logger.Debug("No identity header on validate request", "header", h.headerKey)
	}

	outcome, principal, err := h.Establish(ctx, sess, login)
	h.metrics.RecordHandshake(string(outcome))
	switch outcome {
	case OutcomeError:
		logger.Error("Identity provider unavailable", logging.Err(err), "login", login)
		h.metrics.RecordAuthentication(h.Name(), false)
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	case OutcomeRejected:
		logger.Info("Identity rejected by provider", "login", login)
		h.metrics.RecordAuthentication(h.Name(), false)
	case OutcomeBound:
		logger.Info("Session established from proxy header",
			"login", principal.Login,
			"provider", principal.Provider,
		)
		h.metrics.RecordAuthentication(h.Name(), true)
	}

	target := ResolveDestination(sess, h.homeURL, h.baseURL)

	if err := sess.Save(w); err != nil {
		logger.Error("Failed to save session", logging.Err(err))
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	logger.Debug("Handshake complete", "outcome", outcome, "redirect", target)
	http.Redirect(w, r, target, http.StatusFound)
}
