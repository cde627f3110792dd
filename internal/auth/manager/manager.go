// internal/auth/manager/manager.go
package manager

import (
	"fmt"
	"net/http"

	"proxyauth/internal/auth"
	"proxyauth/internal/auth/ldap"
	"proxyauth/internal/auth/proxytrust"
	"proxyauth/internal/auth/reverseproxy"
	"proxyauth/internal/auth/static"
	"proxyauth/internal/config"
	"proxyauth/internal/observability/logging"
	"proxyauth/internal/observability/metrics"
	"proxyauth/internal/session"
	"proxyauth/internal/tls"
)

// Manager coordinates multiple authentication methods
type Manager struct {
	logger         *logging.Logger
	authenticators []auth.Authenticator
}

// NewManager creates a new authentication manager
func NewManager(authenticators []auth.Authenticator, logger *logging.Logger) *Manager {
	return &Manager{
		authenticators: authenticators,
		logger:         logger.WithModule("auth.manager"),
	}
}

// Middleware creates a middleware chain from all enabled authenticators.
// The first authenticator sees the request first.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	handler := next
	for i := len(m.authenticators) - 1; i >= 0; i-- {
		authenticator := m.authenticators[i]
		handler = authenticator.GetMiddleware(handler)
		m.logger.Debug("Added authenticator to middleware chain", "authenticator", authenticator.Name())
	}
	return handler
}

// GetAuthenticators returns the list of enabled authenticators
func (m *Manager) GetAuthenticators() []auth.Authenticator {
	return m.authenticators
}

// NewProviderFromConfig creates the identity provider chain: LDAP servers
// first, then the static users file
func NewProviderFromConfig(cfg *config.Config, logger *logging.Logger, metrics *metrics.Collector) (*Chain, error) {
	logger = logger.WithModule("auth.factory")
	var providers []auth.Provider

	if len(cfg.LDAP.URLs) > 0 {
		ldapProvider, err := ldap.New(ldap.Config{
			URLs:               cfg.LDAP.URLs,
			BindDN:             cfg.LDAP.BindDN,
			BindPassword:       cfg.LDAP.BindPassword,
			StartTLS:           cfg.LDAP.StartTLS,
			InsecureSkipVerify: cfg.LDAP.InsecureSkipVerify,
			Timeout:            cfg.LDAP.Timeout,
			BaseDN:             cfg.LDAP.User.BaseDN,
			UserRequest:        cfg.LDAP.User.Request,
			RealNameAttribute:  cfg.LDAP.User.RealNameAttribute,
			EmailAttribute:     cfg.LDAP.User.EmailAttribute,
		}, nil, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LDAP provider: %w", err)
		}
		providers = append(providers, ldapProvider)
		logger.Info("LDAP identity provider enabled",
			"servers", logging.RedactStringURLList(cfg.LDAP.URLs),
			"base_dn", cfg.LDAP.User.BaseDN,
		)
	}

	if cfg.Static.UsersFile != "" {
		staticProvider, err := static.Load(cfg.Static.UsersFile, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize static provider: %w", err)
		}
		providers = append(providers, staticProvider)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: no identity provider configured", auth.ErrConfigurationMissing)
	}

	return NewChain(providers, logger, metrics), nil
}

// NewManagerFromConfig creates a Manager with authenticators configured from
// application config. Proxy trust runs first so that the identity header is
// gone before anything reads it.
func NewManagerFromConfig(cfg *config.Config, tlsConfig *tls.Config, sessions auth.SessionStore, logger *logging.Logger, metrics *metrics.Collector) (*Manager, error) {
	logger = logger.WithModule("auth.factory")
	var (
		authenticators []auth.Authenticator
		headerKey      string
	)

	if cfg.ReverseProxy.Enabled {
		key, err := reverseproxy.ResolveHeaderKey(cfg.ReverseProxy.HeaderName)
		if err != nil {
			return nil, err
		}
		headerKey = key
	}

	if cfg.ReverseProxy.Enabled && cfg.ProxyTrust.Enabled {

		trustConfig := proxytrust.Config{
			HeaderKey:    headerKey,
			CAPaths:      cfg.ProxyTrust.CAPaths,
			AllowedNames: cfg.ProxyTrust.AllowedNames,
		}
		if tlsConfig != nil {
			trustConfig.ProxyCAs = tlsConfig.ProxyCAs
		}

		trust, err := proxytrust.New(trustConfig, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize proxy trust: %w", err)
		}
		authenticators = append(authenticators, trust)
		logger.Info("Front proxy certificate verification enabled", "allowed_names", cfg.ProxyTrust.AllowedNames)
	}

	authenticators = append(authenticators, session.NewAuthenticator(sessions, headerKey, logger))

	return NewManager(authenticators, logger), nil
}
