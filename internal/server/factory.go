// internal/server/factory.go
package server

import (
	"crypto/tls"
	"fmt"

	"proxyauth/internal/auth/manager"
	"proxyauth/internal/auth/reverseproxy"
	"proxyauth/internal/authz"
	"proxyauth/internal/authz/spicedb"
	"proxyauth/internal/config"
	"proxyauth/internal/observability"
	"proxyauth/internal/observability/logging"
	"proxyauth/internal/proxy/router"
	"proxyauth/internal/session"
	tlsconfig "proxyauth/internal/tls"
)

// NewFromConfig creates a new server from configuration
func NewFromConfig(cfg *config.Config) (*Server, error) {
	// Initialize observability
	obs, err := observability.NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	logger := obs.Logger

	// Initialize TLS configuration
	var tlsSetup *tlsconfig.Config
	var tlsCfg *tls.Config
	if cfg.TLS.Enabled {
		tlsSetup = &tlsconfig.Config{
			Logger:     logger,
			RootCAPath: cfg.TLS.CAPath,
			CertPath:   cfg.TLS.CertPath,
			KeyPath:    cfg.TLS.KeyPath,
		}
		if cfg.ProxyTrust.Enabled {
			tlsSetup.ProxyCAFiles = cfg.ProxyTrust.CAPaths
		}

		tlsCfg, err = tlsSetup.GetTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS configuration: %w", err)
		}
	}

	// Initialize session store
	sessions, err := session.NewStore(session.Config{
		CookieName: cfg.Session.CookieName,
		Secret:     cfg.Session.Secret,
		MaxAge:     cfg.Session.MaxAge,
		Secure:     cfg.Session.Secure,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	// Initialize the header handshake
	var handshake *reverseproxy.Handler
	if cfg.ReverseProxy.Enabled {
		provider, err := manager.NewProviderFromConfig(cfg, logger, obs.Metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize identity providers: %w", err)
		}

		handshake, err = reverseproxy.New(reverseproxy.Config{
			HeaderName:   cfg.ReverseProxy.HeaderName,
			HomeURL:      cfg.ReverseProxy.HomeURL,
			BaseURL:      cfg.Server.BaseURL,
			LoginPath:    cfg.ReverseProxy.LoginPath,
			ValidatePath: cfg.ReverseProxy.ValidatePath,
		}, provider, sessions, logger, obs.Metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize reverse proxy authentication: %w", err)
		}
		logger.Info("Reverse proxy authentication enabled",
			"header", handshake.HeaderKey(),
			"validate_path", handshake.ValidatePath(),
		)
	} else {
		logger.Warn("Reverse proxy authentication disabled, only existing sessions are accepted")
	}

	// Initialize authentication manager
	authManager, err := manager.NewManagerFromConfig(cfg, tlsSetup, sessions, logger, obs.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize authentication manager: %w", err)
	}

	// Initialize authorizer
	authorizer, err := createAuthorizer(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize router
	routerConfig := router.Config{
		UpstreamURL:     cfg.Upstream.URL,
		UpstreamTimeout: cfg.Upstream.Timeout,
		UserHeader:      cfg.Upstream.UserHeader,
		Rules:           convertRules(cfg.Rules),
	}
	proxyRouter := router.New(routerConfig, handshake, sessions, authorizer, logger, obs.Metrics)

	serverConfig := Config{
		Address:         cfg.Server.Address,
		MetricsAddress:  cfg.Metrics.Address,
		TLSConfig:       tlsCfg,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	// Create complete middleware chain: observability -> auth -> router
	handler := obs.Middleware(authManager.Middleware(proxyRouter))

	return New(serverConfig, handler, obs.MetricsHandler(), logger), nil
}

// convertRules converts config.Rule to router.Rule
func convertRules(configRules []config.Rule) []router.Rule {
	routerRules := make([]router.Rule, len(configRules))
	for i, rule := range configRules {
		routerRules[i] = router.Rule{
			Name:        rule.Name,
			Action:      rule.Action,
			Paths:       rule.Paths,
			MatchPrefix: rule.MatchPrefix,
			Methods:     rule.Methods,
			Permission:  rule.Permission,
			Resource:    rule.Resource,
		}
	}
	return routerRules
}

// createAuthorizer creates the authorizer selected by authz.type
func createAuthorizer(cfg *config.Config, logger *logging.Logger) (authz.Authorizer, error) {
	switch cfg.Authz.Type {
	case "spicedb":
		spicedbConfig := spicedb.Config{
			Endpoint:     cfg.Authz.SpiceDB.Endpoint,
			Insecure:     cfg.Authz.SpiceDB.Insecure,
			Token:        cfg.Authz.SpiceDB.Token,
			ResourceType: cfg.Authz.SpiceDB.ResourceType,
			ResourceID:   cfg.Authz.SpiceDB.ResourceID,
			SubjectType:  cfg.Authz.SpiceDB.SubjectType,
		}

		client, err := spicedb.NewClient(spicedbConfig)
		if err != nil {
			return nil, err
		}
		logger.Info("SpiceDB authorization enabled",
			"endpoint", cfg.Authz.SpiceDB.Endpoint,
			"insecure", cfg.Authz.SpiceDB.Insecure,
		)
		return spicedb.New(spicedbConfig, client, logger), nil
	default:
		logger.Info("Authorization disabled, any authenticated user is allowed")
		return authz.AuthenticatedOnly{}, nil
	}
}
