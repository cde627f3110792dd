package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"proxyauth/internal/auth"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "PROXYAUTH"

// Load loads the configuration from all sources and returns the merged result
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	Settings.PopulateViperDefaults(v)

	// Set up environment variable handling
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Load from config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// It's okay if the config file doesn't exist, but other errors should be reported
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	return fromViper(v)
}

// fromViper builds a validated Config from an initialized viper instance
func fromViper(v *viper.Viper) (*Config, error) {
	config := &Config{}
	var err error

	// Populate server configuration
	config.Server.Address = v.GetString(KeyServerAddr)
	if config.Server.ShutdownTimeout, err = parseDuration(v, KeyServerShutdownTimeout); err != nil {
		return nil, err
	}
	config.Server.BaseURL = v.GetString(KeyServerBaseURL)

	// Populate metrics configuration
	config.Metrics.Address = v.GetString(KeyMetricsAddr)

	// Populate TLS configuration
	config.TLS.Enabled = v.GetBool(KeyTLSEnabled)
	config.TLS.CertPath = v.GetString(KeyTLSCertPath)
	config.TLS.KeyPath = v.GetString(KeyTLSKeyPath)
	config.TLS.CAPath = v.GetString(KeyTLSCAPath)

	// Populate upstream configuration
	upstreamURL, err := url.Parse(v.GetString(KeyUpstreamURL))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	config.Upstream.URL = upstreamURL
	if config.Upstream.Timeout, err = parseDuration(v, KeyUpstreamTimeout); err != nil {
		return nil, err
	}
	config.Upstream.UserHeader = v.GetString(KeyUpstreamUserHeader)

	// Reverse proxy handshake
	config.ReverseProxy.Enabled = v.GetBool(KeyReverseProxyEnabled)
	config.ReverseProxy.HeaderName = v.GetString(KeyReverseProxyHeaderName)
	config.ReverseProxy.LoginPath = v.GetString(KeyReverseProxyLoginPath)
	config.ReverseProxy.ValidatePath = v.GetString(KeyReverseProxyValidatePath)
	config.ReverseProxy.HomeURL = v.GetString(KeyReverseProxyHomeURL)

	// LDAP
	config.LDAP.URLs = v.GetStringSlice(KeyLDAPURLs)
	config.LDAP.BindDN = v.GetString(KeyLDAPBindDN)
	config.LDAP.BindPassword = v.GetString(KeyLDAPBindPassword)
	config.LDAP.StartTLS = v.GetBool(KeyLDAPStartTLS)
	config.LDAP.InsecureSkipVerify = v.GetBool(KeyLDAPInsecureSkipVerify)
	if config.LDAP.Timeout, err = parseDuration(v, KeyLDAPTimeout); err != nil {
		return nil, err
	}
	config.LDAP.User.BaseDN = v.GetString(KeyLDAPUserBaseDN)
	config.LDAP.User.Request = v.GetString(KeyLDAPUserRequest)
	config.LDAP.User.RealNameAttribute = v.GetString(KeyLDAPUserRealName)
	config.LDAP.User.EmailAttribute = v.GetString(KeyLDAPUserEmail)

	// Static users
	config.Static.UsersFile = v.GetString(KeyStaticUsersFile)

	// Session
	config.Session.CookieName = v.GetString(KeySessionCookieName)
	config.Session.Secret = v.GetString(KeySessionSecret)
	if config.Session.MaxAge, err = parseDuration(v, KeySessionMaxAge); err != nil {
		return nil, err
	}
	config.Session.Secure = v.GetBool(KeySessionSecure)

	// Front proxy trust
	config.ProxyTrust.Enabled = v.GetBool(KeyProxyTrustEnabled)
	config.ProxyTrust.CAPaths = v.GetStringSlice(KeyProxyTrustCAPaths)
	config.ProxyTrust.AllowedNames = v.GetStringSlice(KeyProxyTrustAllowedNames)

	// Populate authorization configuration
	config.Authz.Type = v.GetString(KeyAuthzType)
	config.Authz.SpiceDB.Endpoint = v.GetString(KeyAuthzSpiceDBEndpoint)
	config.Authz.SpiceDB.Insecure = v.GetBool(KeyAuthzSpiceDBInsecure)
	config.Authz.SpiceDB.Token = v.GetString(KeyAuthzSpiceDBToken)
	config.Authz.SpiceDB.ResourceType = v.GetString(KeyAuthzSpiceDBResourceType)
	config.Authz.SpiceDB.ResourceID = v.GetString(KeyAuthzSpiceDBResourceID)
	config.Authz.SpiceDB.SubjectType = v.GetString(KeyAuthzSpiceDBSubjectType)

	// Populate observability configuration
	config.Observability.LogLevel = v.GetString(KeyLogLevel)
	config.Observability.LogFormat = v.GetString(KeyLogFormat)

	rules, err := loadRules(v)
	if err != nil {
		return nil, err
	}
	config.Rules = rules

	// Validate the configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// parseDuration reads a duration setting and names the key on failure
func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// loadRules decodes the rules list, falling back to DefaultRules
func loadRules(v *viper.Viper) ([]Rule, error) {
	if !v.IsSet(KeyRules) {
		return DefaultRules, nil
	}

	var rules []Rule
	if err := v.UnmarshalKey(KeyRules, &rules); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	if len(rules) == 0 {
		return DefaultRules, nil
	}
	return rules, nil
}

// validateConfig performs validation on the loaded configuration
func validateConfig(cfg *Config) error {
	// Validate required fields
	if cfg.Upstream.URL == nil || cfg.Upstream.URL.String() == "" {
		return fmt.Errorf("upstream URL is required")
	}

	// Validate TLS configuration
	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return fmt.Errorf("TLS certificate path is required when TLS is enabled")
		}
		if cfg.TLS.KeyPath == "" {
			return fmt.Errorf("TLS key path is required when TLS is enabled")
		}

		// Check if certificate and key files exist
		if _, err := os.Stat(cfg.TLS.CertPath); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate file not found: %s", cfg.TLS.CertPath)
		}
		if _, err := os.Stat(cfg.TLS.KeyPath); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file not found: %s", cfg.TLS.KeyPath)
		}
	}

	// Validate authentication configurations
	if err := validateAuthConfig(cfg); err != nil {
		return err
	}

	// Validate authorization configurations
	if err := validateAuthzConfig(cfg); err != nil {
		return err
	}

	return nil
}

// validateAuthConfig validates the handshake, identity provider and session configuration
func validateAuthConfig(cfg *Config) error {
	if cfg.ReverseProxy.Enabled {
		if strings.TrimSpace(cfg.ReverseProxy.HeaderName) == "" {
			return fmt.Errorf("%w: reverse proxy is enabled but no header name is set (%s)",
				auth.ErrConfigurationMissing, KeyReverseProxyHeaderName)
		}
		if !strings.HasPrefix(cfg.ReverseProxy.ValidatePath, "/") {
			return fmt.Errorf("validate path must start with '/': %q", cfg.ReverseProxy.ValidatePath)
		}
		if !strings.HasPrefix(cfg.ReverseProxy.LoginPath, "/") {
			return fmt.Errorf("login path must start with '/': %q", cfg.ReverseProxy.LoginPath)
		}
		if len(cfg.LDAP.URLs) == 0 && cfg.Static.UsersFile == "" {
			return fmt.Errorf("%w: reverse proxy is enabled but no identity provider is configured",
				auth.ErrConfigurationMissing)
		}
	}

	if len(cfg.LDAP.URLs) > 0 {
		if cfg.LDAP.User.BaseDN == "" {
			return fmt.Errorf("LDAP user base DN is required when LDAP servers are configured")
		}
		if !strings.Contains(cfg.LDAP.User.Request, "{login}") {
			return fmt.Errorf("LDAP user request must contain the {login} placeholder")
		}
	}

	if cfg.Static.UsersFile != "" {
		if _, err := os.Stat(cfg.Static.UsersFile); os.IsNotExist(err) {
			return fmt.Errorf("static users file not found: %s", cfg.Static.UsersFile)
		}
	}

	if len(cfg.Session.Secret) < 32 {
		return fmt.Errorf("session secret must be at least 32 bytes long")
	}

	if cfg.ProxyTrust.Enabled {
		if len(cfg.ProxyTrust.CAPaths) == 0 {
			return fmt.Errorf("at least one CA path is required when proxy trust is enabled")
		}
		if !cfg.TLS.Enabled {
			return fmt.Errorf("proxy trust requires TLS to be enabled")
		}

		// Check if CA files exist
		for _, caPath := range cfg.ProxyTrust.CAPaths {
			if _, err := os.Stat(caPath); os.IsNotExist(err) {
				return fmt.Errorf("proxy trust CA file not found: %s", caPath)
			}
		}
	}

	return nil
}

// validateAuthzConfig validates authorization configuration
func validateAuthzConfig(cfg *Config) error {
	switch cfg.Authz.Type {
	case "", "none":
		return nil
	case "spicedb":
		if cfg.Authz.SpiceDB.Token == "" {
			return fmt.Errorf("SpiceDB token is required when using SpiceDB authorization")
		}
		if cfg.Authz.SpiceDB.ResourceID == "" {
			return fmt.Errorf("SpiceDB resource ID is required when using SpiceDB authorization")
		}
		return nil
	default:
		return fmt.Errorf("unknown authorizer type: %q", cfg.Authz.Type)
	}
}
