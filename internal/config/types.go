package config

import (
	"net/url"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	// Server holds HTTP server configuration
	Server struct {
		// Address is the address to listen on
		Address string
		// ShutdownTimeout is the maximum time to wait for a graceful shutdown
		ShutdownTimeout time.Duration
		// BaseURL is the externally visible URL of the service
		BaseURL string
	}

	// Metrics holds metrics server configuration
	Metrics struct {
		// Address is the address to listen on for the metrics server
		Address string
	}

	// TLS holds TLS configuration
	TLS struct {
		// Enabled indicates whether TLS is enabled
		Enabled bool
		// CertPath is the path to the TLS certificate
		CertPath string
		// KeyPath is the path to the TLS key
		KeyPath string
		// CAPath is the path to the CA certificate for client verification
		CAPath string
	}

	// Upstream holds configuration for the upstream application
	Upstream struct {
		// URL is the URL of the upstream application
		URL *url.URL
		// Timeout is the maximum time to wait for upstream responses
		Timeout time.Duration
		// UserHeader carries the session login to the upstream application
		UserHeader string
	}

	// ReverseProxy holds the trusted header handshake configuration
	ReverseProxy struct {
		// Enabled indicates whether the identity header is trusted
		Enabled bool
		// HeaderName is the configured name of the identity header
		HeaderName string
		// LoginPath is the path of the application login page
		LoginPath string
		// ValidatePath is the path of the handshake endpoint
		ValidatePath string
		// HomeURL is the fallback redirect target
		HomeURL string
	}

	// LDAP holds the directory identity provider configuration
	LDAP struct {
		// URLs lists the servers, tried in order
		URLs []string
		// BindDN is the DN used for user searches
		BindDN string
		// BindPassword is the password of BindDN
		BindPassword string
		// StartTLS upgrades plain connections
		StartTLS bool
		// InsecureSkipVerify disables server certificate checks
		InsecureSkipVerify bool
		// Timeout bounds dialing and each request
		Timeout time.Duration
		// User holds the user mapping
		User struct {
			BaseDN            string
			Request           string
			RealNameAttribute string
			EmailAttribute    string
		}
	}

	// Static holds the file-based identity provider configuration
	Static struct {
		// UsersFile is the path of the YAML users file
		UsersFile string
	}

	// Session holds cookie session configuration
	Session struct {
		// CookieName is the name of the session cookie
		CookieName string
		// Secret signs and encrypts the session cookie
		Secret string
		// MaxAge is the cookie lifetime
		MaxAge time.Duration
		// Secure marks the cookie Secure
		Secure bool
	}

	// ProxyTrust holds front proxy certificate verification settings
	ProxyTrust struct {
		// Enabled indicates whether the front proxy must present a client certificate
		Enabled bool
		// CAPaths is a list of CA certificates for front proxy verification
		CAPaths []string
		// AllowedNames restricts the accepted certificate common names
		AllowedNames []string
	}

	// Authz holds authorization configuration
	Authz struct {
		// Type is the type of authorizer to use (none, spicedb)
		Type string

		// SpiceDB holds SpiceDB configuration
		SpiceDB struct {
			// Endpoint is the SpiceDB endpoint
			Endpoint string
			// Insecure indicates whether to use an insecure connection
			Insecure bool
			// Token is the SpiceDB authentication token
			Token string
			// ResourceType is the SpiceDB resource type
			ResourceType string
			// ResourceID is the SpiceDB resource ID
			ResourceID string
			// SubjectType is the SpiceDB subject type
			SubjectType string
		}
	}

	// Observability holds observability configuration
	Observability struct {
		// LogLevel is the minimum log level to emit
		LogLevel string
		// LogFormat is the log format (json, text, console)
		LogFormat string
	}

	// Rules holds route rules configuration
	Rules []Rule
}

// Rule defines a routing rule for the proxy
type Rule struct {
	// Name is a unique identifier for the rule
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// Action determines what action to take for matched requests
	// Can be "allow", "deny", or "auth"
	Action string `json:"action" yaml:"action" mapstructure:"action"`

	// Paths is a list of URL paths this rule applies to
	Paths []string `json:"paths" yaml:"paths" mapstructure:"paths"`

	// MatchPrefix indicates whether to match the path prefix instead of exact match
	MatchPrefix bool `json:"match_prefix" yaml:"match_prefix" mapstructure:"match_prefix"`

	// Methods is a list of HTTP methods this rule applies to (empty = all methods)
	Methods []string `json:"methods" yaml:"methods" mapstructure:"methods"`

	// Permission is the permission required for "auth" action
	// Ignored for other actions
	Permission string `json:"permission" yaml:"permission" mapstructure:"permission"`

	// Resource is the resource identifier for authorization checks
	// If empty, the default resource from configuration is used
	Resource string `json:"resource" yaml:"resource" mapstructure:"resource"`
}

// DefaultRules protects every path with a session
var DefaultRules = []Rule{
	{
		Name:        "default",
		Action:      "auth",
		Paths:       []string{"/"},
		MatchPrefix: true,
	},
}
