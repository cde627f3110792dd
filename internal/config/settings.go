package config

import "github.com/spf13/viper"

// SettingType represents the type of a setting
type SettingType string

const (
	// String type for string settings
	String SettingType = "string"
	// Bool type for boolean settings
	Bool SettingType = "bool"
	// Int type for integer settings
	Int SettingType = "int"
	// StringSlice type for string slice settings
	StringSlice SettingType = "stringSlice"
)

// Setting defines a configuration setting
type Setting struct {
	// Name is the viper key of the setting
	Name string
	// Short is a short description of the setting
	Short string
	// Type is the type of the setting
	Type SettingType
	// Default is the default value of the setting
	Default interface{}
	// Env is the environment variable name for the setting, without the prefix
	Env string
	// Required indicates whether the setting is required
	Required bool
}

// SettingList is a list of settings
type SettingList []Setting

// PopulateViperDefaults sets default values for all settings in Viper
func (sl SettingList) PopulateViperDefaults(v *viper.Viper) {
	for _, s := range sl {
		v.SetDefault(s.Name, s.Default)
	}
}

// Lookup returns the setting registered under name
func (sl SettingList) Lookup(name string) (Setting, bool) {
	for _, s := range sl {
		if s.Name == name {
			return s, true
		}
	}
	return Setting{}, false
}

// Setting keys read by Load
const (
	KeyServerAddr            = "server.addr"
	KeyServerShutdownTimeout = "server.shutdown_timeout"
	KeyServerBaseURL         = "server.base_url"
	KeyMetricsAddr           = "metrics.addr"

	KeyTLSEnabled  = "tls.enabled"
	KeyTLSCertPath = "tls.cert_path"
	KeyTLSKeyPath  = "tls.key_path"
	KeyTLSCAPath   = "tls.ca_path"

	KeyUpstreamURL        = "upstream.url"
	KeyUpstreamTimeout    = "upstream.timeout"
	KeyUpstreamUserHeader = "upstream.user_header"

	KeyReverseProxyEnabled      = "ldap.reverseproxy.enabled"
	KeyReverseProxyHeaderName   = "ldap.reverseproxy.header.name"
	KeyReverseProxyLoginPath    = "ldap.reverseproxy.login_path"
	KeyReverseProxyValidatePath = "ldap.reverseproxy.validate_path"
	KeyReverseProxyHomeURL      = "ldap.reverseproxy.home_url"

	KeyLDAPURLs               = "ldap.urls"
	KeyLDAPBindDN             = "ldap.bind_dn"
	KeyLDAPBindPassword       = "ldap.bind_password"
	KeyLDAPStartTLS           = "ldap.start_tls"
	KeyLDAPInsecureSkipVerify = "ldap.insecure_skip_verify"
	KeyLDAPTimeout            = "ldap.timeout"
	KeyLDAPUserBaseDN         = "ldap.user.base_dn"
	KeyLDAPUserRequest        = "ldap.user.request"
	KeyLDAPUserRealName       = "ldap.user.real_name_attribute"
	KeyLDAPUserEmail          = "ldap.user.email_attribute"

	KeyStaticUsersFile = "static.users_file"

	KeySessionCookieName = "session.cookie_name"
	KeySessionSecret     = "session.secret"
	KeySessionMaxAge     = "session.max_age"
	KeySessionSecure     = "session.secure"

	KeyProxyTrustEnabled      = "proxytrust.enabled"
	KeyProxyTrustCAPaths      = "proxytrust.ca_paths"
	KeyProxyTrustAllowedNames = "proxytrust.allowed_names"

	KeyAuthzType                = "authz.type"
	KeyAuthzSpiceDBEndpoint     = "authz.spicedb.endpoint"
	KeyAuthzSpiceDBInsecure     = "authz.spicedb.insecure"
	KeyAuthzSpiceDBToken        = "authz.spicedb.token"
	KeyAuthzSpiceDBResourceType = "authz.spicedb.resource_type"
	KeyAuthzSpiceDBResourceID   = "authz.spicedb.resource_id"
	KeyAuthzSpiceDBSubjectType  = "authz.spicedb.subject_type"

	KeyRules = "rules"

	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"
)

// Settings defines all application settings
var Settings = SettingList{
	// Server settings
	{
		Name:    KeyServerAddr,
		Short:   "Address on which the server listens",
		Type:    String,
		Default: ":8000",
		Env:     "SERVER_ADDR",
	},
	{
		Name:    KeyServerShutdownTimeout,
		Short:   "Maximum time to wait for graceful shutdown",
		Type:    String,
		Default: "30s",
		Env:     "SERVER_SHUTDOWN_TIMEOUT",
	},
	{
		Name:    KeyServerBaseURL,
		Short:   "External base URL, used to accept absolute redirect targets on the same host",
		Type:    String,
		Default: "",
		Env:     "SERVER_BASE_URL",
	},
	{
		Name:    KeyMetricsAddr,
		Short:   "Address on which the metrics server listens",
		Type:    String,
		Default: ":9090",
		Env:     "METRICS_ADDR",
	},

	// TLS settings
	{
		Name:    KeyTLSEnabled,
		Short:   "Enable TLS for the server",
		Type:    Bool,
		Default: false,
		Env:     "TLS_ENABLED",
	},
	{
		Name:    KeyTLSCertPath,
		Short:   "Path to TLS certificate file",
		Type:    String,
		Default: "",
		Env:     "TLS_CERT_PATH",
	},
	{
		Name:    KeyTLSKeyPath,
		Short:   "Path to TLS key file",
		Type:    String,
		Default: "",
		Env:     "TLS_KEY_PATH",
	},
	{
		Name:    KeyTLSCAPath,
		Short:   "Path to TLS CA certificate file",
		Type:    String,
		Default: "",
		Env:     "TLS_CA_PATH",
	},

	// Upstream settings
	{
		Name:     KeyUpstreamURL,
		Short:    "URL of the upstream application",
		Type:     String,
		Default:  "",
		Env:      "UPSTREAM_URL",
		Required: true,
	},
	{
		Name:    KeyUpstreamTimeout,
		Short:   "Timeout for upstream requests",
		Type:    String,
		Default: "30s",
		Env:     "UPSTREAM_TIMEOUT",
	},
	{
		Name:    KeyUpstreamUserHeader,
		Short:   "Header carrying the session login to the upstream application",
		Type:    String,
		Default: "X-Remote-User",
		Env:     "UPSTREAM_USER_HEADER",
	},

	// Reverse proxy handshake
	{
		Name:    KeyReverseProxyEnabled,
		Short:   "Trust the identity header set by the front reverse proxy",
		Type:    Bool,
		Default: false,
		Env:     "LDAP_REVERSEPROXY_ENABLED",
	},
	{
		Name:    KeyReverseProxyHeaderName,
		Short:   "Name of the header carrying the authenticated login",
		Type:    String,
		Default: "",
		Env:     "LDAP_REVERSEPROXY_HEADER_NAME",
	},
	{
		Name:    KeyReverseProxyLoginPath,
		Short:   "Path of the application login page",
		Type:    String,
		Default: "/sessions/new",
		Env:     "LDAP_REVERSEPROXY_LOGIN_PATH",
	},
	{
		Name:    KeyReverseProxyValidatePath,
		Short:   "Path of the header validation endpoint",
		Type:    String,
		Default: "/ldap/validate",
		Env:     "LDAP_REVERSEPROXY_VALIDATE_PATH",
	},
	{
		Name:    KeyReverseProxyHomeURL,
		Short:   "Redirect target when no previous destination was recorded",
		Type:    String,
		Default: "/",
		Env:     "LDAP_REVERSEPROXY_HOME_URL",
	},

	// LDAP identity provider
	{
		Name:    KeyLDAPURLs,
		Short:   "LDAP server URLs, tried in order",
		Type:    StringSlice,
		Default: []string{},
		Env:     "LDAP_URLS",
	},
	{
		Name:    KeyLDAPBindDN,
		Short:   "DN used to search for users",
		Type:    String,
		Default: "",
		Env:     "LDAP_BIND_DN",
	},
	{
		Name:    KeyLDAPBindPassword,
		Short:   "Password of the search DN",
		Type:    String,
		Default: "",
		Env:     "LDAP_BIND_PASSWORD",
	},
	{
		Name:    KeyLDAPStartTLS,
		Short:   "Upgrade ldap:// connections with StartTLS",
		Type:    Bool,
		Default: false,
		Env:     "LDAP_START_TLS",
	},
	{
		Name:    KeyLDAPInsecureSkipVerify,
		Short:   "Skip LDAP server certificate verification",
		Type:    Bool,
		Default: false,
		Env:     "LDAP_INSECURE_SKIP_VERIFY",
	},
	{
		Name:    KeyLDAPTimeout,
		Short:   "Dial and request timeout for LDAP servers",
		Type:    String,
		Default: "10s",
		Env:     "LDAP_TIMEOUT",
	},
	{
		Name:    KeyLDAPUserBaseDN,
		Short:   "Base DN of user entries",
		Type:    String,
		Default: "",
		Env:     "LDAP_USER_BASE_DN",
	},
	{
		Name:    KeyLDAPUserRequest,
		Short:   "Search filter for user entries, {login} is replaced by the escaped login",
		Type:    String,
		Default: "(&(objectClass=inetOrgPerson)(uid={login}))",
		Env:     "LDAP_USER_REQUEST",
	},
	{
		Name:    KeyLDAPUserRealName,
		Short:   "Attribute holding the display name",
		Type:    String,
		Default: "cn",
		Env:     "LDAP_USER_REAL_NAME_ATTRIBUTE",
	},
	{
		Name:    KeyLDAPUserEmail,
		Short:   "Attribute holding the email address",
		Type:    String,
		Default: "mail",
		Env:     "LDAP_USER_EMAIL_ATTRIBUTE",
	},

	// Static identity provider
	{
		Name:    KeyStaticUsersFile,
		Short:   "YAML file of static users",
		Type:    String,
		Default: "",
		Env:     "STATIC_USERS_FILE",
	},

	// Session
	{
		Name:    KeySessionCookieName,
		Short:   "Name of the session cookie",
		Type:    String,
		Default: "proxyauth_session",
		Env:     "SESSION_COOKIE_NAME",
	},
	{
		Name:     KeySessionSecret,
		Short:    "Secret key used to sign and encrypt the session cookie",
		Type:     String,
		Default:  "",
		Env:      "SESSION_SECRET",
		Required: true,
	},
	{
		Name:    KeySessionMaxAge,
		Short:   "Lifetime of the session cookie",
		Type:    String,
		Default: "8h",
		Env:     "SESSION_MAX_AGE",
	},
	{
		Name:    KeySessionSecure,
		Short:   "Mark the session cookie Secure",
		Type:    Bool,
		Default: true,
		Env:     "SESSION_SECURE",
	},

	// Front proxy trust
	{
		Name:    KeyProxyTrustEnabled,
		Short:   "Require the front proxy to present a trusted client certificate",
		Type:    Bool,
		Default: false,
		Env:     "PROXYTRUST_ENABLED",
	},
	{
		Name:    KeyProxyTrustCAPaths,
		Short:   "CA certificates used to verify the front proxy",
		Type:    StringSlice,
		Default: []string{},
		Env:     "PROXYTRUST_CA_PATHS",
	},
	{
		Name:    KeyProxyTrustAllowedNames,
		Short:   "Common names accepted for the front proxy certificate (empty accepts any)",
		Type:    StringSlice,
		Default: []string{},
		Env:     "PROXYTRUST_ALLOWED_NAMES",
	},

	// Authorization
	{
		Name:    KeyAuthzType,
		Short:   "Type of authorizer to use (none, spicedb)",
		Type:    String,
		Default: "none",
		Env:     "AUTHZ_TYPE",
	},
	{
		Name:    KeyAuthzSpiceDBEndpoint,
		Short:   "SpiceDB endpoint",
		Type:    String,
		Default: "localhost:50051",
		Env:     "AUTHZ_SPICEDB_ENDPOINT",
	},
	{
		Name:    KeyAuthzSpiceDBInsecure,
		Short:   "Use insecure connection to SpiceDB",
		Type:    Bool,
		Default: false,
		Env:     "AUTHZ_SPICEDB_INSECURE",
	},
	{
		Name:    KeyAuthzSpiceDBToken,
		Short:   "SpiceDB authentication token",
		Type:    String,
		Default: "",
		Env:     "AUTHZ_SPICEDB_TOKEN",
	},
	{
		Name:    KeyAuthzSpiceDBResourceType,
		Short:   "SpiceDB resource type",
		Type:    String,
		Default: "instance",
		Env:     "AUTHZ_SPICEDB_RESOURCE_TYPE",
	},
	{
		Name:    KeyAuthzSpiceDBResourceID,
		Short:   "SpiceDB resource ID",
		Type:    String,
		Default: "",
		Env:     "AUTHZ_SPICEDB_RESOURCE_ID",
	},
	{
		Name:    KeyAuthzSpiceDBSubjectType,
		Short:   "SpiceDB subject type",
		Type:    String,
		Default: "user",
		Env:     "AUTHZ_SPICEDB_SUBJECT_TYPE",
	},

	// Observability
	{
		Name:    KeyLogLevel,
		Short:   "Logging level",
		Type:    String,
		Default: "info",
		Env:     "LOG_LEVEL",
	},
	{
		Name:    KeyLogFormat,
		Short:   "Logging format (json, text, console)",
		Type:    String,
		Default: "json",
		Env:     "LOG_FORMAT",
	},
}
