// Package ldap resolves logins against one or more LDAP directory servers.
package ldap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"proxyauth/internal/auth"
	"proxyauth/internal/observability/logging"

	goldap "github.com/go-ldap/ldap/v3"
)

// LoginPlaceholder is replaced by the escaped login in the user request filter
const LoginPlaceholder = "{login}"

// Config holds LDAP provider configuration
type Config struct {
	// URLs lists the directory servers, tried in order
	URLs []string

	// BindDN and BindPassword are the service account used for searches.
	// An empty BindDN searches anonymously.
	BindDN       string
	BindPassword string

	// StartTLS upgrades ldap:// connections before binding
	StartTLS bool

	// InsecureSkipVerify disables server certificate verification
	InsecureSkipVerify bool

	// Timeout bounds connection setup and each request
	Timeout time.Duration

	// BaseDN is the search base for user entries
	BaseDN string

	// UserRequest is the search filter, containing LoginPlaceholder
	UserRequest string

	// RealNameAttribute and EmailAttribute map entry attributes to the principal
	RealNameAttribute string
	EmailAttribute    string
}

// Conn is the subset of an LDAP connection used by the provider
type Conn interface {
	Bind(username, password string) error
	Search(req *goldap.SearchRequest) (*goldap.SearchResult, error)
	Close()
}

// Dialer opens a connection to the server at url
type Dialer func(ctx context.Context, url string) (Conn, error)

// Provider implements auth.Provider on LDAP
type Provider struct {
	logger *logging.Logger
	config Config
	dial   Dialer
}

var _ auth.Provider = (*Provider)(nil)

// New creates an LDAP provider. A nil dialer uses the network.
func New(config Config, dial Dialer, logger *logging.Logger) (*Provider, error) {
	if len(config.URLs) == 0 {
		return nil, fmt.Errorf("%w: no LDAP server URL", auth.ErrConfigurationMissing)
	}
	if config.BaseDN == "" {
		return nil, fmt.Errorf("%w: no LDAP user base DN", auth.ErrConfigurationMissing)
	}
	if !strings.Contains(config.UserRequest, LoginPlaceholder) {
		return nil, fmt.Errorf("LDAP user request %q does not contain %s", config.UserRequest, LoginPlaceholder)
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	p := &Provider{
		logger: logger.WithModule("auth.ldap"),
		config: config,
		dial:   dial,
	}
	if p.dial == nil {
		p.dial = p.dialNetwork
	}
	return p, nil
}

// Name returns the name of this provider
func (p *Provider) Name() string {
	return "ldap"
}

// Authenticate looks login up on each server in turn and returns the first
// match. Servers that fail are skipped. When no server could be reached the
// error wraps auth.ErrProviderUnavailable.
func (p *Provider) Authenticate(ctx context.Context, login string, credential auth.Credential) (*auth.Principal, error) {
	logger := logging.LoggerFromContext(ctx)
	if logger == nil {
		logger = p.logger
	}

	if login == "" {
		return nil, nil
	}
	// An empty password would turn the user bind into an anonymous bind
	if !credential.Trusted() && credential.Secret() == "" {
		logger.Debug("Rejecting empty password", "login", login)
		return nil, nil
	}

	var (
		errs     []error
		answered bool
	)
	for _, serverURL := range p.config.URLs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		principal, err := p.authenticateOn(ctx, serverURL, login, credential, logger)
		if err != nil {
			logger.Warn("LDAP server failed, trying next",
				"server", serverURL,
				logging.Err(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", serverURL, err))
			continue
		}
		answered = true
		if principal != nil {
			logger.Debug("User found in LDAP", "login", login, "server", serverURL, "dn", principal.DN)
			return principal, nil
		}
	}

	if !answered && len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", auth.ErrProviderUnavailable, errors.Join(errs...))
	}

	logger.Debug("User not found in LDAP", "login", login)
	return nil, nil
}

// authenticateOn resolves login on a single server
func (p *Provider) authenticateOn(ctx context.Context, serverURL, login string, credential auth.Credential, logger *logging.Logger) (*auth.Principal, error) {
	conn, err := p.dial(ctx, serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	if p.config.BindDN != "" {
		if err := conn.Bind(p.config.BindDN, p.config.BindPassword); err != nil {
			return nil, fmt.Errorf("failed to bind as %s: %w", p.config.BindDN, err)
		}
	}

	entry, err := p.findUser(conn, login, logger)
	if err != nil || entry == nil {
		return nil, err
	}

	if !credential.Trusted() {
		if err := conn.Bind(entry.DN, credential.Secret()); err != nil {
			if goldap.IsErrorWithCode(err, goldap.LDAPResultInvalidCredentials) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to bind as user: %w", err)
		}
	}

	return &auth.Principal{
		Login:    login,
		Name:     p.attribute(entry, p.config.RealNameAttribute),
		Email:    p.attribute(entry, p.config.EmailAttribute),
		DN:       entry.DN,
		Provider: p.Name(),
	}, nil
}

// findUser returns the single entry matching login, or nil
func (p *Provider) findUser(conn Conn, login string, logger *logging.Logger) (*goldap.Entry, error) {
	filter := strings.ReplaceAll(p.config.UserRequest, LoginPlaceholder, goldap.EscapeFilter(login))

	var attributes []string
	for _, a := range []string{p.config.RealNameAttribute, p.config.EmailAttribute} {
		if a != "" {
			attributes = append(attributes, a)
		}
	}

	req := goldap.NewSearchRequest(
		p.config.BaseDN,
		goldap.ScopeWholeSubtree,
		goldap.NeverDerefAliases,
		2, // two is enough to detect ambiguity
		searchTimeLimit(p.config.Timeout),
		false,
		filter,
		attributes,
		nil,
	)

	result, err := conn.Search(req)
	if err != nil {
		if goldap.IsErrorWithCode(err, goldap.LDAPResultNoSuchObject) {
			return nil, nil
		}
		if goldap.IsErrorWithCode(err, goldap.LDAPResultSizeLimitExceeded) {
			logger.Warn("LDAP user request matched several entries", "login", login, "filter", filter)
			return nil, nil
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	switch len(result.Entries) {
	case 0:
		return nil, nil
	case 1:
		return result.Entries[0], nil
	default:
		logger.Warn("LDAP user request matched several entries", "login", login, "filter", filter)
		return nil, nil
	}
}

// searchTimeLimit converts timeout to the whole seconds of an LDAP search
// time limit, rounding up so that a sub-second timeout never becomes the
// unlimited 0
func searchTimeLimit(timeout time.Duration) int {
	if timeout <= 0 {
		return 0
	}
	return int((timeout + time.Second - 1) / time.Second)
}

// attribute returns the first value of name, or "" when name is unset
func (p *Provider) attribute(entry *goldap.Entry, name string) string {
	if name == "" {
		return ""
	}
	return entry.GetAttributeValue(name)
}

// dialNetwork connects to serverURL with the configured TLS settings
func (p *Provider) dialNetwork(_ context.Context, serverURL string) (Conn, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid LDAP URL: %w", err)
	}

	tlsConfig := &tls.Config{
		ServerName:         u.Hostname(),
		InsecureSkipVerify: p.config.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}

	c, err := goldap.DialURL(serverURL,
		goldap.DialWithDialer(&net.Dialer{Timeout: p.config.Timeout}),
		goldap.DialWithTLSConfig(tlsConfig),
	)
	if err != nil {
		return nil, err
	}
	c.SetTimeout(p.config.Timeout)

	if p.config.StartTLS && u.Scheme == "ldap" {
		if err := c.StartTLS(tlsConfig); err != nil {
			c.Close()
			return nil, fmt.Errorf("StartTLS failed: %w", err)
		}
	}

	return &networkConn{conn: c}, nil
}

// networkConn adapts *goldap.Conn to Conn
type networkConn struct {
	conn *goldap.Conn
}

func (c *networkConn) Bind(username, password string) error {
	return c.conn.Bind(username, password)
}

func (c *networkConn) Search(req *goldap.SearchRequest) (*goldap.SearchResult, error) {
	return c.conn.Search(req)
}

func (c *networkConn) Close() {
	c.conn.Close()
}
