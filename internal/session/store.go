// Package session keeps the authenticated principal and the recorded
// destination in a signed and encrypted cookie.
package session

import (
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"io"
	"net/http"
	"time"

	"proxyauth/internal/auth"
	"proxyauth/internal/observability/logging"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"
)

// Session value keys
const (
	keyPrincipal   = "principal"
	keyDestination = "destination"
	keyRejected    = "rejected"
)

func init() {
	gob.Register(&auth.Principal{})
}

// Config holds the session cookie configuration
type Config struct {
	// CookieName is the name of the session cookie
	CookieName string

	// Secret is the key material the cookie keys are derived from
	Secret string

	// MaxAge is the cookie lifetime
	MaxAge time.Duration

	// Secure restricts the cookie to HTTPS
	Secure bool
}

// Store opens cookie-backed sessions
type Store struct {
	logger     *logging.Logger
	cookieName string
	store      *sessions.CookieStore
}

var _ auth.SessionStore = (*Store)(nil)

// NewStore creates a cookie session store
func NewStore(config Config, logger *logging.Logger) (*Store, error) {
	if len(config.Secret) < 32 {
		return nil, fmt.Errorf("%w: session secret must be at least 32 bytes", auth.ErrConfigurationMissing)
	}
	if config.CookieName == "" {
		config.CookieName = "proxyauth_session"
	}

	hashKey, err := deriveKey(config.Secret, "proxyauth session hash", 64)
	if err != nil {
		return nil, err
	}
	blockKey, err := deriveKey(config.Secret, "proxyauth session block", 32)
	if err != nil {
		return nil, err
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(config.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(store.Options.MaxAge)

	return &Store{
		logger:     logger.WithModule("session"),
		cookieName: config.CookieName,
		store:      store,
	}, nil
}

// deriveKey expands secret into a key of size bytes bound to info
func deriveKey(secret, info string, size int) ([]byte, error) {
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}
	return key, nil
}

// Open returns the session attached to r. A cookie that cannot be decoded,
// for example after a secret rotation, yields a fresh session.
func (s *Store) Open(r *http.Request) (auth.Session, error) {
	sess, err := s.store.Get(r, s.cookieName)
	if err != nil {
		if sess == nil {
			return nil, fmt.Errorf("failed to open session: %w", err)
		}
		logger := logging.LoggerFromContext(r.Context())
		if logger == nil {
			logger = s.logger
		}
		logger.Debug("Discarding unreadable session cookie", logging.Err(err))
	}
	return &cookieSession{session: sess, request: r}, nil
}

// cookieSession adapts a gorilla session to auth.Session
type cookieSession struct {
	session *sessions.Session
	request *http.Request
}

func (c *cookieSession) Principal() *auth.Principal {
	if p, ok := c.session.Values[keyPrincipal].(*auth.Principal); ok {
		return p
	}
	return nil
}

func (c *cookieSession) BindPrincipal(p *auth.Principal) {
	c.session.Values[keyPrincipal] = p
	delete(c.session.Values, keyRejected)
}

func (c *cookieSession) ClearPrincipal() {
	delete(c.session.Values, keyPrincipal)
}

func (c *cookieSession) RememberRejected(login string) {
	c.session.Values[keyRejected] = login
}

func (c *cookieSession) RejectedLogin() string {
	login, _ := c.session.Values[keyRejected].(string)
	return login
}

func (c *cookieSession) RememberDestination(target string) {
	c.session.Values[keyDestination] = target
}

func (c *cookieSession) TakeDestination() string {
	target, _ := c.session.Values[keyDestination].(string)
	delete(c.session.Values, keyDestination)
	return target
}

func (c *cookieSession) Save(w http.ResponseWriter) error {
	return c.session.Save(c.request, w)
}
