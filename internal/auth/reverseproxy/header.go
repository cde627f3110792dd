// Package reverseproxy implements trust-delegated authentication: a front
// reverse proxy verifies the user and forwards the login in a configured
// request header, and this package turns that header into a session.
//
// The handler trusts the header unconditionally. Deployments MUST make the
// validate endpoint reachable only through the trusted proxy, either by
// network policy or by enabling proxytrust, which strips the header from
// requests whose peer is not the proxy.
package reverseproxy

import (
	"fmt"
	"net/http"
	"net/textproto"
	"strings"

	"proxyauth/internal/auth"

	"golang.org/x/net/http/httpguts"
)

// ResolveHeaderKey turns the configured header name into the canonical key
// used for lookups in http.Header. The result does not depend on the casing
// of name.
func ResolveHeaderKey(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: identity header name is empty", auth.ErrConfigurationMissing)
	}
	if !httpguts.ValidHeaderFieldName(name) {
		return "", fmt.Errorf("invalid identity header name: %q", name)
	}
	return textproto.CanonicalMIMEHeaderKey(strings.ToLower(name)), nil
}

// ExtractIdentity returns the login carried in the header key. A missing,
// empty or all-blank header reports false. Any other value is returned
// byte-for-byte.
func ExtractIdentity(r *http.Request, key string) (string, bool) {
	value := r.Header.Get(key)
	if strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}
