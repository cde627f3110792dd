package reverseproxy

import (
	"net/http"
	"net/url"
	"strings"

	"proxyauth/internal/observability/logging"
)

// Headers announcing the scheme the client used in front of the proxy
const (
	headerForwardedProtoCGI = "X_FORWARDED_PROTO"
	headerForwardedProto    = "X-Forwarded-Proto"
)

// LoginFilter short-circuits the login page: a request that already carries
// the identity header is redirected to the validate endpoint, anything else
// continues to next. A login the provider already rejected for this session
// also continues to next, so the login page ends the redirect chain.
func (h *Handler) LoginFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		login, present := ExtractIdentity(r, h.headerKey)
		if !present {
			next.ServeHTTP(w, r)
			return
		}

		logger := logging.LoggerFromContext(r.Context())
		if logger == nil {
			logger = h.logger
		}

		sess, err := h.sessions.Open(r)
		if err != nil {
			logger.Error("Failed to open session", logging.Err(err))
		} else if sess.RejectedLogin() == login {
			logger.Debug("Identity already rejected, serving login page", "login", login)
			next.ServeHTTP(w, r)
			return
		}

		target := h.validateURL(r)
		logger.Debug("Identity header on login page, redirecting to validate endpoint", "target", target)
		http.Redirect(w, r, target, http.StatusFound)
	})
}

// validateURL rewrites the login page URL of r into the validate endpoint URL
func (h *Handler) validateURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := forwardedProto(r); proto != "" {
		scheme = proto
	}

	path := r.URL.Path
	if strings.HasSuffix(path, h.loginPath) {
		path = strings.TrimSuffix(path, h.loginPath) + h.validatePath
	} else {
		path = h.validatePath
	}

	target := url.URL{
		Scheme: scheme,
		Host:   r.Host,
		Path:   path,
	}
	return target.String()
}

// forwardedProto returns the client scheme reported by the proxy, if it is http or https
func forwardedProto(r *http.Request) string {
	for _, key := range []string{headerForwardedProtoCGI, headerForwardedProto} {
		proto := strings.ToLower(strings.TrimSpace(r.Header.Get(key)))
		if proto == "http" || proto == "https" {
			return proto
		}
	}
	return ""
}
