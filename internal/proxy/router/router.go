// internal/proxy/router/router.go
package router

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"proxyauth/internal/auth"
	"proxyauth/internal/auth/reverseproxy"
	"proxyauth/internal/authz"
	"proxyauth/internal/httputils"
	"proxyauth/internal/observability/logging"
	"proxyauth/internal/observability/metrics"

	"github.com/gorilla/mux"
)

// Rule defines a routing rule
type Rule struct {
	// Name is a unique identifier for the rule
	Name string

	// Action determines what action to take for matched requests
	// Can be "allow", "deny", or "auth"
	Action string

	// Paths is a list of URL paths this rule applies to
	Paths []string

	// MatchPrefix indicates whether to match the path prefix instead of exact match
	MatchPrefix bool

	// Methods is a list of HTTP methods this rule applies to (empty = all methods)
	Methods []string

	// Permission is the permission required for "auth" action
	// Ignored for other actions
	Permission string

	// Resource is the resource identifier for authorization checks
	// If empty, the default resource from configuration is used
	Resource string
}

// Router is a proxy router that implements routing rules and authentication/authorization
type Router struct {
	*mux.Router
	target      *httputil.ReverseProxy
	handshake   *reverseproxy.Handler
	sessions    auth.SessionStore
	authorizer  authz.Authorizer
	rules       []Rule
	userHeader  string
	logger      *logging.Logger
	metrics     *metrics.Collector
	upstreamURL *url.URL
}

// Config holds router configuration
type Config struct {
	// UpstreamURL is the URL of the upstream service
	UpstreamURL *url.URL

	// UpstreamTimeout is the timeout for upstream service requests
	UpstreamTimeout time.Duration

	// UserHeader carries the principal login to the upstream service.
	// Empty disables it.
	UserHeader string

	// Rules is the list of routing rules
	Rules []Rule
}

// New creates a new router. handshake may be nil when the header handshake
// is disabled; sessions may be nil when no login flow is available.
func New(config Config, handshake *reverseproxy.Handler, sessions auth.SessionStore, authorizer authz.Authorizer, logger *logging.Logger, metricsCollector *metrics.Collector) *Router {
	logger = logger.WithModule("proxy.router")

	// Create the reverse proxy with proper timeout configuration
	target := httputil.NewSingleHostReverseProxy(config.UpstreamURL)

	// Configure transport with timeouts
	target.Transport = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: config.UpstreamTimeout,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	target.ErrorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
		reqLogger := logging.LoggerFromContext(req.Context())
		if reqLogger == nil {
			reqLogger = logger
		}
		reqLogger.Error("Upstream request failed",
			logging.Err(err),
			"upstream", logging.RedactURL(config.UpstreamURL),
			"path", req.URL.Path,
		)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
	}

	if authorizer == nil {
		authorizer = authz.AuthenticatedOnly{}
	}

	r := &Router{
		Router:      mux.NewRouter(),
		target:      target,
		handshake:   handshake,
		sessions:    sessions,
		authorizer:  authorizer,
		rules:       config.Rules,
		userHeader:  http.CanonicalHeaderKey(config.UserHeader),
		logger:      logger,
		metrics:     metricsCollector,
		upstreamURL: config.UpstreamURL,
	}

	// Set up the routes
	r.setupRoutes()

	return r
}

// setupRoutes configures routes based on rules
func (r *Router) setupRoutes() {
	// Create reusable handlers
	allowHandler := r.createAllowHandler()
	denyHandler := r.createDenyHandler()

	// The handshake endpoints take precedence over every rule
	if r.handshake != nil {
		r.logger.Debug("Setting up handshake routes",
			"validate_path", r.handshake.ValidatePath(),
			"login_path", r.handshake.LoginPath(),
		)
		r.Path(r.handshake.ValidatePath()).Name("handshake").Handler(r.handshake)
		r.Path(r.handshake.LoginPath()).Name("login").Handler(r.handshake.LoginFilter(allowHandler))
	}

	for _, rule := range r.rules {
		r.logger.Debug("Setting up route",
			"name", rule.Name,
			"action", rule.Action,
			"paths", rule.Paths,
			"methods", rule.Methods,
		)

		for _, path := range rule.Paths {
			var route *mux.Route
			if rule.MatchPrefix {
				route = r.PathPrefix(path)
			} else {
				route = r.Path(path)
			}

			if len(rule.Methods) > 0 {
				route = route.Methods(rule.Methods...)
			}

			// Store rule data in route variables
			route = route.Name(rule.Name)

			switch rule.Action {
			case "allow":
				route.Handler(allowHandler)
			case "deny":
				route.Handler(denyHandler)
			case "auth":
				// Auth handler needs permission, so we create a specific handler
				route.Handler(r.createAuthHandlerForRule(rule))
			default:
				r.logger.Warn("Unknown action in rule, defaulting to deny",
					"rule", rule.Name, "action", rule.Action)
				route.Handler(denyHandler)
			}
		}
	}

	// Add default 404 handler for any unmatched routes
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.requestLogger(req).Warn("Request received for undefined route", "path", req.URL.Path)
		http.Error(w, "404 page not found", http.StatusNotFound)
	})
}

// requestLogger returns the logger attached to req, or the router logger
func (r *Router) requestLogger(req *http.Request) *logging.Logger {
	if logger := logging.LoggerFromContext(req.Context()); logger != nil {
		return logger
	}
	return r.logger
}

// routeName returns the name of the matched route
func routeName(req *http.Request) string {
	if route := mux.CurrentRoute(req); route != nil {
		return route.GetName()
	}
	return ""
}

// createAllowHandler creates a reusable handler for "allow" rules
func (r *Router) createAllowHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ruleName := routeName(req)

		r.requestLogger(req).Debug("Allow handler called",
			"rule", ruleName,
			"path", req.URL.Path,
			"method", req.Method,
		)

		r.metrics.RecordRuleMatch(ruleName, "allow")
		r.proxy(w, req)
	})
}

// createDenyHandler creates a reusable handler for "deny" rules
func (r *Router) createDenyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ruleName := routeName(req)

		r.requestLogger(req).Debug("Deny handler called",
			"rule", ruleName,
			"path", req.URL.Path,
			"method", req.Method,
		)

		r.metrics.RecordRuleMatch(ruleName, "deny")
		http.Error(w, "Forbidden", http.StatusForbidden)
	})
}

// createAuthHandlerForRule creates a handler for a specific "auth" rule
func (r *Router) createAuthHandlerForRule(rule Rule) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		logger := r.requestLogger(req)

		logger.Debug("Auth handler called",
			"rule", rule.Name,
			"permission", rule.Permission,
			"path", req.URL.Path,
			"method", req.Method,
		)

		r.metrics.RecordRuleMatch(rule.Name, "auth")

		principal := auth.PrincipalFromContext(ctx)
		if principal == nil {
			logger.Info("Auth failed: no principal", "rule", rule.Name)
			r.metrics.RecordAuthorization(rule.Permission, false)
			r.challenge(w, req)
			return
		}

		resp := r.authorizer.Authorize(&authz.Request{
			Principal:  principal,
			Permission: rule.Permission,
			Resource:   rule.Resource,
			Context:    ctx,
		})

		switch resp.Decision {
		case authz.Allow:
			logger.Debug("Authorization successful",
				"subject", principal.Login,
				"permission", rule.Permission,
				"rule", rule.Name,
			)
			r.metrics.RecordAuthorization(rule.Permission, true)
			r.proxy(w, req)

		case authz.Deny:
			logger.Info("Authorization failed: permission denied",
				"subject", principal.Login,
				"permission", rule.Permission,
				"rule", rule.Name,
			)
			r.metrics.RecordAuthorization(rule.Permission, false)
			http.Error(w, "Forbidden", http.StatusForbidden)

		case authz.Unauthorized:
			logger.Info("Authorization failed: unauthorized", "rule", rule.Name)
			r.metrics.RecordAuthorization(rule.Permission, false)
			r.challenge(w, req)

		case authz.Error:
			logger.Error("Authorization failed: error",
				logging.Err(resp.Error),
				"rule", rule.Name,
			)
			r.metrics.RecordAuthorization(rule.Permission, false)
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		}
	})
}

// challenge sends an unauthenticated request to the login page, recording
// where it was going. Without a login flow it answers 401.
func (r *Router) challenge(w http.ResponseWriter, req *http.Request) {
	if r.handshake == nil || r.sessions == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	logger := r.requestLogger(req)

	// Only navigations are worth returning to
	if req.Method == http.MethodGet || req.Method == http.MethodHead {
		sess, err := r.sessions.Open(req)
		if err != nil {
			logger.Error("Failed to open session", logging.Err(err))
			http.Error(w, "Failed to open session", http.StatusInternalServerError)
			return
		}
		sess.RememberDestination(req.URL.RequestURI())
		if err := sess.Save(w); err != nil {
			logger.Error("Failed to save session", logging.Err(err))
			http.Error(w, "Failed to save session", http.StatusInternalServerError)
			return
		}
	}

	http.Redirect(w, req, r.handshake.LoginPath(), http.StatusFound)
}

// proxy forwards req upstream. The identity header never reaches the
// upstream service; the principal login travels in the user header instead.
func (r *Router) proxy(w http.ResponseWriter, req *http.Request) {
	if r.handshake != nil {
		req.Header.Del(r.handshake.HeaderKey())
	}
	if r.userHeader != "" {
		req.Header.Del(r.userHeader)
		if principal := auth.PrincipalFromContext(req.Context()); principal != nil {
			req.Header.Set(r.userHeader, principal.Login)
		}
	}

	startTime := time.Now()
	wrapper := httputils.NewResponseWriter(w)

	r.target.ServeHTTP(wrapper, req)

	r.metrics.RecordUpstreamRequest(req.Method, r.upstreamURL.Redacted(), wrapper.StatusCode, time.Since(startTime))
}
