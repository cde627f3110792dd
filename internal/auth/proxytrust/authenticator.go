// Package proxytrust restricts the identity header to requests coming from
// the front proxy, identified by its TLS client certificate.
package proxytrust

import (
	"crypto/x509"
	"fmt"
	"net/http"
	"slices"

	"proxyauth/internal/auth"
	"proxyauth/internal/observability/logging"
	"proxyauth/internal/observability/metrics"
	"proxyauth/internal/tls"
)

// Authenticator strips the identity header from requests whose peer is not
// a trusted front proxy
type Authenticator struct {
	logger       *logging.Logger
	metrics      *metrics.Collector
	headerKey    string
	proxyCAs     *x509.CertPool
	allowedNames []string
}

var _ auth.Authenticator = (*Authenticator)(nil)

// Config holds front proxy verification configuration
type Config struct {
	// HeaderKey is the canonical identity header key to protect
	HeaderKey string

	// CAPaths lists CA certificates for front proxy verification.
	// Ignored when ProxyCAs is set.
	CAPaths []string

	// ProxyCAs is the pool shared with the server TLS configuration
	ProxyCAs *x509.CertPool

	// AllowedNames restricts the certificate subject. Empty accepts any
	// certificate issued by the CAs.
	AllowedNames []string
}

// New creates a proxy trust authenticator
func New(config Config, logger *logging.Logger, metrics *metrics.Collector) (*Authenticator, error) {
	logger = logger.WithModule("auth.proxytrust")

	if config.HeaderKey == "" {
		return nil, fmt.Errorf("%w: no identity header to protect", auth.ErrConfigurationMissing)
	}

	proxyCAs := config.ProxyCAs
	if proxyCAs == nil {
		if len(config.CAPaths) == 0 {
			return nil, fmt.Errorf("%w: proxy trust enabled but no CA paths provided", auth.ErrConfigurationMissing)
		}
		pool, err := tls.LoadCertPool(config.CAPaths, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load proxy trust CAs: %w", err)
		}
		proxyCAs = pool
	}

	return &Authenticator{
		logger:       logger,
		metrics:      metrics,
		headerKey:    config.HeaderKey,
		proxyCAs:     proxyCAs,
		allowedNames: config.AllowedNames,
	}, nil
}

// Name returns the name of this authenticator
func (a *Authenticator) Name() string {
	return "proxytrust"
}

// GetMiddleware returns an http.Handler middleware that removes the identity
// header unless the peer presented a valid front proxy certificate
func (a *Authenticator) GetMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, present := r.Header[a.headerKey]; !present {
			next.ServeHTTP(w, r)
			return
		}

		logger := logging.LoggerFromContext(r.Context())
		if logger == nil {
			logger = a.logger
		}

		subject, err := a.verifyPeer(r, logger)
		if err != nil {
			logger.Warn("Dropping identity header from untrusted peer",
				"header", a.headerKey,
				"remote_addr", r.RemoteAddr,
				logging.Err(err),
			)
			a.metrics.RecordAuthentication(a.Name(), false)
			r.Header.Del(a.headerKey)
			next.ServeHTTP(w, r)
			return
		}

		logger.Debug("Identity header accepted from front proxy", "subject", subject)
		a.metrics.RecordAuthentication(a.Name(), true)
		next.ServeHTTP(w, r)
	})
}

// verifyPeer checks the client certificate of r and returns its subject
func (a *Authenticator) verifyPeer(r *http.Request, logger *logging.Logger) (string, error) {
	if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
		return "", fmt.Errorf("no client certificate")
	}

	if err := tls.VerifyCertificate(r.TLS.PeerCertificates, a.proxyCAs, logger); err != nil {
		return "", err
	}

	subject, err := tls.ExtractSubject(r.TLS.PeerCertificates[0])
	if err != nil {
		return "", err
	}

	if len(a.allowedNames) > 0 && !slices.Contains(a.allowedNames, subject) {
		return "", fmt.Errorf("certificate subject %q is not an allowed proxy name", subject)
	}

	return subject, nil
}
