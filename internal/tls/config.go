// internal/tls/config.go
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"proxyauth/internal/observability/logging"
)

// Config holds the TLS configuration
type Config struct {
	// Logger is the logger to use
	Logger *logging.Logger

	// RootCAPath is the path to the root CA certificate
	RootCAPath string

	// ProxyCAFiles lists CA certificates that issue front proxy client certificates
	ProxyCAFiles []string

	// CertPath is the path to the server certificate
	CertPath string

	// KeyPath is the path to the server key
	KeyPath string

	// ProxyCAs is the certificate pool for front proxy verification,
	// populated by GetTLSConfig
	ProxyCAs *x509.CertPool
}

// GetTLSConfig creates a TLS configuration for the server
func (c *Config) GetTLSConfig() (*tls.Config, error) {
	c.Logger.Debug("Initializing TLS configuration")

	cert, err := tls.LoadX509KeyPair(c.CertPath, c.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}

	var rootCAPaths []string
	if c.RootCAPath != "" {
		rootCAPaths = append(rootCAPaths, c.RootCAPath)
	}
	rootCAPool, err := LoadCertPool(rootCAPaths, c.Logger)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    rootCAPool,
		ClientAuth:   tls.VerifyClientCertIfGiven, // Allow but don't require client certs
		MinVersion:   tls.VersionTLS12,            // Enforce minimum TLS version
	}

	switch {
	case len(c.ProxyCAFiles) > 0:
		proxyCAPool, err := LoadCertPool(c.ProxyCAFiles, c.Logger)
		if err != nil {
			return nil, err
		}
		c.ProxyCAs = proxyCAPool
		tlsConfig.ClientCAs = proxyCAPool
		c.Logger.Debug("Client certificate verification configured for front proxy")
	case c.RootCAPath != "":
		c.ProxyCAs = rootCAPool
	}

	c.Logger.Info("TLS configuration successful")
	return tlsConfig, nil
}
