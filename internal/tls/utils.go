// internal/tls/utils.go
package tls

import (
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"proxyauth/internal/observability/logging"
)

// LoadCertPool reads PEM CA certificates from paths into a new pool
func LoadCertPool(paths []string, logger *logging.Logger) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	for _, path := range paths {
		pem, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("failed to parse CA file: %s", path)
		}
		if logger != nil {
			logger.Debug("CA file loaded", "path", path)
		}
	}
	return pool, nil
}

// VerifyCertificate verifies a client certificate chain against a CA pool.
// chain[0] is the leaf, the remaining certificates are intermediates.
func VerifyCertificate(chain []*x509.Certificate, caPool *x509.CertPool, logger *logging.Logger) error {
	if len(chain) == 0 {
		return fmt.Errorf("no client certificate")
	}

	intermediates := x509.NewCertPool()
	for _, cert := range chain[1:] {
		intermediates.AddCert(cert)
	}

	opts := x509.VerifyOptions{
		Roots:         caPool,
		CurrentTime:   time.Now(),
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}

	if _, err := chain[0].Verify(opts); err != nil {
		if logger != nil {
			logger.Debug("Client certificate verification failed", logging.Err(err))
		}
		return fmt.Errorf("client certificate verification failed: %w", err)
	}

	return nil
}

// ExtractSubject returns the Common Name of cert, or its first DNS name when
// the Common Name is empty
func ExtractSubject(cert *x509.Certificate) (string, error) {
	if cn := cert.Subject.CommonName; cn != "" {
		return cn, nil
	}
	if len(cert.DNSNames) > 0 {
		return cert.DNSNames[0], nil
	}
	return "", fmt.Errorf("certificate has no Common Name or DNS names")
}
