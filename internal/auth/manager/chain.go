package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"proxyauth/internal/auth"
	"proxyauth/internal/observability/logging"
	"proxyauth/internal/observability/metrics"
)

// Chain is an auth.Provider that asks its providers in order and returns the
// first principal found
type Chain struct {
	logger    *logging.Logger
	metrics   *metrics.Collector
	providers []auth.Provider
}

var _ auth.Provider = (*Chain)(nil)

// NewChain creates a provider chain
func NewChain(providers []auth.Provider, logger *logging.Logger, metrics *metrics.Collector) *Chain {
	return &Chain{
		logger:    logger.WithModule("auth.chain"),
		metrics:   metrics,
		providers: providers,
	}
}

// Name returns the name of this provider
func (c *Chain) Name() string {
	return "chain"
}

// Authenticate returns the first principal resolved by a provider. A failing
// provider does not stop the chain; its error is only returned when no later
// provider resolved the login.
func (c *Chain) Authenticate(ctx context.Context, login string, credential auth.Credential) (*auth.Principal, error) {
	var errs []error
	for _, provider := range c.providers {
		start := time.Now()
		principal, err := provider.Authenticate(ctx, login, credential)
		duration := time.Since(start)

		switch {
		case err != nil:
			c.metrics.RecordProviderRequest(provider.Name(), "error", duration)
			c.logger.WithContext(ctx).Warn("Identity provider failed",
				"provider", provider.Name(),
				logging.Err(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))
		case principal != nil:
			c.metrics.RecordProviderRequest(provider.Name(), "found", duration)
			return principal, nil
		default:
			c.metrics.RecordProviderRequest(provider.Name(), "not_found", duration)
		}
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		if !errors.Is(err, auth.ErrProviderUnavailable) {
			err = fmt.Errorf("%w: %w", auth.ErrProviderUnavailable, err)
		}
		return nil, err
	}
	return nil, nil
}
