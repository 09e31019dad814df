package auth

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Chain is the ordered authentication pipeline. Providers are added at
// startup; Authenticate is safe for concurrent use afterwards.
type Chain struct {
	providers []Provider
}

// NewChain returns a chain trying providers in order.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Add appends a provider.
func (c *Chain) Add(p Provider) {
	c.providers = append(c.providers, p)
}

// Len returns the number of installed providers.
func (c *Chain) Len() int {
	return len(c.providers)
}

// Authenticate tries every provider supporting the credentials and returns
// the first success. Otherwise the last provider error is returned, or
// ErrNoProvider when none applied.
func (c *Chain) Authenticate(ctx context.Context, a *Authentication) (*Authentication, error) {
	var lastErr error

	for _, p := range c.providers {
		if !p.Supports(a) {
			continue
		}

		result, err := p.Authenticate(ctx, a)
		if err == nil {
			return result, nil
		}

		log.Ctx(ctx).Debug().Err(err).Str("principal", a.Name).Msg("provider rejected credentials")
		lastErr = err
	}

	if lastErr != nil {
		return nil, lastErr
	}

	return nil, authFailed("chain", ErrNoProvider)
}
