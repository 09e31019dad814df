package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Interceptor wraps a Provider with reconciliation hooks.
type Interceptor struct {
	delegate Provider
	hooks    Hooks
	skipPost map[string]struct{}
}

var _ Provider = (*Interceptor)(nil)

// InterceptorOption configures an Interceptor.
type InterceptorOption func(*Interceptor)

// WithSkipPostAuthenticate skips PostAuthenticate for the given principal
// names, e.g. a bootstrap administrator whose groups must not be synced.
func WithSkipPostAuthenticate(names ...string) InterceptorOption {
	return func(i *Interceptor) {
		for _, n := range names {
			if n != "" {
				i.skipPost[n] = struct{}{}
			}
		}
	}
}

// NewInterceptor wraps delegate with hooks.
func NewInterceptor(delegate Provider, hooks Hooks, opts ...InterceptorOption) *Interceptor {
	i := &Interceptor{
		delegate: delegate,
		hooks:    hooks,
		skipPost: map[string]struct{}{},
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Supports delegates to the wrapped provider.
func (i *Interceptor) Supports(a *Authentication) bool {
	return i.delegate.Supports(a)
}

// Authenticate runs PreAuthenticate, the delegate and then PostAuthenticate.
// Delegate errors are returned unchanged. Hook errors are logged only.
func (i *Interceptor) Authenticate(ctx context.Context, a *Authentication) (*Authentication, error) {
	logger := log.With().Str("flow", uuid.NewString()).Logger()
	ctx = logger.WithContext(ctx)

	if p, ok := i.delegate.(Preparer); ok {
		if err := p.Prepare(ctx, a); err != nil {
			logger.Debug().Err(err).Msg("could not read principal before verification")
		}
	}

	if err := i.hooks.PreAuthenticate(ctx, a); err != nil {
		logger.Error().Err(err).Str("principal", a.Name).Msg("pre-authentication reconciliation failed")
	}

	result, err := i.delegate.Authenticate(ctx, a)
	if err != nil {
		return nil, err
	}

	if _, skip := i.skipPost[result.Name]; skip {
		logger.Debug().Str("principal", result.Name).Msg("post-authentication skipped for principal")

		return result, nil
	}

	if err := i.hooks.PostAuthenticate(ctx, result); err != nil {
		logger.Error().Err(err).Str("principal", result.Name).Msg("post-authentication reconciliation failed")
	}

	return result, nil
}
