// Package security selects the authentication strategy of the process.
//
// Every configured strategy is described by an Adapter carrying its enabled
// flag and priority as plain data. The Registry sorts the adapters once, runs
// the data fixers and configures the first enabled adapter. Lower priorities
// win; adapters with equal priority keep their declaration order.
package security

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/trodix/keycloak-activiti-app-ext/internal/auth"
)

// Adapter describes one authentication strategy.
type Adapter struct {
	Name     string
	Enabled  bool
	Priority int
	// Configure installs the strategy's provider into the chain.
	Configure func(ctx context.Context, chain *auth.Chain, users auth.UserLookup) error
}

// DataFixer is an idempotent startup repair routine.
type DataFixer interface {
	Name() string
	Fix(ctx context.Context) error
}

// Registry holds the priority-ordered adapters and the data fixers.
type Registry struct {
	adapters []Adapter
	fixers   []DataFixer
}

// NewRegistry returns a Registry with adapters sorted by priority.
func NewRegistry(adapters []Adapter, fixers ...DataFixer) *Registry {
	sorted := append([]Adapter(nil), adapters...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	return &Registry{adapters: sorted, fixers: fixers}
}

// Adapters returns the adapters in evaluation order.
func (r *Registry) Adapters() []Adapter {
	return append([]Adapter(nil), r.adapters...)
}

// RunFixers runs every data fixer. Failures are logged and never stop the
// remaining fixers. It returns the number of failed fixers.
func (r *Registry) RunFixers(ctx context.Context) int {
	var failed int

	for _, f := range r.fixers {
		if err := f.Fix(ctx); err != nil {
			log.Error().Err(err).Str("fixer", f.Name()).Msg("data fixer failed")
			failed++

			continue
		}

		log.Debug().Str("fixer", f.Name()).Msg("data fixer done")
	}

	return failed
}

// SelectAndApply runs the data fixers and configures the first enabled
// adapter. It returns nil, nil when no adapter is enabled.
func (r *Registry) SelectAndApply(ctx context.Context, chain *auth.Chain, users auth.UserLookup) (*Adapter, error) {
	r.RunFixers(ctx)

	for i := range r.adapters {
		a := &r.adapters[i]
		if !a.Enabled {
			log.Info().Str("adapter", a.Name).Int("priority", a.Priority).Msg("security adapter disabled")
			continue
		}

		log.Info().Str("adapter", a.Name).Int("priority", a.Priority).Msg("security adapter enabled")

		if a.Configure != nil {
			if err := a.Configure(ctx, chain, users); err != nil {
				return a, fmt.Errorf("configure %s adapter: %w", a.Name, err)
			}
		}

		return a, nil
	}

	log.Warn().Msg("no security adapter enabled")

	return nil, nil
}
