// Package reconcile converges internal principals and group memberships with
// the identity asserted by an external identity provider.
//
// PreAuthenticate (Phase A) makes sure the principal exists and is linked to
// the external source. PostAuthenticate (Phase B) maps the token's role claims
// and adds or removes group memberships until the externally sourced groups of
// the principal match the mapped role set. Both phases are idempotent.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trodix/keycloak-activiti-app-ext/internal/auth"
	"github.com/trodix/keycloak-activiti-app-ext/internal/db/models"
	"github.com/trodix/keycloak-activiti-app-ext/internal/idm"
	"github.com/trodix/keycloak-activiti-app-ext/internal/metrics"
	"github.com/trodix/keycloak-activiti-app-ext/internal/rolemap"
)

// DefaultSourceTag is the external source tag used when none is configured.
const DefaultSourceTag = "ais"

// Options toggles the individual reconciliation steps.
type Options struct {
	CreateMissingUser         bool
	ClearNewUserDefaultGroups bool
	CreateMissingGroup        bool
	SyncGroupAdd              bool
	SyncGroupRemove           bool
	// SyncInternalGroups lets internal groups be matched by display name and
	// promoted to synchronized groups.
	SyncInternalGroups bool
	// SyncGroupsAsOrganization creates functional instead of system groups.
	SyncGroupsAsOrganization bool
	// SourceTag tags created users and prefixes group external IDs.
	SourceTag string
	// EnableDuplicateGroupRepair deletes all but the oldest group when an
	// external ID matches several groups.
	EnableDuplicateGroupRepair bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		CreateMissingUser:         true,
		ClearNewUserDefaultGroups: true,
		CreateMissingGroup:        true,
		SyncGroupAdd:              true,
		SyncGroupRemove:           true,
		SourceTag:                 DefaultSourceTag,
	}
}

// TenantResolver returns the active tenant ID, nil when unresolved.
type TenantResolver interface {
	ResolveID(ctx context.Context) (*uint64, error)
}

// RoleMapper maps a token's role claims.
type RoleMapper interface {
	Map(token *auth.AccessToken) rolemap.Result
}

// Reconciler implements auth.Hooks.
type Reconciler struct {
	users   idm.UserStore
	groups  idm.GroupStore
	tenants TenantResolver
	mapper  RoleMapper
	opts    Options
	now     func() time.Time
}

var _ auth.Hooks = (*Reconciler)(nil)

// New returns a Reconciler.
func New(users idm.UserStore, groups idm.GroupStore, tenants TenantResolver, mapper RoleMapper, opts Options) *Reconciler {
	if opts.SourceTag == "" {
		opts.SourceTag = DefaultSourceTag
	}

	return &Reconciler{
		users:   users,
		groups:  groups,
		tenants: tenants,
		mapper:  mapper,
		opts:    opts,
		now:     time.Now,
	}
}

// ExternalID derives a group's external ID from a raw role.
func (r *Reconciler) ExternalID(role string) string {
	return r.opts.SourceTag + "_" + role
}

// PreAuthenticate makes sure the principal exists and is linked.
func (r *Reconciler) PreAuthenticate(ctx context.Context, a *auth.Authentication) error {
	logger := log.Ctx(ctx)

	if a.Name == "" {
		logger.Debug().Msg("no principal name, skipping user reconciliation")
		metrics.Reconciled(metrics.PhasePre, "anonymous")

		return nil
	}

	tenantID, err := r.tenants.ResolveID(ctx)
	if err != nil {
		metrics.Reconciled(metrics.PhasePre, "error")
		return fmt.Errorf("resolve tenant: %w", err)
	}

	user, err := r.findUser(ctx, a.Name, tenantID)
	switch {
	case errors.Is(err, idm.ErrNotFound):
		if !r.opts.CreateMissingUser {
			logger.Info().Str("user", a.Name).Msg("user does not exist and user creation is disabled")
			metrics.Reconciled(metrics.PhasePre, "absent")

			return nil
		}

		if err := r.createUser(ctx, a, tenantID); err != nil {
			metrics.Reconciled(metrics.PhasePre, "error")
			return err
		}
		metrics.Reconciled(metrics.PhasePre, "created")

		return nil
	case err != nil:
		metrics.Reconciled(metrics.PhasePre, "error")
		return err
	}

	switch user.ExternalSource {
	case "":
		user.ExternalSource = r.opts.SourceTag
		user.ExternalID = a.Name
		if user.TenantID == nil {
			user.TenantID = tenantID
		}
		if err := r.users.Save(ctx, user); err != nil {
			metrics.Reconciled(metrics.PhasePre, "error")
			return fmt.Errorf("link user %d: %w", user.ID, err)
		}

		logger.Info().Uint64("userID", user.ID).Str("source", r.opts.SourceTag).Msg("linked existing user to external source")
		metrics.Reconciled(metrics.PhasePre, "linked")
	case r.opts.SourceTag:
		logger.Trace().Uint64("userID", user.ID).Msg("found user")
		metrics.Reconciled(metrics.PhasePre, "unchanged")
	default:
		logger.Info().
			Uint64("userID", user.ID).
			Str("source", user.ExternalSource).
			Msg("user is linked to a different external source, leaving it untouched")
		metrics.Reconciled(metrics.PhasePre, "foreign")
	}

	return nil
}

// PostAuthenticate converges the principal's group memberships with the
// mapped role claims. Per-role failures are collected and do not stop the
// remaining roles.
func (r *Reconciler) PostAuthenticate(ctx context.Context, a *auth.Authentication) error {
	logger := log.Ctx(ctx)

	result := r.mapper.Map(a.Token)
	if !result.Determined() {
		logger.Debug().Str("user", a.Name).Stringer("outcome", result.Outcome).Msg("roles could not be determined, skipping group sync")
		metrics.Reconciled(metrics.PhasePost, result.Outcome.String())

		return nil
	}

	tenantID, err := r.tenants.ResolveID(ctx)
	if err != nil {
		metrics.Reconciled(metrics.PhasePost, "error")
		return fmt.Errorf("resolve tenant: %w", err)
	}

	user, err := r.findUser(ctx, a.Name, tenantID)
	if errors.Is(err, idm.ErrNotFound) {
		logger.Warn().Str("user", a.Name).Msg("authenticated user does not exist, skipping group sync")
		metrics.Reconciled(metrics.PhasePost, "absent")

		return nil
	}
	if err != nil {
		metrics.Reconciled(metrics.PhasePost, "error")
		return err
	}

	full, err := r.users.FetchWithGroups(ctx, user.ID)
	if err != nil {
		metrics.Reconciled(metrics.PhasePost, "error")
		return fmt.Errorf("fetch groups of user %d: %w", user.ID, err)
	}

	logger.Debug().Uint64("userID", full.ID).Int("groups", len(full.Groups)).Int("roles", len(result.Roles)).Msg("inspecting user")

	s := r.newSyncRun(full, tenantID, result.Roles)

	var errs []error
	for i := range full.Groups {
		if err := s.held(ctx, &full.Groups[i]); err != nil {
			errs = append(errs, err)
		}
	}

	for _, role := range s.pending.sorted() {
		if err := s.grant(ctx, role, s.pending.roles[role]); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		metrics.Reconciled(metrics.PhasePost, "partial")
		return errors.Join(errs...)
	}
	metrics.Reconciled(metrics.PhasePost, "mapped")

	return nil
}

// findUser looks the principal up in the tenant, then across all tenants.
func (r *Reconciler) findUser(ctx context.Context, email string, tenantID *uint64) (*models.User, error) {
	if tenantID != nil {
		user, err := r.users.FindByEmail(ctx, email, tenantID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, idm.ErrNotFound) {
			return nil, err
		}

		log.Ctx(ctx).Debug().Str("user", email).Msg("user does not exist in tenant, trying tenant-less lookup")
	}

	return r.users.FindByEmail(ctx, email, nil)
}

func (r *Reconciler) createUser(ctx context.Context, a *auth.Authentication, tenantID *uint64) error {
	logger := log.Ctx(ctx)

	first, last := DeriveNames(a.Name, a.Token)
	user := &models.User{
		Active:         true,
		Email:          a.Name,
		FirstName:      first,
		LastName:       last,
		ExternalSource: r.opts.SourceTag,
		ExternalID:     a.Name,
		TenantID:       tenantID,
	}
	if err := r.users.Create(ctx, user); err != nil {
		return fmt.Errorf("create user %q: %w", a.Name, err)
	}

	logger.Debug().Uint64("userID", user.ID).Str("externalID", user.ExternalID).Msg("created user")

	if !r.opts.ClearNewUserDefaultGroups {
		return nil
	}

	full, err := r.users.FetchWithGroups(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("fetch default groups of user %d: %w", user.ID, err)
	}

	var errs []error
	for _, g := range full.Groups {
		if err := r.groups.RemoveMember(ctx, g.ID, user.ID); err != nil {
			errs = append(errs, err)
			continue
		}

		logger.Trace().Uint64("userID", user.ID).Str("group", g.Name).Msg("removed default group")
		metrics.GroupChange(metrics.ActionRemove)
	}

	return errors.Join(errs...)
}
