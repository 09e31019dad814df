package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/trodix/keycloak-activiti-app-ext/internal/db/models"
	"github.com/trodix/keycloak-activiti-app-ext/internal/idm"
	"github.com/trodix/keycloak-activiti-app-ext/internal/metrics"
)

// errSkipped marks a role that was deliberately left alone.
var errSkipped = errors.New("role skipped")

// pending holds the mapped roles not yet matched to a held group.
type pending struct {
	roles      map[string]string
	byExternal map[string]string
}

func newPending(roles map[string]string) *pending {
	return &pending{
		roles:      make(map[string]string, len(roles)),
		byExternal: make(map[string]string, len(roles)),
	}
}

func (p *pending) add(role, display, externalID string) {
	p.roles[role] = display
	p.byExternal[externalID] = role
}

func (p *pending) consume(role, externalID string) {
	delete(p.roles, role)
	delete(p.byExternal, externalID)
}

// byDisplay returns the first pending role, in sorted order, whose display
// name is name.
func (p *pending) byDisplay(name string) (string, bool) {
	for _, role := range p.sorted() {
		if p.roles[role] == name {
			return role, true
		}
	}

	return "", false
}

func (p *pending) sorted() []string {
	roles := make([]string, 0, len(p.roles))
	for role := range p.roles {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	return roles
}

// syncRun is the state of one Phase B pass.
type syncRun struct {
	*Reconciler
	user     *models.User
	tenantID *uint64
	pending  *pending
}

func (r *Reconciler) newSyncRun(user *models.User, tenantID *uint64, roles map[string]string) *syncRun {
	p := newPending(roles)
	for role, display := range roles {
		p.add(role, display, r.ExternalID(role))
	}

	return &syncRun{Reconciler: r, user: user, tenantID: tenantID, pending: p}
}

// held reconciles one group the user is currently a member of.
func (s *syncRun) held(ctx context.Context, g *models.Group) error {
	logger := log.Ctx(ctx)
	logger.Trace().Uint64("groupID", g.ID).Str("group", g.Name).Msg("inspecting group")

	if !g.External() {
		if !s.opts.SyncInternalGroups {
			return nil
		}

		if role, ok := s.pending.byDisplay(g.Name); ok {
			s.pending.consume(role, s.ExternalID(role))
			return s.promote(ctx, g, role)
		}

		return s.remove(ctx, g)
	}

	role, ok := s.pending.byExternal[g.ExternalID]
	if !ok {
		return s.remove(ctx, g)
	}
	s.pending.consume(role, g.ExternalID)

	if g.TenantID != nil || s.tenantID == nil {
		return nil
	}

	g.TenantID = s.tenantID
	g.LastUpdate = s.now()
	if err := s.groups.Save(ctx, g); err != nil {
		return fmt.Errorf("repair tenant of group %d: %w", g.ID, err)
	}

	logger.Info().Uint64("groupID", g.ID).Uint64("tenantID", *s.tenantID).Msg("assigned tenant-less group to tenant")
	metrics.GroupChange(metrics.ActionRepair)

	return nil
}

func (s *syncRun) remove(ctx context.Context, g *models.Group) error {
	logger := log.Ctx(ctx)

	if !s.opts.SyncGroupRemove {
		logger.Debug().Str("user", s.user.Email).Str("group", g.Name).Msg("group membership removal disabled, not removing user from group")
		metrics.GroupChange(metrics.ActionSkip)

		return nil
	}

	if err := s.groups.RemoveMember(ctx, g.ID, s.user.ID); err != nil {
		return err
	}

	logger.Trace().Str("user", s.user.Email).Str("group", g.Name).Msg("removed user from group")
	metrics.GroupChange(metrics.ActionRemove)

	return nil
}

// grant makes the user a member of the group mirroring role.
func (s *syncRun) grant(ctx context.Context, role, display string) error {
	logger := log.Ctx(ctx).With().Str("role", role).Logger()

	g, err := s.lookup(ctx, role, display)
	if errors.Is(err, errSkipped) {
		metrics.GroupChange(metrics.ActionSkip)
		return nil
	}
	if err != nil {
		return err
	}

	if g == nil {
		if !s.opts.CreateMissingGroup {
			logger.Debug().Msg("group does not exist and group creation is disabled")
			metrics.GroupChange(metrics.ActionSkip)

			return nil
		}

		if g, err = s.create(ctx, role, display); err != nil {
			return err
		}
	}

	if !s.opts.SyncGroupAdd {
		logger.Debug().Str("user", s.user.Email).Str("group", g.Name).Msg("group membership addition disabled, not adding user to group")
		metrics.GroupChange(metrics.ActionSkip)

		return nil
	}

	if err := s.groups.AddMember(ctx, g.ID, s.user.ID); err != nil {
		return err
	}

	logger.Trace().Str("user", s.user.Email).Str("group", g.Name).Msg("added user to group")
	metrics.GroupChange(metrics.ActionAdd)

	return nil
}

// lookup finds the group mirroring role by external ID and, when internal
// groups are synchronized, by display name. It returns nil when none exists
// and errSkipped when the role must be left alone.
func (s *syncRun) lookup(ctx context.Context, role, display string) (*models.Group, error) {
	logger := log.Ctx(ctx)
	externalID := s.ExternalID(role)

	g, err := s.groups.FindByExternalID(ctx, externalID, s.tenantID)
	switch {
	case err == nil:
		return g, nil
	case errors.Is(err, idm.ErrAmbiguousMatch):
		if !s.opts.EnableDuplicateGroupRepair {
			logger.Warn().Err(err).Str("externalID", externalID).Msg("several groups share the external ID, skipping role")
			return nil, errSkipped
		}

		return s.repairDuplicates(ctx, externalID, s.tenantID)
	case !errors.Is(err, idm.ErrNotFound):
		return nil, err
	}

	if !s.opts.SyncInternalGroups {
		return nil, nil
	}

	named, err := s.groups.FindByName(ctx, display, s.tenantID)
	if err != nil {
		return nil, err
	}

	var internal []models.Group
	for _, candidate := range named {
		if !candidate.External() {
			internal = append(internal, candidate)
		}
	}

	switch len(internal) {
	case 0:
		return nil, nil
	case 1:
		g := &internal[0]
		return g, s.promote(ctx, g, role)
	default:
		logger.Warn().Str("group", display).Int("matches", len(internal)).Msg("several internal groups share the name, skipping role")
		return nil, errSkipped
	}
}

// promote turns an internal group into the group mirroring role.
func (s *syncRun) promote(ctx context.Context, g *models.Group, role string) error {
	now := s.now()
	g.ExternalID = s.ExternalID(role)
	g.LastUpdate = now
	g.LastSync = &now

	if err := s.groups.Save(ctx, g); err != nil {
		return fmt.Errorf("promote group %d: %w", g.ID, err)
	}

	log.Ctx(ctx).Info().Uint64("groupID", g.ID).Str("externalID", g.ExternalID).Msg("promoted internal group")
	metrics.GroupChange(metrics.ActionPromote)

	return nil
}

func (s *syncRun) create(ctx context.Context, role, display string) (*models.Group, error) {
	groupType := models.GroupTypeSystem
	if s.opts.SyncGroupsAsOrganization {
		groupType = models.GroupTypeFunctional
	}

	now := s.now()
	g := &models.Group{
		Name:       display,
		ExternalID: s.ExternalID(role),
		Type:       groupType,
		TenantID:   s.tenantID,
		LastUpdate: now,
		LastSync:   &now,
	}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("create group for role %q: %w", role, err)
	}

	log.Ctx(ctx).Trace().Uint64("groupID", g.ID).Str("externalID", g.ExternalID).Msg("created group")
	metrics.GroupChange(metrics.ActionCreate)

	return g, nil
}
