package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/trodix/keycloak-activiti-app-ext/internal/db/models"
	"github.com/trodix/keycloak-activiti-app-ext/internal/idm"
	"github.com/trodix/keycloak-activiti-app-ext/internal/metrics"
)

// repairDuplicates keeps the group with the earliest LastUpdate (lowest ID on
// ties) among those sharing externalID in the tenant and deletes the others.
func (r *Reconciler) repairDuplicates(ctx context.Context, externalID string, tenantID *uint64) (*models.Group, error) {
	groups, err := r.groups.ListByExternalID(ctx, externalID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list duplicates of %q: %w", externalID, err)
	}
	if len(groups) == 0 {
		return nil, nil
	}

	keep := 0
	for i := 1; i < len(groups); i++ {
		if earlier(&groups[i], &groups[keep]) {
			keep = i
		}
	}

	var (
		deleted []uint64
		errs    []error
	)
	for i := range groups {
		if i == keep {
			continue
		}

		if err := r.groups.Delete(ctx, groups[i].ID); err != nil && !errors.Is(err, idm.ErrNotFound) {
			errs = append(errs, err)
			continue
		}

		deleted = append(deleted, groups[i].ID)
		metrics.GroupChange(metrics.ActionRepair)
	}

	log.Ctx(ctx).Warn().
		Str("externalID", externalID).
		Uint64("keptGroupID", groups[keep].ID).
		Uints64("deletedGroupIDs", deleted).
		Msg("removed duplicate groups")

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &groups[keep], nil
}

func earlier(a, b *models.Group) bool {
	if a.LastUpdate.Equal(b.LastUpdate) {
		return a.ID < b.ID
	}

	return a.LastUpdate.Before(b.LastUpdate)
}
