package lifecycle

import (
	"context"
	"fmt"

	"sitereg/internal/model"
)

// SyncInventory reconciles every platform's reported resources against
// the inventory store. Resources with no tenant link are flagged
// orphaned; previously known items a platform did not report this pass
// are flagged as drift. This is reconciliation, not a source of truth:
// tenant records are never mutated.
func (s *Service) SyncInventory(ctx context.Context) (*Outcome, error) {
	return s.syncInventory(ctx, "")
}

// SyncTenant reconciles only the resources belonging to one tenant.
func (s *Service) SyncTenant(ctx context.Context, slug string) (*Outcome, error) {
	tenant, err := s.store.FindTenantBySlug(slug)
	if err != nil {
		return nil, fmt.Errorf("finding tenant: %w", err)
	}
	if tenant == nil {
		return nil, &NotFoundError{Kind: "tenant", Key: slug}
	}
	return s.syncInventory(ctx, slug)
}

func (s *Service) syncInventory(ctx context.Context, onlySlug string) (*Outcome, error) {
	op, err := s.openOperation(model.OpInventorySync, onlySlug, "", "")
	if err != nil {
		return nil, fmt.Errorf("opening operation log entry: %w", err)
	}

	tenants, err := s.store.ListTenants()
	if err != nil {
		s.abortOperation(op, nil)
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	owners := indexResourceOwners(tenants)

	var results []model.PlatformResult
	for _, platform := range model.AllPlatforms() {
		adapter, ok := s.adapters[platform]
		if !ok {
			continue
		}
		result := s.syncPlatform(ctx, adapter, owners, onlySlug)
		results = append(results, result)
	}

	outcome, err := s.closeOperation(op, results)
	if err != nil {
		return nil, fmt.Errorf("closing operation log entry: %w", err)
	}

	s.logger.Info("inventory synced", "status", string(outcome.Status))
	return outcome, nil
}

// syncPlatform lists one platform and upserts/flags inventory items.
// A listing failure becomes the platform's result; known items are not
// marked drift in that case since nothing was observed.
func (s *Service) syncPlatform(ctx context.Context, adapter Adapter, owners map[resourceKey]*model.Tenant, onlySlug string) model.PlatformResult {
	platform := adapter.Platform()

	listCtx, cancel := context.WithTimeout(ctx, s.platformTimeout)
	defer cancel()

	refs, err := adapter.List(listCtx)
	if err != nil {
		return model.PlatformResult{
			Platform: platform,
			Success:  false,
			Error:    (&PlatformOperationError{Platform: platform, Op: "list", Err: err}).Error(),
		}
	}

	known, err := s.store.ListInventory(platform)
	if err != nil {
		return model.PlatformResult{Platform: platform, Success: false, Error: err.Error()}
	}

	now := s.clock.Now()
	seen := make(map[resourceKey]bool, len(refs))
	var observed, orphans int

	for _, ref := range refs {
		key := resourceKey{platform: platform, resourceType: ref.Type, resourceID: ref.ID}
		owner := owners[key]
		if owner == nil {
			// Fall back to slug matching on the resource name: adapters
			// report names the provisioner derived from the slug.
			owner = ownerBySlug(owners, platform, ref.Name)
		}

		if onlySlug != "" && (owner == nil || owner.Slug != onlySlug) {
			continue
		}

		item := &model.InventoryItem{
			ID:             s.idgen.New(), // kept only on first insert
			Platform:       platform,
			ResourceType:   ref.Type,
			ResourceID:     ref.ID,
			Name:           ref.Name,
			Orphaned:       owner == nil,
			Drift:          false,
			LastVerifiedAt: now,
			Metadata:       metaToAny(ref.Meta),
		}
		if owner != nil {
			item.TenantID = owner.ID
		} else {
			orphans++
		}

		if err := s.store.UpsertInventoryItem(item); err != nil {
			return model.PlatformResult{Platform: platform, Success: false, Error: err.Error()}
		}
		observed++
		seen[key] = true
	}

	// Known items the platform did not report were possibly deleted
	// manually on the platform side.
	var drifted int
	for _, item := range known {
		key := resourceKey{platform: platform, resourceType: item.ResourceType, resourceID: item.ResourceID}
		if seen[key] {
			continue
		}
		if onlySlug != "" && !itemBelongsTo(item, owners, onlySlug) {
			continue
		}
		if !item.Drift {
			if err := s.store.UpdateInventoryDrift(item.ID, true); err != nil {
				return model.PlatformResult{Platform: platform, Success: false, Error: err.Error()}
			}
			drifted++
		}
	}

	return model.PlatformResult{
		Platform: platform,
		Success:  true,
		Detail: map[string]any{
			"observed": observed,
			"orphaned": orphans,
			"drifted":  drifted,
		},
	}
}

// Inventory returns the stored inventory for one platform, or all
// platforms when platform is empty.
func (s *Service) Inventory(platform model.Platform) ([]*model.InventoryItem, error) {
	return s.store.ListInventory(platform)
}

type resourceKey struct {
	platform     model.Platform
	resourceType string
	resourceID   string
}

// indexResourceOwners maps every tenant resource handle to its tenant.
func indexResourceOwners(tenants []*model.Tenant) map[resourceKey]*model.Tenant {
	owners := make(map[resourceKey]*model.Tenant)
	for _, t := range tenants {
		for _, ref := range platformRefs(t) {
			owners[resourceKey{platform: ref.Platform, resourceType: ref.Type, resourceID: ref.ID}] = t

			// A tenant on a shared content space claims the space itself
			// too, so the space is not reported as orphaned when the
			// platform lists it. First resident wins.
			if ref.Platform == model.PlatformCMS && ref.Type == "content" {
				spaceKey := resourceKey{platform: model.PlatformCMS, resourceType: "space", resourceID: ref.ID}
				if owners[spaceKey] == nil {
					owners[spaceKey] = t
				}
			}
		}
	}
	return owners
}

func ownerBySlug(owners map[resourceKey]*model.Tenant, platform model.Platform, name string) *model.Tenant {
	if name == "" {
		return nil
	}
	for key, t := range owners {
		if key.platform == platform && t.Slug == name {
			return t
		}
	}
	return nil
}

func itemBelongsTo(item *model.InventoryItem, owners map[resourceKey]*model.Tenant, slug string) bool {
	for _, t := range owners {
		if t.Slug == slug && t.ID == item.TenantID {
			return true
		}
	}
	return false
}

func metaToAny(meta map[string]string) map[string]any {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
