package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"sitereg/internal/config"
	"sitereg/internal/lifecycle"
	"sitereg/internal/model"
)

// CMSAdapter manages content spaces. Tenants on a dedicated space get
// the whole space archived; tenants on a shared space get only their
// own entries archived, selected by the tenant slug the ref carries.
type CMSAdapter struct {
	client *apiClient
}

var _ lifecycle.Adapter = (*CMSAdapter)(nil)

func NewCMSAdapter(cfg config.PlatformConfig) *CMSAdapter {
	return &CMSAdapter{
		client: newAPIClient(cfg.APIBaseURL, NewCredentialSource(cfg), "Bearer", cfg.RequestsPerSecond),
	}
}

func (a *CMSAdapter) Platform() model.Platform { return model.PlatformCMS }

type cmsSpace struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Archived bool   `json:"archived"`
}

type cmsEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Archived bool   `json:"archived"`
}

func (a *CMSAdapter) Archive(ctx context.Context, ref model.ResourceRef) lifecycle.Result {
	switch ref.Type {
	case "space":
		return a.setSpaceArchived(ctx, ref.ID, true)
	case "content":
		return a.setEntriesArchived(ctx, ref, true)
	default:
		return lifecycle.Failed(fmt.Errorf("unsupported cms resource type %q", ref.Type), nil)
	}
}

func (a *CMSAdapter) Restore(ctx context.Context, ref model.ResourceRef) lifecycle.Result {
	switch ref.Type {
	case "space":
		return a.setSpaceArchived(ctx, ref.ID, false)
	case "content":
		return a.setEntriesArchived(ctx, ref, false)
	default:
		return lifecycle.Failed(fmt.Errorf("unsupported cms resource type %q", ref.Type), nil)
	}
}

func (a *CMSAdapter) setSpaceArchived(ctx context.Context, spaceID string, archived bool) lifecycle.Result {
	space, err := a.getSpace(ctx, spaceID)
	if err != nil {
		return lifecycle.Failed(err, nil)
	}
	if space == nil {
		return lifecycle.Failed(fmt.Errorf("space %s not found", spaceID), nil)
	}
	if space.Archived == archived {
		return lifecycle.OK(map[string]any{"space": space.ID, "note": "no change needed"})
	}

	patch := map[string]any{"archived": archived}
	if err := a.client.doJSON(ctx, http.MethodPatch, "/api/v1/spaces/"+spaceID, nil, patch, nil); err != nil {
		return lifecycle.Failed(err, nil)
	}
	return lifecycle.OK(map[string]any{"space": space.ID, "archived": archived})
}

// setEntriesArchived archives or unarchives every entry owned by the
// tenant inside a shared space. Entries already in the target state are
// skipped so the call is safe to re-run.
func (a *CMSAdapter) setEntriesArchived(ctx context.Context, ref model.ResourceRef, archived bool) lifecycle.Result {
	slug := ref.Meta["slug"]
	if slug == "" {
		return lifecycle.Failed(fmt.Errorf("content ref for space %s is missing a tenant slug", ref.ID), nil)
	}

	entries, err := a.listEntries(ctx, ref.ID, slug)
	if err != nil {
		return lifecycle.Failed(err, nil)
	}

	var changed int
	for _, entry := range entries {
		if entry.Archived == archived {
			continue
		}
		patch := map[string]any{"archived": archived}
		path := "/api/v1/spaces/" + ref.ID + "/entries/" + entry.ID
		if err := a.client.doJSON(ctx, http.MethodPatch, path, nil, patch, nil); err != nil {
			return lifecycle.Failed(fmt.Errorf("entry %s: %w", entry.ID, err),
				map[string]any{"space": ref.ID, "changed": changed})
		}
		changed++
	}
	return lifecycle.OK(map[string]any{"space": ref.ID, "entries": len(entries), "changed": changed})
}

// Probe checks that the space is reachable and not archived. An
// archived space for a live tenant is a hard failure; a shared-space
// tenant with zero entries is a soft issue.
func (a *CMSAdapter) Probe(ctx context.Context, ref model.ResourceRef) model.HealthDetail {
	space, err := a.getSpace(ctx, ref.ID)
	if err != nil {
		return model.HealthDetail{Healthy: false, Issue: err.Error()}
	}
	if space == nil {
		return model.HealthDetail{Healthy: false, Issue: "space not found"}
	}

	detail := map[string]any{"space": space.ID}
	if space.Archived {
		return model.HealthDetail{Healthy: false, Issue: "space is archived", Detail: detail}
	}

	if ref.Type == "content" {
		entries, err := a.listEntries(ctx, ref.ID, ref.Meta["slug"])
		if err != nil {
			return model.HealthDetail{Healthy: false, Issue: err.Error(), Detail: detail}
		}
		detail["entries"] = len(entries)
		if len(entries) == 0 {
			return model.HealthDetail{Healthy: true, Degraded: true, Issue: "no content entries", Detail: detail}
		}
	}
	return model.HealthDetail{Healthy: true, Detail: detail}
}

// List returns every space visible to the token.
func (a *CMSAdapter) List(ctx context.Context) ([]model.ResourceRef, error) {
	var resp struct {
		Spaces []cmsSpace `json:"spaces"`
	}
	if err := a.client.doJSON(ctx, http.MethodGet, "/api/v1/spaces", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing spaces: %w", err)
	}

	refs := make([]model.ResourceRef, 0, len(resp.Spaces))
	for _, s := range resp.Spaces {
		refs = append(refs, model.ResourceRef{
			Platform: model.PlatformCMS,
			Type:     "space",
			ID:       s.ID,
			Name:     s.Name,
			Meta:     map[string]string{"archived": fmt.Sprintf("%t", s.Archived)},
		})
	}
	return refs, nil
}

func (a *CMSAdapter) getSpace(ctx context.Context, id string) (*cmsSpace, error) {
	var space cmsSpace
	err := a.client.doJSON(ctx, http.MethodGet, "/api/v1/spaces/"+id, nil, nil, &space)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &space, nil
}

func (a *CMSAdapter) listEntries(ctx context.Context, spaceID, slug string) ([]cmsEntry, error) {
	query := url.Values{}
	if slug != "" {
		query.Set("tenant", slug)
	}
	var resp struct {
		Entries []cmsEntry `json:"entries"`
	}
	path := "/api/v1/spaces/" + spaceID + "/entries"
	if err := a.client.doJSON(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing entries in space %s: %w", spaceID, err)
	}
	return resp.Entries, nil
}
