package testutil

import (
	"time"

	"sitereg/internal/model"
	"sitereg/internal/platform"
)

// TestAdapters is one scriptable MemoryAdapter per platform.
type TestAdapters struct {
	GitHub *platform.MemoryAdapter
	Deploy *platform.MemoryAdapter
	CMS    *platform.MemoryAdapter
	Backup *platform.MemoryAdapter
}

// NewTestAdapters creates a full set of memory adapters.
func NewTestAdapters() *TestAdapters {
	return &TestAdapters{
		GitHub: platform.NewMemoryAdapter(model.PlatformGitHub),
		Deploy: platform.NewMemoryAdapter(model.PlatformDeploy),
		CMS:    platform.NewMemoryAdapter(model.PlatformCMS),
		Backup: platform.NewMemoryAdapter(model.PlatformBackup),
	}
}

// All returns the adapters in platform order.
func (a *TestAdapters) All() []*platform.MemoryAdapter {
	return []*platform.MemoryAdapter{a.GitHub, a.Deploy, a.CMS, a.Backup}
}

// SeedTenantResources registers every resource the tenant's handles
// reference, so probes and listings see them.
func (a *TestAdapters) SeedTenantResources(t *model.Tenant) {
	a.GitHub.AddResource(model.ResourceRef{
		Platform: model.PlatformGitHub, Type: "repository",
		ID: t.Handles.RepoFullName, Name: t.Slug,
	})
	a.Deploy.AddResource(model.ResourceRef{
		Platform: model.PlatformDeploy, Type: "project",
		ID: t.Handles.DeployProjectID, Name: t.Slug,
	})
	cmsType := "space"
	if t.Handles.CMS.Mode == model.SpaceShared {
		cmsType = "content"
	}
	a.CMS.AddResource(model.ResourceRef{
		Platform: model.PlatformCMS, Type: cmsType,
		ID: t.Handles.CMS.SpaceRef, Name: t.Slug,
	})
	a.Backup.AddResource(model.ResourceRef{
		Platform: model.PlatformBackup, Type: "backup_prefix",
		ID: t.Handles.BackupPrefix, Name: t.Slug,
	})
}

// SampleTenant builds an active tenant with handles on every platform.
func SampleTenant(id, slug string, createdAt time.Time) *model.Tenant {
	return &model.Tenant{
		ID:          id,
		Slug:        slug,
		DisplayName: "Tenant " + slug,
		Tier:        model.TierStandard,
		Status:      model.StatusActive,
		Health:      model.HealthUnknown,
		Handles: model.ResourceHandles{
			RepoFullName:    "sites-org/" + slug,
			DeployProjectID: "prj_" + slug,
			CMS: model.CMSSpace{
				Mode:     model.SpaceShared,
				SpaceRef: "space-shared-1",
			},
			BackupPrefix: "projects/" + slug + "/",
		},
		PublicURL: "https://" + slug + ".example.com",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}
