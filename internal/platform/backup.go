package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sitereg/internal/lifecycle"
	"sitereg/internal/model"
	"sitereg/internal/platform/bucket"
)

const (
	// defaultStaleAfter flags a tenant whose newest backup is older
	// than this as degraded. Backups run daily with slack for retries.
	defaultStaleAfter = 35 * 24 * time.Hour

	// backupRoot is where tenant backup prefixes live in the bucket.
	backupRoot = "projects/"
)

// BackupAdapter manages the backup object store. Archiving places a
// retention marker on every object under the tenant's prefix so the
// store's expiry rules stop deleting them; restoring clears the
// markers and normal rotation resumes.
type BackupAdapter struct {
	bucket     bucket.Bucket
	clock      lifecycle.Clock
	staleAfter time.Duration
}

var _ lifecycle.Adapter = (*BackupAdapter)(nil)

func NewBackupAdapter(b bucket.Bucket, clock lifecycle.Clock, staleAfterDays int) *BackupAdapter {
	staleAfter := defaultStaleAfter
	if staleAfterDays > 0 {
		staleAfter = time.Duration(staleAfterDays) * 24 * time.Hour
	}
	return &BackupAdapter{bucket: b, clock: clock, staleAfter: staleAfter}
}

func (a *BackupAdapter) Platform() model.Platform { return model.PlatformBackup }

func (a *BackupAdapter) Archive(ctx context.Context, ref model.ResourceRef) lifecycle.Result {
	changed, err := a.bucket.SetHold(ctx, ref.ID, true)
	if err != nil {
		return lifecycle.Failed(fmt.Errorf("setting retention hold under %s: %w", ref.ID, err),
			map[string]any{"held": changed})
	}
	return lifecycle.OK(map[string]any{"prefix": ref.ID, "held": changed})
}

func (a *BackupAdapter) Restore(ctx context.Context, ref model.ResourceRef) lifecycle.Result {
	changed, err := a.bucket.SetHold(ctx, ref.ID, false)
	if err != nil {
		return lifecycle.Failed(fmt.Errorf("clearing retention hold under %s: %w", ref.ID, err),
			map[string]any{"released": changed})
	}
	return lifecycle.OK(map[string]any{"prefix": ref.ID, "released": changed})
}

// Probe checks backup recency: no objects at all is a hard failure,
// a newest object older than the staleness threshold is a soft issue.
func (a *BackupAdapter) Probe(ctx context.Context, ref model.ResourceRef) model.HealthDetail {
	objects, err := a.bucket.List(ctx, ref.ID)
	if err != nil {
		return model.HealthDetail{Healthy: false, Issue: err.Error()}
	}
	if len(objects) == 0 {
		return model.HealthDetail{Healthy: false, Issue: "no backups found",
			Detail: map[string]any{"prefix": ref.ID}}
	}

	var newest time.Time
	for _, obj := range objects {
		if obj.LastModified.After(newest) {
			newest = obj.LastModified
		}
	}

	detail := map[string]any{
		"prefix":  ref.ID,
		"objects": len(objects),
		"newest":  newest.UTC().Format(time.RFC3339),
	}
	if a.clock.Now().Sub(newest) > a.staleAfter {
		return model.HealthDetail{Healthy: true, Degraded: true, Issue: "newest backup is stale", Detail: detail}
	}
	return model.HealthDetail{Healthy: true, Detail: detail}
}

// List reports each tenant prefix under the backup root as one
// resource, named after the prefix's final path element.
func (a *BackupAdapter) List(ctx context.Context) ([]model.ResourceRef, error) {
	prefixes, err := a.bucket.ListPrefixes(ctx, backupRoot)
	if err != nil {
		return nil, fmt.Errorf("listing backup prefixes: %w", err)
	}

	refs := make([]model.ResourceRef, 0, len(prefixes))
	for _, prefix := range prefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(prefix, backupRoot), "/")
		refs = append(refs, model.ResourceRef{
			Platform: model.PlatformBackup,
			Type:     "backup_prefix",
			ID:       prefix,
			Name:     name,
		})
	}
	return refs, nil
}

func (a *BackupAdapter) Close() error { return a.bucket.Close() }
