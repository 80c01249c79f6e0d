package lifecycle

import (
	"time"

	"sitereg/internal/model"
)

// Store provides an interface for registry persistence. All methods
// must be implemented with appropriate transaction handling; "not
// found" is reported as a nil record, not an error.
type Store interface {
	// Tenant operations

	// FindTenantBySlug returns the tenant with the given slug among
	// non-permanently-deleted records (unique by invariant).
	FindTenantBySlug(slug string) (*model.Tenant, error)

	// FindTenantByID returns a tenant by its immutable id.
	FindTenantByID(id string) (*model.Tenant, error)

	// ListTenants returns all non-permanently-deleted tenants.
	ListTenants() ([]*model.Tenant, error)

	// CreateTenant inserts a new tenant record.
	CreateTenant(t *model.Tenant) error

	// UpdateTenantStatus flips a tenant's lifecycle status.
	UpdateTenantStatus(id string, status model.TenantStatus, now time.Time) error

	// UpdateTenantHealth updates the tenant's cached health columns.
	UpdateTenantHealth(id string, health model.HealthStatus, checkedAt time.Time) error

	// Snapshot operations

	// CreateSnapshot durably writes a deletion snapshot. The recovery
	// deadline is part of the insert and is never updated afterward.
	CreateSnapshot(s *model.DeletionSnapshot) error

	// FindSnapshotBySlug returns the most recent snapshot for a slug.
	FindSnapshotBySlug(slug string) (*model.DeletionSnapshot, error)

	// FindSnapshotByID returns a snapshot by id.
	FindSnapshotByID(id string) (*model.DeletionSnapshot, error)

	// UpdateSnapshotArchiveResults records the per-platform archival
	// outcomes. Fails if the snapshot is already terminal.
	UpdateSnapshotArchiveResults(id string, results []model.PlatformResult) error

	// RecoverTenant atomically inserts the re-materialized tenant,
	// retires the original tenant record, and marks the snapshot
	// recovered. Either all three happen or none do.
	RecoverTenant(snapshotID string, newTenant *model.Tenant, recoveredAt time.Time, recoveredBy string) error

	// MarkSnapshotPermanentlyDeleted atomically flips the snapshot and
	// its tenant to the terminal permanently-deleted state. Fails if
	// the snapshot is already terminal.
	MarkSnapshotPermanentlyDeleted(id string, at time.Time, by string) error

	// PendingPermanentDeletions returns unrecovered, non-permanently-
	// deleted snapshots whose recovery deadline is before now. This is
	// the query an external sweep job drives.
	PendingPermanentDeletions(now time.Time) ([]*model.DeletionSnapshot, error)

	// Health operations (append-only)

	CreateHealthCheck(h *model.HealthCheck) error

	// LatestHealthCheck returns the most recent check for a tenant, or
	// nil if none has ever run.
	LatestHealthCheck(tenantID string) (*model.HealthCheck, error)

	// Inventory operations

	// UpsertInventoryItem inserts or updates an item keyed by
	// (platform, resource type, resource id).
	UpsertInventoryItem(item *model.InventoryItem) error

	// ListInventory returns items for one platform, or all items when
	// platform is empty.
	ListInventory(platform model.Platform) ([]*model.InventoryItem, error)

	// UpdateInventoryDrift sets the drift flag without touching the
	// last-verified timestamp.
	UpdateInventoryDrift(id string, drift bool) error

	// Operation log (append-only, never compacted)

	CreateOperation(op *model.OperationLogEntry) error

	// CompleteOperation sets the terminal status, per-platform results
	// and counters, and recomputes the derived duration.
	CompleteOperation(id string, status model.OperationStatus, results []model.PlatformResult, successCount, failureCount int, completedAt time.Time) error

	// ListOperations returns entries matching the filter, newest first.
	ListOperations(filter OperationFilter) ([]*model.OperationLogEntry, error)

	// Close closes the store.
	Close() error
}

// OperationFilter narrows operation log queries. Zero values match
// everything.
type OperationFilter struct {
	Slug  string
	Kind  model.OperationKind
	Since time.Time
	Until time.Time
	Limit int
}
