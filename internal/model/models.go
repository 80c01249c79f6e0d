package model

import "time"

// Platform identifies one of the external systems a tenant's resources
// live on.
type Platform string

const (
	PlatformGitHub Platform = "github"
	PlatformDeploy Platform = "deploy"
	PlatformCMS    Platform = "cms"
	PlatformBackup Platform = "backup"
)

// AllPlatforms returns every known platform in a stable order.
func AllPlatforms() []Platform {
	return []Platform{PlatformGitHub, PlatformDeploy, PlatformCMS, PlatformBackup}
}

// TenantStatus is the lifecycle state of a tenant record.
type TenantStatus string

const (
	StatusPending            TenantStatus = "pending"
	StatusActive             TenantStatus = "active"
	StatusDeleted            TenantStatus = "deleted"
	StatusPermanentlyDeleted TenantStatus = "permanently_deleted"
)

// HealthStatus is the aggregated health of a tenant across platforms.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthDown     HealthStatus = "down"
	HealthUnknown  HealthStatus = "unknown"
)

// Tier determines whether a tenant gets a shared or dedicated CMS space.
type Tier string

const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// SpaceMode is the tagged variant for CMS space routing.
// Shared tenants live as content entries inside a common space;
// dedicated tenants own an entire space.
type SpaceMode string

const (
	SpaceShared    SpaceMode = "shared"
	SpaceDedicated SpaceMode = "dedicated"
)

// CMSSpace is the tenant's CMS placement: which space, and in which mode.
type CMSSpace struct {
	Mode     SpaceMode `json:"mode"`
	SpaceRef string    `json:"space_ref"`
}

// ResourceHandles holds the per-platform resource identifiers for a tenant.
type ResourceHandles struct {
	RepoFullName    string   `json:"repo_full_name"`    // e.g. "sites-org/acme"
	DeployProjectID string   `json:"deploy_project_id"` // deployment host project id
	CMS             CMSSpace `json:"cms"`
	BackupPrefix    string   `json:"backup_prefix"` // bucket prefix, e.g. "projects/acme/"
}

// Tenant is a single provisioned site tracked across platforms.
// The ID is immutable once assigned; recovery retires it and issues a
// new one. The slug is unique among non-permanently-deleted tenants.
type Tenant struct {
	ID              string
	Slug            string
	DisplayName     string
	Tier            Tier
	Status          TenantStatus
	Health          HealthStatus
	HealthCheckedAt *time.Time
	Handles         ResourceHandles
	PublicURL       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PlatformResult is the recorded outcome of one platform step within an
// orchestrated operation.
type PlatformResult struct {
	Platform Platform       `json:"platform"`
	Success  bool           `json:"success"`
	Detail   map[string]any `json:"detail,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// DeletionSnapshot preserves a tenant at deletion time so it can be
// recovered within the window. RecoveryDeadline is set at creation to
// DeletedAt plus the fixed window and never changes afterward.
// Recovered and PermanentlyDeleted are mutually exclusive terminal
// flags; once either is set the snapshot is immutable.
type DeletionSnapshot struct {
	ID               string
	TenantID         string // original tenant id, retired on recovery
	Slug             string
	Payload          []byte // JSON copy of the tenant, possibly encrypted
	PayloadEncrypted bool
	DeletedBy        string
	Reason           string
	DeletedAt        time.Time
	RecoveryDeadline time.Time
	ArchiveResults   []PlatformResult

	Recovered   bool
	RecoveredAt *time.Time
	RecoveredBy string
	NewTenantID string

	PermanentlyDeleted   bool
	PermanentlyDeletedAt *time.Time
	PermanentlyDeletedBy string
}

// HealthDetail is one platform's probe result.
// Healthy=false is a hard failure (resource missing or unreachable).
// Healthy=true with Degraded=true is a soft issue (stale backup,
// certificate expiring, no recent activity).
type HealthDetail struct {
	Platform Platform       `json:"platform"`
	Healthy  bool           `json:"healthy"`
	Degraded bool           `json:"degraded,omitempty"`
	Issue    string         `json:"issue,omitempty"`
	Detail   map[string]any `json:"detail,omitempty"`
}

// HealthCheck is one aggregated health check for a tenant. Append-only;
// the most recent check is the tenant's current health.
type HealthCheck struct {
	ID        string
	TenantID  string
	Slug      string
	Overall   HealthStatus
	Details   []HealthDetail
	Duration  time.Duration
	CheckedAt time.Time
}

// ResourceRef identifies a single resource on a platform, as reported
// by an adapter or recorded in a tenant's handles.
type ResourceRef struct {
	Platform Platform          `json:"platform"`
	Type     string            `json:"type"` // "repository", "project", "space", "content", "backup_prefix"
	ID       string            `json:"id"`
	Name     string            `json:"name,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// InventoryItem is the durable record of one platform resource.
// Orphaned means the platform reports it but no tenant references it.
// Drift means the store knows it but the platform did not report it on
// the last sync. The flags are independent.
type InventoryItem struct {
	ID             string
	Platform       Platform
	ResourceType   string
	ResourceID     string
	Name           string
	TenantID       string // empty when unlinked
	Orphaned       bool
	Drift          bool
	LastVerifiedAt time.Time
	Metadata       map[string]any
}

// OperationKind classifies an orchestrator invocation.
type OperationKind string

const (
	OpCreate        OperationKind = "create"
	OpDelete        OperationKind = "delete"
	OpRecover       OperationKind = "recover"
	OpHealthCheck   OperationKind = "health_check"
	OpInventorySync OperationKind = "inventory_sync"
	OpRollback      OperationKind = "rollback"
)

// OperationStatus is the state of an operation log entry.
type OperationStatus string

const (
	OpStarted        OperationStatus = "started"
	OpInProgress     OperationStatus = "in_progress"
	OpSuccess        OperationStatus = "success"
	OpFailed         OperationStatus = "failed"
	OpPartialSuccess OperationStatus = "partial_success"
	OpRolledBack     OperationStatus = "rolled_back"
)

// OperationLogEntry is one durable audit record per orchestrator call.
// Duration is derived from StartedAt/CompletedAt and recomputed
// whenever CompletedAt is set. Entries are never compacted.
type OperationLogEntry struct {
	ID           string
	Kind         OperationKind
	Status       OperationStatus
	Slug         string
	InitiatedBy  string
	Reason       string
	Results      []PlatformResult
	SuccessCount int
	FailureCount int
	StartedAt    time.Time
	CompletedAt  *time.Time
	Duration     time.Duration
	RollbackOfID string // links a rollback entry to the operation it compensates
}
