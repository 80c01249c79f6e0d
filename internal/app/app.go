package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"sitereg/internal/config"
	"sitereg/internal/encryption"
	"sitereg/internal/lifecycle"
	"sitereg/internal/model"
	"sitereg/internal/platform"
	"sitereg/internal/store"
)

// App is the application layer between the CLI and the lifecycle
// Service. It constructs all dependencies from config, exposes
// high-level operations, and manages the DB lifecycle on Close.
type App struct {
	cfg       *config.Config
	store     *store.SQLiteStore
	encryptor lifecycle.Encryptor
	service   *lifecycle.Service
	clock     lifecycle.Clock
	idgen     lifecycle.IDGenerator
	logFile   *os.File
}

// New creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "Delete", "CheckHealth")
// and scopes the log lines of this invocation. The caller must call
// Close when done.
func New(ctx context.Context, cfg *config.Config, operation string) (*App, error) {
	st, err := store.NewStoreFromConfig(cfg.Database.Type, cfg.Database.DataDir)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	if err := st.CheckMigrations(); err != nil {
		st.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	clock := lifecycle.RealClock{}
	idgen := lifecycle.UUIDGenerator{}

	if len(cfg.Platforms) == 0 {
		st.Close()
		return nil, fmt.Errorf("no platforms configured")
	}
	adapters := make([]lifecycle.Adapter, 0, len(cfg.Platforms))
	for _, pc := range cfg.Platforms {
		a, err := platform.NewAdapterFromConfig(ctx, pc, clock)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("creating %s adapter: %w", pc.Type, err)
		}
		adapters = append(adapters, a)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	svc := lifecycle.NewService(st, adapters, &slogAdapter{l: logger}, clock, idgen, lifecycle.Options{
		PlatformTimeout: time.Duration(cfg.Orchestrator.PlatformTimeoutSeconds) * time.Second,
		Retry: lifecycle.RetryPolicy{
			MaxAttempts: cfg.Orchestrator.RetryAttempts,
		},
		Encryptor: enc,
	})

	return &App{
		cfg:       cfg,
		store:     st,
		encryptor: enc,
		service:   svc,
		clock:     clock,
		idgen:     idgen,
		logFile:   logFile,
	}, nil
}

// Delete soft-deletes a tenant: snapshot first, then platform fan-out.
func (a *App) Delete(ctx context.Context, slug, reason, initiatedBy string, confirmed bool) (*lifecycle.Outcome, error) {
	return a.service.Delete(ctx, lifecycle.DeleteRequest{
		Slug:        slug,
		Reason:      reason,
		InitiatedBy: initiatedBy,
		Confirmed:   confirmed,
	})
}

// SnapshotEncrypted reports whether the tenant's deletion snapshot
// payload needs a passphrase to recover.
func (a *App) SnapshotEncrypted(slug string) (bool, error) {
	snapshot, err := a.store.FindSnapshotBySlug(slug)
	if err != nil {
		return false, fmt.Errorf("finding snapshot: %w", err)
	}
	if snapshot == nil {
		return false, &lifecycle.NotFoundError{Kind: "snapshot", Key: slug}
	}
	return snapshot.PayloadEncrypted, nil
}

// Recover restores a soft-deleted tenant within the recovery window.
// passphrase is required only when the snapshot payload is encrypted.
func (a *App) Recover(ctx context.Context, slug, recoveredBy, passphrase string) (*lifecycle.Outcome, error) {
	req := lifecycle.RecoverRequest{Slug: slug, RecoveredBy: recoveredBy}

	if passphrase != "" {
		if a.encryptor == nil {
			return nil, fmt.Errorf("no encryption configured but a passphrase was given")
		}
		dec, err := a.encryptor.Unlock(passphrase)
		if err != nil {
			return nil, fmt.Errorf("unlocking snapshot key: %w", err)
		}
		req.Decryption = dec
	}

	return a.service.Recover(ctx, req)
}

// CheckHealth probes every platform and records an aggregated check.
func (a *App) CheckHealth(ctx context.Context, slug string) (*model.HealthCheck, error) {
	return a.service.CheckHealth(ctx, slug)
}

// Health returns the cached health without touching the platforms.
func (a *App) Health(slug string) (model.HealthStatus, *model.HealthCheck, error) {
	return a.service.Health(slug)
}

// SyncInventory reconciles all platforms against the inventory store.
func (a *App) SyncInventory(ctx context.Context) (*lifecycle.Outcome, error) {
	return a.service.SyncInventory(ctx)
}

// SyncTenant reconciles a single tenant's resources.
func (a *App) SyncTenant(ctx context.Context, slug string) (*lifecycle.Outcome, error) {
	return a.service.SyncTenant(ctx, slug)
}

// Inventory returns stored inventory items, optionally one platform's.
func (a *App) Inventory(p model.Platform) ([]*model.InventoryItem, error) {
	return a.service.Inventory(p)
}

// Tenant returns one tenant by slug.
func (a *App) Tenant(slug string) (*model.Tenant, error) {
	return a.service.Tenant(slug)
}

// Tenants returns all live tenants.
func (a *App) Tenants() ([]*model.Tenant, error) {
	return a.service.Tenants()
}

// Operations returns audit log entries matching the filter.
func (a *App) Operations(filter lifecycle.OperationFilter) ([]*model.OperationLogEntry, error) {
	return a.service.Operations(filter)
}

// PendingPermanentDeletions lists snapshots whose window has lapsed.
func (a *App) PendingPermanentDeletions() ([]*model.DeletionSnapshot, error) {
	return a.service.PendingPermanentDeletions()
}

// MarkPermanentlyDeleted records that an external sweep purged the
// tenant's resources for good.
func (a *App) MarkPermanentlyDeleted(snapshotID, by string) error {
	return a.service.MarkPermanentlyDeleted(snapshotID, by)
}

// tenantImport is the TOML shape of a provisioning hand-off file.
type tenantImport struct {
	Slug        string `toml:"slug"`
	DisplayName string `toml:"display_name"`
	Tier        string `toml:"tier"`
	PublicURL   string `toml:"public_url"`

	Handles struct {
		RepoFullName    string `toml:"repo_full_name"`
		DeployProjectID string `toml:"deploy_project_id"`
		BackupPrefix    string `toml:"backup_prefix"`
		CMS             struct {
			Mode     string `toml:"mode"`
			SpaceRef string `toml:"space_ref"`
		} `toml:"cms"`
	} `toml:"handles"`
}

// ImportTenant registers a tenant record handed off by the
// provisioning system, from a TOML file.
func (a *App) ImportTenant(path string) (*model.Tenant, error) {
	var in tenantImport
	if _, err := toml.DecodeFile(path, &in); err != nil {
		return nil, fmt.Errorf("decoding tenant file: %w", err)
	}
	if in.Slug == "" {
		return nil, &lifecycle.ValidationError{Msg: "tenant slug must not be empty"}
	}

	existing, err := a.store.FindTenantBySlug(in.Slug)
	if err != nil {
		return nil, fmt.Errorf("finding tenant: %w", err)
	}
	if existing != nil {
		return nil, &lifecycle.InvalidStateError{Slug: in.Slug, Status: existing.Status,
			Msg: "slug already registered"}
	}

	now := a.clock.Now()
	tenant := &model.Tenant{
		ID:          a.idgen.New(),
		Slug:        in.Slug,
		DisplayName: in.DisplayName,
		Tier:        model.Tier(in.Tier),
		Status:      model.StatusActive,
		Health:      model.HealthUnknown,
		PublicURL:   in.PublicURL,
		Handles: model.ResourceHandles{
			RepoFullName:    in.Handles.RepoFullName,
			DeployProjectID: in.Handles.DeployProjectID,
			BackupPrefix:    in.Handles.BackupPrefix,
			CMS: model.CMSSpace{
				Mode:     model.SpaceMode(in.Handles.CMS.Mode),
				SpaceRef: in.Handles.CMS.SpaceRef,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if tenant.Tier == "" {
		tenant.Tier = model.TierStandard
	}

	if err := a.store.CreateTenant(tenant); err != nil {
		return nil, fmt.Errorf("creating tenant: %w", err)
	}
	return tenant, nil
}

// SetupEncryption generates and stores snapshot key material.
func (a *App) SetupEncryption(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("no encryption configured")
	}
	return a.encryptor.Setup(passphrase)
}

// Close releases the database and the invocation log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
