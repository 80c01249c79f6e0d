package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"sitereg/internal/lifecycle"
	"sitereg/internal/model"
	"sitereg/internal/store/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the lifecycle.Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ lifecycle.Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store connection.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// NewStoreFromConfig creates a store based on the database config type.
// "memory" is an in-memory SQLite database with the schema applied,
// intended for tests and local experiments.
func NewStoreFromConfig(cfgType, dataDir string) (*SQLiteStore, error) {
	switch cfgType {
	case "sqlite", "":
		if dataDir == "" {
			return nil, fmt.Errorf("sqlite store requires data_dir to be set")
		}
		return NewSQLiteStore(filepath.Join(dataDir, "sitereg.db"))
	case "memory":
		s, err := NewSQLiteStore(":memory:")
		if err != nil {
			return nil, err
		}
		if err := migrations.Up(s.db); err != nil {
			s.Close()
			return nil, fmt.Errorf("migrating in-memory store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfgType)
	}
}

// OpenConnection opens and configures a SQLite connection with the
// appropriate PRAGMAs. Exported for tools and tests that need a
// properly configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite defaults foreign keys to OFF for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// DB exposes the underlying connection for migrations.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// CheckMigrations verifies the schema is at the latest version.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

// MigrateUp brings the schema to the latest version.
func (s *SQLiteStore) MigrateUp() error {
	return migrations.Up(s.db)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Tenant operations

const tenantColumns = `id, slug, display_name, tier, status, health, health_checked_at,
	repo_full_name, deploy_project_id, cms_mode, cms_space_ref, backup_prefix,
	public_url, created_at, updated_at`

func (s *SQLiteStore) FindTenantBySlug(slug string) (*model.Tenant, error) {
	row := s.db.QueryRow(
		`SELECT `+tenantColumns+` FROM tenants WHERE slug = ? AND status != ?`,
		slug, string(model.StatusPermanentlyDeleted))
	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding tenant by slug: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) FindTenantByID(id string) (*model.Tenant, error) {
	row := s.db.QueryRow(`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id)
	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding tenant by id: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) ListTenants() ([]*model.Tenant, error) {
	rows, err := s.db.Query(
		`SELECT `+tenantColumns+` FROM tenants WHERE status != ? ORDER BY slug`,
		string(model.StatusPermanentlyDeleted))
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*model.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *SQLiteStore) CreateTenant(t *model.Tenant) error {
	return s.insertTenant(s.db, t)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) insertTenant(ex execer, t *model.Tenant) error {
	_, err := ex.Exec(
		`INSERT INTO tenants (`+tenantColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Slug, t.DisplayName, string(t.Tier), string(t.Status), string(t.Health),
		nullTime(t.HealthCheckedAt),
		t.Handles.RepoFullName, t.Handles.DeployProjectID,
		string(t.Handles.CMS.Mode), t.Handles.CMS.SpaceRef, t.Handles.BackupPrefix,
		t.PublicURL, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("tenant slug %q already exists: %w", t.Slug, err)
		}
		return fmt.Errorf("inserting tenant: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateTenantStatus(id string, status model.TenantStatus, now time.Time) error {
	res, err := s.db.Exec(
		`UPDATE tenants SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), now, id)
	if err != nil {
		return fmt.Errorf("updating tenant status: %w", err)
	}
	return requireOneRow(res, "tenant", id)
}

func (s *SQLiteStore) UpdateTenantHealth(id string, health model.HealthStatus, checkedAt time.Time) error {
	res, err := s.db.Exec(
		`UPDATE tenants SET health = ?, health_checked_at = ?, updated_at = ? WHERE id = ?`,
		string(health), checkedAt, checkedAt, id)
	if err != nil {
		return fmt.Errorf("updating tenant health: %w", err)
	}
	return requireOneRow(res, "tenant", id)
}

// Snapshot operations

const snapshotColumns = `id, tenant_id, slug, payload, payload_encrypted, deleted_by, reason,
	deleted_at, recovery_deadline, archive_results,
	recovered, recovered_at, recovered_by, new_tenant_id,
	permanently_deleted, permanently_deleted_at, permanently_deleted_by`

func (s *SQLiteStore) CreateSnapshot(snap *model.DeletionSnapshot) error {
	results, err := marshalResults(snap.ArchiveResults)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO deletion_snapshots (`+snapshotColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.TenantID, snap.Slug, snap.Payload, snap.PayloadEncrypted,
		snap.DeletedBy, snap.Reason, snap.DeletedAt, snap.RecoveryDeadline, results,
		snap.Recovered, nullTime(snap.RecoveredAt), snap.RecoveredBy, snap.NewTenantID,
		snap.PermanentlyDeleted, nullTime(snap.PermanentlyDeletedAt), snap.PermanentlyDeletedBy)
	if err != nil {
		return fmt.Errorf("inserting deletion snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindSnapshotBySlug(slug string) (*model.DeletionSnapshot, error) {
	row := s.db.QueryRow(
		`SELECT `+snapshotColumns+` FROM deletion_snapshots
		 WHERE slug = ? ORDER BY deleted_at DESC LIMIT 1`, slug)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding snapshot by slug: %w", err)
	}
	return snap, nil
}

func (s *SQLiteStore) FindSnapshotByID(id string) (*model.DeletionSnapshot, error) {
	row := s.db.QueryRow(
		`SELECT `+snapshotColumns+` FROM deletion_snapshots WHERE id = ?`, id)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding snapshot by id: %w", err)
	}
	return snap, nil
}

func (s *SQLiteStore) UpdateSnapshotArchiveResults(id string, results []model.PlatformResult) error {
	data, err := marshalResults(results)
	if err != nil {
		return err
	}
	// Terminal snapshots are immutable.
	res, err := s.db.Exec(
		`UPDATE deletion_snapshots SET archive_results = ?
		 WHERE id = ? AND recovered = 0 AND permanently_deleted = 0`,
		data, id)
	if err != nil {
		return fmt.Errorf("updating archive results: %w", err)
	}
	return requireOneRow(res, "open snapshot", id)
}

func (s *SQLiteStore) RecoverTenant(snapshotID string, newTenant *model.Tenant, recoveredAt time.Time, recoveredBy string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	// Mark the snapshot recovered first; the guard clause keeps this
	// from racing another recovery of the same snapshot.
	res, err := tx.Exec(
		`UPDATE deletion_snapshots
		 SET recovered = 1, recovered_at = ?, recovered_by = ?, new_tenant_id = ?
		 WHERE id = ? AND recovered = 0 AND permanently_deleted = 0`,
		recoveredAt, recoveredBy, newTenant.ID, snapshotID)
	if err != nil {
		return fmt.Errorf("marking snapshot recovered: %w", err)
	}
	if err := requireOneRow(res, "open snapshot", snapshotID); err != nil {
		return err
	}

	// Retire the original tenant record so the slug frees up for the
	// re-materialized one. The old id is never reused.
	var originalID string
	if err := tx.QueryRow(
		`SELECT tenant_id FROM deletion_snapshots WHERE id = ?`, snapshotID).Scan(&originalID); err != nil {
		return fmt.Errorf("reading original tenant id: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE tenants SET status = ?, updated_at = ? WHERE id = ?`,
		string(model.StatusPermanentlyDeleted), recoveredAt, originalID); err != nil {
		return fmt.Errorf("retiring original tenant: %w", err)
	}

	if err := s.insertTenant(tx, newTenant); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing recovery: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MarkSnapshotPermanentlyDeleted(id string, at time.Time, by string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE deletion_snapshots
		 SET permanently_deleted = 1, permanently_deleted_at = ?, permanently_deleted_by = ?
		 WHERE id = ? AND recovered = 0 AND permanently_deleted = 0`,
		at, by, id)
	if err != nil {
		return fmt.Errorf("marking snapshot permanently deleted: %w", err)
	}
	if err := requireOneRow(res, "open snapshot", id); err != nil {
		return err
	}

	var tenantID string
	if err := tx.QueryRow(
		`SELECT tenant_id FROM deletion_snapshots WHERE id = ?`, id).Scan(&tenantID); err != nil {
		return fmt.Errorf("reading snapshot tenant id: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE tenants SET status = ?, updated_at = ? WHERE id = ?`,
		string(model.StatusPermanentlyDeleted), at, tenantID); err != nil {
		return fmt.Errorf("marking tenant permanently deleted: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing permanent deletion: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PendingPermanentDeletions(now time.Time) ([]*model.DeletionSnapshot, error) {
	rows, err := s.db.Query(
		`SELECT `+snapshotColumns+` FROM deletion_snapshots
		 WHERE recovered = 0 AND permanently_deleted = 0 AND recovery_deadline < ?
		 ORDER BY recovery_deadline`, now)
	if err != nil {
		return nil, fmt.Errorf("listing pending permanent deletions: %w", err)
	}
	defer rows.Close()

	var snaps []*model.DeletionSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Health operations

func (s *SQLiteStore) CreateHealthCheck(h *model.HealthCheck) error {
	details, err := json.Marshal(h.Details)
	if err != nil {
		return fmt.Errorf("marshaling health details: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO health_checks (id, tenant_id, slug, overall, details, duration_ms, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.TenantID, h.Slug, string(h.Overall), string(details),
		h.Duration.Milliseconds(), h.CheckedAt)
	if err != nil {
		return fmt.Errorf("inserting health check: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LatestHealthCheck(tenantID string) (*model.HealthCheck, error) {
	row := s.db.QueryRow(
		`SELECT id, tenant_id, slug, overall, details, duration_ms, checked_at
		 FROM health_checks WHERE tenant_id = ? ORDER BY checked_at DESC LIMIT 1`,
		tenantID)

	var (
		h          model.HealthCheck
		overall    string
		details    string
		durationMS int64
	)
	err := row.Scan(&h.ID, &h.TenantID, &h.Slug, &overall, &details, &durationMS, &h.CheckedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding latest health check: %w", err)
	}

	h.Overall = model.HealthStatus(overall)
	h.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal([]byte(details), &h.Details); err != nil {
		return nil, fmt.Errorf("unmarshaling health details: %w", err)
	}
	return &h, nil
}

// Inventory operations

func (s *SQLiteStore) UpsertInventoryItem(item *model.InventoryItem) error {
	metadata, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling inventory metadata: %w", err)
	}
	// The generated id survives only the first insert; conflicts keep
	// the existing row's id.
	_, err = s.db.Exec(
		`INSERT INTO inventory_items
		 (id, platform, resource_type, resource_id, name, tenant_id, orphaned, drift, last_verified_at, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (platform, resource_type, resource_id) DO UPDATE SET
		   name = excluded.name,
		   tenant_id = excluded.tenant_id,
		   orphaned = excluded.orphaned,
		   drift = excluded.drift,
		   last_verified_at = excluded.last_verified_at,
		   metadata = excluded.metadata`,
		item.ID, string(item.Platform), item.ResourceType, item.ResourceID,
		item.Name, item.TenantID, item.Orphaned, item.Drift, item.LastVerifiedAt, string(metadata))
	if err != nil {
		return fmt.Errorf("upserting inventory item: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListInventory(platform model.Platform) ([]*model.InventoryItem, error) {
	query := `SELECT id, platform, resource_type, resource_id, name, tenant_id, orphaned, drift, last_verified_at, metadata
		 FROM inventory_items`
	var args []any
	if platform != "" {
		query += ` WHERE platform = ?`
		args = append(args, string(platform))
	}
	query += ` ORDER BY platform, resource_type, resource_id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	defer rows.Close()

	var items []*model.InventoryItem
	for rows.Next() {
		var (
			item     model.InventoryItem
			plat     string
			metadata string
		)
		if err := rows.Scan(&item.ID, &plat, &item.ResourceType, &item.ResourceID,
			&item.Name, &item.TenantID, &item.Orphaned, &item.Drift,
			&item.LastVerifiedAt, &metadata); err != nil {
			return nil, fmt.Errorf("scanning inventory item: %w", err)
		}
		item.Platform = model.Platform(plat)
		if metadata != "" && metadata != "{}" {
			if err := json.Unmarshal([]byte(metadata), &item.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling inventory metadata: %w", err)
			}
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) UpdateInventoryDrift(id string, drift bool) error {
	res, err := s.db.Exec(`UPDATE inventory_items SET drift = ? WHERE id = ?`, drift, id)
	if err != nil {
		return fmt.Errorf("updating inventory drift: %w", err)
	}
	return requireOneRow(res, "inventory item", id)
}

// Operation log

func (s *SQLiteStore) CreateOperation(op *model.OperationLogEntry) error {
	results, err := marshalResults(op.Results)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO operation_log
		 (id, kind, status, slug, initiated_by, reason, results, success_count, failure_count,
		  started_at, completed_at, duration_ms, rollback_of_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.ID, string(op.Kind), string(op.Status), op.Slug, op.InitiatedBy, op.Reason,
		results, op.SuccessCount, op.FailureCount,
		op.StartedAt, nullTime(op.CompletedAt), op.Duration.Milliseconds(), op.RollbackOfID)
	if err != nil {
		return fmt.Errorf("inserting operation log entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CompleteOperation(id string, status model.OperationStatus, results []model.PlatformResult, successCount, failureCount int, completedAt time.Time) error {
	data, err := marshalResults(results)
	if err != nil {
		return err
	}
	// Duration is derived: recomputed from started_at whenever
	// completed_at is set.
	res, err := s.db.Exec(
		`UPDATE operation_log
		 SET status = ?, results = ?, success_count = ?, failure_count = ?,
		     completed_at = ?,
		     duration_ms = CAST((julianday(?) - julianday(started_at)) * 86400000 AS INTEGER)
		 WHERE id = ?`,
		string(status), data, successCount, failureCount,
		completedAt, completedAt, id)
	if err != nil {
		return fmt.Errorf("completing operation log entry: %w", err)
	}
	return requireOneRow(res, "operation log entry", id)
}

func (s *SQLiteStore) ListOperations(filter lifecycle.OperationFilter) ([]*model.OperationLogEntry, error) {
	query := `SELECT id, kind, status, slug, initiated_by, reason, results, success_count, failure_count,
		 started_at, completed_at, duration_ms, rollback_of_id
		 FROM operation_log`
	var (
		conds []string
		args  []any
	)
	if filter.Slug != "" {
		conds = append(conds, "slug = ?")
		args = append(args, filter.Slug)
	}
	if filter.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "started_at >= ?")
		args = append(args, filter.Since)
	}
	if !filter.Until.IsZero() {
		conds = append(conds, "started_at <= ?")
		args = append(args, filter.Until)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*model.OperationLogEntry
	for rows.Next() {
		var (
			op          model.OperationLogEntry
			kind        string
			status      string
			results     string
			completedAt sql.NullTime
			durationMS  int64
		)
		if err := rows.Scan(&op.ID, &kind, &status, &op.Slug, &op.InitiatedBy, &op.Reason,
			&results, &op.SuccessCount, &op.FailureCount,
			&op.StartedAt, &completedAt, &durationMS, &op.RollbackOfID); err != nil {
			return nil, fmt.Errorf("scanning operation log entry: %w", err)
		}
		op.Kind = model.OperationKind(kind)
		op.Status = model.OperationStatus(status)
		op.Duration = time.Duration(durationMS) * time.Millisecond
		if completedAt.Valid {
			t := completedAt.Time
			op.CompletedAt = &t
		}
		if err := json.Unmarshal([]byte(results), &op.Results); err != nil {
			return nil, fmt.Errorf("unmarshaling operation results: %w", err)
		}
		ops = append(ops, &op)
	}
	return ops, rows.Err()
}

// scanning helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*model.Tenant, error) {
	var (
		t               model.Tenant
		tier            string
		status          string
		health          string
		healthCheckedAt sql.NullTime
		cmsMode         string
	)
	err := row.Scan(&t.ID, &t.Slug, &t.DisplayName, &tier, &status, &health, &healthCheckedAt,
		&t.Handles.RepoFullName, &t.Handles.DeployProjectID, &cmsMode,
		&t.Handles.CMS.SpaceRef, &t.Handles.BackupPrefix,
		&t.PublicURL, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Tier = model.Tier(tier)
	t.Status = model.TenantStatus(status)
	t.Health = model.HealthStatus(health)
	t.Handles.CMS.Mode = model.SpaceMode(cmsMode)
	if healthCheckedAt.Valid {
		ts := healthCheckedAt.Time
		t.HealthCheckedAt = &ts
	}
	return &t, nil
}

func scanSnapshot(row rowScanner) (*model.DeletionSnapshot, error) {
	var (
		snap        model.DeletionSnapshot
		results     string
		recoveredAt sql.NullTime
		purgedAt    sql.NullTime
	)
	err := row.Scan(&snap.ID, &snap.TenantID, &snap.Slug, &snap.Payload, &snap.PayloadEncrypted,
		&snap.DeletedBy, &snap.Reason, &snap.DeletedAt, &snap.RecoveryDeadline, &results,
		&snap.Recovered, &recoveredAt, &snap.RecoveredBy, &snap.NewTenantID,
		&snap.PermanentlyDeleted, &purgedAt, &snap.PermanentlyDeletedBy)
	if err != nil {
		return nil, err
	}
	if recoveredAt.Valid {
		t := recoveredAt.Time
		snap.RecoveredAt = &t
	}
	if purgedAt.Valid {
		t := purgedAt.Time
		snap.PermanentlyDeletedAt = &t
	}
	if err := json.Unmarshal([]byte(results), &snap.ArchiveResults); err != nil {
		return nil, fmt.Errorf("unmarshaling archive results: %w", err)
	}
	return &snap, nil
}

func marshalResults(results []model.PlatformResult) (string, error) {
	if results == nil {
		results = []model.PlatformResult{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("marshaling platform results: %w", err)
	}
	return string(data), nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func requireOneRow(res sql.Result, kind, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s not found or not updatable: %s", kind, key)
	}
	return nil
}
