package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"

	"sitereg/internal/model"
)

// DeleteRequest describes a soft-delete invocation.
type DeleteRequest struct {
	Slug        string
	InitiatedBy string
	Reason      string
	Confirmed   bool
}

// Delete soft-deletes a tenant across all platforms.
//
// The deletion snapshot (with its recovery deadline) is durably written
// before any platform is touched, so a crash mid-operation still leaves
// a recoverable record. Platform archival steps run concurrently and
// independently; one platform's failure never aborts the others.
// Re-invoking Delete on an already-deleted tenant with an unrecovered
// snapshot re-runs the platform fan-out without writing a second
// snapshot, which is how failed steps get retried.
func (s *Service) Delete(ctx context.Context, req DeleteRequest) (*Outcome, error) {
	if !req.Confirmed {
		return nil, &ConfirmationRequiredError{Slug: req.Slug}
	}
	if req.Reason == "" {
		return nil, &ValidationError{Msg: "a deletion reason is required"}
	}
	if req.InitiatedBy == "" {
		return nil, &ValidationError{Msg: "initiated_by is required"}
	}

	if err := s.inflight.acquire(req.Slug); err != nil {
		return nil, err
	}
	defer s.inflight.release(req.Slug)

	tenant, err := s.store.FindTenantBySlug(req.Slug)
	if err != nil {
		return nil, fmt.Errorf("finding tenant: %w", err)
	}
	if tenant == nil {
		return nil, &NotFoundError{Kind: "tenant", Key: req.Slug}
	}

	switch tenant.Status {
	case model.StatusActive:
		return s.deleteActive(ctx, tenant, req)
	case model.StatusDeleted:
		return s.redelete(ctx, tenant, req)
	default:
		return nil, &InvalidStateError{Slug: req.Slug, Status: tenant.Status,
			Msg: fmt.Sprintf("cannot delete a %s tenant", tenant.Status)}
	}
}

// deleteActive runs the full soft-delete: snapshot first, then the
// platform fan-out, then the status flip.
func (s *Service) deleteActive(ctx context.Context, tenant *model.Tenant, req DeleteRequest) (*Outcome, error) {
	op, err := s.openOperation(model.OpDelete, req.Slug, req.InitiatedBy, req.Reason)
	if err != nil {
		return nil, fmt.Errorf("opening operation log entry: %w", err)
	}

	// Whatever aborts the delete from here on still closes the entry.
	var results []model.PlatformResult
	closed := false
	defer func() {
		if !closed {
			s.abortOperation(op, results)
		}
	}()

	payload, encrypted, err := s.snapshotPayload(tenant)
	if err != nil {
		return nil, fmt.Errorf("building snapshot payload: %w", err)
	}

	now := s.clock.Now()
	snapshot := &model.DeletionSnapshot{
		ID:               s.idgen.New(),
		TenantID:         tenant.ID,
		Slug:             tenant.Slug,
		Payload:          payload,
		PayloadEncrypted: encrypted,
		DeletedBy:        req.InitiatedBy,
		Reason:           req.Reason,
		DeletedAt:        now,
		RecoveryDeadline: now.Add(RecoveryWindow),
	}
	if err := s.store.CreateSnapshot(snapshot); err != nil {
		return nil, fmt.Errorf("writing deletion snapshot: %w", err)
	}

	s.logger.Info("snapshot written", "slug", tenant.Slug, "snapshot", snapshot.ID,
		"deadline", snapshot.RecoveryDeadline.UTC().Format("2006-01-02T15:04:05Z"))

	results = s.fanOut(ctx, s.tenantCalls(tenant), "archive",
		func(a Adapter, ctx context.Context, ref model.ResourceRef) Result {
			return a.Archive(ctx, ref)
		})

	if err := s.store.UpdateSnapshotArchiveResults(snapshot.ID, results); err != nil {
		return nil, fmt.Errorf("recording archive results: %w", err)
	}

	// The status flip happens only after the snapshot exists.
	if err := s.store.UpdateTenantStatus(tenant.ID, model.StatusDeleted, s.clock.Now()); err != nil {
		return nil, fmt.Errorf("marking tenant deleted: %w", err)
	}

	outcome, err := s.closeOperation(op, results)
	if err != nil {
		return nil, fmt.Errorf("closing operation log entry: %w", err)
	}
	closed = true
	outcome.SnapshotID = snapshot.ID

	s.logger.Info("tenant deleted", "slug", tenant.Slug, "status", string(outcome.Status))
	return outcome, nil
}

// redelete retries the platform fan-out for a tenant that is already
// soft-deleted. Adapters treat "already archived" as success, so this
// only has an effect on platforms that failed the first time.
func (s *Service) redelete(ctx context.Context, tenant *model.Tenant, req DeleteRequest) (*Outcome, error) {
	snapshot, err := s.store.FindSnapshotBySlug(req.Slug)
	if err != nil {
		return nil, fmt.Errorf("finding snapshot: %w", err)
	}
	if snapshot == nil || snapshot.Recovered || snapshot.PermanentlyDeleted {
		return nil, &InvalidStateError{Slug: req.Slug, Status: tenant.Status,
			Msg: "deleted tenant has no open deletion snapshot"}
	}

	op, err := s.openOperation(model.OpDelete, req.Slug, req.InitiatedBy, req.Reason)
	if err != nil {
		return nil, fmt.Errorf("opening operation log entry: %w", err)
	}

	results := s.fanOut(ctx, s.tenantCalls(tenant), "archive",
		func(a Adapter, ctx context.Context, ref model.ResourceRef) Result {
			return a.Archive(ctx, ref)
		})

	if err := s.store.UpdateSnapshotArchiveResults(snapshot.ID, results); err != nil {
		s.abortOperation(op, results)
		return nil, fmt.Errorf("recording archive results: %w", err)
	}

	outcome, err := s.closeOperation(op, results)
	if err != nil {
		return nil, fmt.Errorf("closing operation log entry: %w", err)
	}
	outcome.SnapshotID = snapshot.ID

	s.logger.Info("delete retried", "slug", tenant.Slug, "status", string(outcome.Status))
	return outcome, nil
}

// snapshotPayload serializes the tenant and encrypts the result when an
// encryptor is configured.
func (s *Service) snapshotPayload(tenant *model.Tenant) ([]byte, bool, error) {
	plain, err := json.Marshal(tenant)
	if err != nil {
		return nil, false, fmt.Errorf("marshaling tenant: %w", err)
	}

	if s.encryptor == nil || !s.encryptor.IsConfigured() {
		return plain, false, nil
	}

	cipher, err := s.encryptor.Encrypt(plain)
	if err != nil {
		return nil, false, fmt.Errorf("encrypting payload: %w", err)
	}
	return cipher, true, nil
}
