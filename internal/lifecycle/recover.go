package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"

	"sitereg/internal/model"
)

// RecoverRequest describes a recovery invocation. Decryption is
// required only when the snapshot payload was encrypted at deletion.
type RecoverRequest struct {
	Slug        string
	RecoveredBy string
	Decryption  DecryptionContext
}

// Recover reverses a soft delete within the recovery window.
//
// Platform restore steps run concurrently with the same
// partial-failure tolerance as delete. The database-visible step is
// all-or-nothing: the new tenant record, the retirement of the old
// one, and the snapshot's recovered mark happen in one transaction.
// Platform-level restore failures are reported in the outcome but do
// not block re-activation.
func (s *Service) Recover(ctx context.Context, req RecoverRequest) (*Outcome, error) {
	if req.RecoveredBy == "" {
		return nil, &ValidationError{Msg: "recovered_by is required"}
	}

	if err := s.inflight.acquire(req.Slug); err != nil {
		return nil, err
	}
	defer s.inflight.release(req.Slug)

	snapshot, err := s.store.FindSnapshotBySlug(req.Slug)
	if err != nil {
		return nil, fmt.Errorf("finding snapshot: %w", err)
	}
	if snapshot == nil {
		return nil, &NotFoundError{Kind: "snapshot", Key: req.Slug}
	}
	if snapshot.Recovered {
		return nil, &InvalidStateError{Slug: req.Slug, Status: model.StatusActive,
			Msg: "snapshot was already recovered"}
	}
	if snapshot.PermanentlyDeleted {
		return nil, &InvalidStateError{Slug: req.Slug, Status: model.StatusPermanentlyDeleted,
			Msg: "snapshot was permanently deleted"}
	}
	if s.clock.Now().After(snapshot.RecoveryDeadline) {
		return nil, &RecoveryWindowExpiredError{Slug: req.Slug, Deadline: snapshot.RecoveryDeadline}
	}

	original, err := s.decodeSnapshot(snapshot, req.Decryption)
	if err != nil {
		return nil, err
	}

	op, err := s.openOperation(model.OpRecover, req.Slug, req.RecoveredBy, "")
	if err != nil {
		return nil, fmt.Errorf("opening operation log entry: %w", err)
	}

	calls := s.tenantCalls(original)
	mergeArchiveMeta(calls, snapshot.ArchiveResults)
	results := s.fanOut(ctx, calls, "restore",
		func(a Adapter, ctx context.Context, ref model.ResourceRef) Result {
			return a.Restore(ctx, ref)
		})

	// Materialize under a freshly generated id; the retired id is
	// never reused.
	now := s.clock.Now()
	recovered := *original
	recovered.ID = s.idgen.New()
	recovered.Status = model.StatusActive
	recovered.Health = model.HealthUnknown
	recovered.HealthCheckedAt = nil
	recovered.CreatedAt = now
	recovered.UpdatedAt = now

	if err := s.store.RecoverTenant(snapshot.ID, &recovered, now, req.RecoveredBy); err != nil {
		s.abortOperation(op, results)
		return nil, fmt.Errorf("re-materializing tenant: %w", err)
	}

	outcome, err := s.closeOperation(op, results)
	if err != nil {
		return nil, fmt.Errorf("closing operation log entry: %w", err)
	}
	outcome.NewTenantID = recovered.ID

	s.logger.Info("tenant recovered", "slug", req.Slug,
		"old_id", snapshot.TenantID, "new_id", recovered.ID, "status", string(outcome.Status))
	return outcome, nil
}

// mergeArchiveMeta copies string-valued detail entries recorded by the
// archive fan-out into the matching restore ref's metadata. Adapters
// use this to reinstate state they noted when archiving, such as a
// repository's pre-delete visibility. A ref's own metadata wins on key
// collisions.
func mergeArchiveMeta(calls []platformCall, archived []model.PlatformResult) {
	byPlatform := make(map[model.Platform]model.PlatformResult, len(archived))
	for _, r := range archived {
		if r.Success {
			byPlatform[r.Platform] = r
		}
	}

	for i := range calls {
		r, ok := byPlatform[calls[i].ref.Platform]
		if !ok {
			continue
		}
		for k, v := range r.Detail {
			str, ok := v.(string)
			if !ok {
				continue
			}
			if calls[i].ref.Meta == nil {
				calls[i].ref.Meta = make(map[string]string)
			}
			if _, taken := calls[i].ref.Meta[k]; !taken {
				calls[i].ref.Meta[k] = str
			}
		}
	}
}

// decodeSnapshot decrypts (when needed) and unmarshals the preserved
// tenant record.
func (s *Service) decodeSnapshot(snapshot *model.DeletionSnapshot, decryption DecryptionContext) (*model.Tenant, error) {
	payload := snapshot.Payload
	if snapshot.PayloadEncrypted {
		if decryption == nil {
			return nil, &ValidationError{Msg: "snapshot payload is encrypted; a passphrase is required"}
		}
		plain, err := decryption.Decrypt(payload)
		if err != nil {
			return nil, fmt.Errorf("decrypting snapshot payload: %w", err)
		}
		payload = plain
	}

	var tenant model.Tenant
	if err := json.Unmarshal(payload, &tenant); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot payload: %w", err)
	}
	return &tenant, nil
}
