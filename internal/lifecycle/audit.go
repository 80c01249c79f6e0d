package lifecycle

import (
	"fmt"
	"time"

	"sitereg/internal/model"
)

// Operations returns audit log entries matching the filter, newest
// first. The log is the only place successes and failures are durably
// correlated with who/why/when; it is never summarized or compacted.
func (s *Service) Operations(filter OperationFilter) ([]*model.OperationLogEntry, error) {
	return s.store.ListOperations(filter)
}

// PendingPermanentDeletions returns unrecovered snapshots whose
// recovery window has expired. The permanent-deletion sweep itself is
// an external collaborator; this is the query that drives it.
func (s *Service) PendingPermanentDeletions() ([]*model.DeletionSnapshot, error) {
	return s.store.PendingPermanentDeletions(s.clock.Now())
}

// MarkPermanentlyDeleted records the external sweep's outcome for one
// snapshot: both the snapshot and its tenant become terminal. There is
// no transition out of permanently_deleted.
func (s *Service) MarkPermanentlyDeleted(snapshotID, by string) error {
	if by == "" {
		return &ValidationError{Msg: "initiated_by is required"}
	}

	snapshot, err := s.store.FindSnapshotByID(snapshotID)
	if err != nil {
		return fmt.Errorf("finding snapshot: %w", err)
	}
	if snapshot == nil {
		return &NotFoundError{Kind: "snapshot", Key: snapshotID}
	}
	if snapshot.Recovered {
		return &InvalidStateError{Slug: snapshot.Slug, Status: model.StatusActive,
			Msg: "snapshot was recovered; it cannot be permanently deleted"}
	}
	if snapshot.PermanentlyDeleted {
		return &InvalidStateError{Slug: snapshot.Slug, Status: model.StatusPermanentlyDeleted,
			Msg: "snapshot is already permanently deleted"}
	}
	if deadline := snapshot.RecoveryDeadline; s.clock.Now().Before(deadline) {
		return &ValidationError{
			Msg: fmt.Sprintf("recovery window for %q is still open until %s",
				snapshot.Slug, deadline.UTC().Format(time.RFC3339)),
		}
	}

	if err := s.store.MarkSnapshotPermanentlyDeleted(snapshotID, s.clock.Now(), by); err != nil {
		return fmt.Errorf("marking snapshot permanently deleted: %w", err)
	}

	s.logger.Info("snapshot permanently deleted", "slug", snapshot.Slug, "snapshot", snapshotID, "by", by)
	return nil
}
