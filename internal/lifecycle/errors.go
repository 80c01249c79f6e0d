package lifecycle

import (
	"fmt"
	"time"

	"sitereg/internal/model"
)

// ValidationError reports bad caller input. Not retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

// ConfirmationRequiredError reports a delete request without the
// explicit confirmation flag.
type ConfirmationRequiredError struct {
	Slug string
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("deleting %q requires explicit confirmation", e.Slug)
}

// NotFoundError reports a missing tenant or snapshot.
type NotFoundError struct {
	Kind string // "tenant" or "snapshot"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// InvalidStateError reports a lifecycle transition attempted from the
// wrong state. Not retried.
type InvalidStateError struct {
	Slug   string
	Status model.TenantStatus
	Msg    string
}

func (e *InvalidStateError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("tenant %q: %s", e.Slug, e.Msg)
	}
	return fmt.Sprintf("tenant %q is %s", e.Slug, e.Status)
}

// RecoveryWindowExpiredError is terminal: the snapshot's recovery
// deadline has passed and there is no remediation path.
type RecoveryWindowExpiredError struct {
	Slug     string
	Deadline time.Time
}

func (e *RecoveryWindowExpiredError) Error() string {
	return fmt.Sprintf("recovery window for %q expired at %s", e.Slug, e.Deadline.UTC().Format(time.RFC3339))
}

// OperationInProgressError reports a concurrent delete/recover conflict
// on the same slug. The caller may retry after backoff.
type OperationInProgressError struct {
	Slug string
}

func (e *OperationInProgressError) Error() string {
	return fmt.Sprintf("an operation is already in progress for %q", e.Slug)
}

// PlatformOperationError wraps a single adapter failure. It is recorded
// as that platform's result and never aborts sibling operations.
type PlatformOperationError struct {
	Platform model.Platform
	Op       string
	Err      error
}

func (e *PlatformOperationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Platform, e.Op, e.Err)
}

func (e *PlatformOperationError) Unwrap() error { return e.Err }
