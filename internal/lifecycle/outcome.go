package lifecycle

import "sitereg/internal/model"

// Outcome is the caller-visible result of an orchestrated operation.
// A partial_success outcome always carries the per-platform breakdown;
// it is never flattened into an unqualified success.
type Outcome struct {
	OperationID string
	Kind        model.OperationKind
	Status      model.OperationStatus
	Results     []model.PlatformResult

	SnapshotID  string // set by Delete
	NewTenantID string // set by Recover
}

// Failures returns the platform results that did not succeed.
func (o *Outcome) Failures() []model.PlatformResult {
	var failed []model.PlatformResult
	for _, r := range o.Results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}

// PartialSuccess reports whether some but not all platform steps failed.
func (o *Outcome) PartialSuccess() bool {
	return o.Status == model.OpPartialSuccess
}
