package lifecycle

import (
	"context"

	"sitereg/internal/model"
)

// Result is the structured outcome of one adapter call. Adapter calls
// are idempotent under retry: archiving an already-archived resource
// returns success, not an error.
type Result struct {
	Success bool
	Detail  map[string]any
	Err     error
}

// OK builds a successful Result with optional detail.
func OK(detail map[string]any) Result {
	return Result{Success: true, Detail: detail}
}

// Failed builds a failure Result carrying the structured cause.
func Failed(err error, detail map[string]any) Result {
	return Result{Success: false, Detail: detail, Err: err}
}

// toPlatformResult converts a Result into its persisted form.
func toPlatformResult(p model.Platform, r Result) model.PlatformResult {
	pr := model.PlatformResult{
		Platform: p,
		Success:  r.Success,
		Detail:   r.Detail,
	}
	if r.Err != nil {
		pr.Error = r.Err.Error()
	}
	return pr
}

// Adapter is the narrow capability contract each platform exposes to
// the orchestrator. Concrete adapters keep their platform-native verbs
// (pause/resume on the deploy host, tagForRetention/clearRetentionTag
// on the backup store) and map them onto Archive/Restore here.
//
// Adapters are stateless request/response clients and may be invoked in
// parallel across tenants without coordination.
type Adapter interface {
	Platform() model.Platform

	// Archive performs the platform's reversible deactivation step.
	Archive(ctx context.Context, ref model.ResourceRef) Result

	// Restore reverses Archive.
	Restore(ctx context.Context, ref model.ResourceRef) Result

	// Probe checks the resource's health on the platform.
	Probe(ctx context.Context, ref model.ResourceRef) model.HealthDetail

	// List reports every resource the platform currently holds.
	List(ctx context.Context) ([]model.ResourceRef, error)
}
