package lifecycle

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"sitereg/internal/model"
)

// platformCall pairs an adapter with the tenant resource it operates on.
type platformCall struct {
	adapter Adapter
	ref     model.ResourceRef
}

// fanOut invokes op once per platform call, concurrently and
// independently. Each call gets its own timeout-bounded context and a
// bounded retry; a failure (including timeout) becomes that platform's
// structured result and never cancels a sibling. Results come back
// sorted by platform for determinism.
func (s *Service) fanOut(ctx context.Context, calls []platformCall, opName string, op func(Adapter, context.Context, model.ResourceRef) Result) []model.PlatformResult {
	return s.fanOutWith(ctx, calls, opName, op, s.retry)
}

// fanOutWith is fanOut with an explicit retry policy. Health probes use
// a single attempt: a timed-out check is recorded as failed, not
// retried inline.
func (s *Service) fanOutWith(ctx context.Context, calls []platformCall, opName string, op func(Adapter, context.Context, model.ResourceRef) Result, retry RetryPolicy) []model.PlatformResult {
	results := make([]model.PlatformResult, len(calls))

	g := &errgroup.Group{}
	for i, c := range calls {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, s.platformTimeout)
			defer cancel()

			res := callWithRetry(callCtx, retry, func(ctx context.Context) Result {
				return op(c.adapter, ctx, c.ref)
			})
			if res.Err != nil {
				res.Err = &PlatformOperationError{Platform: c.adapter.Platform(), Op: opName, Err: res.Err}
				s.logger.Warn("platform step failed", "platform", string(c.adapter.Platform()), "op", opName, "error", res.Err.Error())
			}
			results[i] = toPlatformResult(c.adapter.Platform(), res)
			return nil
		})
	}
	g.Wait() // goroutines never return errors; failures are results

	sort.Slice(results, func(i, j int) bool { return results[i].Platform < results[j].Platform })
	return results
}

// tenantCalls builds the per-platform calls for a tenant's resource
// handles, skipping platforms with no configured adapter or no handle.
func (s *Service) tenantCalls(t *model.Tenant) []platformCall {
	var calls []platformCall
	for _, ref := range platformRefs(t) {
		a, ok := s.adapters[ref.Platform]
		if !ok {
			continue
		}
		calls = append(calls, platformCall{adapter: a, ref: ref})
	}
	return calls
}

// platformRefs maps a tenant's handles to concrete resource refs.
// The CMS ref is built exhaustively from the tenant's space mode:
// shared tenants archive only their content entries, dedicated tenants
// archive the whole space.
func platformRefs(t *model.Tenant) []model.ResourceRef {
	var refs []model.ResourceRef

	if t.Handles.RepoFullName != "" {
		refs = append(refs, model.ResourceRef{
			Platform: model.PlatformGitHub,
			Type:     "repository",
			ID:       t.Handles.RepoFullName,
			Name:     t.Slug,
		})
	}

	if t.Handles.DeployProjectID != "" {
		refs = append(refs, model.ResourceRef{
			Platform: model.PlatformDeploy,
			Type:     "project",
			ID:       t.Handles.DeployProjectID,
			Name:     t.Slug,
			Meta:     map[string]string{"url": t.PublicURL},
		})
	}

	if t.Handles.CMS.SpaceRef != "" {
		ref := model.ResourceRef{
			Platform: model.PlatformCMS,
			ID:       t.Handles.CMS.SpaceRef,
			Name:     t.Slug,
		}
		switch t.Handles.CMS.Mode {
		case model.SpaceShared:
			ref.Type = "content"
			ref.Meta = map[string]string{"slug": t.Slug}
		case model.SpaceDedicated:
			ref.Type = "space"
		default:
			// Unknown mode: leave the CMS out rather than guess.
			ref = model.ResourceRef{}
		}
		if ref.Type != "" {
			refs = append(refs, ref)
		}
	}

	if t.Handles.BackupPrefix != "" {
		refs = append(refs, model.ResourceRef{
			Platform: model.PlatformBackup,
			Type:     "backup_prefix",
			ID:       t.Handles.BackupPrefix,
			Name:     t.Slug,
		})
	}

	return refs
}

// countResults tallies successes and failures.
func countResults(results []model.PlatformResult) (successes, failures int) {
	for _, r := range results {
		if r.Success {
			successes++
		} else {
			failures++
		}
	}
	return successes, failures
}

// reduceStatus maps the per-platform tallies to an operation status:
// all succeeded -> success, all failed -> failed, mixed -> partial_success.
// An empty fan-out counts as success.
func reduceStatus(results []model.PlatformResult) model.OperationStatus {
	successes, failures := countResults(results)
	switch {
	case failures == 0:
		return model.OpSuccess
	case successes == 0:
		return model.OpFailed
	default:
		return model.OpPartialSuccess
	}
}
