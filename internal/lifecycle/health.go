package lifecycle

import (
	"context"
	"fmt"
	"sort"

	"sitereg/internal/model"
)

// CheckHealth probes every platform for the tenant concurrently,
// reduces the details to one overall status, persists the check and
// updates the tenant's cached health.
//
// Each probe is bounded by the per-platform timeout; a timed-out probe
// is recorded as that platform's hard failure, not retried inline.
func (s *Service) CheckHealth(ctx context.Context, slug string) (*model.HealthCheck, error) {
	tenant, err := s.store.FindTenantBySlug(slug)
	if err != nil {
		return nil, fmt.Errorf("finding tenant: %w", err)
	}
	if tenant == nil {
		return nil, &NotFoundError{Kind: "tenant", Key: slug}
	}

	op, err := s.openOperation(model.OpHealthCheck, slug, "", "")
	if err != nil {
		return nil, fmt.Errorf("opening operation log entry: %w", err)
	}

	started := s.clock.Now()
	details := s.probeAll(ctx, s.tenantCalls(tenant))
	overall := ReduceHealth(details)
	finished := s.clock.Now()

	check := &model.HealthCheck{
		ID:        s.idgen.New(),
		TenantID:  tenant.ID,
		Slug:      tenant.Slug,
		Overall:   overall,
		Details:   details,
		Duration:  finished.Sub(started),
		CheckedAt: finished,
	}
	results := make([]model.PlatformResult, len(details))
	for i, d := range details {
		results[i] = model.PlatformResult{
			Platform: d.Platform,
			Success:  d.Healthy,
			Detail:   d.Detail,
			Error:    hardIssue(d),
		}
	}

	if err := s.store.CreateHealthCheck(check); err != nil {
		s.abortOperation(op, results)
		return nil, fmt.Errorf("persisting health check: %w", err)
	}

	if err := s.store.UpdateTenantHealth(tenant.ID, overall, finished); err != nil {
		s.abortOperation(op, results)
		return nil, fmt.Errorf("caching tenant health: %w", err)
	}
	if _, err := s.closeOperation(op, results); err != nil {
		return nil, fmt.Errorf("closing operation log entry: %w", err)
	}

	s.logger.Info("health checked", "slug", slug, "overall", string(overall))
	return check, nil
}

// Health is the cheap-read path: it returns the tenant's cached status
// and the most recent persisted check without touching any adapter.
// The check is nil when none has ever run.
func (s *Service) Health(slug string) (model.HealthStatus, *model.HealthCheck, error) {
	tenant, err := s.store.FindTenantBySlug(slug)
	if err != nil {
		return "", nil, fmt.Errorf("finding tenant: %w", err)
	}
	if tenant == nil {
		return "", nil, &NotFoundError{Kind: "tenant", Key: slug}
	}

	check, err := s.store.LatestHealthCheck(tenant.ID)
	if err != nil {
		return "", nil, fmt.Errorf("loading latest health check: %w", err)
	}

	status := tenant.Health
	if status == "" {
		status = model.HealthUnknown
	}
	return status, check, nil
}

// probeAll fans out probes; a probe that errors at the transport level
// comes back as a hard failure for that platform.
func (s *Service) probeAll(ctx context.Context, calls []platformCall) []model.HealthDetail {
	details := make([]model.HealthDetail, len(calls))

	oneAttempt := RetryPolicy{MaxAttempts: 1}
	results := s.fanOutWith(ctx, calls, "probe",
		func(a Adapter, ctx context.Context, ref model.ResourceRef) Result {
			d := a.Probe(ctx, ref)
			d.Platform = a.Platform()
			if !d.Healthy {
				return Failed(&PlatformOperationError{Platform: a.Platform(), Op: "probe",
					Err: fmt.Errorf("%s", issueOrDefault(d))}, map[string]any{"detail": d})
			}
			return Result{Success: true, Detail: map[string]any{"detail": d}}
		}, oneAttempt)

	for i, r := range results {
		d, ok := r.Detail["detail"].(model.HealthDetail)
		if !ok {
			// Transport-level failure before the probe produced a detail.
			d = model.HealthDetail{Platform: r.Platform, Healthy: false, Issue: r.Error}
		}
		details[i] = d
	}

	sort.Slice(details, func(i, j int) bool { return details[i].Platform < details[j].Platform })
	return details
}

// ReduceHealth collapses per-platform details into one status. The
// reduction is deterministic and order-independent: any hard failure
// wins, then any soft issue, then healthy. No details means no check
// has run, which is unknown.
func ReduceHealth(details []model.HealthDetail) model.HealthStatus {
	if len(details) == 0 {
		return model.HealthUnknown
	}

	status := model.HealthHealthy
	for _, d := range details {
		if !d.Healthy {
			return model.HealthDown
		}
		if d.Degraded {
			status = model.HealthDegraded
		}
	}
	return status
}

func hardIssue(d model.HealthDetail) string {
	if d.Healthy {
		return ""
	}
	return issueOrDefault(d)
}

func issueOrDefault(d model.HealthDetail) string {
	if d.Issue != "" {
		return d.Issue
	}
	return "unreachable"
}
