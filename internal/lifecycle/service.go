package lifecycle

import (
	"time"

	"sitereg/internal/model"
)

// RecoveryWindow is the fixed interval during which a soft-deleted
// tenant can be recovered. The snapshot's deadline is always the
// deletion timestamp plus this window, set at creation.
const RecoveryWindow = 30 * 24 * time.Hour

const defaultPlatformTimeout = 30 * time.Second

// Service is the orchestration layer that coordinates the registry
// store and the platform adapters to perform tenant lifecycle
// operations: soft delete, time-boxed recovery, health aggregation and
// inventory reconciliation. Every operation writes exactly one
// operation log entry spanning its full extent.
type Service struct {
	store           Store
	adapters        map[model.Platform]Adapter
	encryptor       Encryptor // nil disables snapshot encryption
	logger          Logger
	clock           Clock
	idgen           IDGenerator
	platformTimeout time.Duration
	retry           RetryPolicy
	inflight        *slugGuard
}

// Options tune the orchestrator's fan-out behavior.
type Options struct {
	PlatformTimeout time.Duration // per-adapter call bound, default 30s
	Retry           RetryPolicy
	Encryptor       Encryptor // optional snapshot payload encryption
}

// NewService creates a Service with the provided dependencies.
func NewService(store Store, adapters []Adapter, logger Logger, clock Clock, idgen IDGenerator, opts Options) *Service {
	byPlatform := make(map[model.Platform]Adapter, len(adapters))
	for _, a := range adapters {
		byPlatform[a.Platform()] = a
	}

	timeout := opts.PlatformTimeout
	if timeout <= 0 {
		timeout = defaultPlatformTimeout
	}

	return &Service{
		store:           store,
		adapters:        byPlatform,
		encryptor:       opts.Encryptor,
		logger:          logger,
		clock:           clock,
		idgen:           idgen,
		platformTimeout: timeout,
		retry:           opts.Retry.normalized(),
		inflight:        newSlugGuard(),
	}
}

// Tenant returns a tenant by slug.
func (s *Service) Tenant(slug string) (*model.Tenant, error) {
	t, err := s.store.FindTenantBySlug(slug)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, &NotFoundError{Kind: "tenant", Key: slug}
	}
	return t, nil
}

// Tenants returns all non-permanently-deleted tenants.
func (s *Service) Tenants() ([]*model.Tenant, error) {
	return s.store.ListTenants()
}

// openOperation creates a started operation log entry.
func (s *Service) openOperation(kind model.OperationKind, slug, initiatedBy, reason string) (*model.OperationLogEntry, error) {
	op := &model.OperationLogEntry{
		ID:          s.idgen.New(),
		Kind:        kind,
		Status:      model.OpStarted,
		Slug:        slug,
		InitiatedBy: initiatedBy,
		Reason:      reason,
		StartedAt:   s.clock.Now(),
	}
	if err := s.store.CreateOperation(op); err != nil {
		return nil, err
	}
	return op, nil
}

// closeOperation finalizes the entry with the fan-out results and
// returns the caller-visible outcome.
func (s *Service) closeOperation(op *model.OperationLogEntry, results []model.PlatformResult) (*Outcome, error) {
	status := reduceStatus(results)
	successes, failures := countResults(results)

	if err := s.store.CompleteOperation(op.ID, status, results, successes, failures, s.clock.Now()); err != nil {
		return nil, err
	}

	return &Outcome{
		OperationID: op.ID,
		Kind:        op.Kind,
		Status:      status,
		Results:     results,
	}, nil
}

// abortOperation closes the entry as failed when an operation could not
// run to completion, so it never lingers at started. Best effort: an
// error here is logged, never returned, so it does not mask the error
// that aborted the operation.
func (s *Service) abortOperation(op *model.OperationLogEntry, results []model.PlatformResult) {
	successes, failures := countResults(results)
	if err := s.store.CompleteOperation(op.ID, model.OpFailed, results, successes, failures, s.clock.Now()); err != nil {
		s.logger.Warn("could not close abandoned operation log entry",
			"op", op.ID, "error", err.Error())
	}
}
