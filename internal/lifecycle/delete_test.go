package lifecycle_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"sitereg/internal/lifecycle"
	"sitereg/internal/model"
	"sitereg/internal/store"
	"sitereg/internal/testutil"
)

// env bundles a service with its seams so tests can steer time, ids
// and platform behavior.
type env struct {
	svc      *lifecycle.Service
	store    *store.SQLiteStore
	adapters *testutil.TestAdapters
	clock    *testutil.StubClock
	idgen    *testutil.StubIDGenerator
}

func newEnv(t *testing.T, opts lifecycle.Options) *env {
	t.Helper()

	st := testutil.NewTestStore(t)
	adapters := testutil.NewTestAdapters()
	clock := testutil.FixedClock()
	idgen := testutil.NewStubIDGenerator()

	var la []lifecycle.Adapter
	for _, a := range adapters.All() {
		la = append(la, a)
	}

	if opts.Retry.MaxAttempts == 0 {
		// Single attempt keeps tests fast; retry behavior has its own tests.
		opts.Retry = lifecycle.RetryPolicy{MaxAttempts: 1}
	}

	svc := lifecycle.NewService(st, la, lifecycle.NewNopLogger(), clock, idgen, opts)
	return &env{svc: svc, store: st, adapters: adapters, clock: clock, idgen: idgen}
}

// seedTenant creates an active tenant and registers its resources on
// every platform adapter.
func (e *env) seedTenant(t *testing.T, slug string) *model.Tenant {
	t.Helper()
	tenant := testutil.SampleTenant(e.idgen.New(), slug, e.clock.Now())
	if err := e.store.CreateTenant(tenant); err != nil {
		t.Fatalf("creating tenant: %v", err)
	}
	e.adapters.SeedTenantResources(tenant)
	return tenant
}

// failingStore wraps the real store and fails the tenant status flip,
// mimicking a database error after the platform fan-out.
type failingStore struct {
	*store.SQLiteStore
	statusErr error
}

func (s *failingStore) UpdateTenantStatus(id string, status model.TenantStatus, now time.Time) error {
	if s.statusErr != nil {
		return s.statusErr
	}
	return s.SQLiteStore.UpdateTenantStatus(id, status, now)
}

func deleteReq(slug string) lifecycle.DeleteRequest {
	return lifecycle.DeleteRequest{
		Slug:        slug,
		InitiatedBy: "ops@example.com",
		Reason:      "customer cancelled",
		Confirmed:   true,
	}
}

func TestService_Delete(t *testing.T) {
	t.Run("requires explicit confirmation", func(t *testing.T) {
		e := newEnv(t, lifecycle.Options{})
		e.seedTenant(t, "acme")

		req := deleteReq("acme")
		req.Confirmed = false
		_, err := e.svc.Delete(context.Background(), req)

		var confErr *lifecycle.ConfirmationRequiredError
		if !errors.As(err, &confErr) {
			t.Fatalf("expected ConfirmationRequiredError, got %v", err)
		}
	})

	t.Run("requires a reason and an initiator", func(t *testing.T) {
		e := newEnv(t, lifecycle.Options{})
		e.seedTenant(t, "acme")

		req := deleteReq("acme")
		req.Reason = ""
		var valErr *lifecycle.ValidationError
		if _, err := e.svc.Delete(context.Background(), req); !errors.As(err, &valErr) {
			t.Fatalf("expected ValidationError for missing reason, got %v", err)
		}

		req = deleteReq("acme")
		req.InitiatedBy = ""
		if _, err := e.svc.Delete(context.Background(), req); !errors.As(err, &valErr) {
			t.Fatalf("expected ValidationError for missing initiator, got %v", err)
		}
	})

	t.Run("unknown slug returns not found", func(t *testing.T) {
		e := newEnv(t, lifecycle.Options{})

		_, err := e.svc.Delete(context.Background(), deleteReq("nope"))
		var nfErr *lifecycle.NotFoundError
		if !errors.As(err, &nfErr) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})

	t.Run("archives all platforms and writes the snapshot first", func(t *testing.T) {
		e := newEnv(t, lifecycle.Options{})
		tenant := e.seedTenant(t, "acme")

		outcome, err := e.svc.Delete(context.Background(), deleteReq("acme"))
		if err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if outcome.Status != model.OpSuccess {
			t.Errorf("status = %s, want success", outcome.Status)
		}
		if len(outcome.Results) != 4 {
			t.Errorf("got %d platform results, want 4", len(outcome.Results))
		}

		snapshot, err := e.store.FindSnapshotBySlug("acme")
		if err != nil || snapshot == nil {
			t.Fatalf("snapshot not written: %v", err)
		}
		if outcome.SnapshotID != snapshot.ID {
			t.Errorf("outcome snapshot id = %s, want %s", outcome.SnapshotID, snapshot.ID)
		}

		wantDeadline := e.clock.Now().Add(lifecycle.RecoveryWindow)
		if !snapshot.RecoveryDeadline.Equal(wantDeadline) {
			t.Errorf("deadline = %v, want deletion time + 30d (%v)", snapshot.RecoveryDeadline, wantDeadline)
		}
		if snapshot.PayloadEncrypted {
			t.Error("payload should be plaintext without an encryptor")
		}

		var preserved model.Tenant
		if err := json.Unmarshal(snapshot.Payload, &preserved); err != nil {
			t.Fatalf("payload is not a tenant record: %v", err)
		}
		if preserved.ID != tenant.ID || preserved.Handles != tenant.Handles {
			t.Error("snapshot payload does not preserve the tenant")
		}

		got, _ := e.store.FindTenantBySlug("acme")
		if got.Status != model.StatusDeleted {
			t.Errorf("tenant status = %s, want deleted", got.Status)
		}
		if !e.adapters.GitHub.Archived(tenant.Handles.RepoFullName) {
			t.Error("repository was not archived")
		}
		if !e.adapters.Backup.Archived(tenant.Handles.BackupPrefix) {
			t.Error("backups were not archived")
		}
	})

	t.Run("one platform failure yields partial success", func(t *testing.T) {
		e := newEnv(t, lifecycle.Options{})
		e.seedTenant(t, "acme")
		e.adapters.Deploy.ArchiveErr = errors.New("pause rejected")

		outcome, err := e.svc.Delete(context.Background(), deleteReq("acme"))
		if err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if !outcome.PartialSuccess() {
			t.Fatalf("status = %s, want partial_success", outcome.Status)
		}
		if failures := outcome.Failures(); len(failures) != 1 || failures[0].Platform != model.PlatformDeploy {
			t.Errorf("failures = %v, want exactly the deploy platform", failures)
		}

		// The tenant is still soft-deleted; the failed step is retried
		// via re-delete, not rolled back.
		got, _ := e.store.FindTenantBySlug("acme")
		if got.Status != model.StatusDeleted {
			t.Errorf("tenant status = %s, want deleted", got.Status)
		}

		ops, _ := e.svc.Operations(lifecycle.OperationFilter{Slug: "acme"})
		if len(ops) != 1 {
			t.Fatalf("got %d operations, want 1", len(ops))
		}
		if ops[0].FailureCount != 1 || ops[0].SuccessCount != 3 {
			t.Errorf("counts = %d/%d, want 3 successes and 1 failure",
				ops[0].SuccessCount, ops[0].FailureCount)
		}
	})

	t.Run("adapter timeout counts as that platform's failure", func(t *testing.T) {
		e := newEnv(t, lifecycle.Options{PlatformTimeout: 50 * time.Millisecond})
		e.seedTenant(t, "acme")
		// Never released: the deploy call can only end on its deadline.
		e.adapters.Deploy.Block = make(chan struct{})

		outcome, err := e.svc.Delete(context.Background(), deleteReq("acme"))
		if err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if !outcome.PartialSuccess() {
			t.Fatalf("status = %s, want partial_success", outcome.Status)
		}
		failures := outcome.Failures()
		if len(failures) != 1 || failures[0].Platform != model.PlatformDeploy {
			t.Fatalf("failures = %v, want exactly the deploy platform", failures)
		}
		if !strings.Contains(failures[0].Error, "deadline exceeded") {
			t.Errorf("failure error = %q, want the deadline in it", failures[0].Error)
		}

		// The hung platform never blocks the snapshot or the status flip.
		snapshot, err := e.store.FindSnapshotBySlug("acme")
		if err != nil || snapshot == nil {
			t.Fatalf("snapshot not written: %v", err)
		}
		wantDeadline := e.clock.Now().Add(lifecycle.RecoveryWindow)
		if !snapshot.RecoveryDeadline.Equal(wantDeadline) {
			t.Errorf("deadline = %v, want deletion time + 30d (%v)", snapshot.RecoveryDeadline, wantDeadline)
		}
		got, _ := e.store.FindTenantBySlug("acme")
		if got.Status != model.StatusDeleted {
			t.Errorf("tenant status = %s, want deleted", got.Status)
		}

		ops, _ := e.svc.Operations(lifecycle.OperationFilter{Slug: "acme"})
		if len(ops) != 1 {
			t.Fatalf("got %d operations, want 1", len(ops))
		}
		if ops[0].FailureCount != 1 || ops[0].SuccessCount != 3 {
			t.Errorf("counts = %d/%d, want 3 successes and 1 failure",
				ops[0].SuccessCount, ops[0].FailureCount)
		}
	})

	t.Run("store failure after the fan-out closes the operation as failed", func(t *testing.T) {
		st := testutil.NewTestStore(t)
		flaky := &failingStore{SQLiteStore: st, statusErr: errors.New("disk I/O error")}
		adapters := testutil.NewTestAdapters()
		clock := testutil.FixedClock()
		idgen := testutil.NewStubIDGenerator()

		var la []lifecycle.Adapter
		for _, a := range adapters.All() {
			la = append(la, a)
		}
		svc := lifecycle.NewService(flaky, la, lifecycle.NewNopLogger(), clock, idgen,
			lifecycle.Options{Retry: lifecycle.RetryPolicy{MaxAttempts: 1}})

		tenant := testutil.SampleTenant(idgen.New(), "acme", clock.Now())
		if err := st.CreateTenant(tenant); err != nil {
			t.Fatalf("creating tenant: %v", err)
		}
		adapters.SeedTenantResources(tenant)

		if _, err := svc.Delete(context.Background(), deleteReq("acme")); err == nil {
			t.Fatal("expected Delete to surface the store error")
		}

		// The log entry must not linger at started.
		ops, err := svc.Operations(lifecycle.OperationFilter{Slug: "acme"})
		if err != nil || len(ops) != 1 {
			t.Fatalf("got %d operations (%v), want 1", len(ops), err)
		}
		if ops[0].Status != model.OpFailed {
			t.Errorf("operation status = %s, want failed", ops[0].Status)
		}
		if ops[0].CompletedAt == nil {
			t.Error("operation has no completion time")
		}
	})

	t.Run("re-delete retries the fan-out without a second snapshot", func(t *testing.T) {
		e := newEnv(t, lifecycle.Options{})
		e.seedTenant(t, "acme")
		e.adapters.Deploy.ArchiveErr = errors.New("pause rejected")

		first, err := e.svc.Delete(context.Background(), deleteReq("acme"))
		if err != nil {
			t.Fatalf("first Delete: %v", err)
		}

		e.adapters.Deploy.ArchiveErr = nil
		second, err := e.svc.Delete(context.Background(), deleteReq("acme"))
		if err != nil {
			t.Fatalf("second Delete: %v", err)
		}
		if second.Status != model.OpSuccess {
			t.Errorf("retry status = %s, want success", second.Status)
		}
		if second.SnapshotID != first.SnapshotID {
			t.Errorf("retry wrote a new snapshot: %s != %s", second.SnapshotID, first.SnapshotID)
		}

		snapshot, _ := e.store.FindSnapshotBySlug("acme")
		wantDeadline := e.clock.Now().Add(lifecycle.RecoveryWindow)
		if !snapshot.RecoveryDeadline.Equal(wantDeadline) {
			t.Error("retry must not move the recovery deadline")
		}
	})

	t.Run("pending tenant cannot be deleted", func(t *testing.T) {
		e := newEnv(t, lifecycle.Options{})
		tenant := testutil.SampleTenant(e.idgen.New(), "halfway", e.clock.Now())
		tenant.Status = model.StatusPending
		if err := e.store.CreateTenant(tenant); err != nil {
			t.Fatalf("creating tenant: %v", err)
		}

		_, err := e.svc.Delete(context.Background(), deleteReq("halfway"))
		var stateErr *lifecycle.InvalidStateError
		if !errors.As(err, &stateErr) {
			t.Fatalf("expected InvalidStateError, got %v", err)
		}
	})

	t.Run("encrypts the snapshot payload when configured", func(t *testing.T) {
		e := newEnv(t, lifecycle.Options{Encryptor: testutil.NewTestEncryptor()})
		tenant := e.seedTenant(t, "acme")

		if _, err := e.svc.Delete(context.Background(), deleteReq("acme")); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		snapshot, _ := e.store.FindSnapshotBySlug("acme")
		if !snapshot.PayloadEncrypted {
			t.Fatal("payload should be marked encrypted")
		}
		plain, _ := json.Marshal(tenant)
		if bytes.Equal(snapshot.Payload, plain) {
			t.Error("payload stored in plaintext despite encryptor")
		}
	})

	t.Run("concurrent delete on the same slug fails fast", func(t *testing.T) {
		e := newEnv(t, lifecycle.Options{})
		e.seedTenant(t, "acme")

		block := make(chan struct{})
		entered := make(chan struct{}, 4)
		for _, a := range e.adapters.All() {
			a.Block = block
			a.Entered = entered
		}

		done := make(chan error, 1)
		go func() {
			_, err := e.svc.Delete(context.Background(), deleteReq("acme"))
			done <- err
		}()

		// The first call holds the slug while its fan-out is blocked.
		select {
		case <-entered:
		case <-time.After(5 * time.Second):
			t.Fatal("first delete never reached the platform fan-out")
		}

		_, err := e.svc.Delete(context.Background(), deleteReq("acme"))
		var inProgress *lifecycle.OperationInProgressError
		if !errors.As(err, &inProgress) {
			t.Fatalf("expected OperationInProgressError, got %v", err)
		}

		close(block)
		if err := <-done; err != nil {
			t.Fatalf("blocked Delete: %v", err)
		}

		// Guard released: a retry goes through the re-delete path.
		if _, err := e.svc.Delete(context.Background(), deleteReq("acme")); err != nil {
			t.Fatalf("Delete after release: %v", err)
		}
	})
}
