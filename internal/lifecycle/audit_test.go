package lifecycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"sitereg/internal/lifecycle"
	"sitereg/internal/model"
)

func TestService_Operations(t *testing.T) {
	e := newEnv(t, lifecycle.Options{})
	e.seedTenant(t, "acme")
	e.seedTenant(t, "globex")

	if _, err := e.svc.Delete(context.Background(), deleteReq("acme")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := e.svc.CheckHealth(context.Background(), "globex"); err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if _, err := e.svc.SyncInventory(context.Background()); err != nil {
		t.Fatalf("SyncInventory: %v", err)
	}

	t.Run("unfiltered returns every entry", func(t *testing.T) {
		ops, err := e.svc.Operations(lifecycle.OperationFilter{})
		if err != nil {
			t.Fatalf("Operations: %v", err)
		}
		if len(ops) != 3 {
			t.Fatalf("got %d entries, want 3", len(ops))
		}
	})

	t.Run("filter by slug", func(t *testing.T) {
		ops, err := e.svc.Operations(lifecycle.OperationFilter{Slug: "acme"})
		if err != nil {
			t.Fatalf("Operations: %v", err)
		}
		if len(ops) != 1 || ops[0].Kind != model.OpDelete {
			t.Fatalf("got %+v, want one delete entry for acme", ops)
		}
		if ops[0].InitiatedBy != "ops@example.com" || ops[0].Reason != "customer cancelled" {
			t.Errorf("who/why not preserved: %+v", ops[0])
		}
	})

	t.Run("filter by kind", func(t *testing.T) {
		ops, err := e.svc.Operations(lifecycle.OperationFilter{Kind: model.OpHealthCheck})
		if err != nil {
			t.Fatalf("Operations: %v", err)
		}
		if len(ops) != 1 || ops[0].Slug != "globex" {
			t.Fatalf("got %+v, want one health check for globex", ops)
		}
	})

	t.Run("limit caps the result", func(t *testing.T) {
		ops, err := e.svc.Operations(lifecycle.OperationFilter{Limit: 2})
		if err != nil {
			t.Fatalf("Operations: %v", err)
		}
		if len(ops) != 2 {
			t.Fatalf("got %d entries, want 2", len(ops))
		}
	})
}

func TestService_PermanentDeletionSweep(t *testing.T) {
	t.Run("lists only lapsed, unrecovered snapshots", func(t *testing.T) {
		e := newEnv(t, lifecycle.Options{})
		e.seedTenant(t, "lapsed")
		if _, err := e.svc.Delete(context.Background(), deleteReq("lapsed")); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		e.clock.Advance(10 * 24 * time.Hour)
		e.seedTenant(t, "fresh")
		if _, err := e.svc.Delete(context.Background(), deleteReq("fresh")); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		// Nothing has lapsed yet.
		pending, err := e.svc.PendingPermanentDeletions()
		if err != nil {
			t.Fatalf("PendingPermanentDeletions: %v", err)
		}
		if len(pending) != 0 {
			t.Fatalf("got %d pending, want 0 inside the window", len(pending))
		}

		// 22 more days: "lapsed" (32d old) is out, "fresh" (22d) is not.
		e.clock.Advance(22 * 24 * time.Hour)
		pending, err = e.svc.PendingPermanentDeletions()
		if err != nil {
			t.Fatalf("PendingPermanentDeletions: %v", err)
		}
		if len(pending) != 1 || pending[0].Slug != "lapsed" {
			t.Fatalf("got %+v, want only the lapsed snapshot", pending)
		}
	})

	t.Run("marking is terminal and frees the slug", func(t *testing.T) {
		e := newEnv(t, lifecycle.Options{})
		e.seedTenant(t, "acme")
		outcome, err := e.svc.Delete(context.Background(), deleteReq("acme"))
		if err != nil {
			t.Fatalf("Delete: %v", err)
		}

		// Window still open: the sweep may not run early.
		err = e.svc.MarkPermanentlyDeleted(outcome.SnapshotID, "sweeper")
		var valErr *lifecycle.ValidationError
		if !errors.As(err, &valErr) {
			t.Fatalf("expected ValidationError inside the window, got %v", err)
		}

		e.clock.Advance(lifecycle.RecoveryWindow + time.Hour)
		if err := e.svc.MarkPermanentlyDeleted(outcome.SnapshotID, "sweeper"); err != nil {
			t.Fatalf("MarkPermanentlyDeleted: %v", err)
		}

		snapshot, _ := e.store.FindSnapshotByID(outcome.SnapshotID)
		if !snapshot.PermanentlyDeleted || snapshot.PermanentlyDeletedBy != "sweeper" {
			t.Errorf("snapshot not terminal: %+v", snapshot)
		}

		// The slug is free for a new provisioning cycle.
		if got, _ := e.store.FindTenantBySlug("acme"); got != nil {
			t.Errorf("slug still occupied by %+v", got)
		}
		fresh := e.seedTenant(t, "acme")
		if fresh == nil {
			t.Fatal("re-registering the slug should succeed")
		}

		// And the purge cannot be repeated or reversed.
		err = e.svc.MarkPermanentlyDeleted(outcome.SnapshotID, "sweeper")
		var stateErr *lifecycle.InvalidStateError
		if !errors.As(err, &stateErr) {
			t.Fatalf("expected InvalidStateError on repeat, got %v", err)
		}
		_, err = e.svc.Recover(context.Background(), recoverReq("acme"))
		if !errors.As(err, &stateErr) {
			t.Fatalf("expected InvalidStateError on recover after purge, got %v", err)
		}
	})

	t.Run("recovered snapshots are never swept", func(t *testing.T) {
		e := newEnv(t, lifecycle.Options{})
		e.seedTenant(t, "acme")
		outcome, err := e.svc.Delete(context.Background(), deleteReq("acme"))
		if err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := e.svc.Recover(context.Background(), recoverReq("acme")); err != nil {
			t.Fatalf("Recover: %v", err)
		}

		e.clock.Advance(lifecycle.RecoveryWindow + time.Hour)
		pending, _ := e.svc.PendingPermanentDeletions()
		if len(pending) != 0 {
			t.Fatalf("recovered snapshot listed for sweep: %+v", pending)
		}

		err = e.svc.MarkPermanentlyDeleted(outcome.SnapshotID, "sweeper")
		var stateErr *lifecycle.InvalidStateError
		if !errors.As(err, &stateErr) {
			t.Fatalf("expected InvalidStateError, got %v", err)
		}
	})
}
