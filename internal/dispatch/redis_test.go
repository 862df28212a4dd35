package dispatch

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"jobswipe-core/internal/models"
)

func newTestDispatcher(t *testing.T) *Redis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisWithClient(client, time.Minute)
}

func item(id string, p models.Priority) WorkItem {
	return WorkItem{
		ApplicationID: id,
		UserID:        "user-1",
		JobID:         "job-1",
		SnapshotID:    "snap-" + id,
		JobBoard:      "greenhouse",
		ApplyURL:      "https://boards.greenhouse.io/acme/jobs/1",
		Priority:      p,
		EnqueuedAt:    time.Now().UTC(),
	}
}

func TestDispatchAndLeaseTierOrder(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	if err := d.Dispatch(ctx, item("normal-1", models.PriorityNormal), false); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := d.Dispatch(ctx, item("urgent-1", models.PriorityUrgent), true); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	leased, err := d.Lease(ctx)
	if err != nil || leased == nil {
		t.Fatalf("lease: item=%v err=%v", leased, err)
	}
	if leased.ApplicationID != "urgent-1" {
		t.Fatalf("expected urgent tier drained first, got %s", leased.ApplicationID)
	}

	state, err := d.Status(ctx, "urgent-1")
	if err != nil || state != "processing" {
		t.Fatalf("expected processing state, got %q err=%v", state, err)
	}

	leased, err = d.Lease(ctx)
	if err != nil || leased == nil || leased.ApplicationID != "normal-1" {
		t.Fatalf("expected normal-1 next, got %v err=%v", leased, err)
	}

	leased, err = d.Lease(ctx)
	if err != nil || leased != nil {
		t.Fatalf("expected empty queue, got %v err=%v", leased, err)
	}
}

func TestCancelRemovesEverywhere(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	if err := d.Dispatch(ctx, item("app-1", models.PriorityHigh), false); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := d.Cancel(ctx, "app-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	leased, err := d.Lease(ctx)
	if err != nil || leased != nil {
		t.Fatalf("expected cancelled item not leased, got %v err=%v", leased, err)
	}
	state, err := d.Status(ctx, "app-1")
	if err != nil || state != "" {
		t.Fatalf("expected no state after cancel, got %q err=%v", state, err)
	}
}

func TestRequeueExpired(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	if err := d.Dispatch(ctx, item("app-1", models.PriorityNormal), false); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if _, err := d.Lease(ctx); err != nil {
		t.Fatalf("lease: %v", err)
	}

	// The lease deadline is in the future, so nothing is reclaimed yet.
	ids, err := d.RequeueExpired(ctx, time.Now(), 10)
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected no expired leases, got %v err=%v", ids, err)
	}

	ids, err = d.RequeueExpired(ctx, time.Now().Add(2*time.Minute), 10)
	if err != nil || len(ids) != 1 || ids[0] != "app-1" {
		t.Fatalf("expected app-1 reclaimed, got %v err=%v", ids, err)
	}

	leased, err := d.Lease(ctx)
	if err != nil || leased == nil || leased.ApplicationID != "app-1" {
		t.Fatalf("expected reclaimed item leasable, got %v err=%v", leased, err)
	}
}

func TestAggregateStats(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	for i, p := range []models.Priority{models.PriorityNormal, models.PriorityNormal, models.PriorityImmediate} {
		if err := d.Dispatch(ctx, item(string(rune('a'+i)), p), false); err != nil {
			t.Fatalf("dispatch: %v", err)
		}
	}

	stats, err := d.AggregateStats(ctx)
	if err != nil {
		t.Fatalf("aggregate stats: %v", err)
	}
	if stats.ReadyTotal != 3 {
		t.Fatalf("expected 3 ready, got %d", stats.ReadyTotal)
	}
	if stats.ReadyByPriority[models.PriorityNormal] != 2 || stats.ReadyByPriority[models.PriorityImmediate] != 1 {
		t.Fatalf("unexpected tier depths: %+v", stats.ReadyByPriority)
	}
}
