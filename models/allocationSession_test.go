package models

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mmdatafocus/allocation_backend/utils"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestSession(t *testing.T) *AllocationSession {
	t.Helper()
	session, err := NewAllocationSession("s-1", DefaultSnapshot(), AllocationPolicy{}, quietLogger())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return session
}

func TestAllocationSession_VersionMovesOnEveryOperation(t *testing.T) {
	session := newTestSession(t)
	if v := session.Snapshot().Version; v != 0 {
		t.Fatalf("expected version 0, got %d", v)
	}

	steps := []struct {
		name string
		run  func() int64
	}{
		{"auto", func() int64 { return session.RunAutoAssignment().Version }},
		{"update", func() int64 { return session.UpdateAllocation("ORD-001", 3).Version }},
		{"add order", func() int64 { return session.AddOrder().Version }},
		{"reset", func() int64 { return session.ResetAllocations().Version }},
		{"save", func() int64 { return session.Save().Version }},
	}
	for i, step := range steps {
		if got := step.run(); got != int64(i+1) {
			t.Fatalf("%s: expected version %d, got %d", step.name, i+1, got)
		}
	}
}

func TestAllocationSession_UnknownOrderKeepsVersion(t *testing.T) {
	session := newTestSession(t)
	session.RunAutoAssignment()
	session.UpdateAllocation("ORD-001", 50)
	before := session.Snapshot()
	if len(before.Violations) == 0 {
		t.Fatalf("expected a violation from the clipped update")
	}

	after := session.UpdateAllocation("ORD-999", 3)
	if after.Version != before.Version {
		t.Fatalf("expected version %d, got %d", before.Version, after.Version)
	}
	if len(after.Violations) != 0 {
		t.Fatalf("expected violations cleared, got %v", after.Violations)
	}
	if after.State.AllocatedUnits() != before.State.AllocatedUnits() {
		t.Fatalf("state changed on unknown order")
	}
}

func TestAllocationSession_ViolationLifecycle(t *testing.T) {
	session := newTestSession(t)
	session.RunAutoAssignment()

	snap := session.UpdateAllocation("ORD-001", 9)
	if len(snap.Violations) != 1 || snap.Violations[0].Kind != ViolationKindCreditLimit {
		t.Fatalf("expected one credit violation, got %v", snap.Violations)
	}

	snap = session.AddOrder()
	if len(snap.Violations) != 1 {
		t.Fatalf("add order should keep violations, got %v", snap.Violations)
	}

	ack := session.Save()
	if ack.OrderCount != 6 {
		t.Fatalf("expected 6 orders in ack, got %d", ack.OrderCount)
	}
	if len(session.Snapshot().Violations) != 1 {
		t.Fatalf("save should keep violations")
	}

	snap = session.ResetAllocations()
	if len(snap.Violations) != 0 {
		t.Fatalf("reset should clear violations, got %v", snap.Violations)
	}
	if snap.State.RemainingStock() != snap.State.TotalStock {
		t.Fatalf("expected all stock back after reset")
	}
}

func TestAllocationSession_SnapshotIsDetached(t *testing.T) {
	session := newTestSession(t)
	snap := session.RunAutoAssignment()
	snap.State.Orders[0].AllocatedQty = 999
	snap.Violations = append(snap.Violations, Violation{OrderId: "x"})

	fresh := session.Snapshot()
	if fresh.State.Orders[0].AllocatedQty == 999 {
		t.Fatalf("snapshot shares orders with the session")
	}
	if len(fresh.Violations) != 0 {
		t.Fatalf("snapshot shares violations with the session")
	}
}

func TestAllocationSession_SaveUsesClock(t *testing.T) {
	session := newTestSession(t)
	at := mustTime(t, "2024-03-01T10:00:00+06:30")
	session.now = func() time.Time { return at }

	ack := session.Save()
	if !ack.SavedAt.Equal(at) || ack.SavedAt.Location() != time.UTC {
		t.Fatalf("expected %s in UTC, got %s", at, ack.SavedAt)
	}
	if ack.RemainingStock != 100 || ack.AllocatedUnits != 0 {
		t.Fatalf("unexpected ack %+v", ack)
	}
}

func TestAllocationSession_RunningCreditPolicy(t *testing.T) {
	seed := DefaultSnapshot()
	seed.Customers[1].CreditRemaining = dec("6000")
	session, err := NewAllocationSession("s-2", seed, AllocationPolicy{RunningCustomerCredit: true}, quietLogger())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	snap := session.RunAutoAssignment()

	spent := dec("0")
	for _, o := range snap.State.Orders {
		if o.CustomerId == "C002" {
			spent = spent.Add(o.Total)
		}
	}
	if spent.GreaterThan(dec("6000")) {
		t.Fatalf("customer C002 charged %s over credit 6000", spent)
	}
}

func TestAllocationSession_ConcurrentUpdates(t *testing.T) {
	session := newTestSession(t)
	session.RunAutoAssignment()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				session.UpdateAllocation("ORD-002", i)
			} else {
				session.AddOrder()
			}
		}(i)
	}
	wg.Wait()

	snap := session.Snapshot()
	if snap.Version != 21 {
		t.Fatalf("expected version 21, got %d", snap.Version)
	}
	if len(snap.State.Orders) != 15 {
		t.Fatalf("expected 15 orders, got %d", len(snap.State.Orders))
	}
	if snap.State.RemainingStock() < 0 {
		t.Fatalf("stock oversold: %d", snap.State.RemainingStock())
	}
}

func TestNewAllocationSession_RejectsInvalidSeed(t *testing.T) {
	seed := DefaultSnapshot()
	seed.Orders[0].CustomerId = "C404"
	if _, err := NewAllocationSession("s-3", seed, AllocationPolicy{}, nil); !errors.Is(err, utils.ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
	}
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore(AllocationPolicy{RunningCustomerCredit: true}, quietLogger())

	session, err := store.Create(DefaultSnapshot())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.ID == "" || store.Len() != 1 {
		t.Fatalf("expected one stored session with an id")
	}
	if !session.Policy().RunningCustomerCredit {
		t.Fatalf("session did not inherit store policy")
	}

	got, err := store.Get(session.ID)
	if err != nil || got != session {
		t.Fatalf("get returned %v, %v", got, err)
	}

	if err := store.Delete(session.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(session.ID); !errors.Is(err, utils.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := store.Delete(session.ID); !errors.Is(err, utils.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on second delete, got %v", err)
	}

	bad := DefaultSnapshot()
	bad.TotalStock = -1
	if _, err := store.Create(bad); err == nil {
		t.Fatalf("expected invalid seed to be rejected")
	}
	if store.Len() != 0 {
		t.Fatalf("invalid seed was stored")
	}
}
