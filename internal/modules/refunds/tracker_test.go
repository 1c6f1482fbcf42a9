package refunds

import (
	"fmt"
	"testing"
	"time"
)

func TestTracker_StartFinish(t *testing.T) {
	tr := NewTracker(10)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := base
	tr.now = func() time.Time { return now }

	tr.Start("r1", "tenant-1", "cardnet", 5000)
	now = base.Add(200 * time.Millisecond)
	tr.Finish("r1", "completed", "")

	ops := tr.Snapshot()
	if len(ops) != 1 {
		t.Fatalf("ops = %d, want 1", len(ops))
	}
	op := ops[0]
	if op.Status != "completed" || op.Duration != 200*time.Millisecond {
		t.Errorf("op = %+v", op)
	}
	if op.EndedAt == nil {
		t.Error("EndedAt not set")
	}
}

func TestTracker_EvictsOldestPastCap(t *testing.T) {
	tr := NewTracker(3)
	for i := 0; i < 5; i++ {
		tr.Start(fmt.Sprintf("r%d", i), "tenant-1", "cardnet", 100)
	}

	ops := tr.Snapshot()
	if len(ops) != 3 {
		t.Fatalf("ops = %d, want 3", len(ops))
	}
	if ops[0].RefundID != "r2" {
		t.Errorf("oldest surviving op = %s, want r2", ops[0].RefundID)
	}
}

func TestTracker_FinishUnknownIsNoop(t *testing.T) {
	tr := NewTracker(3)
	tr.Finish("ghost", "completed", "")
	if len(tr.Snapshot()) != 0 {
		t.Error("finishing an unknown operation must not create one")
	}
}

func TestTracker_StatsAggregation(t *testing.T) {
	tr := NewTracker(10)

	tr.Start("r1", "t", "cardnet", 100)
	tr.Finish("r1", "completed", "")
	tr.Start("r2", "t", "cardnet", 100)
	tr.Finish("r2", "failed", "gateway timeout")
	tr.Start("r3", "t", "cardnet", 100)

	s := tr.Stats()
	if s.Total != 3 || s.Completed != 1 || s.Failed != 1 || s.InFlight != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.SuccessRate != 0.5 {
		t.Errorf("success rate = %v, want 0.5", s.SuccessRate)
	}
}

func TestTracker_StatsProcessingIsNotCompleted(t *testing.T) {
	tr := NewTracker(10)

	tr.Start("r1", "t", "walletpay", 100)
	tr.Finish("r1", "processing", "")
	tr.Start("r2", "t", "walletpay", 100)
	tr.Finish("r2", "failed", "gateway timeout")

	s := tr.Stats()
	if s.Processing != 1 || s.Completed != 0 || s.Failed != 1 {
		t.Fatalf("stats = %+v", s)
	}
	// an unresolved async refund must not raise the rate over settled ones
	if s.SuccessRate != 0 {
		t.Errorf("success rate = %v, want 0", s.SuccessRate)
	}
}
