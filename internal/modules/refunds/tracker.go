package refunds

import (
	"sync"
	"time"
)

// DefaultTrackerCap bounds the operation history; oldest entries are evicted
// past it.
const DefaultTrackerCap = 1000

// Operation tracks one in-flight or finished refund for observability. It is
// process-local and rebuilt empty on restart; the Refund row is the system
// of record.
type Operation struct {
	RefundID         string
	TenantID         string
	Gateway          string
	AmountMinorUnits int64
	Status           string
	StartedAt        time.Time
	EndedAt          *time.Time
	Duration         time.Duration
	Errors           []string
}

// Tracker is a bounded, mutex-guarded map of recent refund operations.
type Tracker struct {
	mu    sync.Mutex
	cap   int
	order []string // insertion order, oldest first
	ops   map[string]*Operation
	now   func() time.Time
}

func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultTrackerCap
	}
	return &Tracker{
		cap: capacity,
		ops: make(map[string]*Operation),
		now: time.Now,
	}
}

func (t *Tracker) Start(refundID, tenantID, gatewayName string, amount int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.ops[refundID]; !exists {
		if len(t.order) >= t.cap {
			oldest := t.order[0]
			t.order = t.order[1:]
			delete(t.ops, oldest)
		}
		t.order = append(t.order, refundID)
	}

	t.ops[refundID] = &Operation{
		RefundID:         refundID,
		TenantID:         tenantID,
		Gateway:          gatewayName,
		AmountMinorUnits: amount,
		Status:           "in_flight",
		StartedAt:        t.now(),
	}
}

func (t *Tracker) Finish(refundID, status string, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	op, ok := t.ops[refundID]
	if !ok {
		return
	}
	end := t.now()
	op.EndedAt = &end
	op.Duration = end.Sub(op.StartedAt)
	op.Status = status
	if errMsg != "" {
		op.Errors = append(op.Errors, errMsg)
	}
}

// Snapshot returns copies of all tracked operations, oldest first.
func (t *Tracker) Snapshot() []Operation {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Operation, 0, len(t.order))
	for _, id := range t.order {
		if op, ok := t.ops[id]; ok {
			cp := *op
			cp.Errors = append([]string(nil), op.Errors...)
			out = append(out, cp)
		}
	}
	return out
}

type Stats struct {
	Total           int           `json:"total"`
	Completed       int           `json:"completed"`
	Processing      int           `json:"processing"`
	Failed          int           `json:"failed"`
	InFlight        int           `json:"in_flight"`
	SuccessRate     float64       `json:"success_rate"`
	AverageDuration time.Duration `json:"average_duration"`
}

// Stats aggregates the tracked window. Best effort only: process-local and
// reset on restart, not an audit trail substitute. Operations handed to an
// async gateway count as processing, not completed; their outcome is unknown
// until the provider webhook lands, so the success rate covers only settled
// ones.
func (t *Tracker) Stats() Stats {
	ops := t.Snapshot()

	var s Stats
	var totalDur time.Duration
	var finished int
	for _, op := range ops {
		s.Total++
		switch op.Status {
		case "completed":
			s.Completed++
		case "processing":
			s.Processing++
		case "failed":
			s.Failed++
		default:
			s.InFlight++
		}
		if op.EndedAt != nil {
			totalDur += op.Duration
			finished++
		}
	}
	if finished > 0 {
		s.AverageDuration = totalDur / time.Duration(finished)
	}
	if done := s.Completed + s.Failed; done > 0 {
		s.SuccessRate = float64(s.Completed) / float64(done)
	}
	return s
}
