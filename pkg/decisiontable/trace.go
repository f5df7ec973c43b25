package decisiontable

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// VisitOutcome classifies why a visited row did or did not contribute to a
// traced Decide call's result.
type VisitOutcome string

const (
	OutcomeAccepted          VisitOutcome = "accepted"
	OutcomeConstantMismatch  VisitOutcome = "constant_mismatch"
	OutcomePredicateRejected VisitOutcome = "predicate_rejected"
	OutcomeIfGuardRejected   VisitOutcome = "if_guard_rejected"
)

// Visit is one row's entry in a decision Trace.
type Visit struct {
	RowIndex int
	Outcome  VisitOutcome
}

// Trace is the recorded row-by-row visitation history of one Decide call,
// .
type Trace struct {
	ID        string
	Result    map[string]any
	Visits    []Visit
	CreatedAt time.Time
}

// TraceStore is a bounded, process-local, in-memory store of recent traces.
// It is never persisted, consistent with the engine's non-goal of
// persisting compiled-form-adjacent state.
type TraceStore struct {
	mu      sync.Mutex
	traces  map[string]*Trace
	order   []string
	maxKeep int
}

// NewTraceStore constructs a store retaining at most maxKeep traces; values
// <= 0 default to 100.
func NewTraceStore(maxKeep int) *TraceStore {
	if maxKeep <= 0 {
		maxKeep = 100
	}
	return &TraceStore{traces: make(map[string]*Trace), maxKeep: maxKeep}
}

func (s *TraceStore) put(tr *Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traces[tr.ID] = tr
	s.order = append(s.order, tr.ID)
	if len(s.order) > s.maxKeep {
		evict := s.order[0]
		s.order = s.order[1:]
		delete(s.traces, evict)
	}
}

// Get retrieves a previously recorded trace by ID.
func (s *TraceStore) Get(id string) (Trace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.traces[id]
	if !ok {
		return Trace{}, false
	}
	return *tr, true
}

func randomTraceID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// DecideTraced behaves exactly like Decide -- including path-scanner
// dispatch and accumulate-mode sequence assembly, since both route through
// the same decide core -- but additionally records the ordered list of rows
// visited and why each did or did not contribute, into store, returning the
// trace ID alongside the usual result.
func (t *Table) DecideTraced(input map[string]any, symbolizeKeys bool, store *TraceStore) (map[string]any, string, error) {
	hash := t.normalizeInput(input)

	var visits []Visit
	acc := t.decide(hash, func(row *ScanRow, outcome VisitOutcome) {
		visits = append(visits, Visit{RowIndex: row.Index, Outcome: outcome})
	})
	result := acc.assemble(symbolizeKeys)

	tr := &Trace{ID: randomTraceID(), Result: result, Visits: visits, CreatedAt: traceNow()}
	if store != nil {
		store.put(tr)
	}
	return result, tr.ID, nil
}

// traceNow supplies Trace.CreatedAt, which is informational only and not
// consulted for eviction.
func traceNow() time.Time { return time.Now() }
