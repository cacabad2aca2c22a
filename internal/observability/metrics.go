package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the engine surfaces.
type Metrics struct {
	mu               sync.Mutex
	requestCount     map[string]int64
	errorCount       map[string]int64
	transitionCount  map[string]int64
	reconcileCount   map[string]int64
	deadlineComputes int64
	breachCount      map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:    make(map[string]int64),
		errorCount:      make(map[string]int64),
		transitionCount: make(map[string]int64),
		reconcileCount:  make(map[string]int64),
		breachCount:     make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordTransition counts a transition attempt per definition and outcome
// ("applied", "no_such_transition", "comment_required", "guard_rejected").
func (m *Metrics) RecordTransition(definitionID, outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionCount[definitionID+"|"+outcome]++
}

// RecordReconciliation counts reconciliation runs per definition.
func (m *Metrics) RecordReconciliation(definitionID string, changed bool) {
	if m == nil {
		return
	}
	key := definitionID + "|noop"
	if changed {
		key = definitionID + "|changed"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconcileCount[key]++
}

// RecordDeadlineComputation counts deadline recomputes.
func (m *Metrics) RecordDeadlineComputation() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadlineComputes++
}

// RecordBreach counts SLA breaches per clock.
func (m *Metrics) RecordBreach(clock string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breachCount[clock]++
}
