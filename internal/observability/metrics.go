package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	requestTime   map[string]time.Duration
	errorCount    map[string]int64
	edgeDecisions map[string]int64
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Requests         map[string]int64 `json:"requests"`
	RequestLatencyMS map[string]int64 `json:"request_latency_ms"`
	Errors           map[string]int64 `json:"errors"`
	EdgeDecisions    map[string]int64 `json:"edge_decisions"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		requestTime:   make(map[string]time.Duration),
		errorCount:    make(map[string]int64),
		edgeDecisions: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestTime[key] += duration
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

// RecordEdgeDecision counts gatekeeper outcomes by final state and reason.
func (m *Metrics) RecordEdgeDecision(state, reason string) {
	if m == nil {
		return
	}
	key := state
	if reason != "" {
		key += "|" + reason
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edgeDecisions[key]++
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	latency := make(map[string]int64, len(m.requestTime))
	for k, total := range m.requestTime {
		if n := m.requestCount[k]; n > 0 {
			latency[k] = (total / time.Duration(n)).Milliseconds()
		}
	}
	return Snapshot{
		Requests:         copyCounts(m.requestCount),
		RequestLatencyMS: latency,
		Errors:           copyCounts(m.errorCount),
		EdgeDecisions:    copyCounts(m.edgeDecisions),
	}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
