// Package metrics contains helpers for performance metric management inside
// the evaluation core: per-run timers, histograms and counters that
// Instrumentation (see topdown/instrumentation.go) attaches to a dispatch or
// evaluation pass, independent of whether that run is also being mirrored
// into Prometheus via GlobalMetricsRegistry.
package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Well-known metric names used by the topdown dispatcher and evaluator.
const (
	DispatchAst       = "dispatch_ast_ns"
	DispatchDoc       = "dispatch_doc_ns"
	DispatchRegex     = "dispatch_regex_ns"
	DispatchTotal     = "dispatch_total_ns"
	FormulaEval       = "formula_eval_ns"
	ConditionEval     = "condition_eval_ns"
	CoordinateCache   = "coordinate_cache_builds"
	BackendFailures   = "backend_failures"
	RangeAlgebraCalls = "range_algebra_calls"
)

// Info describes the metrics provider backing a Metrics value.
type Info struct {
	Name string
}

// Timer is a restartable timer that accumulates elapsed time across
// Start/Stop pairs. Value reports the total so far (including a running
// interval) and does not reset it.
type Timer interface {
	Start()
	Stop() int64
	Value() int64
	Int64() int64
}

// Histogram records a stream of observations and reports fixed percentiles.
type Histogram interface {
	Update(v int64)
	Value() interface{}
}

// Counter is a monotonically increasing counter.
type Counter interface {
	Incr()
	Add(n uint64)
	Value() interface{}
}

// TimerMetrics is the subset of Metrics that only deals in timers, used by
// callers that just want elapsed-time bookkeeping without histograms.
type TimerMetrics interface {
	Timer(name string) Timer
	All() map[string]interface{}
}

// Metrics is a named collection of timers, histograms and counters attached
// to a single run (one Check call, in topdown terms).
type Metrics interface {
	Timer(name string) Timer
	Histogram(name string) Histogram
	Counter(name string) Counter
	All() map[string]interface{}
	Clear()
	MarshalJSON() ([]byte, error)
}

type metrics struct {
	mu         sync.Mutex
	timers     map[string]*timer
	histograms map[string]*histogram
	counters   map[string]*counter
}

// New returns a new, empty Metrics collection.
func New() Metrics {
	return &metrics{
		timers:     map[string]*timer{},
		histograms: map[string]*histogram{},
		counters:   map[string]*counter{},
	}
}

func (m *metrics) Timer(name string) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.timers[name]
	if !ok {
		t = &timer{}
		m.timers[name] = t
	}
	return t
}

func (m *metrics) Histogram(name string) Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.histograms[name]
	if !ok {
		h = &histogram{}
		m.histograms[name] = h
	}
	return h
}

func (m *metrics) Counter(name string) Counter {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[name]
	if !ok {
		c = &counter{}
		m.counters[name] = c
	}
	return c
}

func (m *metrics) All() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]interface{}, len(m.timers)+len(m.histograms)+len(m.counters))
	for name, t := range m.timers {
		if v := t.Value(); v != 0 {
			out[name] = v
		}
	}
	for name, h := range m.histograms {
		out[name] = h.Value()
	}
	for name, c := range m.counters {
		out[name] = c.Value()
	}
	return out
}

func (m *metrics) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timers = map[string]*timer{}
	m.histograms = map[string]*histogram{}
	m.counters = map[string]*counter{}
}

func (m *metrics) MarshalJSON() ([]byte, error) {
	all := m.All()
	buf := []byte("{")
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, []byte(fmt.Sprintf("%q:%v", k, all[k]))...)
	}
	buf = append(buf, '}')
	return buf, nil
}

type timer struct {
	mu       sync.Mutex
	start    time.Time
	running  bool
	accrued  int64
}

func (t *timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = time.Now()
	t.running = true
}

func (t *timer) Stop() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return t.accrued
	}
	t.accrued += time.Since(t.start).Nanoseconds()
	t.running = false
	return t.accrued
}

func (t *timer) Value() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return t.accrued + time.Since(t.start).Nanoseconds()
	}
	return t.accrued
}

func (t *timer) Int64() int64 {
	return t.Value()
}

type histogram struct {
	mu     sync.Mutex
	values []int64
}

func (h *histogram) Update(v int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.values = append(h.values, v)
}

func (h *histogram) Value() interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Statistics(h.values...)
}

type counter struct {
	v uint64
	mu sync.Mutex
}

func (c *counter) Incr() {
	c.Add(1)
}

func (c *counter) Add(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v += n
}

func (c *counter) Value() interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

// Statistics computes fixed percentiles (50/75/90/99) plus count, min, max
// and mean over the given samples, mirroring the shape of hardcoded
// percentile histograms used across the dispatcher and evaluator.
func Statistics(num ...int64) interface{} {
	if len(num) == 0 {
		return nil
	}
	sorted := append([]int64(nil), num...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	percentile := func(p float64) int64 {
		idx := int(p * float64(len(sorted)-1))
		return sorted[idx]
	}

	var sum int64
	for _, v := range sorted {
		sum += v
	}

	return map[string]int64{
		"count": int64(len(sorted)),
		"min":   sorted[0],
		"max":   sorted[len(sorted)-1],
		"mean":  sum / int64(len(sorted)),
		"50%":   percentile(0.5),
		"75%":   percentile(0.75),
		"90%":   percentile(0.9),
		"99%":   percentile(0.99),
	}
}
