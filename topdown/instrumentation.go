package topdown

import (
	"github.com/patterncore/formulacore/ast"
	"github.com/patterncore/formulacore/metrics"
)

// Instrumentation records where a Check call spent its time: inside a
// particular backend's dispatch, inside condition evaluation, or inside the
// formula fold itself. It is optional — EngineEntry.Check works fine with a
// nil *Instrumentation — and is disabled unless a caller supplies a
// metrics.Metrics to record into, since the timers it starts are not free.
type Instrumentation struct {
	m metrics.Metrics
}

// NewInstrumentation returns a new Instrumentation that records into m.
func NewInstrumentation(m metrics.Metrics) *Instrumentation {
	return &Instrumentation{m: m}
}

func (instr *Instrumentation) startTimer(name string) {
	if instr == nil || instr.m == nil {
		return
	}
	instr.m.Timer(name).Start()
}

func (instr *Instrumentation) stopTimer(name string) {
	if instr == nil || instr.m == nil {
		return
	}
	instr.m.Timer(name).Stop()
}

func (instr *Instrumentation) startDispatch(kind ast.BackendKind) {
	instr.startTimer(dispatchMetricName(kind))
}

func (instr *Instrumentation) stopDispatch(kind ast.BackendKind) {
	instr.stopTimer(dispatchMetricName(kind))
}

func dispatchMetricName(kind ast.BackendKind) string {
	switch kind {
	case ast.BackendAst:
		return metrics.DispatchAst
	case ast.BackendDoc:
		return metrics.DispatchDoc
	default:
		return metrics.DispatchRegex
	}
}
