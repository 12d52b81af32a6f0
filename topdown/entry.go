package topdown

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/patterncore/formulacore/ast"
	"github.com/patterncore/formulacore/ast/location"
	"github.com/patterncore/formulacore/log"
	"github.com/patterncore/formulacore/metrics"
)

// Hook is called once per surviving match, in emission order, with the
// bindings established at that site and a thunk computing its token
// locations (spec §6). A nil Hook is legal: Check still returns every
// surviving PatternMatch, it just skips the callback.
type Hook func(bindings *ast.BindingSet, tokens func() []*location.Loc)

// EngineEntry is the external entry point (spec §6, C5): it normalises a
// rule's legacy shape if needed, batch-dispatches its leaves, runs
// FormulaEvaluator over the rule's body, and mirrors outcome counters and
// duration into Prometheus alongside whatever per-run metrics.Metrics the
// caller supplied.
type EngineEntry struct {
	dispatcher *BackendDispatcher
	formula    *FormulaEvaluator
	m          metrics.Metrics
	log        log.Logger
	instr      *Instrumentation
}

// NewEngineEntry returns an EngineEntry that dispatches through dispatcher
// and folds rule bodies through formula. If m is non-nil, an
// Instrumentation recording into m is attached to the formula evaluator,
// the dispatcher, and the condition evaluator automatically. logger may be
// nil, in which case both EngineEntry and dispatcher fall back to
// log.Global() — logging is injectable the same way metrics.Metrics is,
// never mandatory.
func NewEngineEntry(dispatcher *BackendDispatcher, formula *FormulaEvaluator, m metrics.Metrics, logger log.Logger) *EngineEntry {
	if logger == nil {
		logger = log.Global()
	}
	e := &EngineEntry{dispatcher: dispatcher, formula: formula, m: m, log: logger}
	if m != nil {
		e.instr = NewInstrumentation(m)
		dispatcher.WithInstrumentation(e.instr)
		formula.WithInstrumentation(e.instr)
		if formula.cond != nil {
			formula.cond.WithInstrumentation(e.instr)
		}
	}
	dispatcher.WithLogger(logger)
	return e
}

// Check runs every rule in rules against file in input order, concatenating
// their surviving PatternMatches (spec §4.5, §6). file's contents are
// loaded lazily through lazyAST; withCaching is passed through unchanged to
// the AST backend. language is the file's language tag, used to gate the
// AST backend unless a rule sets its own Language — rule.Language wins
// when set, since a rule set can mix rules written for different
// languages against one batch of files. hook, when non-nil, is called once
// per surviving match as it is emitted.
func (e *EngineEntry) Check(ctx context.Context, withCaching bool, hook Hook, rules []*ast.Rule, file, language string, lazyAST func() ([]byte, error)) ([]*ast.PatternMatch, error) {
	var out []*ast.PatternMatch
	for _, rule := range rules {
		matches, err := e.checkOne(ctx, withCaching, hook, rule, file, language, lazyAST)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	return out, nil
}

func (e *EngineEntry) checkOne(ctx context.Context, withCaching bool, hook Hook, rule *ast.Rule, file, language string, lazyAST func() ([]byte, error)) ([]*ast.PatternMatch, error) {
	runID := uuid.New().String()

	ctx, span := tracer.Start(ctx, "topdown.EngineEntry.Check", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("rule_id", rule.ID),
		attribute.String("file", file),
	))
	defer span.End()

	start := time.Now()
	out, err := e.check(ctx, withCaching, hook, rule, file, language, lazyAST)
	metrics.CheckDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		metrics.ChecksTotal.WithLabelValues("error").Inc()
		e.log.Errorf("rule %q against %q failed: %v", rule.ID, file, err)
		if ruleErr, ok := err.(*Error); ok && ruleErr.Code == BackendErr {
			metrics.BackendFailuresTotal.WithLabelValues("unknown").Inc()
		}
		return nil, err
	}
	metrics.ChecksTotal.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Int("result_count", len(out)))
	e.log.Debugf("rule %q matched %d sites in %q", rule.ID, len(out), file)
	return out, nil
}

// check normalises rule's legacy shape if needed (spec §4.5 step 1),
// collects its leaves, batch-dispatches them into a LeafIndex (steps 2–4),
// folds the formula over that index (step 5), and for every surviving
// candidate invokes hook and emits its origin PatternMatch (step 6).
func (e *EngineEntry) check(ctx context.Context, withCaching bool, hook Hook, rule *ast.Rule, file, language string, lazyAST func() ([]byte, error)) ([]*ast.PatternMatch, error) {
	body := rule.Body
	if rule.IsLegacy() {
		converted, err := (ast.Convert{}).ConvertLegacy(*rule.LegacyBody)
		if err != nil {
			return nil, structuralErr(rule.ID, nil, "converting legacy rule shape: %v", err)
		}
		body = converted
	}

	effectiveLanguage := language
	if rule.Language != "" {
		effectiveLanguage = rule.Language
	}

	leaves := ast.Leaves(body)
	index, err := e.dispatcher.DispatchAll(ctx, withCaching, file, effectiveLanguage, lazyAST, leaves)
	if err != nil {
		if te, ok := err.(*Error); ok {
			te.RuleID = rule.ID
			return nil, te
		}
		return nil, backendErr(rule.ID, err, "dispatching rule")
	}

	survivors, err := e.formula.Eval(ctx, index, body)
	if err != nil {
		if te, ok := err.(*Error); ok {
			te.RuleID = rule.ID
			return nil, te
		}
		return nil, backendErr(rule.ID, err, "evaluating rule")
	}

	out := make([]*ast.PatternMatch, 0, len(survivors))
	for _, rb := range survivors {
		if hook != nil {
			hook(rb.Bindings, rb.Origin.Tokens)
		}
		out = append(out, rb.Origin)
	}
	return out, nil
}
