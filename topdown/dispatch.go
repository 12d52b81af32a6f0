package topdown

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/patterncore/formulacore/ast"
	"github.com/patterncore/formulacore/log"
	"github.com/patterncore/formulacore/metrics"
	"github.com/patterncore/formulacore/util"
)

var tracer = otel.Tracer("github.com/patterncore/formulacore/topdown")

// AstMatcher runs a structural AST pattern against a file's parsed tree.
// withCaching is an opaque pass-through from EngineEntry.Check (spec §6):
// the core never inspects it, it only threads it through so a reference
// implementation can skip re-parsing the same file across the many leaves
// one rule (or many rules) runs against it.
type AstMatcher interface {
	Match(ctx context.Context, withCaching bool, file string, src []byte, pattern ast.XPattern) ([]*ast.PatternMatch, error)
}

// DocMatcher runs an indentation-sensitive document pattern against a
// file's raw text (the "doc" backend in spec terms — YAML/HCL/plain text
// and similar whitespace-structured formats that never get a real parse
// tree).
type DocMatcher interface {
	Match(ctx context.Context, file string, src []byte, pattern ast.XPattern) ([]*ast.PatternMatch, error)
}

// RegexEngine runs a regular-expression pattern against a file's raw text.
type RegexEngine interface {
	Match(ctx context.Context, file string, src []byte, pattern ast.XPattern) ([]*ast.PatternMatch, error)
}

// BackendDispatcher fans leaves out to the one backend each leaf's
// BackendKind names (spec §4.2, C2). It is the only place in the core
// that knows backends exist; everything above it works purely in ranges,
// bindings, and PatternMatches keyed by leaf id.
type BackendDispatcher struct {
	ast   AstMatcher
	doc   DocMatcher
	regex RegexEngine
	instr *Instrumentation
	log   log.Logger
}

// NewBackendDispatcher returns a BackendDispatcher wired to the three
// backend implementations. Any of the three may be nil; dispatching a leaf
// whose BackendKind has no matcher wired is a BackendErr, not a panic.
func NewBackendDispatcher(astM AstMatcher, docM DocMatcher, regexE RegexEngine) *BackendDispatcher {
	return &BackendDispatcher{ast: astM, doc: docM, regex: regexE}
}

// WithInstrumentation attaches instr to record per-backend dispatch time.
// It returns the receiver for chaining and is a no-op if instr is nil.
func (d *BackendDispatcher) WithInstrumentation(instr *Instrumentation) *BackendDispatcher {
	d.instr = instr
	return d
}

// WithLogger attaches l as the dispatcher's logger; nil restores the
// package-default logger (log.Global()).
func (d *BackendDispatcher) WithLogger(l log.Logger) *BackendDispatcher {
	d.log = l
	return d
}

func (d *BackendDispatcher) logger() log.Logger {
	if d.log == nil {
		return log.Global()
	}
	return d.log
}

// languageWantsAst reports whether language designates a concrete
// programming language the AST backend should run for (spec §4.2 step 2).
// "none", "generic", and the empty tag (a rule that never set one) all
// mean the same thing: skip the AST backend entirely. Per spec §7 that is
// a LanguageMismatch — the AST backend yields empty, not an error.
func languageWantsAst(language string) bool {
	switch language {
	case "", "none", "generic":
		return false
	default:
		return true
	}
}

// Dispatch runs pattern's leaf against the single backend named by its
// BackendKind and returns the raw PatternMatches it produced. Matches are
// not lifted to RangeWithBindings here — that happens per leaf lookup at
// formula-evaluation time (spec §4.4 "Leaf"), once every leaf's results
// have been folded into a LeafIndex by DispatchAll.
func (d *BackendDispatcher) Dispatch(ctx context.Context, withCaching bool, file string, src []byte, pattern ast.XPattern) ([]*ast.PatternMatch, error) {
	ctx, span := tracer.Start(ctx, "topdown.Dispatch", trace.WithAttributes(
		attribute.Int("leaf_id", pattern.ID),
		attribute.String("backend", pattern.Body.Kind.String()),
		attribute.String("file", file),
	))
	defer span.End()

	d.instr.startDispatch(pattern.Body.Kind)
	defer d.instr.stopDispatch(pattern.Body.Kind)

	var matches []*ast.PatternMatch
	var err error
	switch pattern.Body.Kind {
	case ast.BackendAst:
		if d.ast == nil {
			return nil, backendErr("", nil, "no ast backend wired for leaf %d", pattern.ID)
		}
		matches, err = d.ast.Match(ctx, withCaching, file, src, pattern)
	case ast.BackendDoc:
		if d.doc == nil {
			return nil, backendErr("", nil, "no doc backend wired for leaf %d", pattern.ID)
		}
		matches, err = d.doc.Match(ctx, file, src, pattern)
	case ast.BackendRegex:
		if d.regex == nil {
			return nil, backendErr("", nil, "no regex backend wired for leaf %d", pattern.ID)
		}
		matches, err = d.regex.Match(ctx, file, src, pattern)
	default:
		return nil, backendErr("", nil, "unknown backend kind for leaf %d", pattern.ID)
	}
	if err != nil {
		span.RecordError(err)
		return nil, backendErr("", err, "backend failed for leaf %d", pattern.ID)
	}
	span.SetAttributes(attribute.Int("match_count", len(matches)))
	return matches, nil
}

// DispatchAll implements the batched two-phase flow of spec §4.2 steps
// 1–4 and §4.5 steps 2–4: load file once, partition leaves by backend
// kind, run every leaf of each kind against its backend — skipping the
// AST backend entirely under LanguageMismatch (§7) — and fold every
// resulting PatternMatch into a LeafIndex keyed by leaf id. Leaves run in
// ast, regex, doc order, mirroring the ordering guarantee spec §5 states
// for the pre-algebra match list; since LeafIndex.Lookup keys by leaf id
// and every leaf has exactly one BackendKind, this ordering has no effect
// on the result, only on trace/log emission order.
//
// Backend fallback is isolated per spec §4.2: a regex leaf's failure
// degrades to an empty result for that leaf, recorded as a backend
// failure metric, rather than failing the whole rule. AST and doc
// backends are expected to return normally, so their failures propagate.
func (d *BackendDispatcher) DispatchAll(ctx context.Context, withCaching bool, file, language string, load func() ([]byte, error), leaves []ast.XPattern) (*ast.LeafIndex, error) {
	src, err := load()
	if err != nil {
		return nil, backendErr("", err, "loading %q", file)
	}
	if _, err := util.Coordinates(file, func() ([]byte, error) { return src, nil }); err != nil {
		return nil, backendErr("", err, "building coordinate table for %q", file)
	}

	var astLeaves, regexLeaves, docLeaves []ast.XPattern
	for _, leaf := range leaves {
		switch leaf.Body.Kind {
		case ast.BackendAst:
			astLeaves = append(astLeaves, leaf)
		case ast.BackendRegex:
			regexLeaves = append(regexLeaves, leaf)
		case ast.BackendDoc:
			docLeaves = append(docLeaves, leaf)
		}
	}

	index := ast.NewLeafIndex()
	astOK := languageWantsAst(language)
	if !astOK && len(astLeaves) > 0 {
		d.logger().Debugf("skipping ast backend for %q: language %q is not a concrete language", file, language)
	}

	for _, leaf := range astLeaves {
		if !astOK {
			continue
		}
		matches, err := d.Dispatch(ctx, withCaching, file, src, leaf)
		if err != nil {
			return nil, err
		}
		for _, pm := range matches {
			index.Insert(pm)
		}
	}

	for _, leaf := range regexLeaves {
		matches, err := d.Dispatch(ctx, withCaching, file, src, leaf)
		if err != nil {
			d.logger().Warnf("regex backend failed for leaf %d in %q, treating as empty: %v", leaf.ID, file, err)
			metrics.BackendFailuresTotal.WithLabelValues("regex").Inc()
			continue
		}
		for _, pm := range matches {
			index.Insert(pm)
		}
	}

	for _, leaf := range docLeaves {
		matches, err := d.Dispatch(ctx, withCaching, file, src, leaf)
		if err != nil {
			return nil, err
		}
		for _, pm := range matches {
			index.Insert(pm)
		}
	}

	return index, nil
}
