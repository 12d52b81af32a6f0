package topdown

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/patterncore/formulacore/ast/location"
)

// ErrCode classifies the errors EngineEntry.Check can return (spec §7): a
// StructuralErr is a bug in the rule itself (a Formula that violates the
// Not/Cond placement invariant), while the rest are failures in backend or
// condition plumbing that a rule author cannot see or fix from the rule
// text alone.
type ErrCode int

const (
	// InternalErr represents an unknown evaluation error.
	InternalErr ErrCode = iota
	// StructuralErr indicates a Formula violates the well-formedness
	// invariant: Not and Cond nodes are only legal as direct children
	// of an And.
	StructuralErr
	// BackendErr indicates a backend (ast/doc/regex) failed to produce
	// matches for a leaf pattern.
	BackendErr
	// ConditionErr indicates a condition evaluator failed to evaluate a
	// metavariable condition against a binding.
	ConditionErr
)

func (c ErrCode) String() string {
	switch c {
	case StructuralErr:
		return "structural"
	case BackendErr:
		return "backend"
	case ConditionErr:
		return "condition"
	default:
		return "internal"
	}
}

// Error is the error type returned by EngineEntry.Check and the evaluators
// it composes.
type Error struct {
	Code     ErrCode
	Message  string
	RuleID   string
	Location *location.Loc
	cause    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Code)
	if e.RuleID != "" {
		msg = fmt.Sprintf("%s in rule %q", msg, e.RuleID)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Message)
	if e.Location != nil {
		msg = e.Location.String() + ": " + msg
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

func structuralErr(ruleID string, loc *location.Loc, format string, a ...any) *Error {
	return &Error{Code: StructuralErr, RuleID: ruleID, Location: loc, Message: fmt.Sprintf(format, a...)}
}

func backendErr(ruleID string, cause error, format string, a ...any) *Error {
	return &Error{Code: BackendErr, RuleID: ruleID, Message: fmt.Sprintf(format, a...), cause: errors.WithStack(cause)}
}

func conditionErr(ruleID string, cause error, format string, a ...any) *Error {
	return &Error{Code: ConditionErr, RuleID: ruleID, Message: fmt.Sprintf(format, a...), cause: errors.WithStack(cause)}
}

// IsError reports whether err is a topdown Error with the given code.
func IsError(code ErrCode, err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
