package ast

import (
	"fmt"
	"strconv"

	"github.com/patterncore/formulacore/ast/location"
)

// ErrCode classifies the ast-layer error kinds that are bugs in backend
// plumbing rather than anything a rule author did (spec §7).
type ErrCode int

const (
	// MalformedLeafIDErr indicates a mini rule's leaf id could not be
	// parsed as an integer — a bug in the code that built the mini rule,
	// not a rule-authoring mistake.
	MalformedLeafIDErr ErrCode = iota
	// EmptyLegacyFormulaErr indicates a legacy-shape formula node had none
	// of its recognised fields set.
	EmptyLegacyFormulaErr
)

// Error represents a single ast-layer error, carrying the source location
// it was detected at when one is available.
type Error struct {
	Code     ErrCode
	Location *location.Loc
	Message  string
}

func (e *Error) Error() string {
	if e.Location == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Location.String(), e.Message)
}

// NewError returns a new Error with a formatted message.
func NewError(code ErrCode, loc *location.Loc, f string, a ...any) *Error {
	return &Error{Code: code, Location: loc, Message: fmt.Sprintf(f, a...)}
}

// IsError reports whether err is an ast.Error with the given code.
func IsError(code ErrCode, err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == code
	}
	return false
}

// ParseLeafID parses a mini rule's stringified leaf id (spec §4.5 step 4).
// A malformed id is always a bug in the backend dispatcher's own
// plumbing, never something a rule author can trigger, so it is modelled
// as a distinct, fatal error code rather than folded into BackendFailure.
func ParseLeafID(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, NewError(MalformedLeafIDErr, nil, "malformed leaf id %q", s)
	}
	return n, nil
}
