// Package location defines source positions shared by every backend's
// match records.
package location

import "fmt"

// Loc records a single position in a source file: a 0-based byte offset
// plus its 1-based line/column rendering, and the file it belongs to.
type Loc struct {
	File       string
	ByteOffset int
	Line       int
	Column     int
	Text       []byte
}

// New returns a new Loc. Line and Column are 1-based; byteOffset is 0-based.
func New(file string, byteOffset, line, column int, text []byte) *Loc {
	return &Loc{File: file, ByteOffset: byteOffset, Line: line, Column: column, Text: text}
}

func (l *Loc) String() string {
	if l == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Equal compares locations by file and byte offset; Text and the
// line/column rendering are derived and not part of identity.
func (l *Loc) Equal(other *Loc) bool {
	if l == nil || other == nil {
		return l == other
	}
	return l.File == other.File && l.ByteOffset == other.ByteOffset
}
