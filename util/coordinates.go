package util

import (
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// OffsetTable converts between a byte offset and a 1-based (line, column)
// pair within one file's contents. Lines are counted by counting '\n'
// occurrences; column is bytes since the preceding '\n' plus one — exactly
// the conversion spec'd for the regex backend and for stringifying AST
// locations consistently across backends.
type OffsetTable struct {
	// lineStarts[i] is the byte offset of the first byte of line i+1.
	lineStarts []int
}

// BuildOffsetTable scans contents once and returns a table capable of
// answering Locate in O(log n) and Offset in O(1).
func BuildOffsetTable(contents []byte) *OffsetTable {
	starts := []int{0}
	for i, b := range contents {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &OffsetTable{lineStarts: starts}
}

// Locate converts a 0-based byte offset to a 1-based (line, column) pair.
func (t *OffsetTable) Locate(offset int) (line, column int) {
	// largest i such that lineStarts[i] <= offset
	i := sort.Search(len(t.lineStarts), func(i int) bool {
		return t.lineStarts[i] > offset
	}) - 1
	if i < 0 {
		i = 0
	}
	return i + 1, offset - t.lineStarts[i] + 1
}

// Offset inverts Locate: given a 1-based (line, column) pair, returns the
// 0-based byte offset. Used to verify the coordinate round-trip invariant
// and by backends that only have line/column information to start from.
func (t *OffsetTable) Offset(line, column int) int {
	idx := line - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(t.lineStarts) {
		idx = len(t.lineStarts) - 1
	}
	return t.lineStarts[idx] + column - 1
}

var (
	coordMu    sync.Mutex
	coordCache = map[string]*OffsetTable{}
	coordGroup singleflight.Group
)

// Coordinates returns the cached OffsetTable for file, building it via load
// (expected to read the file's contents) on first use. The cache is
// process-wide, insert-only, and keyed by file path — the table for a file
// is never invalidated because correctness never depends on it reflecting
// a later write to the same path within one process lifetime (spec §5).
// singleflight collapses concurrent first-builds for the same path into a
// single scan when multiple (rule, file) evaluations race on the same
// file from independent goroutines.
func Coordinates(file string, load func() ([]byte, error)) (*OffsetTable, error) {
	coordMu.Lock()
	if t, ok := coordCache[file]; ok {
		coordMu.Unlock()
		return t, nil
	}
	coordMu.Unlock()

	v, err, _ := coordGroup.Do(file, func() (any, error) {
		coordMu.Lock()
		if t, ok := coordCache[file]; ok {
			coordMu.Unlock()
			return t, nil
		}
		coordMu.Unlock()

		contents, err := load()
		if err != nil {
			return nil, err
		}
		table := BuildOffsetTable(contents)

		coordMu.Lock()
		coordCache[file] = table
		coordMu.Unlock()
		return table, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*OffsetTable), nil
}

// ResetCoordinateCache drops every cached table. Exposed for tests only.
func ResetCoordinateCache() {
	coordMu.Lock()
	defer coordMu.Unlock()
	coordCache = map[string]*OffsetTable{}
}
