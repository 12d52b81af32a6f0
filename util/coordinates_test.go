package util

import (
	"sync"
	"testing"

	"github.com/fortytw2/leaktest"
)

func TestOffsetTableRoundTrip(t *testing.T) {
	contents := []byte("foo(1); bar(2); foo(3);\n")
	table := BuildOffsetTable(contents)

	for offset := 0; offset < len(contents); offset++ {
		line, col := table.Locate(offset)
		if got := table.Offset(line, col); got != offset {
			t.Fatalf("round trip failed for offset %d: located (%d,%d), inverted to %d", offset, line, col, got)
		}
	}
}

func TestOffsetTableLocate(t *testing.T) {
	contents := []byte("ab\ncd\n")
	table := BuildOffsetTable(contents)

	cases := []struct {
		offset   int
		line     int
		col      int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{3, 2, 1},
		{5, 2, 3},
	}
	for _, c := range cases {
		line, col := table.Locate(c.offset)
		if line != c.line || col != c.col {
			t.Fatalf("offset %d: expected (%d,%d), got (%d,%d)", c.offset, c.line, c.col, line, col)
		}
	}
}

func TestCoordinatesCachesPerFile(t *testing.T) {
	ResetCoordinateCache()
	calls := 0
	load := func() ([]byte, error) {
		calls++
		return []byte("a\nb\n"), nil
	}

	if _, err := Coordinates("f.x", load); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Coordinates("f.x", load); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected the loader to run once for a cached file, ran %d times", calls)
	}
}

// TestCoordinatesConcurrentCallsCollapseToOneBuild exercises the
// singleflight group under real concurrent load: many goroutines racing
// to build the same file's OffsetTable for the first time should still
// only run load once, and no goroutine started by Coordinates should
// outlive the test.
func TestCoordinatesConcurrentCallsCollapseToOneBuild(t *testing.T) {
	defer leaktest.Check(t)()
	ResetCoordinateCache()

	var calls int32
	var mu sync.Mutex
	load := func() ([]byte, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return []byte("a\nb\nc\n"), nil
	}

	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := Coordinates("concurrent.x", load); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected singleflight to collapse %d concurrent first-builds into 1 load, got %d", n, calls)
	}
}
