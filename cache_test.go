// cache_test.go - Screen Cache dedup, lookup, duplicate, delete

package halftone

import "testing"

func testBasis() CellBasis {
	return CellBasis{R1: 8, R4: 8, XDims: 8, YDims: 8}
}

func screenDefFixture(colorant string, coords func() ([]int, []int, []int, []int, error)) ScreenDef {
	return ScreenDef{
		SpotName:       "Dot60",
		ObjType:        ObjFill,
		ColorantName:   colorant,
		CellBasis:      testBasis(),
		EXDims:         16,
		EYDims:         16,
		DepthShift:     Depth1,
		Notones:        32,
		GenerateCoords: coords,
	}
}

// TestInsertDedupAcrossColorants implements spec.md §8 scenario 1: two
// insertions that agree on every equivalence field except colorant name
// must resolve to the same underlying Chalftone, with its reference count
// reflecting both cache keys.
func TestInsertDedupAcrossColorants(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	defer e.Close()

	fixedCoords := func() ([]int, []int, []int, []int, error) {
		xs := make([]int, 64)
		ys := make([]int, 64)
		for i := range xs {
			xs[i] = i % 8
			ys[i] = (i / 8) % 8
		}
		return xs, ys, nil, nil, nil
	}

	cyan, err := e.InsertScreen(1, ObjFill, 0, screenDefFixture("Cyan", fixedCoords))
	if err != nil {
		t.Fatalf("insert cyan: %v", err)
	}

	calledSecond := false
	magentaCoords := func() ([]int, []int, []int, []int, error) {
		calledSecond = true
		return fixedCoords()
	}
	magenta, err := e.InsertScreen(1, ObjFill, 1, screenDefFixture("Magenta", magentaCoords))
	if err != nil {
		t.Fatalf("insert magenta: %v", err)
	}

	if magenta != cyan {
		t.Fatalf("expected magenta insertion to dedup to the same screen as cyan")
	}
	if calledSecond {
		t.Errorf("second insert's GenerateCoords ran; pre-coordinate equivalence should have skipped it")
	}
	if rc := cyan.RefCount(); rc != 2 {
		t.Errorf("refcount after two dedup'd inserts = %d, want 2", rc)
	}
}

// TestLookupDefaultFallback exercises spec.md §4.1's lookup fallback: a
// miss on the exact (spot, type, colorant) key falls back to the spot's
// ColorantNone entry.
func TestLookupDefaultFallback(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	defer e.Close()

	coords := func() ([]int, []int, []int, []int, error) {
		return []int{0, 1}, []int{0, 0}, nil, nil, nil
	}
	def := screenDefFixture("K", coords)
	s, err := e.InsertScreen(2, ObjFill, ColorantNone, def)
	if err != nil {
		t.Fatalf("insert default: %v", err)
	}

	got, ok := e.LookupScreen(2, ObjFill, 7)
	if !ok {
		t.Fatalf("lookup with unregistered colorant should fall back to default, got miss")
	}
	if got != s {
		t.Errorf("lookup fallback returned a different screen than the default entry")
	}

	if _, ok := e.LookupScreen(3, ObjFill, 7); ok {
		t.Errorf("lookup for an entirely unknown spot should miss")
	}
}

// TestDeleteDecrementsAndReaps verifies delete's refcount bookkeeping and
// that a screen with no remaining references and no live levels records is
// actually removed from the cache's internal screen list.
func TestDeleteDecrementsAndReaps(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	defer e.Close()

	coords := func() ([]int, []int, []int, []int, error) {
		return []int{0, 1}, []int{0, 0}, nil, nil, nil
	}
	def := screenDefFixture("K", coords)
	if _, err := e.InsertScreen(5, ObjFill, 0, def); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := e.DuplicateScreen(5, ObjFill, 1, 5, ObjFill, 0); err != nil {
		t.Fatalf("duplicate: %v", err)
	}

	if err := e.DeleteScreen(5, ObjFill, 1); err != nil {
		t.Fatalf("delete alias: %v", err)
	}
	if len(e.Cache.screens) != 1 {
		t.Fatalf("screen should still be live after one of two keys is deleted, got %d screens", len(e.Cache.screens))
	}

	if err := e.DeleteScreen(5, ObjFill, 0); err != nil {
		t.Fatalf("delete last key: %v", err)
	}
	if len(e.Cache.screens) != 0 {
		t.Errorf("screen should be reaped once its last key is deleted and it has no live levels, got %d screens", len(e.Cache.screens))
	}
}

func TestDeleteUnknownKey(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	defer e.Close()
	if err := e.DeleteScreen(99, ObjFill, 0); err != ErrScreenNotFound {
		t.Errorf("delete of unknown key = %v, want ErrScreenNotFound", err)
	}
}
