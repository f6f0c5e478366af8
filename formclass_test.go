// formclass_test.go - Form Class Pool preload discipline and lifecycle

package halftone

import "testing"

func classFixtureDef(spot int, xd, yd int) ScreenDef {
	basis := CellBasis{R1: xd, R4: xd, XDims: xd, YDims: yd}
	n := xd * yd
	coords := func() ([]int, []int, []int, []int, error) {
		xs := make([]int, n)
		ys := make([]int, n)
		for i := range xs {
			xs[i] = i % xd
			ys[i] = (i / xd) % yd
		}
		return xs, ys, nil, nil, nil
	}
	return ScreenDef{
		SpotName: "Fixture", ObjType: ObjFill, ColorantName: "K",
		CellBasis: basis, EXDims: xd * 4, EYDims: yd * 4, DepthShift: Depth1,
		Notones: n, GenerateCoords: coords,
	}
}

// TestPreloadUnderMemoryPressureReportsShortfall implements spec.md §8
// scenario 2: a sheet whose screens require more memory than the buffer
// pool can supply must still complete (no error surfaced to the caller
// other than the recorded shortfall) rather than leaving the DL stuck.
func TestPreloadUnderMemoryPressureReportsShortfall(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.MemoryBudgetBytes = 64 // tiny budget, forces allocateN to fail quickly
	e := NewEngine(cfg)
	defer e.Close()

	s, err := e.InsertScreen(1, ObjFill, 0, classFixtureDef(1, 4, 4))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := e.Introduce(10); err != nil {
		t.Fatalf("introduce: %v", err)
	}
	if err := e.MarkAllLevelsUsed(s, 10, true); err != nil {
		t.Fatalf("mark all levels used: %v", err)
	}

	if err := e.StartSheet(10, nil); err != nil {
		t.Errorf("StartSheet should absorb an out-of-memory preload as a warning, got error %v", err)
	}
}

// TestFormClassDestroyedWhenEmpty verifies the eager-destroy boundary case:
// once a class's last member screen is deleted the class itself is
// unlinked from the pool.
func TestFormClassDestroyedWhenEmpty(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	defer e.Close()

	s, err := e.InsertScreen(1, ObjFill, 0, classFixtureDef(1, 8, 8))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	fc := s.class
	if fc == nil {
		t.Fatalf("inserted screen should have joined a form class")
	}

	foundBefore := false
	for cur := e.Pool.head; cur != nil; cur = cur.next {
		if cur == fc {
			foundBefore = true
		}
	}
	if !foundBefore {
		t.Fatalf("form class should be linked into the pool after insert")
	}

	if err := e.DeleteScreen(1, ObjFill, 0); err != nil {
		t.Fatalf("delete: %v", err)
	}

	for cur := e.Pool.head; cur != nil; cur = cur.next {
		if cur == fc {
			t.Errorf("form class should be unlinked from the pool once its last screen is deleted")
		}
	}
}

func TestFormClassPoolOrdersLargestFirst(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	defer e.Close()

	if _, err := e.InsertScreen(1, ObjFill, 0, classFixtureDef(1, 4, 4)); err != nil {
		t.Fatalf("insert small: %v", err)
	}
	if _, err := e.InsertScreen(2, ObjFill, 0, classFixtureDef(2, 16, 16)); err != nil {
		t.Fatalf("insert large: %v", err)
	}

	if e.Pool.head == nil || e.Pool.head.next == nil {
		t.Fatalf("expected two form classes, pool has fewer")
	}
	if e.Pool.head.FormSize < e.Pool.head.next.FormSize {
		t.Errorf("form class pool must be ordered largest-first, got %d before %d",
			e.Pool.head.FormSize, e.Pool.head.next.FormSize)
	}
}
