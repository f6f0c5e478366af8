// levels_test.go - Levels Record ring and the Levels Tracker operations

package halftone

import "testing"

func smallSpecialDef(spot int) ScreenDef {
	basis := CellBasis{R1: 4, R4: 4, XDims: 4, YDims: 4}
	coords := func() ([]int, []int, []int, []int, error) {
		xs := make([]int, 16)
		ys := make([]int, 16)
		for i := range xs {
			xs[i] = i % 4
			ys[i] = (i / 4) % 4
		}
		return xs, ys, nil, nil, nil
	}
	return ScreenDef{
		SpotName: "Fixture", ObjType: ObjFill, ColorantName: "K",
		CellBasis: basis, EXDims: 8, EYDims: 8, DepthShift: Depth1,
		Notones: 8, GenerateCoords: coords,
	}
}

func TestLevelsRingExhaustionPanics(t *testing.T) {
	s := &Screen{Notones: 4}
	for i := 0; i < NumDisplayLists; i++ {
		s.claimLevelsRecord(EraseNr(i), 4)
	}

	defer func() {
		if recover() == nil {
			t.Errorf("claiming a (NumDisplayLists+1)th DL should panic once the ring is exhausted")
		}
	}()
	s.claimLevelsRecord(EraseNr(NumDisplayLists), 4)
}

func TestClaimLevelsRecordIsIdempotentPerDL(t *testing.T) {
	s := &Screen{Notones: 4}
	r1 := s.claimLevelsRecord(5, 4)
	r2 := s.claimLevelsRecord(5, 4)
	if r1 != r2 {
		t.Errorf("claiming the same DL twice should return the same ring slot")
	}
}

func TestMarkTintUsedFrontendDefersAllocation(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	defer e.Close()
	s, err := e.InsertScreen(1, ObjFill, 0, smallSpecialDef(1))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := e.Introduce(10); err != nil {
		t.Fatalf("introduce: %v", err)
	}

	if err := e.MarkTintUsed(s, 10, 3, true); err != nil {
		t.Fatalf("mark tint used (frontend): %v", err)
	}

	f, marked := s.GetForm(10, 3)
	if !marked {
		t.Fatalf("tint 3 should be marked used")
	}
	if f != nil {
		t.Errorf("front-end marking on a not-yet-preloaded record should leave the form unallocated, got %+v", f)
	}
}

func TestMarkTintUsedBackendAllocatesImmediately(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	defer e.Close()
	s, err := e.InsertScreen(1, ObjFill, 0, smallSpecialDef(1))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := e.Introduce(10); err != nil {
		t.Fatalf("introduce: %v", err)
	}

	if err := e.MarkTintUsed(s, 10, 3, false); err != nil {
		t.Fatalf("mark tint used (backend): %v", err)
	}

	f, marked := s.GetForm(10, 3)
	if !marked {
		t.Fatalf("tint 3 should be marked used")
	}
	if f == nil {
		t.Errorf("back-end marking should resolve a form immediately")
	}
}

func TestDeferAllocationBatchesAndResumeCommits(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	defer e.Close()
	s, err := e.InsertScreen(1, ObjFill, 0, smallSpecialDef(1))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := e.Introduce(10); err != nil {
		t.Fatalf("introduce: %v", err)
	}

	e.DeferAllocation()
	if err := e.MarkTintUsed(s, 10, 3, false); err != nil {
		t.Fatalf("mark tint used while deferring: %v", err)
	}
	if f, _ := s.GetForm(10, 3); f != nil {
		t.Errorf("deferred allocation must not resolve a form before ResumeAllocation, got %+v", f)
	}

	if err := e.ResumeAllocation(true); err != nil {
		t.Fatalf("resume allocation (success): %v", err)
	}
	if f, _ := s.GetForm(10, 3); f == nil {
		t.Errorf("ResumeAllocation(true) should resolve every queued request")
	}
}

func TestDeferAllocationResumeDiscards(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	defer e.Close()
	s, err := e.InsertScreen(1, ObjFill, 0, smallSpecialDef(1))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := e.Introduce(10); err != nil {
		t.Fatalf("introduce: %v", err)
	}

	e.DeferAllocation()
	if err := e.MarkTintUsed(s, 10, 3, false); err != nil {
		t.Fatalf("mark tint used while deferring: %v", err)
	}
	if err := e.ResumeAllocation(false); err != nil {
		t.Fatalf("resume allocation (failure): %v", err)
	}
	if f, _ := s.GetForm(10, 3); f != nil {
		t.Errorf("ResumeAllocation(false) must discard queued requests without resolving a form, got %+v", f)
	}
}

func TestMarkAllLevelsUsedSkipsBoundaryTints(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	defer e.Close()
	s, err := e.InsertScreen(1, ObjFill, 0, smallSpecialDef(1))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := e.Introduce(10); err != nil {
		t.Fatalf("introduce: %v", err)
	}
	if err := e.MarkAllLevelsUsed(s, 10, false); err != nil {
		t.Fatalf("mark all levels used: %v", err)
	}

	if _, marked := s.GetForm(10, 0); marked {
		t.Errorf("tint 0 (always white) should never be marked by mark_all_levels_used")
	}
	if _, marked := s.GetForm(10, s.Notones); marked {
		t.Errorf("tint notones (always black) should never be marked by mark_all_levels_used")
	}
	for tint := 1; tint < s.Notones; tint++ {
		if _, marked := s.GetForm(10, tint); !marked {
			t.Errorf("tint %d should be marked used", tint)
		}
	}
}
