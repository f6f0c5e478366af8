// dl_test.go - DL lifecycle: pipelining and retirement

package halftone

import "testing"

// TestPipelineRetirement implements spec.md §8 scenario 4: introduce(5),
// mark_used(5), handoff(5), introduce(6), mark_used(6), start_sheet(5),
// end_sheet(5), retire(5). After retire(5) the screen must have exactly
// one live levels record (DL 6); DL 5's slot must be free again.
func TestPipelineRetirement(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	defer e.Close()

	s, err := e.InsertScreen(1, ObjFill, 0, smallSpecialDef(1))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := e.Introduce(5); err != nil {
		t.Fatalf("introduce(5): %v", err)
	}
	if err := e.MarkUsed(5, 1, ObjFill, 0); err != nil {
		t.Fatalf("mark_used(5): %v", err)
	}
	if err := e.Handoff(5); err != nil {
		t.Fatalf("handoff(5): %v", err)
	}
	if err := e.Introduce(6); err != nil {
		t.Fatalf("introduce(6): %v", err)
	}
	if err := e.MarkUsed(6, 1, ObjFill, 0); err != nil {
		t.Fatalf("mark_used(6): %v", err)
	}
	if err := e.StartSheet(5, nil); err != nil {
		t.Fatalf("start_sheet(5): %v", err)
	}
	if err := e.EndSheet(5, false); err != nil {
		t.Fatalf("end_sheet(5): %v", err)
	}
	e.Retire(5)

	live := s.LiveDLs()
	if len(live) != 1 || live[0] != 6 {
		t.Errorf("after retire(5), live DLs = %v, want [6]", live)
	}

	r5 := s.findLevelsRecord(5)
	if r5 != nil {
		t.Errorf("DL 5's levels record should be free after retire, got %+v", r5)
	}
}

// TestIntroduceWithOutputDLActiveDisablesFormKeep exercises the pipelining
// detection named in spec.md §4.5 operation 1: once a new DL is introduced
// while a previous one is still the active output DL, ht_form_keep must
// turn off so the pipelined DL's unload frees memory outright instead of
// keeping markers for reuse.
func TestIntroduceWithOutputDLActiveDisablesFormKeep(t *testing.T) {
	m := NewDLManager()
	if !m.formKeep {
		t.Fatalf("form keep should default on")
	}

	if err := m.introduce(1); err != nil {
		t.Fatalf("introduce(1): %v", err)
	}
	m.outputDL = 1 // simulate start_sheet(1) having made DL 1 the active output

	if err := m.introduce(2); err != nil {
		t.Fatalf("introduce(2): %v", err)
	}
	if m.formKeep {
		t.Errorf("introducing a DL while another is the active output should disable form keep")
	}
}

func TestDoubleIntroduceRejected(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	defer e.Close()
	if err := e.Introduce(1); err != nil {
		t.Fatalf("introduce(1): %v", err)
	}
	if err := e.Introduce(1); err == nil {
		t.Errorf("re-introducing a live DL should fail")
	}
}
