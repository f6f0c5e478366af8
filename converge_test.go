// converge_test.go - convergence invariant

package halftone

import "testing"

// TestFindSgnBitsInvariant implements spec.md §8 scenario 5's convergence
// invariant: after convergence, 0 <= cx < xdims and 0 <= cy < ydims, for a
// General-class cell basis (r1=7, r2=3, r3=5, r4=11, xdims=58, ydims=58 —
// chosen so this module's own ClassifyHalftoneType resolves it to General,
// since spec.md's worked example conflates a rectangle-test-satisfying
// basis with the General label).
func TestFindSgnBitsInvariant(t *testing.T) {
	b := CellBasis{R1: 7, R2: 3, R3: 5, R4: 11, XDims: 58, YDims: 58}
	if got := ClassifyHalftoneType(b); got != General {
		t.Fatalf("fixture basis classified as %v, want General", got)
	}

	var cur Cursor
	for y := 0; y < 3; y++ {
		for x := 0; x <= 63; x++ {
			cx, cy, next := findsgnbits(b, cur, x, y)
			cur = next
			if cx < 0 || cx >= b.XDims {
				t.Fatalf("x=%d y=%d: cx=%d out of [0,%d)", x, y, cx, b.XDims)
			}
			if cy < 0 || cy >= b.YDims {
				t.Fatalf("x=%d y=%d: cy=%d out of [0,%d)", x, y, cy, b.YDims)
			}
		}
	}
}

// TestFindSgnBitsLocalityMatchesFreshConverge verifies that the cursor's
// incremental path (used for adjacent span positions) agrees with a fresh
// generalConverge computed with no cursor, for every x in a span.
func TestFindSgnBitsLocalityMatchesFreshConverge(t *testing.T) {
	b := CellBasis{R1: 7, R2: 3, R3: 5, R4: 11, XDims: 58, YDims: 58}
	var cur Cursor
	for x := 0; x <= 200; x++ {
		gotCx, gotCy, next := findsgnbits(b, cur, x, 0)
		cur = next
		wantCx, wantCy := generalConverge(b, x, 0)
		if gotCx != wantCx || gotCy != wantCy {
			t.Errorf("x=%d: cursor path gave (%d,%d), fresh converge gave (%d,%d)",
				x, gotCx, gotCy, wantCx, wantCy)
		}
	}
}

// TestAdvanceRowMatchesFindSgnBits checks that AdvanceRow's one-step
// update agrees with calling findsgnbits directly at the advanced row.
func TestAdvanceRowMatchesFindSgnBits(t *testing.T) {
	b := CellBasis{R1: 7, R2: 3, R3: 5, R4: 11, XDims: 58, YDims: 58}
	x := 40
	_, _, cur := findsgnbits(b, Cursor{}, x, 0)

	gotCx, gotCy, _ := cur.AdvanceRow(b, x, 1)
	wantCx, wantCy, _ := findsgnbits(b, Cursor{}, x, 1)
	if gotCx != wantCx || gotCy != wantCy {
		t.Errorf("AdvanceRow gave (%d,%d), findsgnbits gave (%d,%d)", gotCx, gotCy, wantCx, wantCy)
	}
}
