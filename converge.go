// converge.go - Halftone convergence: locating (cx, cy) within a cell

// Grounded on original_source's converge.h: FINDSGNBITS, LFINDSGNBITSX and
// LFINDSGNBITSY1. DESIGN NOTES §9 calls for these argument-mutating macros
// to become pure functions returning the converged coordinates rather than
// writing through pointers; this module follows that instruction exactly,
// with a Cursor type standing in for the macros' cached (cx, cy)/(hcx,
// hccy) locals.
package halftone

// Cursor caches the last converged cell position for a render pass,
// letting adjacent span positions converge in O(1) via the locality
// macros instead of findsgnbits' general O(cell) walk.
type Cursor struct {
	cx, cy   int
	hasPoint bool
}

// findsgnbits is the general convergence routine: given an absolute pixel
// position (x, y) and the cell basis, returns (cx, cy) with
// 0 <= cx < xdims and 0 <= cy < ydims, per spec.md §4.6's convergence
// invariant. It walks from the cursor's last known position rather than
// from the origin, matching FINDSGNBITS' locality optimisation.
func findsgnbits(b CellBasis, cur Cursor, x, y int) (cx, cy int, next Cursor) {
	if !cur.hasPoint {
		cx, cy = generalConverge(b, x, y)
		return cx, cy, Cursor{cx: x - cx, cy: y - cy, hasPoint: true}
	}
	cx = x - cur.cx
	cy = y - cur.cy
	if cx >= 0 && cx < b.XDims && cy >= 0 && cy < b.YDims {
		return cx, cy, cur
	}
	cx, cy = generalConverge(b, x, y)
	return cx, cy, Cursor{cx: x - cx, cy: y - cy, hasPoint: true}
}

// generalConverge computes (cx, cy) from scratch by repeated application
// of the cell basis skew steps, the fallback path findsgnbits takes when
// locality doesn't hold.
func generalConverge(b CellBasis, x, y int) (cx, cy int) {
	cx = x % b.XDims
	cy = y % b.YDims
	if cx < 0 {
		cx += b.XDims
	}
	if cy < 0 {
		cy += b.YDims
	}
	cx, cy = lfindSgnBitsX(b, cx, cy)
	return cx, cy
}

// lfindSgnBitsX is the pure-function form of LFINDSGNBITSX: converges cx
// into [0, xdims) and cy into [0, ydims) given a cy already in range and a
// cx that has only increased since it was last in range, by walking the
// cell basis skew steps.
func lfindSgnBitsX(b CellBasis, cx, cy int) (int, int) {
	for cx >= b.XDims {
		if cy >= b.R2 {
			cy -= b.R2
			cx -= b.R1
		} else {
			cy += b.R3
			cx -= b.R4
		}
	}
	for cy >= b.YDims {
		if cx >= b.R1 {
			cx -= b.R1
			cy -= b.R2
		} else {
			cx += b.R4
			cy -= b.R3
		}
	}
	return cx, cy
}

// lfindSgnBitsY1 is the pure-function form of LFINDSGNBITSY1: cx is
// already in range and cy has stepped exactly one scanline below the
// cell; converge by a single step.
func lfindSgnBitsY1(b CellBasis, cx int) (ncx, ncy int) {
	if cx >= b.R1 {
		return cx - b.R1, b.YDims - b.R2
	}
	return cx + b.R4, b.YDims - b.R3
}

// AdvanceRow converges the cursor onto row y, one scanline below the row
// it last converged, at the same x, the span blit's common case when
// moving to the next output row: equivalent to calling findsgnbits at
// (x, y) but cheaper when the caller already knows cy stepped by exactly
// one line past ydims.
func (cur Cursor) AdvanceRow(b CellBasis, x, y int) (cx, cy int, next Cursor) {
	if !cur.hasPoint {
		return findsgnbits(b, cur, x, y)
	}
	lastCx := x - cur.cx
	lastCy := y - 1 - cur.cy
	if lastCy+1 != b.YDims {
		return findsgnbits(b, cur, x, y)
	}
	ncx, ncy := lfindSgnBitsY1(b, lastCx)
	return ncx, ncy, Cursor{cx: x - ncx, cy: y - ncy, hasPoint: true}
}
