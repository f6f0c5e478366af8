// screen.go - Chalftone: a fully parameterized halftone cell

// Mirrors spec.md §3's Screen ("Chalftone") data model. The classification
// and rotation-normalization logic below are pure functions operating on
// copies of the relevant fields, following DESIGN NOTES §9's instruction to
// replace macros that mutate arguments in place with pure functions.
package halftone

import "sync"

// ObjectType distinguishes the kind of mark a screen applies to, used by
// the cache's equivalence search (spec.md §4.1, "object-type
// compatibility").
type ObjectType int

const (
	ObjFill ObjectType = iota
	ObjStroke
	ObjImage
	ObjText
	ObjVignette
)

// ColorantNone is the sentinel colorant index meaning "default for this
// spot", used by lookup's fallback rule (spec.md §4.1).
const ColorantNone = -1

// HalftoneType classifies a cell's basis geometry for blit dispatch
// purposes (spec.md §4.1).
type HalftoneType int

const (
	Special HalftoneType = iota
	OneLessWord
	Orthogonal
	General
	SlowGeneral
)

func (t HalftoneType) String() string {
	switch t {
	case Special:
		return "Special"
	case OneLessWord:
		return "OneLessWord"
	case Orthogonal:
		return "Orthogonal"
	case General:
		return "General"
	case SlowGeneral:
		return "SlowGeneral"
	default:
		return "Unknown"
	}
}

// CellBasis holds the four skew coefficients and nominal dimensions used
// throughout classification, convergence and equivalence comparison.
type CellBasis struct {
	R1, R2, R3, R4 int
	XDims, YDims   int
}

// isPowerOfTwo reports whether n is a positive power of two.
func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// rectangleTest reports whether the basis describes an axis-aligned
// (orthogonal) cell: spec.md §4.1's "(r1=0 ∧ r3=0) or (r2=0 ∧ r4=0) or
// (r2=r3 ∧ r1=r4)".
func rectangleTest(b CellBasis) bool {
	return (b.R1 == 0 && b.R3 == 0) ||
		(b.R2 == 0 && b.R4 == 0) ||
		(b.R2 == b.R3 && b.R1 == b.R4)
}

// ClassifyHalftoneType implements spec.md §4.1's classification table as a
// pure function of the cell basis and the compile-time blit word width.
func ClassifyHalftoneType(b CellBasis) HalftoneType {
	rect := rectangleTest(b)
	switch {
	case rect && isPowerOfTwo(b.XDims) && isPowerOfTwo(b.YDims) &&
		b.XDims <= BlitWordBits && b.YDims <= BlitWordBits:
		return Special
	case rect && b.XDims < BlitWordBits:
		return OneLessWord
	case rect:
		return Orthogonal
	case b.XDims > 2*BlitWordBits:
		return SlowGeneral
	default:
		return General
	}
}

// validateCellGeometry rejects degenerate configurations at insertion time
// rather than at blit time, per SPEC_FULL.md Open Question 1: a OneLessWord
// classification is only meaningful when xdims evenly divides the blit
// word, since the span blit rotates a single word-sized mask by a fixed
// step per cell (spec.md §4.6, shiftpword).
func validateCellGeometry(b CellBasis) error {
	if b.XDims <= 0 || b.YDims <= 0 {
		return ErrInvalidConfiguration
	}
	t := ClassifyHalftoneType(b)
	if t == OneLessWord && BlitWordBits%b.XDims != 0 {
		return ErrInvalidConfiguration
	}
	return nil
}

// Screen is the in-memory representation of spec.md §3's Chalftone: a
// fully parameterized halftone cell, deduplicated on insertion and
// destroyed when its reference count and all DL levels records are
// retired.
type Screen struct {
	mu sync.RWMutex // rung 4 of the lock hierarchy (locks.go)

	CellBasis
	EXDims, EYDims int

	XCoords, YCoords []int // length SupercellActual
	SupercellActual  int
	ThreshXfer       []int // length maxthxfer+1, nil if absent

	Frequency float64
	Angle     float64
	// Rotation is the orientation, in degrees, the coordinate arrays are
	// currently expressed in: one of 0, 90, 180, 270.
	Rotation int

	Accurate       bool
	DotCentered    bool
	MultiThreshold bool
	DepthShift     DepthShift
	Protected      bool

	SpotName     string
	ObjType      ObjectType
	ColorantName string

	HalfType HalftoneType
	Notones  int
	HalfYs   []int // length mydims

	Modular bool // modular screens are opaque: skipped during dedup/poaching
	pattern bool // pattern screens: single form, never pooled
	patternForm *Form

	class    *FormClass
	refcount int

	levels   [NumDisplayLists]LevelsRecord
	ringNext int // next ring slot to probe when claiming

	// mruPrev/mruNext link this screen into its FormClass's MRU/LRU
	// chain (spec.md §4.3), mutated only while holding FormClass.mu.
	mruPrev, mruNext *Screen
	inChain          bool
}

// IsPattern reports whether this screen is a pattern screen: single-form,
// never joining a FormClass (SPEC_FULL.md §4, grounded on halftoneinit.c).
func (s *Screen) IsPattern() bool { return s.pattern }

// RefCount returns the screen's current reference count (spec.md §3
// invariant: equals the number of distinct cache keys resolving to it).
func (s *Screen) RefCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refcount
}

// LiveDLs returns every erase number with a live levels record on s, for
// introspection tools (cmd/htmonitor) that need to show which DLs a screen
// currently participates in.
func (s *Screen) LiveDLs() []EraseNr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []EraseNr
	for i := range s.levels {
		if !s.levels[i].free() {
			out = append(out, s.levels[i].erase)
		}
	}
	return out
}

// equivalenceParams is the subset of a Screen's fields compared during
// pre-coordinate equivalence search (spec.md §4.1).
type equivalenceParams struct {
	SpotName       string
	ObjType        ObjectType
	CellBasis      CellBasis
	Accurate       bool
	DotCentered    bool
	MultiThreshold bool
	SupercellSize  int
	DepthShift     DepthShift
	HasThreshold   bool
}

// Note: ColorantName deliberately does not participate in equivalence.
// Two colorants that request the same spot/geometry/rendering parameters
// share one Chalftone (spec.md §8 scenario 1, §3's refcount invariant:
// a screen's refcount is the number of distinct cache keys resolving to
// it, which only works if distinct-colorant keys can resolve to the same
// screen). ColorantName is retained on Screen/ScreenDef as descriptive
// metadata only.
func (s *Screen) equivParams() equivalenceParams {
	return equivalenceParams{
		SpotName:       s.SpotName,
		ObjType:        s.ObjType,
		CellBasis:      s.CellBasis,
		Accurate:       s.Accurate,
		DotCentered:    s.DotCentered,
		MultiThreshold: s.MultiThreshold,
		SupercellSize:  s.SupercellActual,
		DepthShift:     s.DepthShift,
		HasThreshold:   s.ThreshXfer != nil,
	}
}

// objectTypesCompatible implements spec.md §4.1's "object-type
// compatibility" test: screens for fills/strokes/vignettes may share a
// definition, but text and image screens never match anything else,
// matching the original rasteriser's rule that glyph and image screening
// use dedicated cells.
func objectTypesCompatible(a, b ObjectType) bool {
	if a == b {
		return true
	}
	special := func(t ObjectType) bool { return t == ObjText || t == ObjImage }
	return !special(a) && !special(b)
}

func (p equivalenceParams) preEquivalent(o equivalenceParams) bool {
	return p.SpotName == o.SpotName &&
		objectTypesCompatible(p.ObjType, o.ObjType) &&
		p.CellBasis == o.CellBasis &&
		p.Accurate == o.Accurate &&
		p.DotCentered == o.DotCentered &&
		p.MultiThreshold == o.MultiThreshold &&
		p.SupercellSize == o.SupercellSize &&
		p.DepthShift == o.DepthShift &&
		p.HasThreshold == o.HasThreshold
}

// rotationDelta returns the clockwise degrees needed to rotate `from` to
// `to`, normalized to one of {0, 90, 180, 270}.
func rotationDelta(from, to int) int {
	d := (to - from) % 360
	if d < 0 {
		d += 360
	}
	return d
}

// rotateCoordsInPlace rewrites xcoords/ycoords and the cell dimensions to
// express the same screen at a new orientation, by swapping/reflecting the
// arrays rather than regenerating them (spec.md §4.1, "Rotation
// normalization"). delta must be one of 90, 180, 270.
func rotateCoordsInPlace(s *Screen, delta int) {
	switch delta {
	case 90:
		for i := range s.XCoords {
			s.XCoords[i], s.YCoords[i] = s.YCoords[i], s.XDims-1-s.XCoords[i]
		}
		s.XDims, s.YDims = s.YDims, s.XDims
		s.EXDims, s.EYDims = s.EYDims, s.EXDims
	case 180:
		for i := range s.XCoords {
			s.XCoords[i] = s.XDims - 1 - s.XCoords[i]
			s.YCoords[i] = s.YDims - 1 - s.YCoords[i]
		}
	case 270:
		for i := range s.XCoords {
			s.XCoords[i], s.YCoords[i] = s.YDims-1-s.YCoords[i], s.XCoords[i]
		}
		s.XDims, s.YDims = s.YDims, s.XDims
		s.EXDims, s.EYDims = s.EYDims, s.EXDims
	default:
		return
	}
	s.Rotation = (s.Rotation + delta) % 360
	for i := range s.HalfYs {
		s.HalfYs[i] = 0
	}
	s.HalfType = ClassifyHalftoneType(s.CellBasis)
}

// RotateThreshold rotates a threshold screen's coordinate arrays in place
// to the absolute orientation theta (a multiple of 90), measured from the
// orientation the arrays were generated in. Rotating to theta and then to
// theta' therefore gives the same arrays as rotating directly to theta'.
func RotateThreshold(s *Screen, theta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delta := rotationDelta(s.Rotation, theta)
	rotateCoordsInPlace(s, delta)
}

// coordsEqual compares two coordinate arrays element-by-element, used by
// post-coordinate equivalence (spec.md §4.1).
func coordsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// postEquivalent compares two screens after their coordinate arrays exist:
// all rendering parameters must match and coordinates/thresholds must be
// bit-identical after rotation normalization of `candidate` to `target`'s
// orientation (spec.md §4.1).
func postEquivalent(target, candidate *Screen) bool {
	if target.CellBasis != candidate.CellBasis {
		return false
	}
	if !target.equivParams().preEquivalent(candidate.equivParams()) {
		return false
	}
	delta := rotationDelta(candidate.Rotation, target.Rotation)
	cx, cy := candidate.XCoords, candidate.YCoords
	if delta != 0 {
		tmp := &Screen{CellBasis: candidate.CellBasis,
			XCoords: append([]int(nil), candidate.XCoords...),
			YCoords: append([]int(nil), candidate.YCoords...),
			Rotation: candidate.Rotation, EXDims: candidate.EXDims, EYDims: candidate.EYDims}
		rotateCoordsInPlace(tmp, delta)
		cx, cy = tmp.XCoords, tmp.YCoords
	}
	if !coordsEqual(target.XCoords, cx) || !coordsEqual(target.YCoords, cy) {
		return false
	}
	if len(target.ThreshXfer) != len(candidate.ThreshXfer) {
		return false
	}
	for i := range target.ThreshXfer {
		if target.ThreshXfer[i] != candidate.ThreshXfer[i] {
			return false
		}
	}
	return true
}
