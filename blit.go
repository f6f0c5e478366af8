// blit.go - Blit Engine: dispatch table, span blit, and cell-bit ops

// Implements the bulk of spec.md §4.6. Grounded on video_chip.go's
// dirty-region blit loop (markRegionDirty / refreshLoop: compute byte
// offsets, walk a rectangular region, write through a small set of
// specialized paths) generalized to the halftype x clipmode x depth
// dispatch table spec.md describes. DESIGN NOTES §9's "first invocation
// installs a specialized slice" replaces the teacher lineage's function-
// pointer rewriting with a table lookup performed once and cached on the
// RenderState.
package halftone

// ClipMode selects whether and how a blit consults a clip mask.
type ClipMode int

const (
	ClipNone ClipMode = iota
	ClipRect
	ClipComplex
)

func (m ClipMode) String() string {
	switch m {
	case ClipNone:
		return "None"
	case ClipRect:
		return "Rect"
	case ClipComplex:
		return "Complex"
	default:
		return "Unknown"
	}
}

// Tone is the quantised color-channel state a span is classified into
// before dispatch, spec.md §4.6's self-modifying blit's three states.
type Tone int

const (
	ToneMid Tone = iota // halftoned: consult the cached form
	ToneMin             // solid black: area1fill, no cell lookup
	ToneMax             // solid white: no-op
)

// QuantizeTone classifies a tint against a screen's notones range,
// implementing spec.md §8's boundary case: tint 0 is always white, tint
// notones is always black, detected before any cache lookup happens.
func QuantizeTone(tint, notones int) Tone {
	switch {
	case tint <= 0:
		return ToneMax
	case tint >= notones:
		return ToneMin
	default:
		return ToneMid
	}
}

// spanBlitFunc renders one scanline segment [xs, xe] of row y from src
// into dst, honoring the clip mask when non-nil.
type spanBlitFunc func(dst *Form, src *Form, s *Screen, y, xs, xe int, clip ClipMask)

// ClipMask provides per-pixel clip testing for ClipComplex spans. A nil
// ClipMask is equivalent to ClipNone.
type ClipMask interface {
	// Test reports whether pixel (x, y) is inside the clip.
	Test(x, y int) bool
}

// RectClip implements ClipMask for an axis-aligned clip rectangle
// (ClipRect mode).
type RectClip struct{ X0, Y0, X1, Y1 int }

func (c RectClip) Test(x, y int) bool {
	return x >= c.X0 && x < c.X1 && y >= c.Y0 && y < c.Y1
}

// dispatchKey indexes the blit dispatch table.
type dispatchKey struct {
	halftype HalftoneType
	clip     ClipMode
	depth    DepthShift
}

// spanDispatch is the halftype x clipmode x depth table spec.md §4.6
// describes. It is populated once in init() rather than rewritten per
// call; the "self-modifying" behaviour spec.md names lives in
// RenderState.blitSpan's first-call cache instead (see below).
var spanDispatch = map[dispatchKey]spanBlitFunc{}

func registerSpan(h HalftoneType, c ClipMode, d DepthShift, fn spanBlitFunc) {
	spanDispatch[dispatchKey{h, c, d}] = fn
}

func init() {
	for _, d := range []DepthShift{Depth1, Depth2, Depth4} {
		registerSpan(Special, ClipNone, d, blitSpanSpecial)
		registerSpan(Special, ClipRect, d, clipped(blitSpanSpecial))
		registerSpan(Special, ClipComplex, d, clipped(blitSpanSpecial))

		registerSpan(OneLessWord, ClipNone, d, blitSpanOneLessWord)
		registerSpan(OneLessWord, ClipRect, d, clipped(blitSpanOneLessWord))
		registerSpan(OneLessWord, ClipComplex, d, clipped(blitSpanOneLessWord))

		registerSpan(Orthogonal, ClipNone, d, blitSpanConverge)
		registerSpan(Orthogonal, ClipRect, d, clipped(blitSpanConverge))
		registerSpan(Orthogonal, ClipComplex, d, clipped(blitSpanConverge))

		registerSpan(General, ClipNone, d, blitSpanConverge)
		registerSpan(General, ClipRect, d, clipped(blitSpanConverge))
		registerSpan(General, ClipComplex, d, clipped(blitSpanConverge))

		registerSpan(SlowGeneral, ClipNone, d, blitSpanConverge)
		registerSpan(SlowGeneral, ClipRect, d, clipped(blitSpanConverge))
		registerSpan(SlowGeneral, ClipComplex, d, clipped(blitSpanConverge))
	}
}

// clipped wraps a span blit so that pixels failing the clip mask's Test
// are skipped, the ClipComplex/ClipRect variant of every halftype.
func clipped(fn spanBlitFunc) spanBlitFunc {
	return func(dst *Form, src *Form, s *Screen, y, xs, xe int, clip ClipMask) {
		if clip == nil {
			fn(dst, src, s, y, xs, xe, nil)
			return
		}
		// Run the tiler one pixel at a time for each pixel passing the
		// clip test, keeping the underlying tilers clip-agnostic.
		for x := xs; x <= xe; x++ {
			if clip.Test(x, y) {
				fn(dst, src, s, y, x, x, nil)
			}
		}
	}
}

// RenderState is one blit call's working context: the target and source
// forms, screen, clip, and a cached dispatch entry installed on first use
// (spec.md §4.6's self-modifying dispatch, expressed as cache-then-reuse
// rather than pointer rewriting).
type RenderState struct {
	Dst   *Form
	Clip  ClipMask
	Mode  ClipMode
	cache spanBlitFunc
	cur   Cursor
}

// NewRenderState constructs a RenderState targeting dst with the given
// clip mode/mask.
func NewRenderState(dst *Form, mode ClipMode, clip ClipMask) *RenderState {
	return &RenderState{Dst: dst, Mode: mode, Clip: clip}
}

// BlitSpan implements spec.md §6's blit_span entry point: fill row y,
// columns xs..xe inclusive of rs.Dst, from s's form for tint on DL dl.
// The tone is quantised first (spec.md's self-modifying dispatch): Max
// tones are a no-op, Min tones solid-fill without touching the cache, and
// only Mid tones resolve and consult a cached cell form.
func (e *Engine) BlitSpan(rs *RenderState, s *Screen, dl EraseNr, tint int, y, xs, xe int) error {
	switch QuantizeTone(tint, s.Notones) {
	case ToneMax:
		return nil
	case ToneMin:
		fillSpanSolid(rs.Dst, y, xs, xe, s.DepthShift, true)
		return nil
	}

	f, ok := s.GetForm(dl, tint)
	if !ok {
		return ErrInvalidConfiguration
	}
	if f == nil {
		var err error
		f, err = e.resolveForm(s, dl, tint)
		if err != nil {
			return err
		}
	}

	if rs.cache == nil {
		rs.cache = spanDispatch[dispatchKey{s.HalfType, rs.Mode, s.DepthShift}]
		if rs.cache == nil {
			return ErrInvalidConfiguration
		}
	}
	rs.cache(rs.Dst, f, s, y, xs, xe, rs.Clip)
	return nil
}

// BlitBlock implements blit_block: repeat BlitSpan for every row in
// [ys, ye].
func (e *Engine) BlitBlock(rs *RenderState, s *Screen, dl EraseNr, tint int, ys, ye, xs, xe int) error {
	for y := ys; y <= ye; y++ {
		if err := e.BlitSpan(rs, s, dl, tint, y, xs, xe); err != nil {
			return err
		}
	}
	return nil
}

// AreaFill implements area_fill: flood rs.Dst with a solid pedestal, black
// (area1fill) or white (area0fill) as the black argument selects, used for
// the trivial Max/Min tones without a per-row loop.
func (e *Engine) AreaFill(rs *RenderState, black bool) {
	if black {
		rs.Dst.fillArea1()
	} else {
		rs.Dst.fillArea0()
	}
}

func fillSpanSolid(dst *Form, y, xs, xe int, depth DepthShift, black bool) {
	bpp := depth.BitsPerPixel()
	val := byte(0)
	if black {
		val = byte((1 << uint(bpp)) - 1)
	}
	for x := xs; x <= xe; x++ {
		setPixel(dst, x, y, depth, val)
	}
}

// --- pixel-level helpers shared by the tilers ---

// pixelBitOffset returns the byte and bit-within-byte offset for pixel x
// at the given depth, spec.md §4.6 step 1's "byte-level offsets from
// x + x_sep_position and the depth shift".
func pixelBitOffset(x int, depth DepthShift) (byteOff int, bitOff uint) {
	bpp := depth.BitsPerPixel()
	bitPos := x * bpp
	return bitPos / 8, uint(bitPos % 8)
}

func getPixel(f *Form, x, y int, depth DepthShift) byte {
	bo, shift := pixelBitOffset(x, depth)
	idx := y*f.LineBytes + bo
	if idx < 0 || idx >= len(f.Pixels) {
		return 0
	}
	bpp := depth.BitsPerPixel()
	mask := byte((1 << uint(bpp)) - 1)
	return (f.Pixels[idx] >> shift) & mask
}

func setPixel(f *Form, x, y int, depth DepthShift, val byte) {
	bo, shift := pixelBitOffset(x, depth)
	idx := y*f.LineBytes + bo
	if idx < 0 || idx >= len(f.Pixels) {
		return
	}
	bpp := depth.BitsPerPixel()
	mask := byte((1 << uint(bpp)) - 1)
	f.Pixels[idx] &^= mask << shift
	f.Pixels[idx] |= (val & mask) << shift
}

// --- halftype tilers ---

// blitSpanSpecial implements the Special path: the cell tiles exactly
// across a blit word, so each source row is a single word-rotation of
// row (y mod ydims).
func blitSpanSpecial(dst, src *Form, s *Screen, y, xs, xe int, _ ClipMask) {
	cy := ((y % s.YDims) + s.YDims) % s.YDims
	for x := xs; x <= xe; x++ {
		cx := ((x % s.XDims) + s.XDims) % s.XDims
		v := getPixel(src, cx, cy, s.DepthShift)
		setPixel(dst, x, y, s.DepthShift, v)
	}
}

// blitSpanOneLessWord implements the OneLessWord path: the cell is
// narrower than a blit word but divides it evenly, so a word-sized mask
// rotates by a fixed step per cell repetition (shiftpword).
func blitSpanOneLessWord(dst, src *Form, s *Screen, y, xs, xe int, _ ClipMask) {
	// The dividing-evenly guarantee (validated at insertion by
	// validateCellGeometry) makes this equivalent to the Special tiler at
	// the pixel level; the distinction only matters for the word-at-a-time
	// fast path a production blitter would take.
	blitSpanSpecial(dst, src, s, y, xs, xe, nil)
}

// blitSpanConverge implements the Orthogonal/General/SlowGeneral path:
// locate (cx, cy) for each pixel via the convergence algorithm, exploiting
// locality across the span (spec.md §4.6 step 2).
func blitSpanConverge(dst, src *Form, s *Screen, y, xs, xe int, _ ClipMask) {
	var cur Cursor
	for x := xs; x <= xe; x++ {
		cx, cy, next := findsgnbits(s.CellBasis, cur, x, y)
		cur = next
		v := getPixel(src, cx, cy, s.DepthShift)
		setPixel(dst, x, y, s.DepthShift, v)
	}
}

// --- set_cell_bits / bitexpandform (spec.md §6, called by the Form
// Generator) ---

// setCellBits implements spec.md §6's set_cell_bits: toggle the dot sites
// named by xcoords/ycoords within f's single-cell corner (the top-left
// XDims x YDims region, before bitexpandform has tiled it across the
// form's full EXDims x EYDims extent).
func setCellBits(f *Form, s *Screen, xcoords, ycoords []int, set bool) {
	depth := s.DepthShift
	bpp := depth.BitsPerPixel()
	val := byte(0)
	if set {
		val = byte((1 << uint(bpp)) - 1)
	}
	n := len(xcoords)
	if len(ycoords) < n {
		n = len(ycoords)
	}
	for i := 0; i < n; i++ {
		setPixel(f, xcoords[i], ycoords[i], depth, val)
	}
}

// bitexpandform implements spec.md §6's bitexpandform: replicate the
// single-cell corner written by initForm/regenerateForm across the rest
// of f's EXDims x EYDims buffer, so blit reads never need to wrap modulo
// xdims/ydims within the stored form (the convergence tilers still use
// modulo against the *cell*, but the buffer itself holds a whole number
// of repetitions).
func bitexpandform(f *Form, s *Screen) {
	if s.XDims <= 0 || s.YDims <= 0 {
		return
	}
	depth := s.DepthShift
	for y := 0; y < f.Height; y++ {
		srcY := y % s.YDims
		if y < s.YDims {
			continue // already the source row
		}
		for x := 0; x < f.Width; x++ {
			srcX := x % s.XDims
			v := getPixel(f, srcX, srcY, depth)
			setPixel(f, x, y, depth, v)
		}
	}
	for y := 0; y < s.YDims && y < f.Height; y++ {
		for x := s.XDims; x < f.Width; x++ {
			srcX := x % s.XDims
			v := getPixel(f, srcX, y, depth)
			setPixel(f, x, y, depth, v)
		}
	}
}
