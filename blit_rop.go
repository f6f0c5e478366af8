// blit_rop.go - PCL raster-operation compositing slices

// Implements spec.md §4.6's "Max/rop blits": OR/AND/XOR/XORNOT slices
// render a span to a scratch line then merge with the target, and a
// bitrop01 wrapper splits a span against an XOR bounding box so the two
// polarities of a 0-1/1-0 ROP region composite correctly. Grounded on
// video_chip.go's double-buffered refresh (render to a scratch buffer,
// merge into the visible one under lock) generalized from a straight copy
// to four bitwise merge operators.
package halftone

// RasterOp identifies one of PCL's raster operations applied while
// compositing a halftoned span onto the output raster.
type RasterOp int

const (
	RopReplace RasterOp = iota
	RopOr
	RopAnd
	RopXor
	RopXorNot
)

func (op RasterOp) String() string {
	switch op {
	case RopOr:
		return "Or"
	case RopAnd:
		return "And"
	case RopXor:
		return "Xor"
	case RopXorNot:
		return "XorNot"
	default:
		return "Replace"
	}
}

// mergeByte applies op between a freshly rendered scratch byte and the
// existing target byte.
func mergeByte(op RasterOp, target, scratch byte) byte {
	switch op {
	case RopOr:
		return target | scratch
	case RopAnd:
		return target & scratch
	case RopXor:
		return target ^ scratch
	case RopXorNot:
		return target ^ ^scratch
	default:
		return scratch
	}
}

// RopBlitSpan implements spec.md §4.6's ht_or_slice/ht_and_slice/
// ht_xor_slice/ht_xornot_slice family: render the span into a scratch
// line, then merge it into rs.Dst with op.
func (e *Engine) RopBlitSpan(rs *RenderState, s *Screen, dl EraseNr, tint int, op RasterOp, y, xs, xe int) error {
	scratch := NewForm(BandBitmap, rs.Dst.Width, 1, s.DepthShift)
	scratchState := NewRenderState(scratch, ClipNone, nil)
	if err := e.BlitSpan(scratchState, s, dl, tint, 0, xs, xe); err != nil {
		return err
	}
	mergeSpan(rs.Dst, scratch, s.DepthShift, y, 0, xs, xe, op)
	return nil
}

// mergeSpan merges row scratchY of scratch into row dstY of dst over
// [xs, xe] using op, pixel-at-a-time since depths below 8 bits pack
// multiple pixels per byte and the merge must respect pixel boundaries.
func mergeSpan(dst, scratch *Form, depth DepthShift, dstY, scratchY, xs, xe int, op RasterOp) {
	for x := xs; x <= xe; x++ {
		sv := getPixel(scratch, x, scratchY, depth)
		tv := getPixel(dst, x, dstY, depth)
		setPixel(dst, x, dstY, depth, mergeByte(op, tv, sv))
	}
}

// BitRop01 implements spec.md §8 scenario 6: PCL's XOR-black-XOR idiom
// where an XOR region's bounding box is a strict sub-rectangle of the
// object's bounding box. It splits [xs, xe] into the portions outside and
// inside xorBBox and dispatches each to the correct polarity: inside uses
// the black (bit-set, RopXor) slice, outside uses the white (bit-clear,
// RopXorNot) slice.
func (e *Engine) BitRop01(rs *RenderState, s *Screen, dl EraseNr, tint int, y, xs, xe int, xorBBox RectClip) error {
	if y < xorBBox.Y0 || y >= xorBBox.Y1 || xorBBox.X1 <= xorBBox.X0 {
		// The XOR region doesn't touch this row at all; the whole span is
		// "outside".
		return e.RopBlitSpan(rs, s, dl, tint, RopXorNot, y, xs, xe)
	}

	// Outside-left.
	if xs < xorBBox.X0 {
		end := xorBBox.X0 - 1
		if end > xe {
			end = xe
		}
		if err := e.RopBlitSpan(rs, s, dl, tint, RopXorNot, y, xs, end); err != nil {
			return err
		}
	}
	// Inside.
	inStart, inEnd := xs, xe
	if inStart < xorBBox.X0 {
		inStart = xorBBox.X0
	}
	if inEnd > xorBBox.X1-1 {
		inEnd = xorBBox.X1 - 1
	}
	if inStart <= inEnd {
		if err := e.RopBlitSpan(rs, s, dl, tint, RopXor, y, inStart, inEnd); err != nil {
			return err
		}
	}
	// Outside-right.
	if xe >= xorBBox.X1 {
		start := xorBBox.X1
		if start < xs {
			start = xs
		}
		if err := e.RopBlitSpan(rs, s, dl, tint, RopXorNot, y, start, xe); err != nil {
			return err
		}
	}
	return nil
}
