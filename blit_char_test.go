// blit_char_test.go - Character-cell blit clipping against the destination

package halftone

import "testing"

// glyphForm builds a small 1-bit source form with every pixel set, the
// simplest fixture for checking where a char blit does and doesn't write.
func glyphForm(w, h int) *Form {
	f := NewForm(CharCache, w, h, Depth1)
	f.fillArea1()
	return f
}

// TestBlitCharWritesWithinDestinationBounds exercises the case the bounds
// check must get right: a glyph cell placed so part of it falls outside a
// destination raster smaller than the glyph itself. Only columns/rows that
// land inside dst may be written.
func TestBlitCharWritesWithinDestinationBounds(t *testing.T) {
	e := &Engine{}
	s := &Screen{DepthShift: Depth1}

	glyph := glyphForm(8, 8)
	dst := NewForm(BandBitmap, 4, 4, Depth1)
	rs := NewRenderState(dst, ClipNone, nil)

	if err := e.BlitChar(rs, s, glyph, nil, 0, 0, 8, 8); err != nil {
		t.Fatalf("blit char: %v", err)
	}

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if v := getPixel(dst, x, y, Depth1); v != 1 {
				t.Errorf("in-bounds pixel (%d,%d) should be set from the glyph, got %d", x, y, v)
			}
		}
	}
}

// TestBlitCharRespectsGlyphExtent ensures columns/rows beyond the glyph's
// own width/height are left untouched even when the destination is large
// enough to hold them, exactly the bounds mix-up blitCharGeneral once had.
func TestBlitCharRespectsGlyphExtent(t *testing.T) {
	e := &Engine{}
	s := &Screen{DepthShift: Depth1}

	glyph := glyphForm(2, 2)
	dst := NewForm(BandBitmap, 8, 8, Depth1)
	dst.fillArea0()
	rs := NewRenderState(dst, ClipNone, nil)

	if err := e.BlitChar(rs, s, glyph, nil, 1, 1, 2, 2); err != nil {
		t.Fatalf("blit char: %v", err)
	}

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			want := byte(0)
			if x >= 1 && x < 3 && y >= 1 && y < 3 {
				want = 1
			}
			if v := getPixel(dst, x, y, Depth1); v != want {
				t.Errorf("pixel (%d,%d) = %d, want %d", x, y, v, want)
			}
		}
	}
}

// TestBlitCharMaskSuppressesPixels confirms a zero mask bit blocks the
// corresponding glyph pixel from reaching the destination.
func TestBlitCharMaskSuppressesPixels(t *testing.T) {
	e := &Engine{}
	s := &Screen{DepthShift: Depth1}

	glyph := glyphForm(2, 2)
	mask := NewForm(CharCache, 2, 2, Depth1)
	setPixel(mask, 0, 0, Depth1, 1)
	// (1,0), (0,1), (1,1) stay zero: masked out.

	dst := NewForm(BandBitmap, 2, 2, Depth1)
	rs := NewRenderState(dst, ClipNone, nil)

	if err := e.BlitChar(rs, s, glyph, mask, 0, 0, 2, 2); err != nil {
		t.Fatalf("blit char: %v", err)
	}

	if v := getPixel(dst, 0, 0, Depth1); v != 1 {
		t.Errorf("unmasked pixel (0,0) should be set, got %d", v)
	}
	for _, p := range [][2]int{{1, 0}, {0, 1}, {1, 1}} {
		if v := getPixel(dst, p[0], p[1], Depth1); v != 0 {
			t.Errorf("masked pixel (%d,%d) should stay clear, got %d", p[0], p[1], v)
		}
	}
}
