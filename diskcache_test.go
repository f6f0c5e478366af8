// diskcache_test.go - Disk cache byte-format and keyed-directory round trips

package halftone

import (
	"bytes"
	"path/filepath"
	"testing"
)

func sampleDiskScreen() *Screen {
	return &Screen{
		CellBasis:      CellBasis{R1: 3, R2: 1, R3: 1, R4: 3, XDims: 4, YDims: 4},
		EXDims:         8,
		EYDims:         8,
		XCoords:        []int{0, 1, 2, 3, 0, 1, 2, 3},
		YCoords:        []int{0, 0, 1, 1, 2, 2, 3, 3},
		SupercellActual: 8,
		ThreshXfer:     []int{0, 32, 64, 96, 128, 160, 192, 224, 255},
		Rotation:       90,
		DepthShift:     Depth1,
		Accurate:       true,
		DotCentered:    false,
		MultiThreshold: true,
	}
}

func TestSaveScreenRoundTrip(t *testing.T) {
	s := sampleDiskScreen()
	var buf bytes.Buffer
	if err := SaveScreen(&buf, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	def, err := LoadScreenDef(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if def.R1 != s.R1 || def.R2 != s.R2 || def.R3 != s.R3 || def.R4 != s.R4 {
		t.Errorf("cell basis rx mismatch: got %+v, want geometry from %+v", def.CellBasis, s.CellBasis)
	}
	if def.XDims != s.XDims || def.YDims != s.YDims {
		t.Errorf("cell basis dims mismatch: got %+v", def.CellBasis)
	}
	if def.EXDims != s.EXDims || def.EYDims != s.EYDims {
		t.Errorf("extended dims mismatch: got (%d,%d), want (%d,%d)", def.EXDims, def.EYDims, s.EXDims, s.EYDims)
	}
	if def.Rotation != s.Rotation {
		t.Errorf("rotation mismatch: got %d, want %d", def.Rotation, s.Rotation)
	}
	if def.DepthShift != s.DepthShift {
		t.Errorf("depth mismatch: got %v, want %v", def.DepthShift, s.DepthShift)
	}
	if def.Accurate != s.Accurate || def.DotCentered != s.DotCentered || def.MultiThreshold != s.MultiThreshold {
		t.Errorf("flag mismatch: got accurate=%v dotCentered=%v multiThreshold=%v",
			def.Accurate, def.DotCentered, def.MultiThreshold)
	}

	xc, yc, thresh, _, err := def.GenerateCoords()
	if err != nil {
		t.Fatalf("replayed GenerateCoords: %v", err)
	}
	if !intSlicesEqual(xc, s.XCoords) {
		t.Errorf("xcoords mismatch: got %v, want %v", xc, s.XCoords)
	}
	if !intSlicesEqual(yc, s.YCoords) {
		t.Errorf("ycoords mismatch: got %v, want %v", yc, s.YCoords)
	}
	if !intSlicesEqual(thresh, s.ThreshXfer) {
		t.Errorf("threshold table mismatch: got %v, want %v", thresh, s.ThreshXfer)
	}
}

func TestLoadScreenDefRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	if _, err := LoadScreenDef(&buf); err != ErrInvalidConfiguration {
		t.Errorf("expected ErrInvalidConfiguration for a bad magic number, got %v", err)
	}
}

func TestDirCacheSaveLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "htcache")
	c := NewDirCache(dir)
	key := DiskCacheKey{SpotName: "Euclidean", Accurate: true, Color: "K", Detail: 150}

	s := sampleDiskScreen()
	if err := c.Save(key, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	def, err := c.Load(key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if def.SpotName != key.SpotName || def.ColorantName != key.Color {
		t.Errorf("load should stamp the key's spot/color onto the def, got spot=%q color=%q", def.SpotName, def.ColorantName)
	}
	if def.XDims != s.XDims || def.YDims != s.YDims {
		t.Errorf("geometry lost across DirCache round trip: got %+v", def.CellBasis)
	}
}

func TestDirCacheLoadMissReturnsScreenNotFound(t *testing.T) {
	c := NewDirCache(t.TempDir())
	_, err := c.Load(DiskCacheKey{SpotName: "Nope"})
	if err != ErrScreenNotFound {
		t.Errorf("expected ErrScreenNotFound for a missing entry, got %v", err)
	}
}

func intSlicesEqual(a, b []int) bool {
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
