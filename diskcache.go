// diskcache.go - Optional disk persistence for generated screens

// Implements spec.md §6's "Persisted state: optional disk cache of
// generated screens keyed by spot-function name + accurate-flag + color +
// detail; format is opaque to this spec except that it must round-trip
// exactly." Per SPEC_FULL.md Open Question 3, persistence is factored
// entirely out of equivalence search (screen.go never consults it); this
// file only encodes/decodes a Screen's coordinate state. Grounded on
// ay_z80_parser.go's binary encode/decode helpers (readU16/readI16) built
// directly on encoding/binary.BigEndian, matching its no-framework
// approach to serialization.
package halftone

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DiskCacheKey identifies one persisted screen definition.
type DiskCacheKey struct {
	SpotName string
	Accurate bool
	Color    string
	Detail   int
}

// fileName derives a filesystem-safe cache entry name from the key. The
// mapping only needs to be stable and collision-free for the lifetime of a
// single cache directory, not human-readable.
func (k DiskCacheKey) fileName() string {
	return fmt.Sprintf("%s-%s-%d-%v.htc", k.SpotName, k.Color, k.Detail, k.Accurate)
}

const diskCacheMagic uint32 = 0x48544348 // "HTCH"

// DirCache is a directory-backed disk cache keyed by DiskCacheKey, the
// optional persistence layer named but left unimplemented by spec.md §6.
// One file per key; SaveScreen/LoadScreenDef supply the byte format.
type DirCache struct {
	Dir string
}

// NewDirCache returns a DirCache rooted at dir. The directory is created on
// first Save, not here, matching the teacher's lazy-create style for
// optional output directories (see its savestate path in debug_monitor.go).
func NewDirCache(dir string) *DirCache {
	return &DirCache{Dir: dir}
}

// Save persists s under key, overwriting any existing entry.
func (c *DirCache) Save(key DiskCacheKey, s *Screen) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(c.Dir, key.fileName())
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := SaveScreen(f, s); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads back the screen definition saved under key. It returns
// ErrScreenNotFound if no entry exists, distinguishing a cache miss from a
// corrupt file (which surfaces the underlying decode error instead).
func (c *DirCache) Load(key DiskCacheKey) (ScreenDef, error) {
	path := filepath.Join(c.Dir, key.fileName())
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ScreenDef{}, ErrScreenNotFound
		}
		return ScreenDef{}, err
	}
	defer f.Close()
	def, err := LoadScreenDef(f)
	if err != nil {
		return ScreenDef{}, err
	}
	def.SpotName = key.SpotName
	def.ColorantName = key.Color
	return def, nil
}

// SaveScreen writes s's coordinate arrays and geometry to w in a format
// private to this package; only round-trip fidelity is guaranteed, per
// spec.md §6.
func SaveScreen(w io.Writer, s *Screen) error {
	bw := bufio.NewWriter(w)
	fields := []int64{
		int64(diskCacheMagic),
		int64(s.R1), int64(s.R2), int64(s.R3), int64(s.R4),
		int64(s.XDims), int64(s.YDims), int64(s.EXDims), int64(s.EYDims),
		int64(s.SupercellActual),
		int64(s.Rotation),
		int64(s.DepthShift),
		boolToInt64(s.Accurate), boolToInt64(s.DotCentered), boolToInt64(s.MultiThreshold),
		int64(len(s.ThreshXfer)),
	}
	for _, f := range fields {
		if err := binary.Write(bw, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	if err := writeIntSlice(bw, s.XCoords); err != nil {
		return err
	}
	if err := writeIntSlice(bw, s.YCoords); err != nil {
		return err
	}
	if err := writeIntSlice(bw, s.ThreshXfer); err != nil {
		return err
	}
	return bw.Flush()
}

// LoadScreenDef reads a persisted screen back into a ScreenDef whose
// GenerateCoords simply replays the stored arrays, never re-deriving them
// from a spot function. The returned def's SpotName/ColorantName fields
// are left empty for the caller to fill in (DirCache.Load fills them from
// its key) since the on-disk format stores only geometry.
func LoadScreenDef(r io.Reader) (ScreenDef, error) {
	br := bufio.NewReader(r)
	var magic int64
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return ScreenDef{}, err
	}
	if uint32(magic) != diskCacheMagic {
		return ScreenDef{}, ErrInvalidConfiguration
	}
	var r1, r2, r3, r4, xdims, ydims, exdims, eydims, supercell, rotation, depth int64
	var accurate, dotCentered, multiThreshold, threshLen int64
	for _, p := range []*int64{&r1, &r2, &r3, &r4, &xdims, &ydims, &exdims, &eydims,
		&supercell, &rotation, &depth, &accurate, &dotCentered, &multiThreshold, &threshLen} {
		if err := binary.Read(br, binary.LittleEndian, p); err != nil {
			return ScreenDef{}, err
		}
	}
	xcoords, err := readIntSlice(br)
	if err != nil {
		return ScreenDef{}, err
	}
	ycoords, err := readIntSlice(br)
	if err != nil {
		return ScreenDef{}, err
	}
	thresh, err := readIntSlice(br)
	if err != nil {
		return ScreenDef{}, err
	}

	def := ScreenDef{
		CellBasis:      CellBasis{R1: int(r1), R2: int(r2), R3: int(r3), R4: int(r4), XDims: int(xdims), YDims: int(ydims)},
		EXDims:         int(exdims),
		EYDims:         int(eydims),
		Rotation:       int(rotation),
		DepthShift:     DepthShift(depth),
		Accurate:       accurate != 0,
		DotCentered:    dotCentered != 0,
		MultiThreshold: multiThreshold != 0,
	}
	def.GenerateCoords = func() (xc, yc, tx, hy []int, err error) {
		hy = make([]int, def.YDims)
		for y := 0; y < def.YDims; y++ {
			hy[y] = y * lineBytesFor(def.XDims, Depth1)
		}
		return xcoords, ycoords, thresh, hy, nil
	}
	return def, nil
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func writeIntSlice(w io.Writer, s []int) error {
	if err := binary.Write(w, binary.LittleEndian, int64(len(s))); err != nil {
		return err
	}
	for _, v := range s {
		if err := binary.Write(w, binary.LittleEndian, int64(v)); err != nil {
			return err
		}
	}
	return nil
}

func readIntSlice(r io.Reader) ([]int, error) {
	var n int64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	out := make([]int, n)
	for i := range out {
		var v int64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, err
		}
		out[i] = int(v)
	}
	return out, nil
}
