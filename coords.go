// coords.go - Coordinate-array generation from a registered spot function

// Supplies the GenerateCoords callback ScreenCache.Insert needs: rank every
// dot site in a supercell by spot value and return coordinate arrays
// ordered from whitest to blackest, the ordering init_form/regenerate_form
// rely on when toggling the first/last `level` sites (spec.md §4.4).
// Grounded on the teacher's ahx_parser.go-style table-construction helpers
// (build a slice, sort it, hand back the result) rather than anything
// blit-specific.
package halftone

import "sort"

// dotSite is one candidate dot position and its ranked spot value.
type dotSite struct {
	x, y int
	val  float64
}

// GenerateCoordsFromSpot builds xcoords/ycoords/halfys for a cell of the
// given basis using fn to rank every integer site in [0,xdims)x[0,ydims)
// by blackness, ascending (whitest first). dotCentered offsets sample
// points to pixel centers. When supercellActual exceeds xdims*ydims the
// basic cell is tiled to supply supercellActual sites (screen angles that
// don't tile on a single cell); a non-positive supercellActual means
// xdims*ydims.
func GenerateCoordsFromSpot(fn SpotFunction, b CellBasis, supercellActual int, dotCentered bool) (xcoords, ycoords, halfYs []int, err error) {
	cellSites := b.XDims * b.YDims
	if supercellActual <= 0 {
		supercellActual = cellSites
	}

	sites := make([]dotSite, 0, supercellActual)
	for i := 0; i < supercellActual; i++ {
		x := i % b.XDims
		y := (i / b.XDims) % b.YDims
		fx, fy := sampleCoord(x, b.XDims, dotCentered), sampleCoord(y, b.YDims, dotCentered)
		v, serr := fn(fx, fy)
		if serr != nil {
			return nil, nil, nil, serr
		}
		sites = append(sites, dotSite{x: x, y: y, val: v})
	}
	sort.SliceStable(sites, func(i, j int) bool { return sites[i].val < sites[j].val })

	xcoords = make([]int, len(sites))
	ycoords = make([]int, len(sites))
	for i, s := range sites {
		xcoords[i] = s.x
		ycoords[i] = s.y
	}

	halfYs = make([]int, b.YDims)
	for y := 0; y < b.YDims; y++ {
		halfYs[y] = y * lineBytesFor(b.XDims, Depth1)
	}
	return xcoords, ycoords, halfYs, nil
}

func sampleCoord(v, dim int, centered bool) float64 {
	if dim <= 0 {
		return 0
	}
	f := float64(v) / float64(dim)
	if centered {
		f += 0.5 / float64(dim)
	}
	return f
}
