// screen_rotate_test.go - RotateThreshold's involution law

package halftone

import (
	"reflect"
	"testing"
)

// newRotationFixture returns a fresh Screen with a small, deliberately
// asymmetric coordinate set so rotation steps are distinguishable.
func newRotationFixture() *Screen {
	return &Screen{
		CellBasis: CellBasis{XDims: 3, YDims: 2},
		XCoords:   []int{0, 1, 2},
		YCoords:   []int{0, 1, 0},
		EXDims:    3,
		EYDims:    2,
		HalfYs:    make([]int, 2),
	}
}

// TestRotateThresholdInvolution exercises spec.md §8's rotation law:
// rotating to an intermediate orientation and then on to a final one must
// produce the same coordinate arrays, dimensions and rotation as rotating
// directly from the original orientation to the final one.
func TestRotateThresholdInvolution(t *testing.T) {
	viaIntermediate := newRotationFixture()
	RotateThreshold(viaIntermediate, 90)
	RotateThreshold(viaIntermediate, 270)

	direct := newRotationFixture()
	RotateThreshold(direct, 270)

	if viaIntermediate.Rotation != direct.Rotation {
		t.Errorf("rotation: via-intermediate = %d, direct = %d", viaIntermediate.Rotation, direct.Rotation)
	}
	if viaIntermediate.XDims != direct.XDims || viaIntermediate.YDims != direct.YDims {
		t.Errorf("dims: via-intermediate = %dx%d, direct = %dx%d",
			viaIntermediate.XDims, viaIntermediate.YDims, direct.XDims, direct.YDims)
	}
	if !reflect.DeepEqual(viaIntermediate.XCoords, direct.XCoords) {
		t.Errorf("xcoords: via-intermediate = %v, direct = %v", viaIntermediate.XCoords, direct.XCoords)
	}
	if !reflect.DeepEqual(viaIntermediate.YCoords, direct.YCoords) {
		t.Errorf("ycoords: via-intermediate = %v, direct = %v", viaIntermediate.YCoords, direct.YCoords)
	}
}

// TestRotateThresholdFullCircleIsIdentity rotating through all four
// orientations and back to the start must reproduce the original state.
func TestRotateThresholdFullCircleIsIdentity(t *testing.T) {
	s := newRotationFixture()
	origX := append([]int(nil), s.XCoords...)
	origY := append([]int(nil), s.YCoords...)
	origXDims, origYDims := s.XDims, s.YDims

	for _, theta := range []int{90, 180, 270, 0} {
		RotateThreshold(s, theta)
	}

	if s.Rotation != 0 {
		t.Errorf("rotation after full circle = %d, want 0", s.Rotation)
	}
	if s.XDims != origXDims || s.YDims != origYDims {
		t.Errorf("dims after full circle = %dx%d, want %dx%d", s.XDims, s.YDims, origXDims, origYDims)
	}
	if !reflect.DeepEqual(s.XCoords, origX) || !reflect.DeepEqual(s.YCoords, origY) {
		t.Errorf("coords after full circle = (%v, %v), want (%v, %v)", s.XCoords, s.YCoords, origX, origY)
	}
}
