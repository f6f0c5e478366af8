// screen_test.go - Chalftone classification and equivalence

package halftone

import "testing"

func TestClassifyHalftoneType(t *testing.T) {
	cases := []struct {
		name string
		b    CellBasis
		want HalftoneType
	}{
		{"special square power of two", CellBasis{R1: 8, R4: 8, XDims: 8, YDims: 8}, Special},
		{"onelessword, y not power of two", CellBasis{XDims: 8, YDims: 10}, OneLessWord},
		{"orthogonal, wider than a blit word", CellBasis{XDims: 128, YDims: 8}, Orthogonal},
		{"general, skewed, within two words", CellBasis{R1: 7, R2: 3, R3: 5, R4: 11, XDims: 58, YDims: 58}, General},
		{"slow general, skewed, beyond two words", CellBasis{R1: 7, R2: 3, R3: 5, R4: 11, XDims: 200, YDims: 58}, SlowGeneral},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ClassifyHalftoneType(c.b)
			if got != c.want {
				t.Errorf("ClassifyHalftoneType(%+v) = %v, want %v", c.b, got, c.want)
			}
		})
	}
}

func TestValidateCellGeometryRejectsUnevenOneLessWord(t *testing.T) {
	// xdims=10 is classified OneLessWord (rectangular, < BlitWordBits) but
	// does not divide the 64-bit blit word evenly.
	b := CellBasis{XDims: 10, YDims: 12}
	if ClassifyHalftoneType(b) != OneLessWord {
		t.Fatalf("test setup: expected OneLessWord classification, got %v", ClassifyHalftoneType(b))
	}
	if err := validateCellGeometry(b); err == nil {
		t.Errorf("validateCellGeometry(%+v) = nil, want an error", b)
	}
}

func TestValidateCellGeometryAcceptsEvenOneLessWord(t *testing.T) {
	b := CellBasis{XDims: 8, YDims: 10}
	if ClassifyHalftoneType(b) != OneLessWord {
		t.Fatalf("test setup: expected OneLessWord classification, got %v", ClassifyHalftoneType(b))
	}
	if err := validateCellGeometry(b); err != nil {
		t.Errorf("validateCellGeometry(%+v) = %v, want nil", b, err)
	}
}

func TestObjectTypesCompatible(t *testing.T) {
	cases := []struct {
		a, b ObjectType
		want bool
	}{
		{ObjFill, ObjStroke, true},
		{ObjFill, ObjVignette, true},
		{ObjFill, ObjText, false},
		{ObjText, ObjText, true},
		{ObjImage, ObjFill, false},
		{ObjImage, ObjImage, true},
	}
	for _, c := range cases {
		if got := objectTypesCompatible(c.a, c.b); got != c.want {
			t.Errorf("objectTypesCompatible(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
