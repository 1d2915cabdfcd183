package schema

import "testing"

func TestBoxOverlaps(t *testing.T) {

	a := Box{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}

	cases := []struct {
		name   string
		other  Box
		expect bool
	}{
		{"partial", Box{MinX: 50, MinY: 50, MaxX: 150, MaxY: 150}, true},
		{"inside", Box{MinX: 10, MinY: 10, MaxX: 20, MaxY: 20}, true},
		{"touching edge", Box{MinX: 100, MinY: 0, MaxX: 200, MaxY: 100}, false},
		{"touching corner", Box{MinX: 100, MinY: 100, MaxX: 200, MaxY: 200}, false},
		{"apart", Box{MinX: 300, MinY: 0, MaxX: 400, MaxY: 100}, false},
		{"x only", Box{MinX: 50, MinY: 200, MaxX: 150, MaxY: 300}, false},
	}

	for _, c := range cases {
		if got := a.Overlaps(c.other); got != c.expect {
			t.Errorf("%s: expected %v, got %v", c.name, c.expect, got)
		}
		if got := c.other.Overlaps(a); got != c.expect {
			t.Errorf("%s (swapped): expected %v, got %v", c.name, c.expect, got)
		}
	}
}

func TestBoxContainsIsClosed(t *testing.T) {

	b := Box{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}

	for _, p := range [][2]float64{{0, 0}, {10, 10}, {10, 0}, {5, 5}} {
		if !b.Contains(p[0], p[1]) {
			t.Errorf("expected %v inside %s", p, b)
		}
	}
	if b.Contains(10.0001, 5) {
		t.Errorf("point right of the box reported inside")
	}
	if !b.Grow(0.01).Contains(10.0001, 5) {
		t.Errorf("grown box should contain the point")
	}
}

func TestBoundsMorph(t *testing.T) {

	b := EmptyBounds()
	if !b.IsEmpty() {
		t.Fatalf("fresh bounds should be empty")
	}

	if !b.Morph(Vector{X: 1, Y: 2, Z: 3}) {
		t.Errorf("first point must change empty bounds")
	}
	if b.Morph(Vector{X: 1, Y: 2, Z: 3}) {
		t.Errorf("same point must not change bounds")
	}
	b.Morph(Vector{X: -1, Y: 5, Z: 0})

	want := Bounds{Min: Vector{X: -1, Y: 2, Z: 0}, Max: Vector{X: 1, Y: 5, Z: 3}}
	if b != want {
		t.Errorf("expected %+v, got %+v", want, b)
	}

	merged := EmptyBounds()
	merged.Merge(EmptyBounds())
	if !merged.IsEmpty() {
		t.Errorf("merging empty bounds must keep them empty")
	}
	merged.Merge(b)
	if merged != b {
		t.Errorf("expected %+v after merge, got %+v", b, merged)
	}
}

func TestPointFormatRecordSize(t *testing.T) {

	expected := map[PointFormat]int{
		XYZFormat:             12,
		XYZIntensityFormat:    14,
		XYZIntensityRGBFormat: 20,
	}

	for f, size := range expected {
		if f.RecordSize() != size {
			t.Errorf("%s: expected %d bytes, got %d", f, size, f.RecordSize())
		}
	}

	if PointFormat(3).Valid() {
		t.Errorf("format 3 should not be valid")
	}
}
