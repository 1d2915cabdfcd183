package schema

import (
	"fmt"
	"math"

	"github.com/dot5enko/pointcloud-retiler/bits"
)

// Box is an axis aligned 2D bounding box. Tiling only looks at X and Y.
type Box struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

func (b Box) Valid() bool {
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY
}

func (b Box) Width() float64 {
	return b.MaxX - b.MinX
}

func (b Box) Height() float64 {
	return b.MaxY - b.MinY
}

// Overlaps reports whether both boxes share an area larger than zero.
// Boxes that only touch along an edge or a corner do not overlap.
func (b Box) Overlaps(other Box) bool {
	return b.MinX < other.MaxX && other.MinX < b.MaxX &&
		b.MinY < other.MaxY && other.MinY < b.MaxY
}

// Contains is closed on every side.
func (b Box) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Grow returns b extended by eps on every side.
func (b Box) Grow(eps float64) Box {
	return Box{MinX: b.MinX - eps, MinY: b.MinY - eps, MaxX: b.MaxX + eps, MaxY: b.MaxY + eps}
}

func (b Box) Union(other Box) Box {
	return Box{
		MinX: math.Min(b.MinX, other.MinX),
		MinY: math.Min(b.MinY, other.MinY),
		MaxX: math.Max(b.MaxX, other.MaxX),
		MaxY: math.Max(b.MaxY, other.MaxY),
	}
}

func (b Box) String() string {
	return fmt.Sprintf("[%g,%g]-[%g,%g]", b.MinX, b.MinY, b.MaxX, b.MaxY)
}

type Vector struct {
	X float64
	Y float64
	Z float64
}

// Bounds is the 3D extent stored in a point cloud header.
type Bounds struct {
	Min Vector
	Max Vector
}

const BoundsSize = 6 * 8

// EmptyBounds is the identity for Morph: any point extends it.
func EmptyBounds() Bounds {
	return Bounds{
		Min: Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max: Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
}

func (b Bounds) IsEmpty() bool {
	return b.Min.X > b.Max.X
}

// Morph extends b so it contains p and reports whether anything changed.
func (b *Bounds) Morph(p Vector) bool {

	changes := 0

	if p.X < b.Min.X {
		b.Min.X = p.X
		changes++
	}
	if p.Y < b.Min.Y {
		b.Min.Y = p.Y
		changes++
	}
	if p.Z < b.Min.Z {
		b.Min.Z = p.Z
		changes++
	}
	if p.X > b.Max.X {
		b.Max.X = p.X
		changes++
	}
	if p.Y > b.Max.Y {
		b.Max.Y = p.Y
		changes++
	}
	if p.Z > b.Max.Z {
		b.Max.Z = p.Z
		changes++
	}

	return changes != 0
}

// Merge extends b by other. Empty bounds are ignored.
func (b *Bounds) Merge(other Bounds) {
	if other.IsEmpty() {
		return
	}
	b.Morph(other.Min)
	b.Morph(other.Max)
}

func (b Bounds) Box() Box {
	return Box{MinX: b.Min.X, MinY: b.Min.Y, MaxX: b.Max.X, MaxY: b.Max.Y}
}

func (b *Bounds) FromBytes(reader *bits.BitsReader) error {

	b.Min.X = reader.ReadF64()
	b.Min.Y = reader.ReadF64()
	b.Min.Z = reader.ReadF64()
	b.Max.X = reader.ReadF64()
	b.Max.Y = reader.ReadF64()
	b.Max.Z = reader.ReadF64()

	return reader.Err()
}

func (b *Bounds) WriteTo(bw *bits.BitWriter) int {

	bw.PutFloat64(b.Min.X)
	bw.PutFloat64(b.Min.Y)
	bw.PutFloat64(b.Min.Z)
	bw.PutFloat64(b.Max.X)
	bw.PutFloat64(b.Max.Y)
	bw.PutFloat64(b.Max.Z)

	return bw.Position()
}
