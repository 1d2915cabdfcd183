// Package grid maps world coordinates onto integer tile indices.
//
// The origin is pinned to (0,0) so the same tile size always produces the same
// indices, whatever subset of a dataset is being processed.
package grid

import (
	"fmt"
	"math"

	"github.com/dot5enko/pointcloud-retiler/errs"
	"github.com/dot5enko/pointcloud-retiler/schema"
)

// TileIndex identifies one tile cell; components may be negative.
type TileIndex struct {
	X int
	Y int
}

func (t TileIndex) String() string {
	return fmt.Sprintf("(%d,%d)", t.X, t.Y)
}

// FileName is the output file name of the tile, ext without the dot.
func (t TileIndex) FileName(ext string) string {
	return fmt.Sprintf("tile_%d_%d.%s", t.X, t.Y, ext)
}

// Less orders tiles row by row: Y first, then X.
func (t TileIndex) Less(other TileIndex) bool {
	if t.Y != other.Y {
		return t.Y < other.Y
	}
	return t.X < other.X
}

func Compare(a, b TileIndex) int {
	switch {
	case a == b:
		return 0
	case a.Less(b):
		return -1
	default:
		return 1
	}
}

// Largest index component accepted; keeps float to int conversions exact.
const maxIndex = 1 << 40

type Grid struct {
	OriginX float64
	OriginY float64
	Size    float64
}

func New(size float64) (Grid, error) {
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return Grid{}, fmt.Errorf("%w: tile size must be a positive number, got %g", errs.ErrEmptyInput, size)
	}
	return Grid{Size: size}, nil
}

func (g Grid) cell(v, origin float64) float64 {
	return math.Floor((v - origin) / g.Size)
}

// Index is the tile whose half-open cell contains (x, y).
func (g Grid) Index(x, y float64) TileIndex {
	return TileIndex{
		X: int(g.cell(x, g.OriginX)),
		Y: int(g.cell(y, g.OriginY)),
	}
}

// lastCell is the last cell an interval [min, max] covers with a nonzero
// length. A max lying exactly on a cell edge does not open the next cell.
func (g Grid) lastCell(min, max, origin float64) float64 {
	first := g.cell(min, origin)
	last := math.Ceil((max-origin)/g.Size) - 1
	if last < first {
		return first
	}
	return last
}

// Span returns the inclusive range of tiles a box covers with nonzero area.
// Degenerate boxes occupy the single cell containing them.
func (g Grid) Span(b schema.Box) (Span, error) {
	return g.span(b, [4]float64{
		g.cell(b.MinX, g.OriginX),
		g.cell(b.MinY, g.OriginY),
		g.lastCell(b.MinX, b.MaxX, g.OriginX),
		g.lastCell(b.MinY, b.MaxY, g.OriginY),
	})
}

// Reach returns the inclusive range of tiles that points inside a box can
// index into. A max edge lying on a grid line reaches the next tile.
func (g Grid) Reach(b schema.Box) (Span, error) {
	return g.span(b, [4]float64{
		g.cell(b.MinX, g.OriginX),
		g.cell(b.MinY, g.OriginY),
		g.cell(b.MaxX, g.OriginX),
		g.cell(b.MaxY, g.OriginY),
	})
}

func (g Grid) span(b schema.Box, cells [4]float64) (Span, error) {

	for _, c := range cells {
		if math.IsNaN(c) || math.Abs(c) > maxIndex {
			return Span{}, fmt.Errorf("box %s is outside the addressable grid for tile size %g", b, g.Size)
		}
	}

	return Span{
		Min: TileIndex{X: int(cells[0]), Y: int(cells[1])},
		Max: TileIndex{X: int(cells[2]), Y: int(cells[3])},
	}, nil
}

// TileBox is the world extent of a tile. The max edges belong to the
// neighbouring tiles.
func (g Grid) TileBox(t TileIndex) schema.Box {
	return schema.Box{
		MinX: g.OriginX + float64(t.X)*g.Size,
		MinY: g.OriginY + float64(t.Y)*g.Size,
		MaxX: g.OriginX + float64(t.X+1)*g.Size,
		MaxY: g.OriginY + float64(t.Y+1)*g.Size,
	}
}

// Span is an inclusive rectangle of tile indices.
type Span struct {
	Min TileIndex
	Max TileIndex
}

func (s Span) Contains(t TileIndex) bool {
	return t.X >= s.Min.X && t.X <= s.Max.X && t.Y >= s.Min.Y && t.Y <= s.Max.Y
}

func (s Span) Len() int {
	return (s.Max.X - s.Min.X + 1) * (s.Max.Y - s.Min.Y + 1)
}

// Tiles lists the span in row order.
func (s Span) Tiles() []TileIndex {
	out := make([]TileIndex, 0, s.Len())
	for y := s.Min.Y; y <= s.Max.Y; y++ {
		for x := s.Min.X; x <= s.Max.X; x++ {
			out = append(out, TileIndex{X: x, Y: y})
		}
	}
	return out
}

func (s Span) String() string {
	return fmt.Sprintf("%s..%s", s.Min, s.Max)
}
