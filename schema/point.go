package schema

import "fmt"

// Point is a decoded point record. Coordinates are in world units; the
// attributes a format does not carry stay zero.
type Point struct {
	X float64
	Y float64
	Z float64

	Intensity uint16

	R uint16
	G uint16
	B uint16
}

func (p Point) Position() Vector {
	return Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// PointFormat describes the record layout of every point in a file.
type PointFormat uint8

const (
	XYZFormat PointFormat = iota
	XYZIntensityFormat
	XYZIntensityRGBFormat
)

func (f PointFormat) String() string {
	switch f {
	case XYZFormat:
		return "xyz"
	case XYZIntensityFormat:
		return "xyzi"
	case XYZIntensityRGBFormat:
		return "xyzirgb"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

func (f PointFormat) Valid() bool {
	return f <= XYZIntensityRGBFormat
}

// RecordSize is the encoded size of one point in bytes.
func (f PointFormat) RecordSize() int {
	switch f {
	case XYZFormat:
		return 3 * 4
	case XYZIntensityFormat:
		return 3*4 + 2
	case XYZIntensityRGBFormat:
		return 3*4 + 2 + 3*2
	default:
		panic("unknown point format " + f.String())
	}
}
