package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dot5enko/pointcloud-retiler/schema"
)

func quantize(v, scale, offset float64) (int32, error) {
	q := math.Round((v - offset) / scale)
	if math.IsNaN(q) || q < math.MinInt32 || q > math.MaxInt32 {
		return 0, fmt.Errorf("coordinate %g does not fit scale %g offset %g", v, scale, offset)
	}
	return int32(q), nil
}

func dequantize(q int32, scale, offset float64) float64 {
	return float64(q)*scale + offset
}

// encodeRecord writes p into dst (len >= RecordSize) and returns the
// coordinates as they will decode.
func encodeRecord(dst []byte, h *schema.CloudHeader, p schema.Point) (schema.Vector, error) {

	qx, err := quantize(p.X, h.Scale.X, h.Offset.X)
	if err != nil {
		return schema.Vector{}, err
	}
	qy, err := quantize(p.Y, h.Scale.Y, h.Offset.Y)
	if err != nil {
		return schema.Vector{}, err
	}
	qz, err := quantize(p.Z, h.Scale.Z, h.Offset.Z)
	if err != nil {
		return schema.Vector{}, err
	}

	binary.LittleEndian.PutUint32(dst[0:], uint32(qx))
	binary.LittleEndian.PutUint32(dst[4:], uint32(qy))
	binary.LittleEndian.PutUint32(dst[8:], uint32(qz))

	switch h.Format {
	case schema.XYZIntensityFormat:
		binary.LittleEndian.PutUint16(dst[12:], p.Intensity)
	case schema.XYZIntensityRGBFormat:
		binary.LittleEndian.PutUint16(dst[12:], p.Intensity)
		binary.LittleEndian.PutUint16(dst[14:], p.R)
		binary.LittleEndian.PutUint16(dst[16:], p.G)
		binary.LittleEndian.PutUint16(dst[18:], p.B)
	}

	return schema.Vector{
		X: dequantize(qx, h.Scale.X, h.Offset.X),
		Y: dequantize(qy, h.Scale.Y, h.Offset.Y),
		Z: dequantize(qz, h.Scale.Z, h.Offset.Z),
	}, nil
}

func decodeRecord(src []byte, h *schema.CloudHeader, p *schema.Point) {

	p.X = dequantize(int32(binary.LittleEndian.Uint32(src[0:])), h.Scale.X, h.Offset.X)
	p.Y = dequantize(int32(binary.LittleEndian.Uint32(src[4:])), h.Scale.Y, h.Offset.Y)
	p.Z = dequantize(int32(binary.LittleEndian.Uint32(src[8:])), h.Scale.Z, h.Offset.Z)

	p.Intensity, p.R, p.G, p.B = 0, 0, 0, 0

	switch h.Format {
	case schema.XYZIntensityFormat:
		p.Intensity = binary.LittleEndian.Uint16(src[12:])
	case schema.XYZIntensityRGBFormat:
		p.Intensity = binary.LittleEndian.Uint16(src[12:])
		p.R = binary.LittleEndian.Uint16(src[14:])
		p.G = binary.LittleEndian.Uint16(src[16:])
		p.B = binary.LittleEndian.Uint16(src[18:])
	}
}
