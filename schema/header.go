package schema

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dot5enko/pointcloud-retiler/bits"
	"github.com/dot5enko/pointcloud-retiler/compression"
	"github.com/google/uuid"
)

// *--------------------------------*
// | magic + version                |
// | uid                            |
// | format, compression            |
// | point count                    |
// | scale xyz, offset xyz          |
// | bounds min xyz, max xyz        |
// | crs, records checksum          |
// | reserved                       |
// *--------------------------------*
// | point records (maybe lz4)      |
// *--------------------------------*

const CurrentCloudVersion = 1

const CloudHeaderSize = 192

const CloudHeaderSizeUsed = 4 + 2 + 16 + 1 + 1 + 8 + 3*8 + 3*8 + BoundsSize + 4 + 8
const ReservedSize = CloudHeaderSize - CloudHeaderSizeUsed

var Magic = [4]byte{'S', 'P', 'C', 'F'}

var ErrBadMagic = errors.New("not a point cloud file")

type CloudHeader struct {
	Version uint16

	Uid uuid.UUID

	Format      PointFormat
	Compression compression.Type

	PointCount uint64

	Scale  Vector
	Offset Vector

	Bounds Bounds

	// EPSG code, zero when unknown
	CRS uint32

	// xxhash64 over the uncompressed record stream
	Checksum uint64
}

// NewCloudHeader returns a header for an empty cloud, bounds unset.
func NewCloudHeader(format PointFormat, scale, offset Vector, crs uint32) CloudHeader {
	return CloudHeader{
		Version: CurrentCloudVersion,
		Uid:     uuid.New(),
		Format:  format,
		Scale:   scale,
		Offset:  offset,
		Bounds:  EmptyBounds(),
		CRS:     crs,
	}
}

// Box is the 2D part of the header bounds.
func (h *CloudHeader) Box() Box {
	return h.Bounds.Box()
}

func (h *CloudHeader) FromBytes(input io.Reader) error {

	reader := bits.NewReader(input, binary.LittleEndian)

	var magic [4]byte
	reader.ReadBytes(magic[:])
	if err := reader.Err(); err != nil {
		return fmt.Errorf("unable to decode header magic: %w", err)
	}
	if magic != Magic {
		return ErrBadMagic
	}

	h.Version = reader.ReadU16()
	if reader.Err() == nil && h.Version != CurrentCloudVersion {
		return fmt.Errorf("invalid version %d. Supported versions: %d", h.Version, CurrentCloudVersion)
	}

	h.Uid = reader.ReadUUID()
	h.Format = PointFormat(reader.ReadU8())
	h.Compression = compression.Type(reader.ReadU8())
	h.PointCount = reader.ReadU64()

	h.Scale = Vector{X: reader.ReadF64(), Y: reader.ReadF64(), Z: reader.ReadF64()}
	h.Offset = Vector{X: reader.ReadF64(), Y: reader.ReadF64(), Z: reader.ReadF64()}

	if err := h.Bounds.FromBytes(reader); err != nil {
		return fmt.Errorf("unable to decode header bounds: %w", err)
	}

	h.CRS = reader.ReadU32()
	h.Checksum = reader.ReadU64()
	reader.Skip(ReservedSize)

	if err := reader.Err(); err != nil {
		return fmt.Errorf("unable to decode header: %w", err)
	}

	return h.Validate()
}

// Validate checks the fields a reader depends on.
func (h *CloudHeader) Validate() error {
	if !h.Format.Valid() {
		return fmt.Errorf("unsupported point format %s", h.Format)
	}
	if h.Compression != compression.None && h.Compression != compression.Lz4 {
		return fmt.Errorf("unsupported compression %s", h.Compression)
	}
	if h.Scale.X <= 0 || h.Scale.Y <= 0 || h.Scale.Z <= 0 {
		return fmt.Errorf("scale must be positive, got %+v", h.Scale)
	}
	if h.PointCount > 0 && !h.Box().Valid() {
		return fmt.Errorf("invalid bounds %s", h.Box())
	}
	return nil
}

func (h *CloudHeader) WriteTo(bw *bits.BitWriter) (int, error) {

	if _, err := bw.Write(Magic[:]); err != nil {
		return 0, err
	}
	bw.PutUint16(h.Version)

	if _, err := bw.Write(h.Uid[:]); err != nil {
		return 0, fmt.Errorf("failed to write uid: %w", err)
	}

	bw.WriteByte(uint8(h.Format))
	bw.WriteByte(uint8(h.Compression))
	bw.PutUint64(h.PointCount)

	for _, v := range []Vector{h.Scale, h.Offset} {
		bw.PutFloat64(v.X)
		bw.PutFloat64(v.Y)
		bw.PutFloat64(v.Z)
	}

	h.Bounds.WriteTo(bw)

	bw.PutUint32(h.CRS)
	bw.PutUint64(h.Checksum)

	bw.EmptyBytes(ReservedSize)

	return bw.Position(), nil
}

// Bytes encodes the header into a fresh CloudHeaderSize buffer.
func (h *CloudHeader) Bytes() ([]byte, error) {
	buf := bits.NewEncodeBuffer(make([]byte, CloudHeaderSize), binary.LittleEndian)
	if _, err := h.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
