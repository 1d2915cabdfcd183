// Package codec reads and writes point cloud files: a fixed header followed by
// a stream of quantized point records, optionally lz4 compressed.
package codec

import (
	"path/filepath"
	"strings"

	"github.com/dot5enko/pointcloud-retiler/compression"
	"github.com/dot5enko/pointcloud-retiler/schema"
)

// HeaderReader parses only the header of a point cloud file.
type HeaderReader interface {
	ReadHeader(path string) (schema.CloudHeader, error)
}

// PointReader streams the points of one file. Read returns io.EOF once every
// point announced by the header has been delivered.
type PointReader interface {
	Header() schema.CloudHeader
	Read(out []schema.Point) (int, error)
	Close() error
}

// PointWriter accumulates points for one output file. Finish writes the final
// header (count, bounds, checksum) and closes the file; Discard deletes it.
type PointWriter interface {
	Write(points []schema.Point) error
	Count() uint64
	Finish() (schema.CloudHeader, error)
	Discard() error
}

type Opener interface {
	Open(path string) (PointReader, error)
}

type Creator interface {
	Create(path string, template schema.CloudHeader) (PointWriter, error)
	Extension() string
}

// Reconciler decides whether two headers can share one output file.
type Reconciler interface {
	Reconcile(a, b schema.CloudHeader) error
}

type Codec interface {
	HeaderReader
	Opener
	Creator
	Reconciler
}

// Native is the codec for .spc (raw) and .spz (lz4) files. Compression only
// applies to files it creates; readers follow the header.
type Native struct {
	Compression compression.Type
}

func New(c compression.Type) *Native {
	return &Native{Compression: c}
}

func (n *Native) Extension() string {
	return n.Compression.Extension()
}

// InputExtensions are matched case-insensitively during discovery.
var InputExtensions = []string{compression.None.Extension(), compression.Lz4.Extension()}

func IsPointCloudPath(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, it := range InputExtensions {
		if ext == it {
			return true
		}
	}
	return false
}
