package compression

import (
	"fmt"
	"io"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// Type identifies how the point record stream after the header is encoded.
type Type uint8

const (
	None Type = iota
	Lz4
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Lz4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(t))
	}
}

// Extension is the file extension used for point clouds stored with t.
func (t Type) Extension() string {
	switch t {
	case Lz4:
		return "spz"
	default:
		return "spc"
	}
}

func Parse(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lz4":
		return Lz4, nil
	case "none":
		return None, nil
	default:
		return None, fmt.Errorf("unsupported compression %q", name)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NewWriter wraps dst. Close flushes pending frames but never closes dst.
func NewWriter(t Type, dst io.Writer) (io.WriteCloser, error) {
	switch t {
	case None:
		return nopWriteCloser{dst}, nil
	case Lz4:
		zw := lz4.NewWriter(dst)
		if err := zw.Apply(lz4.BlockSizeOption(lz4.Block4Mb)); err != nil {
			return nil, err
		}
		return zw, nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %d", t)
	}
}

func NewReader(t Type, src io.Reader) (io.Reader, error) {
	switch t {
	case None:
		return src, nil
	case Lz4:
		return lz4.NewReader(src), nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %d", t)
	}
}
