package bits

import (
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/google/uuid"
)

var (
	ErrReadMismatch = errors.New("read size mismatch")
)

const MaxBinReaderBufferSize = 8

// BitsReader decodes fixed layout records. The first failure is sticky:
// subsequent reads return zero values and Err reports the original error.
type BitsReader struct {
	readBuffer [MaxBinReaderBufferSize]byte

	buf   io.Reader
	order binary.ByteOrder
	err   error
}

func NewReader(buf io.Reader, order binary.ByteOrder) *BitsReader {
	return &BitsReader{buf: buf, order: order}
}

func (r *BitsReader) Err() error {
	return r.err
}

func (r *BitsReader) fill(size int) bool {
	if r.err != nil {
		return false
	}

	_, err := io.ReadFull(r.buf, r.readBuffer[:size])
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrReadMismatch
		}
		r.err = err
		return false
	}

	return true
}

func (r *BitsReader) ReadU8() uint8 {
	if !r.fill(1) {
		return 0
	}
	return r.readBuffer[0]
}

func (r *BitsReader) ReadU16() uint16 {
	if !r.fill(2) {
		return 0
	}
	return r.order.Uint16(r.readBuffer[:2])
}

func (r *BitsReader) ReadU32() uint32 {
	if !r.fill(4) {
		return 0
	}
	return r.order.Uint32(r.readBuffer[:4])
}

func (r *BitsReader) ReadI32() int32 {
	return int32(r.ReadU32())
}

func (r *BitsReader) ReadU64() uint64 {
	if !r.fill(8) {
		return 0
	}
	return r.order.Uint64(r.readBuffer[:8])
}

func (r *BitsReader) ReadF64() float64 {
	return math.Float64frombits(r.ReadU64())
}

func (r *BitsReader) ReadUUID() (result uuid.UUID) {
	r.ReadBytes(result[:])
	return result
}

// ReadBytes fills out completely or records a failure.
func (r *BitsReader) ReadBytes(out []byte) {
	if r.err != nil {
		return
	}

	_, err := io.ReadFull(r.buf, out)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrReadMismatch
		}
		r.err = err
	}
}

// Skip discards n bytes, used for reserved header areas.
func (r *BitsReader) Skip(n int64) {
	if r.err != nil {
		return
	}

	skipped, err := io.CopyN(io.Discard, r.buf, n)
	if err != nil || skipped != n {
		r.err = ErrReadMismatch
	}
}
