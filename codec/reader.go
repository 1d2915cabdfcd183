package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/dot5enko/pointcloud-retiler/compression"
	fio "github.com/dot5enko/pointcloud-retiler/io"
	"github.com/dot5enko/pointcloud-retiler/schema"
)

const readChunkRecords = 4096

var ErrChecksumMismatch = errors.New("point records checksum mismatch")

func readHeader(f *fio.FileReader) (h schema.CloudHeader, err error) {

	headerBytes := make([]byte, schema.CloudHeaderSize)
	if err := f.ReadAt(headerBytes, 0); err != nil {
		return h, fmt.Errorf("unable to read header of %s: %w", f.Path(), err)
	}

	if err := h.FromBytes(bytes.NewReader(headerBytes)); err != nil {
		return h, fmt.Errorf("unable to parse header of %s: %w", f.Path(), err)
	}

	return h, nil
}

func (n *Native) ReadHeader(path string) (schema.CloudHeader, error) {

	f := fio.NewFileReader(path)
	if err := f.Open(true); err != nil {
		return schema.CloudHeader{}, err
	}
	defer f.Close()

	return readHeader(f)
}

type nativeReader struct {
	file   *fio.FileReader
	header schema.CloudHeader
	stream io.Reader

	recordSize int
	chunk      []byte

	remaining uint64
	digest    *xxhash.Digest
	verified  bool
}

func (n *Native) Open(path string) (PointReader, error) {

	f := fio.NewFileReader(path)
	if err := f.Open(true); err != nil {
		return nil, err
	}

	h, err := readHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	size, err := f.Size()
	if err != nil {
		f.Close()
		return nil, err
	}

	section := io.NewSectionReader(f.Raw(), schema.CloudHeaderSize, size-schema.CloudHeaderSize)

	stream, err := compression.NewReader(h.Compression, section)
	if err != nil {
		f.Close()
		return nil, err
	}

	recordSize := h.Format.RecordSize()

	return &nativeReader{
		file:       f,
		header:     h,
		stream:     stream,
		recordSize: recordSize,
		chunk:      make([]byte, readChunkRecords*recordSize),
		remaining:  h.PointCount,
		digest:     xxhash.New(),
	}, nil
}

func (r *nativeReader) Header() schema.CloudHeader {
	return r.header
}

func (r *nativeReader) Read(out []schema.Point) (int, error) {

	if r.remaining == 0 {
		if err := r.verify(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}

	n := min(len(out), readChunkRecords)
	if uint64(n) > r.remaining {
		n = int(r.remaining)
	}

	raw := r.chunk[:n*r.recordSize]
	if _, err := io.ReadFull(r.stream, raw); err != nil {
		read := r.header.PointCount - r.remaining
		return 0, fmt.Errorf("point stream of %s truncated after %d of %d points: %w", r.file.Path(), read, r.header.PointCount, err)
	}

	r.digest.Write(raw)

	for i := 0; i < n; i++ {
		decodeRecord(raw[i*r.recordSize:], &r.header, &out[i])
	}

	r.remaining -= uint64(n)

	if r.remaining == 0 {
		if err := r.verify(); err != nil {
			return n, err
		}
	}

	return n, nil
}

// verify runs once the announced count was consumed.
func (r *nativeReader) verify() error {
	if r.verified {
		return nil
	}
	r.verified = true

	var probe [1]byte
	extra, err := r.stream.Read(probe[:])
	if extra > 0 {
		return fmt.Errorf("%s holds more point data than the %d points in its header", r.file.Path(), r.header.PointCount)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("unable to verify end of %s: %w", r.file.Path(), err)
	}

	if sum := r.digest.Sum64(); sum != r.header.Checksum {
		return fmt.Errorf("%w in %s: header %016x, data %016x", ErrChecksumMismatch, r.file.Path(), r.header.Checksum, sum)
	}

	return nil
}

func (r *nativeReader) Close() error {
	return r.file.Close()
}
