package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/dot5enko/pointcloud-retiler/compression"
	fio "github.com/dot5enko/pointcloud-retiler/io"
	"github.com/dot5enko/pointcloud-retiler/schema"
	"github.com/google/uuid"
)

const writeBufferSize = 1 << 20

var ErrWriterClosed = errors.New("point writer already closed")

type nativeWriter struct {
	file   *fio.FileReader
	header schema.CloudHeader

	buffered *bufio.Writer
	stream   io.WriteCloser
	digest   *xxhash.Digest

	recordSize int
	chunk      []byte
	chunkPos   int

	closed bool
}

func (n *Native) Create(path string, template schema.CloudHeader) (PointWriter, error) {

	h := template
	h.Version = schema.CurrentCloudVersion
	h.Uid = uuid.New()
	h.Compression = n.Compression
	h.PointCount = 0
	h.Bounds = schema.EmptyBounds()
	h.Checksum = 0

	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("invalid template header for %s: %w", path, err)
	}

	f := fio.NewFileReader(path)
	if err := f.Open(false); err != nil {
		return nil, err
	}

	placeholder, err := h.Bytes()
	if err == nil {
		err = f.WriteAt(placeholder, 0)
	}
	if err != nil {
		f.Remove()
		return nil, fmt.Errorf("unable to write header placeholder to %s: %w", path, err)
	}

	buffered := bufio.NewWriterSize(io.NewOffsetWriter(f.Raw(), schema.CloudHeaderSize), writeBufferSize)

	stream, err := compression.NewWriter(h.Compression, buffered)
	if err != nil {
		f.Remove()
		return nil, err
	}

	recordSize := h.Format.RecordSize()

	return &nativeWriter{
		file:       f,
		header:     h,
		buffered:   buffered,
		stream:     stream,
		digest:     xxhash.New(),
		recordSize: recordSize,
		chunk:      make([]byte, readChunkRecords*recordSize),
	}, nil
}

func (w *nativeWriter) flushChunk() error {
	if w.chunkPos == 0 {
		return nil
	}

	raw := w.chunk[:w.chunkPos]
	w.digest.Write(raw)

	if _, err := w.stream.Write(raw); err != nil {
		return fmt.Errorf("unable to write points to %s: %w", w.file.Path(), err)
	}

	w.chunkPos = 0
	return nil
}

func (w *nativeWriter) Write(points []schema.Point) error {
	if w.closed {
		return ErrWriterClosed
	}

	for _, p := range points {

		if w.chunkPos+w.recordSize > len(w.chunk) {
			if err := w.flushChunk(); err != nil {
				return err
			}
		}

		stored, err := encodeRecord(w.chunk[w.chunkPos:], &w.header, p)
		if err != nil {
			return fmt.Errorf("unable to encode point for %s: %w", w.file.Path(), err)
		}

		w.chunkPos += w.recordSize
		w.header.Bounds.Morph(stored)
		w.header.PointCount++
	}

	return nil
}

func (w *nativeWriter) Count() uint64 {
	return w.header.PointCount
}

func (w *nativeWriter) Finish() (schema.CloudHeader, error) {
	if w.closed {
		return w.header, ErrWriterClosed
	}
	w.closed = true

	err := w.flushChunk()
	if err == nil {
		err = w.stream.Close()
	}
	if err == nil {
		err = w.buffered.Flush()
	}
	if err != nil {
		w.file.Close()
		return w.header, fmt.Errorf("unable to flush %s: %w", w.file.Path(), err)
	}

	w.header.Checksum = w.digest.Sum64()

	headerBytes, err := w.header.Bytes()
	if err == nil {
		err = w.file.WriteAt(headerBytes, 0)
	}
	if err != nil {
		w.file.Close()
		return w.header, fmt.Errorf("unable to rewrite header of %s: %w", w.file.Path(), err)
	}

	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return w.header, fmt.Errorf("unable to sync %s: %w", w.file.Path(), err)
	}

	if err := w.file.Close(); err != nil {
		return w.header, fmt.Errorf("unable to close %s: %w", w.file.Path(), err)
	}

	return w.header, nil
}

func (w *nativeWriter) Discard() error {
	w.closed = true
	return w.file.Remove()
}

// WriteCloud stores points in a new file at path, header fields other than
// count, bounds and checksum come from template.
func WriteCloud(c Creator, path string, template schema.CloudHeader, points []schema.Point) (schema.CloudHeader, error) {

	w, err := c.Create(path, template)
	if err != nil {
		return schema.CloudHeader{}, err
	}

	if err := w.Write(points); err != nil {
		w.Discard()
		return schema.CloudHeader{}, err
	}

	return w.Finish()
}
