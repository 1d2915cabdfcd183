package io

import (
	"errors"
	"fmt"
	"os"
)

var ErrNotOpened = errors.New("file not opened")

// FileReader wraps a point cloud file that is either streamed for reading or
// created for writing with its header patched in place at the end.
type FileReader struct {
	path   string
	file   *os.File
	opened bool
}

func NewFileReader(path string) *FileReader {
	return &FileReader{path: path}
}

func (f *FileReader) Path() string {
	return f.path
}

// Open opens the file read only, or creates/truncates it for writing.
func (f *FileReader) Open(readOnly bool) (topErr error) {

	var perm os.FileMode = 0644

	if readOnly {
		f.file, topErr = os.OpenFile(f.path, os.O_RDONLY, perm)
	} else {
		f.file, topErr = os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	}

	if topErr == nil {
		f.opened = true
	}

	return topErr
}

func (f *FileReader) Raw() *os.File {
	return f.file
}

func (f *FileReader) Size() (int64, error) {
	if !f.opened {
		return 0, ErrNotOpened
	}

	st, err := f.file.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

func (f *FileReader) Close() error {
	if !f.opened {
		return nil
	}

	f.opened = false
	return f.file.Close()
}

// Remove closes the file if needed and deletes it from disk.
func (f *FileReader) Remove() error {
	closeErr := f.Close()

	removeErr := os.Remove(f.path)
	if errors.Is(removeErr, os.ErrNotExist) {
		removeErr = nil
	}

	return errors.Join(closeErr, removeErr)
}

func (f *FileReader) ReadAt(out []byte, off int64) error {
	if !f.opened {
		return ErrNotOpened
	}

	readBytes, err := f.file.ReadAt(out, off)
	if readBytes != len(out) {
		return fmt.Errorf("read bytes mismatch: %d of %d: %w", readBytes, len(out), err)
	}

	return nil
}

func (f *FileReader) WriteAt(in []byte, off int64) error {
	if !f.opened {
		return ErrNotOpened
	}

	writtenBytes, err := f.file.WriteAt(in, off)
	if err != nil {
		return err
	}
	if writtenBytes != len(in) {
		return errors.New("written bytes mismatch")
	}

	return nil
}

func (f *FileReader) Sync() error {
	if !f.opened {
		return ErrNotOpened
	}
	return f.file.Sync()
}
