// Package catalog discovers input point clouds and reads their headers.
// Point data is never touched here.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/dot5enko/pointcloud-retiler/codec"
	"github.com/dot5enko/pointcloud-retiler/errs"
	"github.com/dot5enko/pointcloud-retiler/schema"
)

// InputRecord is the immutable description of one input file. ID is its
// position in the slice returned by Scan.
type InputRecord struct {
	ID     int
	Path   string
	Header schema.CloudHeader
}

func (r InputRecord) Box() schema.Box {
	return r.Header.Box()
}

func (r InputRecord) PointCount() uint64 {
	return r.Header.PointCount
}

// Discover lists the point cloud files directly inside dir, sorted by name.
// Subdirectories and files with other extensions are skipped.
func Discover(dir string) ([]string, error) {

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to list %s: %w", errs.ErrUnreadableInput, dir, err)
	}

	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if !codec.IsPointCloudPath(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}

	sort.Strings(paths)
	return paths, nil
}

// Scan reads the header of every path. A single unreadable header aborts the
// whole scan: a partial catalog would silently understate coverage.
func Scan(reader codec.HeaderReader, paths []string) ([]InputRecord, error) {

	records := make([]InputRecord, 0, len(paths))

	for _, path := range paths {

		header, err := reader.ReadHeader(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errs.ErrUnreadableInput, path, err)
		}

		if header.PointCount > 0 && !header.Box().Valid() {
			return nil, fmt.Errorf("%w: %s: invalid bounds %s", errs.ErrUnreadableInput, path, header.Box())
		}

		records = append(records, InputRecord{
			ID:     len(records),
			Path:   path,
			Header: header,
		})

		slog.Debug("input scanned", "path", path, "points", header.PointCount, "bounds", header.Box().String(), "format", header.Format.String())
	}

	return records, nil
}

// GlobalBounds is the union of every non-empty input box.
func GlobalBounds(records []InputRecord) (schema.Box, bool) {

	var (
		result schema.Box
		found  bool
	)

	for _, r := range records {
		if r.PointCount() == 0 {
			continue
		}
		if !found {
			result = r.Box()
			found = true
			continue
		}
		result = result.Union(r.Box())
	}

	return result, found
}

func TotalPoints(records []InputRecord) (total uint64) {
	for _, r := range records {
		total += r.PointCount()
	}
	return total
}
