// Package limits checks process resource limits against the demands of a
// tile plan.
package limits

// descriptors kept for stdio, logs and the metrics file
const reservedFiles = 16

// CheckOpenFiles reports whether the worst case of the run fits the limit.
// In the worst case every planned tile is open at once while every worker
// holds one input file.
func CheckOpenFiles(tiles, workers int) (limit uint64, needed uint64, ok bool) {

	needed = uint64(tiles) + uint64(workers) + reservedFiles

	limit, known := OpenFiles()
	if !known {
		return 0, needed, true
	}

	return limit, needed, needed <= limit
}
