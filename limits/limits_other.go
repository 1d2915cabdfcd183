//go:build !unix

package limits

// OpenFiles is unknown on this platform.
func OpenFiles() (uint64, bool) {
	return 0, false
}
