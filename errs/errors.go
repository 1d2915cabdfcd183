// Package errs holds the failure taxonomy of a re-tiling run. Every kind is
// fatal; callers match them with errors.Is.
package errs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dot5enko/pointcloud-retiler/schema"
)

var (
	ErrUnreadableInput     = errors.New("unreadable input")
	ErrOverlappingInputs   = errors.New("overlapping inputs")
	ErrEmptyInput          = errors.New("empty input")
	ErrIncompatibleFormats = errors.New("incompatible formats")
	ErrDecodeFailure       = errors.New("decode failure")
	ErrWriteFailure        = errors.New("write failure")
)

type OverlapPair struct {
	PathA string
	BoxA  schema.Box

	PathB string
	BoxB  schema.Box
}

// OverlapError lists every pair of inputs whose boxes share an area.
type OverlapError struct {
	Pairs []OverlapPair
}

func (e *OverlapError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d overlapping pair(s)", ErrOverlappingInputs, len(e.Pairs))
	for _, p := range e.Pairs {
		fmt.Fprintf(&sb, "; %s %s overlaps %s %s", p.PathA, p.BoxA, p.PathB, p.BoxB)
	}
	return sb.String()
}

func (e *OverlapError) Is(target error) bool {
	return target == ErrOverlappingInputs
}

// Kind returns the sentinel err was wrapped with, or nil.
func Kind(err error) error {
	for _, kind := range []error{
		ErrUnreadableInput,
		ErrOverlappingInputs,
		ErrEmptyInput,
		ErrIncompatibleFormats,
		ErrDecodeFailure,
		ErrWriteFailure,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
