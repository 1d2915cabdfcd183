// Package overlap rejects input sets in which two files cover the same area,
// since a point could then be counted twice.
package overlap

import (
	"sort"

	"github.com/dot5enko/pointcloud-retiler/catalog"
	"github.com/dot5enko/pointcloud-retiler/errs"
)

// FindOverlaps returns every pair of inputs whose boxes share a nonzero area.
// Inputs without points are ignored. Boxes are swept in MinX order keeping
// only the ones still open along X, so disjoint rows cost O(n log n).
func FindOverlaps(records []catalog.InputRecord) []errs.OverlapPair {

	order := make([]int, 0, len(records))
	for i, r := range records {
		if r.PointCount() == 0 {
			continue
		}
		order = append(order, i)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return records[order[i]].Box().MinX < records[order[j]].Box().MinX
	})

	var (
		pairs  []errs.OverlapPair
		active []int
	)

	for _, cur := range order {
		curBox := records[cur].Box()

		// drop boxes that end before the current one starts
		kept := active[:0]
		for _, a := range active {
			if records[a].Box().MaxX > curBox.MinX {
				kept = append(kept, a)
			}
		}
		active = kept

		for _, a := range active {
			aBox := records[a].Box()
			if !aBox.Overlaps(curBox) {
				continue
			}
			pairs = append(pairs, errs.OverlapPair{
				PathA: records[a].Path,
				BoxA:  aBox,
				PathB: records[cur].Path,
				BoxB:  curBox,
			})
		}

		active = append(active, cur)
	}

	return pairs
}

// Validate fails with an *errs.OverlapError listing all offending pairs.
func Validate(records []catalog.InputRecord) error {

	pairs := FindOverlaps(records)
	if len(pairs) == 0 {
		return nil
	}

	return &errs.OverlapError{Pairs: pairs}
}
