// Package planner computes which output tiles exist and which inputs feed
// each of them. The plan is built once and is read only afterwards.
package planner

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/davecgh/go-spew/spew"
	"github.com/dot5enko/pointcloud-retiler/bits"
	"github.com/dot5enko/pointcloud-retiler/catalog"
	"github.com/dot5enko/pointcloud-retiler/codec"
	"github.com/dot5enko/pointcloud-retiler/errs"
	"github.com/dot5enko/pointcloud-retiler/grid"
	"github.com/dot5enko/pointcloud-retiler/schema"
)

const DefaultMaxTiles = 1 << 22

type Planner struct {
	Grid       grid.Grid
	Reconciler codec.Reconciler

	// upper bound on planned tiles, guards against a tiny tile size
	MaxTiles int
}

type Plan struct {
	Grid grid.Grid

	// indexed by input ID, covered is false for inputs without points.
	// spans hold the tiles an input covers with nonzero area, reach the
	// tiles its points can index into.
	spans   []grid.Span
	reach   []grid.Span
	covered bits.Bitset

	tiles     map[grid.TileIndex][]int
	templates map[grid.TileIndex]schema.CloudHeader
	order     []grid.TileIndex
}

func (p Planner) Build(records []catalog.InputRecord) (*Plan, error) {

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no input files", errs.ErrEmptyInput)
	}
	if p.Grid.Size <= 0 {
		return nil, fmt.Errorf("%w: tile size must be positive, got %g", errs.ErrEmptyInput, p.Grid.Size)
	}

	maxTiles := p.MaxTiles
	if maxTiles <= 0 {
		maxTiles = DefaultMaxTiles
	}

	plan := &Plan{
		Grid:      p.Grid,
		spans:     make([]grid.Span, len(records)),
		reach:     make([]grid.Span, len(records)),
		covered:   bits.NewBitset(len(records)),
		tiles:     map[grid.TileIndex][]int{},
		templates: map[grid.TileIndex]schema.CloudHeader{},
	}

	spanned := 0
	for _, r := range records {
		if r.PointCount() == 0 {
			continue
		}

		span, err := p.Grid.Span(r.Box())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.Path, err)
		}
		reach, err := p.Grid.Reach(r.Box())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.Path, err)
		}

		spanned += reach.Len()
		if spanned > maxTiles {
			return nil, fmt.Errorf("tile size %g yields more than %d tiles", p.Grid.Size, maxTiles)
		}

		plan.spans[r.ID] = span
		plan.reach[r.ID] = reach
		plan.covered.Set(r.ID)

		for _, t := range span.Tiles() {
			plan.tiles[t] = nil
		}
	}

	// an input feeds every planned tile its points can land in, so points on
	// a shared edge follow the half-open rule
	for _, id := range plan.covered.Indices(nil) {
		for _, t := range plan.reach[id].Tiles() {
			if contributors, ok := plan.tiles[t]; ok {
				plan.tiles[t] = append(contributors, id)
			}
		}
	}

	for t := range plan.tiles {
		plan.order = append(plan.order, t)
	}
	slices.SortFunc(plan.order, grid.Compare)

	if err := p.reconcile(plan, records); err != nil {
		return nil, err
	}

	slog.Info("tile plan built", "tiles", len(plan.order), "inputs", len(records), "empty_inputs", len(records)-plan.covered.Count(), "tile_size", p.Grid.Size)

	return plan, nil
}

// reconcile picks the header template of each tile and rejects tiles whose
// contributors cannot share one output header.
func (p Planner) reconcile(plan *Plan, records []catalog.InputRecord) error {

	type pair struct{ a, b int }
	checked := map[pair]bool{}

	for _, t := range plan.order {
		contributors := plan.tiles[t]
		first := records[contributors[0]]

		for _, id := range contributors[1:] {
			key := pair{first.ID, id}
			if checked[key] {
				continue
			}
			checked[key] = true

			if p.Reconciler == nil {
				continue
			}

			other := records[id]
			if err := p.Reconciler.Reconcile(first.Header, other.Header); err != nil {
				slog.Debug("incompatible contributor headers", "tile", t.String(), "a", spew.Sdump(first.Header), "b", spew.Sdump(other.Header))
				return fmt.Errorf("%w: tile %s: %s and %s: %w", errs.ErrIncompatibleFormats, t, first.Path, other.Path, err)
			}
		}

		plan.templates[t] = first.Header
	}

	return nil
}

// Tiles returns every planned tile in row order.
func (p *Plan) Tiles() []grid.TileIndex {
	return slices.Clone(p.order)
}

func (p *Plan) Len() int {
	return len(p.order)
}

func (p *Plan) Has(t grid.TileIndex) bool {
	_, ok := p.tiles[t]
	return ok
}

// Contributors lists the input IDs feeding t, ascending.
func (p *Plan) Contributors(t grid.TileIndex) []int {
	return p.tiles[t]
}

// Span returns the tiles an input covers with nonzero area. ok is false
// for inputs without points.
func (p *Plan) Span(id int) (span grid.Span, ok bool) {
	if id < 0 || id >= len(p.spans) {
		return grid.Span{}, false
	}
	return p.spans[id], p.covered.Get(id)
}

// Contributes reports whether input id feeds tile t.
func (p *Plan) Contributes(id int, t grid.TileIndex) bool {
	if id < 0 || id >= len(p.reach) || !p.covered.Get(id) {
		return false
	}
	return p.reach[id].Contains(t) && p.Has(t)
}

// TilesOf lists the planned tiles input id writes to, in row order.
func (p *Plan) TilesOf(id int) []grid.TileIndex {
	if id < 0 || id >= len(p.reach) || !p.covered.Get(id) {
		return nil
	}

	var out []grid.TileIndex
	for _, t := range p.reach[id].Tiles() {
		if p.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// Template is the header every output of t is derived from.
func (p *Plan) Template(t grid.TileIndex) (schema.CloudHeader, bool) {
	h, ok := p.templates[t]
	return h, ok
}

func (p *Plan) Inputs() int {
	return len(p.spans)
}

// Covered lists the IDs of inputs that contribute to at least one tile.
func (p *Plan) Covered() []int {
	return p.covered.Indices(nil)
}
