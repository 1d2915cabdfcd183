// Package progress carries run events from the pipeline to whoever renders
// them. The pipeline never depends on how events are displayed.
package progress

import (
	"sync"

	"github.com/dot5enko/pointcloud-retiler/grid"
)

type Kind uint8

const (
	RunPlanned Kind = iota
	FileStarted
	FileFinished
	PointsWritten
	TileFinalized
	FileFailed
)

func (k Kind) String() string {
	switch k {
	case RunPlanned:
		return "run_planned"
	case FileStarted:
		return "file_started"
	case FileFinished:
		return "file_finished"
	case PointsWritten:
		return "points_written"
	case TileFinalized:
		return "tile_finalized"
	case FileFailed:
		return "file_failed"
	default:
		return "unknown"
	}
}

// Event is delivered from worker goroutines; reporters must be safe for
// concurrent use.
type Event struct {
	Kind Kind

	// input path for file events, output path for tile events
	Path string
	Tile grid.TileIndex

	Points uint64

	// only set on RunPlanned
	Files int
	Tiles int
}

type Reporter interface {
	Report(ev Event)
}

type ReporterFunc func(ev Event)

func (f ReporterFunc) Report(ev Event) { f(ev) }

type Nop struct{}

func (Nop) Report(Event) {}

type multi []Reporter

func (m multi) Report(ev Event) {
	for _, r := range m {
		r.Report(ev)
	}
}

// Multi fans events out to every non nil reporter.
func Multi(reporters ...Reporter) Reporter {
	var out multi
	for _, r := range reporters {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return Nop{}
	}
	return out
}

// Recorder keeps every event, mostly useful in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Report(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
