package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

const renderEvery = 100 * time.Millisecond

// Terminal renders a single status line. On a TTY the line is redrawn in
// place, otherwise one line is printed per finished input file.
type Terminal struct {
	out  io.Writer
	live bool

	mu sync.Mutex

	totalFiles  int
	totalPoints uint64
	totalTiles  int

	filesDone  int
	tilesDone  int
	pointsDone uint64

	lastRender time.Time
}

func NewTerminal(out *os.File) *Terminal {
	return &Terminal{
		out:  out,
		live: isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()),
	}
}

// NewPlainTerminal never redraws in place.
func NewPlainTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

func (t *Terminal) Report(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Kind {
	case RunPlanned:
		t.totalFiles = ev.Files
		t.totalPoints = ev.Points
		t.totalTiles = ev.Tiles
		color.New(color.FgCyan).Fprintf(t.out, "Found %d input files with a total %d points, %d output tiles planned.\n", ev.Files, ev.Points, ev.Tiles)
		return
	case FileFinished:
		t.filesDone++
		if !t.live {
			fmt.Fprintf(t.out, "%s %s\n", t.status(), ev.Path)
			return
		}
	case PointsWritten:
		t.pointsDone += ev.Points
	case TileFinalized:
		t.tilesDone++
	}

	if t.live && time.Since(t.lastRender) >= renderEvery {
		t.lastRender = time.Now()
		fmt.Fprintf(t.out, "\r%s", t.status())
	}
}

func (t *Terminal) status() string {
	pct := 100.0
	if t.totalPoints > 0 {
		pct = float64(t.pointsDone) / float64(t.totalPoints) * 100
	}
	return fmt.Sprintf("[files %d/%d] [tiles %d/%d] points %d/%d (%.1f%%)",
		t.filesDone, t.totalFiles, t.tilesDone, t.totalTiles, t.pointsDone, t.totalPoints, pct)
}

// Finish draws the last state and ends the status line.
func (t *Terminal) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.live {
		fmt.Fprintf(t.out, "\r%s\n", t.status())
	}
}
