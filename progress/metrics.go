package progress

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics mirrors run events into a private Prometheus registry that can be
// dumped for the node exporter textfile collector after a batch run.
type Metrics struct {
	registry *prometheus.Registry

	filesStarted   prometheus.Counter
	filesFinished  prometheus.Counter
	filesFailed    prometheus.Counter
	pointsWritten  prometheus.Counter
	tilesFinalized prometheus.Counter

	plannedFiles  prometheus.Gauge
	plannedTiles  prometheus.Gauge
	plannedPoints prometheus.Gauge
	filesInFlight prometheus.Gauge
}

func NewMetrics() *Metrics {

	m := &Metrics{
		registry: prometheus.NewRegistry(),

		filesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retiler_files_started_total",
			Help: "Input files whose points started streaming.",
		}),
		filesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retiler_files_finished_total",
			Help: "Input files fully streamed into tiles.",
		}),
		filesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retiler_files_failed_total",
			Help: "Input files that stopped streaming on an error or cancellation.",
		}),
		pointsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retiler_points_written_total",
			Help: "Points forwarded to output tiles.",
		}),
		tilesFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retiler_tiles_finalized_total",
			Help: "Output tiles finalized, including tiles that received no points.",
		}),
		plannedFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "retiler_planned_files",
			Help: "Input files in the current run.",
		}),
		plannedTiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "retiler_planned_tiles",
			Help: "Output tiles in the tile plan.",
		}),
		plannedPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "retiler_planned_points",
			Help: "Points announced by the input headers.",
		}),
		filesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "retiler_files_in_flight",
			Help: "Input files currently streaming.",
		}),
	}

	m.registry.MustRegister(
		m.filesStarted,
		m.filesFinished,
		m.filesFailed,
		m.pointsWritten,
		m.tilesFinalized,
		m.plannedFiles,
		m.plannedTiles,
		m.plannedPoints,
		m.filesInFlight,
	)

	return m
}

func (m *Metrics) Report(ev Event) {
	switch ev.Kind {
	case RunPlanned:
		m.plannedFiles.Set(float64(ev.Files))
		m.plannedTiles.Set(float64(ev.Tiles))
		m.plannedPoints.Set(float64(ev.Points))
	case FileStarted:
		m.filesStarted.Inc()
		m.filesInFlight.Inc()
	case FileFinished:
		m.filesFinished.Inc()
		m.filesInFlight.Dec()
	case FileFailed:
		m.filesFailed.Inc()
		m.filesInFlight.Dec()
	case PointsWritten:
		m.pointsWritten.Add(float64(ev.Points))
	case TileFinalized:
		m.tilesFinalized.Inc()
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile stores the current values in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
