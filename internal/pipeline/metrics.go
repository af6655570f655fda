package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Detection outcomes recorded by Metrics.Detections.
const (
	OutcomeNoCorrespondence = "no_correspondence"
	OutcomeRejected         = "rejected"
	OutcomeAccepted         = "accepted"
)

// Metrics are the per-frame tracker counters.
type Metrics struct {
	Frames            prometheus.Counter
	Detections        *prometheus.CounterVec
	SolveFailures     prometheus.Counter
	ReprojectionError prometheus.Histogram
}

// NewMetrics creates the tracker metrics and registers them on reg. A nil
// reg leaves them unregistered, which is useful in tests and for sessions
// that share one process-wide registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marker_pose",
			Name:      "frames_total",
			Help:      "Frames processed by the tracker",
		}),
		Detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marker_pose",
			Name:      "detections_total",
			Help:      "Frames by detection outcome",
		}, []string{"outcome"}),
		SolveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marker_pose",
			Name:      "solve_failures_total",
			Help:      "Accepted correspondences whose pose solve was invalid",
		}),
		ReprojectionError: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "marker_pose",
			Name:      "reprojection_error_pixels",
			Help:      "RMS reprojection error of valid poses",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Frames, m.Detections, m.SolveFailures, m.ReprojectionError)
	}
	return m
}
