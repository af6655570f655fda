// Package pipeline runs the per-frame marker pose pipeline.
//
// A Tracker chains the stages in order: segment the frame, extract regions,
// build the four-point correspondence, gate it through the jitter filter and
// solve the pose. Per-frame failures are reported in the Result, never as
// errors, so a frame loop can keep going on any frame.
package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ironsheep/marker-pose/internal/config"
	"github.com/ironsheep/marker-pose/internal/detection"
	"github.com/ironsheep/marker-pose/internal/imaging"
	"github.com/ironsheep/marker-pose/internal/logger"
	"github.com/ironsheep/marker-pose/internal/pose"
)

// Result is everything the tracker learned from one frame.
type Result struct {
	// Frame is the zero-based index of the frame within the tracker's lifetime.
	Frame int `json:"frame"`

	Mask    *imaging.Mask      `json:"-"`
	Regions []detection.Region `json:"regions"`

	// Correspondence is only meaningful when HasCorrespondence is set.
	Correspondence    pose.Correspondence `json:"correspondence"`
	HasCorrespondence bool                `json:"has_correspondence"`

	Accepted     bool    `json:"accepted"`
	Displacement float64 `json:"displacement"`

	// Pose is only solved for accepted correspondences; Pose.Valid is false
	// otherwise.
	Pose pose.PoseEstimate `json:"pose"`
}

// Tracker holds the configured stages and the cross-frame jitter state of
// one tracking session. It is not safe for concurrent use.
type Tracker struct {
	segmenter imaging.Segmenter
	extract   detection.ExtractOptions
	ordering  pose.Ordering
	jitter    *pose.JitterFilter
	solver    pose.Solver

	log     *zap.Logger
	metrics *Metrics
	frames  int
}

// New builds a tracker from a configuration.
//
// A nil log discards log output; nil metrics records into unregistered
// collectors.
func New(cfg config.Config, log *zap.Logger, metrics *Metrics) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create tracker: %w", err)
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Tracker{
		segmenter: cfg.Segmenter(),
		extract:   cfg.ExtractOptions(),
		ordering:  cfg.Ordering(),
		jitter:    pose.NewJitterFilter(cfg.Jitter.Threshold),
		solver:    cfg.PoseSolver(),
		log:       logger.Or(log),
		metrics:   metrics,
	}, nil
}

// Frames returns the number of frames processed since creation.
func (t *Tracker) Frames() int {
	return t.frames
}

// Process runs every stage on one frame.
//
// An empty frame yields an empty mask, no regions and no correspondence. A
// correspondence rejected by the jitter filter is still reported, but its
// pose is not solved and the filter keeps the last accepted correspondence.
func (t *Tracker) Process(frame *imaging.Frame) Result {
	index := t.frames
	t.frames++
	t.metrics.Frames.Inc()

	res := Result{Frame: index}
	res.Mask = t.segmenter.Segment(frame)
	res.Regions = detection.Extract(res.Mask, t.extract)

	res.Correspondence, res.HasCorrespondence = pose.BuildCorrespondence(res.Regions, t.ordering)
	if !res.HasCorrespondence {
		t.metrics.Detections.WithLabelValues(OutcomeNoCorrespondence).Inc()
		t.log.Debug("no correspondence",
			zap.Int("frame", index),
			zap.Int("regions", len(res.Regions)))
		return res
	}

	res.Accepted, res.Displacement = t.jitter.Update(res.Correspondence)
	if !res.Accepted {
		t.metrics.Detections.WithLabelValues(OutcomeRejected).Inc()
		t.log.Debug("correspondence rejected",
			zap.Int("frame", index),
			zap.Float64("displacement", res.Displacement))
		return res
	}
	t.metrics.Detections.WithLabelValues(OutcomeAccepted).Inc()

	res.Pose = t.solver.Solve(res.Correspondence)
	if !res.Pose.Valid {
		t.metrics.SolveFailures.Inc()
		t.log.Debug("pose solve failed",
			zap.Int("frame", index),
			zap.Float64("reprojection_error", res.Pose.ReprojectionError))
		return res
	}
	t.metrics.ReprojectionError.Observe(res.Pose.ReprojectionError)

	t.log.Debug("pose solved",
		zap.Int("frame", index),
		zap.Float64("displacement", res.Displacement),
		zap.Float64("reprojection_error", res.Pose.ReprojectionError),
		zap.Float64("tz", res.Pose.Tvec.Z))
	return res
}

// Reset starts a new session: the next correspondence is accepted
// unconditionally.
func (t *Tracker) Reset() {
	t.jitter.Reset()
	t.log.Debug("tracker reset", zap.Int("frames", t.frames))
}
