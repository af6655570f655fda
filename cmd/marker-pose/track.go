package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ironsheep/marker-pose/internal/config"
	"github.com/ironsheep/marker-pose/internal/imaging"
	"github.com/ironsheep/marker-pose/internal/logger"
	"github.com/ironsheep/marker-pose/internal/pipeline"
	"github.com/ironsheep/marker-pose/internal/render"
)

// firstDetectedName is written once, for the first frame with any region.
const firstDetectedName = "first_frame_detected.png"

type trackOptions struct {
	input       string
	outDir      string
	writeMask   bool
	metricsAddr string
}

// runTrack plays the frame directory through one tracker and writes a JSON
// report line per frame to out.
//
// Failing to open the source is the only fatal error. Frames that cannot be
// decoded are logged and skipped; the tracker keeps its state across them.
func runTrack(cfg config.Config, opts trackOptions, out io.Writer) error {
	log := logger.Log()

	src, err := imaging.OpenDir(opts.input)
	if err != nil {
		return err
	}

	var (
		metrics  *pipeline.Metrics
		registry *prometheus.Registry
	)
	if opts.metricsAddr != "" {
		registry = prometheus.NewRegistry()
		metrics = pipeline.NewMetrics(registry)
	}

	tracker, err := pipeline.New(cfg, log, metrics)
	if err != nil {
		return err
	}
	if registry != nil {
		go serveMetrics(opts.metricsAddr, registry)
	}

	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	overlay := render.OverlayOptions{
		Camera:     cfg.CameraModel(),
		AxisLength: cfg.Render.AxisLength,
	}

	log.Info("tracking", zap.String("input", opts.input), zap.Int("frames", src.Len()))

	enc := json.NewEncoder(out)
	savedFirst := false
	for {
		frame, path, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn("skipping frame", zap.String("path", path), zap.Error(err))
			continue
		}

		res := tracker.Process(frame)
		if err := enc.Encode(res.Report()); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}

		if opts.outDir == "" {
			continue
		}
		if err := writeFrameImages(frame, res, overlay, opts, !savedFirst); err != nil {
			log.Warn("failed to write frame images", zap.Int("frame", res.Frame), zap.Error(err))
		}
		if len(res.Regions) > 0 {
			savedFirst = true
		}
	}

	log.Info("tracking finished", zap.Int("frames", tracker.Frames()))
	return nil
}

func writeFrameImages(frame *imaging.Frame, res pipeline.Result, opts render.OverlayOptions, to trackOptions, firstPending bool) error {
	base := filepath.Join(to.outDir, fmt.Sprintf("frame_%05d", res.Frame))

	drawn := render.Overlay(frame, res, opts)
	if err := imaging.SaveImage(base+"_overlay.png", drawn); err != nil {
		return err
	}
	if firstPending && len(res.Regions) > 0 {
		if err := imaging.SaveImage(filepath.Join(to.outDir, firstDetectedName), drawn); err != nil {
			return err
		}
	}

	if !to.writeMask {
		return nil
	}
	if err := imaging.SaveImage(base+"_mask.png", render.MaskImage(res.Mask)); err != nil {
		return err
	}
	return imaging.SaveImage(base+"_masked.png", render.Masked(frame, res.Mask))
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Log().Error("metrics server stopped", zap.String("addr", addr), zap.Error(err))
	}
}
