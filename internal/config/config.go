// Package config loads tracker settings from YAML.
//
// Every field has a reference default (see Default), so a config file only
// needs to name the values it changes. Load overlays the file onto the
// defaults and validates the result.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/marker-pose/internal/detection"
	"github.com/ironsheep/marker-pose/internal/imaging"
	"github.com/ironsheep/marker-pose/internal/pose"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the complete tracker configuration.
type Config struct {
	Segmentation   Segmentation   `yaml:"segmentation"`
	Extraction     Extraction     `yaml:"extraction"`
	Correspondence Correspondence `yaml:"correspondence"`
	Jitter         Jitter         `yaml:"jitter"`
	Camera         Camera         `yaml:"camera"`
	Reference      Reference      `yaml:"reference"`
	Solver         Solver         `yaml:"solver"`
	Render         Render         `yaml:"render"`
}

// Segmentation configures colour thresholding and mask closing.
type Segmentation struct {
	// HSVLower and HSVUpper are inclusive [H, S, V] bounds with H in 0-179.
	HSVLower [3]int `yaml:"hsv_lower"`
	HSVUpper [3]int `yaml:"hsv_upper"`

	// KernelSize is the odd side length of the square closing kernel.
	KernelSize int `yaml:"kernel_size"`
	Iterations int `yaml:"iterations"`
}

type Extraction struct {
	MinArea   float64 `yaml:"min_area"`
	MinExtent float64 `yaml:"min_extent"`
	Variant   string  `yaml:"variant"` // box | rotated
}

type Correspondence struct {
	Ordering string `yaml:"ordering"` // spatial | discovery
}

type Jitter struct {
	Threshold float64 `yaml:"threshold"`
}

// Camera holds the 3x3 intrinsic matrix and (k1, k2, p1, p2, k3).
type Camera struct {
	Matrix     [3][3]float64 `yaml:"matrix"`
	Distortion [5]float64    `yaml:"distortion"`
}

// Reference lists the board corners in millimetres in role order:
// top-left, bottom-left, top-right, bottom-right.
type Reference struct {
	Corners [4][3]float64 `yaml:"corners"`
}

type Solver struct {
	MaxReprojectionError float64 `yaml:"max_reprojection_error"`
	MaxIterations        int     `yaml:"max_iterations"`
}

type Render struct {
	AxisLength float64 `yaml:"axis_length"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Segmentation: Segmentation{
			HSVLower:   [3]int{90, 30, 180},
			HSVUpper:   [3]int{140, 255, 255},
			KernelSize: 3,
			Iterations: 2,
		},
		Extraction: Extraction{
			MinArea:   80,
			MinExtent: 5,
			Variant:   detection.VariantBox.String(),
		},
		Correspondence: Correspondence{
			Ordering: pose.OrderSpatial.String(),
		},
		Jitter: Jitter{
			Threshold: pose.DefaultJitterThreshold,
		},
		Camera: Camera{
			Matrix: [3][3]float64{
				{1.174511689696492e+03, 0, 6.386366942819570e+02},
				{0, 1.175197092436960e+03, 8.627497739086036e+02},
				{0, 0, 1},
			},
			Distortion: [5]float64{0.103247081556123, 0.225565033862951, 0, 0, 0},
		},
		Reference: Reference{
			Corners: [4][3]float64{
				{-100, -75, 0},
				{-100, 75, 0},
				{100, -75, 0},
				{100, 75, 0},
			},
		},
		Solver: Solver{
			MaxReprojectionError: pose.DefaultMaxReprojectionError,
			MaxIterations:        pose.DefaultMaxIterations,
		},
		Render: Render{
			AxisLength: 50,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid field. The error wraps ErrInvalid.
func (c Config) Validate() error {
	if _, err := c.HSVRange(); err != nil {
		return invalid("segmentation", err)
	}
	if k := c.Segmentation.KernelSize; k < 1 || k%2 == 0 {
		return invalid("segmentation.kernel_size", fmt.Errorf("must be a positive odd number, got %d", k))
	}
	if c.Segmentation.Iterations < 0 {
		return invalid("segmentation.iterations", fmt.Errorf("must not be negative, got %d", c.Segmentation.Iterations))
	}

	if c.Extraction.MinArea < 0 || !isFinite(c.Extraction.MinArea) {
		return invalid("extraction.min_area", fmt.Errorf("must be a non-negative number, got %g", c.Extraction.MinArea))
	}
	if c.Extraction.MinExtent < 0 || !isFinite(c.Extraction.MinExtent) {
		return invalid("extraction.min_extent", fmt.Errorf("must be a non-negative number, got %g", c.Extraction.MinExtent))
	}
	if _, err := detection.ParseVariant(c.Extraction.Variant); err != nil {
		return invalid("extraction.variant", err)
	}
	if _, err := pose.ParseOrdering(c.Correspondence.Ordering); err != nil {
		return invalid("correspondence.ordering", err)
	}

	if !(c.Jitter.Threshold > 0) || !isFinite(c.Jitter.Threshold) {
		return invalid("jitter.threshold", fmt.Errorf("must be positive, got %g", c.Jitter.Threshold))
	}

	m := c.Camera.Matrix
	if m[0][1] != 0 || m[1][0] != 0 || m[2] != [3]float64{0, 0, 1} {
		return invalid("camera.matrix", errors.New("must have the form [[fx 0 cx] [0 fy cy] [0 0 1]]"))
	}
	if err := c.CameraModel().Validate(); err != nil {
		return invalid("camera", err)
	}

	ref := c.ReferenceCorners()
	for i := 1; i < len(ref); i++ {
		if ref[i].Z != ref[0].Z {
			return invalid("reference.corners", errors.New("corners must share one Z value"))
		}
		for j := 0; j < i; j++ {
			if ref[i] == ref[j] {
				return invalid("reference.corners", fmt.Errorf("corners %d and %d coincide", j, i))
			}
		}
	}
	plane := make([]detection.Point2, len(ref))
	for i, p := range ref {
		plane[i] = detection.Point2{X: p.X, Y: p.Y}
	}
	if pose.NearlyCollinear(plane) {
		return invalid("reference.corners", errors.New("three corners are collinear"))
	}

	if c.Solver.MaxReprojectionError < 0 {
		return invalid("solver.max_reprojection_error", fmt.Errorf("must not be negative, got %g", c.Solver.MaxReprojectionError))
	}
	if c.Solver.MaxIterations < 0 {
		return invalid("solver.max_iterations", fmt.Errorf("must not be negative, got %d", c.Solver.MaxIterations))
	}
	if !(c.Render.AxisLength > 0) {
		return invalid("render.axis_length", fmt.Errorf("must be positive, got %g", c.Render.AxisLength))
	}
	return nil
}

func invalid(field string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInvalid, field, err)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// HSVRange converts the segmentation bounds, checking channel ranges.
func (c Config) HSVRange() (imaging.HSVRange, error) {
	lower, err := toHSV(c.Segmentation.HSVLower)
	if err != nil {
		return imaging.HSVRange{}, fmt.Errorf("hsv_lower: %w", err)
	}
	upper, err := toHSV(c.Segmentation.HSVUpper)
	if err != nil {
		return imaging.HSVRange{}, fmt.Errorf("hsv_upper: %w", err)
	}
	r := imaging.HSVRange{Lower: lower, Upper: upper}
	return r, r.Validate()
}

func toHSV(v [3]int) (imaging.HSV, error) {
	if v[0] < 0 || v[0] > 179 {
		return imaging.HSV{}, fmt.Errorf("hue %d outside 0-179", v[0])
	}
	for _, ch := range v[1:] {
		if ch < 0 || ch > 255 {
			return imaging.HSV{}, fmt.Errorf("channel value %d outside 0-255", ch)
		}
	}
	return imaging.HSV{H: uint8(v[0]), S: uint8(v[1]), V: uint8(v[2])}, nil
}

// Segmenter builds the segmenter. The config must be valid.
func (c Config) Segmenter() imaging.Segmenter {
	r, _ := c.HSVRange()
	return imaging.Segmenter{
		Range:        r,
		KernelRadius: (c.Segmentation.KernelSize - 1) / 2,
		Iterations:   c.Segmentation.Iterations,
	}
}

// ExtractOptions builds the region filter. The config must be valid.
func (c Config) ExtractOptions() detection.ExtractOptions {
	variant, _ := detection.ParseVariant(c.Extraction.Variant)
	return detection.ExtractOptions{
		MinArea:   c.Extraction.MinArea,
		MinExtent: c.Extraction.MinExtent,
		Variant:   variant,
	}
}

// Ordering returns the correspondence ordering. The config must be valid.
func (c Config) Ordering() pose.Ordering {
	o, _ := pose.ParseOrdering(c.Correspondence.Ordering)
	return o
}

func (c Config) CameraModel() pose.CameraModel {
	m := c.Camera.Matrix
	return pose.CameraModel{
		Fx:   m[0][0],
		Fy:   m[1][1],
		Cx:   m[0][2],
		Cy:   m[1][2],
		Dist: c.Camera.Distortion,
	}
}

func (c Config) ReferenceCorners() [4]r3.Vector {
	var out [4]r3.Vector
	for i, p := range c.Reference.Corners {
		out[i] = r3.Vector{X: p[0], Y: p[1], Z: p[2]}
	}
	return out
}

// PoseSolver builds the PnP solver.
func (c Config) PoseSolver() pose.Solver {
	return pose.Solver{
		Camera:               c.CameraModel(),
		Reference:            c.ReferenceCorners(),
		MaxReprojectionError: c.Solver.MaxReprojectionError,
		MaxIterations:        c.Solver.MaxIterations,
	}
}
