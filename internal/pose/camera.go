package pose

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/ironsheep/marker-pose/internal/detection"
)

// undistortIterations matches the fixed-point iteration count commonly used
// for undistorting points.
const undistortIterations = 20

// CameraModel holds pinhole intrinsics and Brown-Conrady distortion.
//
// Dist is (k1, k2, p1, p2, k3): three radial and two tangential terms.
type CameraModel struct {
	Fx   float64    `json:"fx"`
	Fy   float64    `json:"fy"`
	Cx   float64    `json:"cx"`
	Cy   float64    `json:"cy"`
	Dist [5]float64 `json:"dist"`
}

// Validate checks that the focal lengths are positive and every parameter is finite.
func (c CameraModel) Validate() error {
	if !(c.Fx > 0) || !(c.Fy > 0) || math.IsInf(c.Fx, 0) || math.IsInf(c.Fy, 0) {
		return fmt.Errorf("focal lengths must be positive and finite, got fx=%g fy=%g", c.Fx, c.Fy)
	}
	if !finite(c.Cx) || !finite(c.Cy) {
		return fmt.Errorf("principal point must be finite, got (%g, %g)", c.Cx, c.Cy)
	}
	for i, d := range c.Dist {
		if !finite(d) {
			return fmt.Errorf("distortion coefficient %d is not finite", i)
		}
	}
	return nil
}

// Project maps a point in the camera frame to distorted pixel coordinates.
// Points on or behind the image plane (Z <= 0) project to NaN.
func (c CameraModel) Project(p r3.Vector) detection.Point2 {
	if p.Z <= 0 {
		return detection.Point2{X: math.NaN(), Y: math.NaN()}
	}
	xd, yd := c.distort(p.X/p.Z, p.Y/p.Z)
	return detection.Point2{X: c.Fx*xd + c.Cx, Y: c.Fy*yd + c.Cy}
}

// Normalize maps a distorted pixel to undistorted normalised image
// coordinates (x/z, y/z) by fixed-point iteration on the distortion model.
func (c CameraModel) Normalize(p detection.Point2) detection.Point2 {
	x0 := (p.X - c.Cx) / c.Fx
	y0 := (p.Y - c.Cy) / c.Fy
	k1, k2, p1, p2, k3 := c.Dist[0], c.Dist[1], c.Dist[2], c.Dist[3], c.Dist[4]

	x, y := x0, y0
	for i := 0; i < undistortIterations; i++ {
		r2 := x*x + y*y
		icdist := 1 / (1 + ((k3*r2+k2)*r2+k1)*r2)
		dx := 2*p1*x*y + p2*(r2+2*x*x)
		dy := p1*(r2+2*y*y) + 2*p2*x*y
		x = (x0 - dx) * icdist
		y = (y0 - dy) * icdist
	}
	return detection.Point2{X: x, Y: y}
}

func (c CameraModel) distort(x, y float64) (float64, float64) {
	k1, k2, p1, p2, k3 := c.Dist[0], c.Dist[1], c.Dist[2], c.Dist[3], c.Dist[4]
	r2 := x*x + y*y
	radial := 1 + k1*r2 + k2*r2*r2 + k3*r2*r2*r2
	xd := x*radial + 2*p1*x*y + p2*(r2+2*x*x)
	yd := y*radial + p1*(r2+2*y*y) + 2*p2*x*y
	return xd, yd
}

// ProjectPose transforms board-frame points by the pose and projects them.
func (c CameraModel) ProjectPose(pose PoseEstimate, points []r3.Vector) []detection.Point2 {
	rot := newRotation(pose.Rvec)
	out := make([]detection.Point2, len(points))
	for i, p := range points {
		out[i] = c.Project(rot.apply(p).Add(pose.Tvec))
	}
	return out
}

// ProjectAxes returns the pixel positions of the board origin and of the tips
// of the X, Y and Z axes, each length millimetres long.
func (c CameraModel) ProjectAxes(pose PoseEstimate, length float64) (origin, x, y, z detection.Point2) {
	pts := c.ProjectPose(pose, []r3.Vector{
		{},
		{X: length},
		{Y: length},
		{Z: length},
	})
	return pts[0], pts[1], pts[2], pts[3]
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
