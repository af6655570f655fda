package detection

import (
	"image"
	"math"
	"sort"
)

// Point2 is a sub-pixel 2D image coordinate.
type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point2) Sub(q Point2) Point2 {
	return Point2{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dist returns the Euclidean distance between p and q.
func (p Point2) Dist(q Point2) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// RotatedRect is a rectangle of arbitrary orientation.
//
// Width is the extent along the direction given by Angle (degrees, clockwise
// on screen from the +X axis, normalised to [0, 90)); Height is the extent
// along the perpendicular direction.
type RotatedRect struct {
	Center Point2  `json:"center"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Angle  float64 `json:"angle"`
}

// Points returns the four rectangle corners, walking around the rectangle.
func (r RotatedRect) Points() [4]Point2 {
	rad := r.Angle * math.Pi / 180
	ux, uy := math.Cos(rad)*r.Width/2, math.Sin(rad)*r.Width/2
	vx, vy := -math.Sin(rad)*r.Height/2, math.Cos(rad)*r.Height/2

	c := r.Center
	return [4]Point2{
		{X: c.X - ux - vx, Y: c.Y - uy - vy},
		{X: c.X + ux - vx, Y: c.Y + uy - vy},
		{X: c.X + ux + vx, Y: c.Y + uy + vy},
		{X: c.X - ux + vx, Y: c.Y - uy + vy},
	}
}

// ConvexHull returns the convex hull of the points using Andrew's monotone
// chain. Collinear points on hull edges are dropped. Fewer than three input
// points are returned unchanged (after de-duplication).
func ConvexHull(points []image.Point) []image.Point {
	sorted := make([]image.Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	unique := make([]image.Point, 0, len(sorted))
	for i, p := range sorted {
		if i == 0 || p != sorted[i-1] {
			unique = append(unique, p)
		}
	}
	if len(unique) < 3 {
		return unique
	}

	cross := func(o, a, b image.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var lower []image.Point
	for _, p := range unique {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []image.Point
	for i := len(unique) - 1; i >= 0; i-- {
		p := unique[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// MinAreaRect returns the minimum-area rectangle enclosing the contour.
//
// # Algorithm (Rotating Calipers)
//
//  1. Hull: Compute the convex hull of the contour points
//  2. Edge Sweep: The optimal rectangle has one side collinear with a hull
//     edge, so for every edge project all hull points onto the edge direction
//     and its normal and take the extents
//  3. Selection: Keep the edge giving the smallest area (first one wins ties)
//  4. Normalisation: Rotate the description by multiples of 90° so that Angle
//     lies in [0, 90), swapping Width and Height with every quarter turn
//
// Degenerate inputs: a single point gives a zero-size rectangle at that point;
// collinear points give a zero-height rectangle along the line.
func MinAreaRect(c Contour) RotatedRect {
	hull := ConvexHull(c)
	switch len(hull) {
	case 0:
		return RotatedRect{}
	case 1:
		return RotatedRect{Center: Point2{X: float64(hull[0].X), Y: float64(hull[0].Y)}}
	}

	best := RotatedRect{}
	bestArea := math.Inf(1)

	for i := range hull {
		a := hull[i]
		b := hull[(i+1)%len(hull)]
		ex, ey := float64(b.X-a.X), float64(b.Y-a.Y)
		length := math.Hypot(ex, ey)
		if length == 0 {
			continue
		}
		ux, uy := ex/length, ey/length
		vx, vy := -uy, ux

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			px, py := float64(p.X), float64(p.Y)
			u := px*ux + py*uy
			v := px*vx + py*vy
			minU = math.Min(minU, u)
			maxU = math.Max(maxU, u)
			minV = math.Min(minV, v)
			maxV = math.Max(maxV, v)
		}

		area := (maxU - minU) * (maxV - minV)
		if area < bestArea {
			bestArea = area
			mu, mv := (minU+maxU)/2, (minV+maxV)/2
			best = RotatedRect{
				Center: Point2{X: mu*ux + mv*vx, Y: mu*uy + mv*vy},
				Width:  maxU - minU,
				Height: maxV - minV,
				Angle:  math.Atan2(uy, ux) * 180 / math.Pi,
			}
		}
	}

	return normaliseAngle(best)
}

// normaliseAngle brings the angle into [0, 90) by quarter turns.
func normaliseAngle(r RotatedRect) RotatedRect {
	for r.Angle < 0 {
		r.Angle += 90
		r.Width, r.Height = r.Height, r.Width
	}
	for r.Angle >= 90 {
		r.Angle -= 90
		r.Width, r.Height = r.Height, r.Width
	}
	// Snap values that are a rounding error away from 90 back to 0.
	if 90-r.Angle < 1e-9 {
		r.Angle = 0
		r.Width, r.Height = r.Height, r.Width
	}
	return r
}
