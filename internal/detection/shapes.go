package detection

import (
	"fmt"
	"image"
	"strings"

	"github.com/ironsheep/marker-pose/internal/imaging"
)

// Variant selects the bounding shape computed for each region.
type Variant int

const (
	// VariantBox measures regions with their axis-aligned bounding box.
	VariantBox Variant = iota

	// VariantRotated measures regions with their minimum-area rotated
	// rectangle, which follows the marker when it is tilted in the image.
	VariantRotated
)

// String returns the configuration name of the variant.
func (v Variant) String() string {
	switch v {
	case VariantBox:
		return "box"
	case VariantRotated:
		return "rotated"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant maps a configuration name ("box" or "rotated") to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "box", "":
		return VariantBox, nil
	case "rotated", "rotated-rect", "minarea":
		return VariantRotated, nil
	default:
		return VariantBox, fmt.Errorf("unknown region variant %q (want box or rotated)", s)
	}
}

// Region is a filtered, bounded blob of marker material.
type Region struct {
	// Area is the shoelace area of the outer border polygon in square pixels.
	Area float64 `json:"area"`

	// Box is the axis-aligned bounding box. Max is exclusive, so
	// Box.Dx() and Box.Dy() are the pixel extents.
	Box image.Rectangle `json:"box"`

	// Rotated is the minimum-area rectangle. Only set for VariantRotated.
	Rotated RotatedRect `json:"rotated"`

	// Variant records which bounding shape was used for filtering.
	Variant Variant `json:"variant"`

	// Contour is the traced outer border.
	Contour Contour `json:"-"`
}

// Size returns the width and height of the region's bounding shape.
func (r Region) Size() (width, height float64) {
	if r.Variant == VariantRotated {
		return r.Rotated.Width, r.Rotated.Height
	}
	return float64(r.Box.Dx()), float64(r.Box.Dy())
}

// Centroid returns the centre of the region's bounding shape.
func (r Region) Centroid() Point2 {
	if r.Variant == VariantRotated {
		return r.Rotated.Center
	}
	return Point2{
		X: float64(r.Box.Min.X) + float64(r.Box.Dx())/2,
		Y: float64(r.Box.Min.Y) + float64(r.Box.Dy())/2,
	}
}

// Corners returns the four corner anchors of the region's bounding shape.
//
// For the box variant these are the box origin (x, y), bottom-left
// (x, y+h), top-right (x+w, y) and bottom-right (x+w, y+h), with w and h the
// pixel extents of the box.
//
// For the rotated variant each anchor is the rectangle corner furthest in the
// anchor's direction: top-left minimises x+y, bottom-right maximises x+y,
// top-right maximises x−y and bottom-left maximises y−x.
func (r Region) Corners() (topLeft, bottomLeft, topRight, bottomRight Point2) {
	if r.Variant != VariantRotated {
		x, y := float64(r.Box.Min.X), float64(r.Box.Min.Y)
		w, h := float64(r.Box.Dx()), float64(r.Box.Dy())
		return Point2{X: x, Y: y}, Point2{X: x, Y: y + h}, Point2{X: x + w, Y: y}, Point2{X: x + w, Y: y + h}
	}

	pts := r.Rotated.Points()
	topLeft, bottomLeft, topRight, bottomRight = pts[0], pts[0], pts[0], pts[0]
	for _, p := range pts[1:] {
		if p.X+p.Y < topLeft.X+topLeft.Y {
			topLeft = p
		}
		if p.X+p.Y > bottomRight.X+bottomRight.Y {
			bottomRight = p
		}
		if p.X-p.Y > topRight.X-topRight.Y {
			topRight = p
		}
		if p.Y-p.X > bottomLeft.Y-bottomLeft.X {
			bottomLeft = p
		}
	}
	return topLeft, bottomLeft, topRight, bottomRight
}

// ExtractOptions controls region filtering.
type ExtractOptions struct {
	// MinArea is the smallest accepted contour area in square pixels.
	// The bound is inclusive: a contour with exactly MinArea is kept.
	MinArea float64

	// MinExtent is the smallest accepted width and height of the bounding
	// shape in pixels (inclusive).
	MinExtent float64

	// Variant selects the bounding shape.
	Variant Variant
}

// DefaultExtractOptions returns the reference filter: area >= 80 px²,
// width and height >= 5 px, axis-aligned boxes.
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		MinArea:   80,
		MinExtent: 5,
		Variant:   VariantBox,
	}
}

// Extract finds the outermost blobs of the mask and returns those that pass
// the area and extent filters.
//
// Parameters:
//   - mask: Foreground mask from the segmenter. Nil or empty masks yield no regions.
//   - opts: Filter thresholds and the bounding shape to compute.
//
// Returns regions in discovery order (see package documentation). The number
// of regions is not bounded: callers must cope with any count, including zero.
//
// # Filtering
//
//  1. Area: contours with ContourArea < MinArea are discarded as noise specks
//  2. Extent: shapes whose width or height is < MinExtent are discarded as
//     slivers. The box variant measures the bounding box; the rotated variant
//     measures the minimum-area rectangle
//
// Extract has no hidden state: the same mask always yields the same regions.
func Extract(mask *imaging.Mask, opts ExtractOptions) []Region {
	contours := FindExternalContours(mask)
	regions := make([]Region, 0, len(contours))

	for _, c := range contours {
		area := ContourArea(c)
		if area < opts.MinArea {
			continue
		}

		region := Region{
			Area:    area,
			Box:     BoundingRect(c),
			Variant: opts.Variant,
			Contour: c,
		}
		if opts.Variant == VariantRotated {
			region.Rotated = MinAreaRect(c)
		}

		w, h := region.Size()
		if w < opts.MinExtent || h < opts.MinExtent {
			continue
		}

		regions = append(regions, region)
	}

	return regions
}

// MarshalText encodes the variant by name.
func (v Variant) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
