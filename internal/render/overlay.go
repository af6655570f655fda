// Package render draws diagnostic overlays for tracker results.
package render

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"github.com/ironsheep/marker-pose/internal/detection"
	"github.com/ironsheep/marker-pose/internal/imaging"
	"github.com/ironsheep/marker-pose/internal/pipeline"
	"github.com/ironsheep/marker-pose/internal/pose"
)

// Overlay colours.
var (
	RegionColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	CornerColor = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	AxisX       = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	AxisY       = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	AxisZ       = color.RGBA{R: 0, G: 0, B: 255, A: 255}
)

// CornerRadius is the radius in pixels of the filled corner markers.
const CornerRadius = 5

// OverlayOptions controls what Overlay draws.
type OverlayOptions struct {
	// Camera projects the pose axes. Axes are skipped when AxisLength <= 0.
	Camera     pose.CameraModel
	AxisLength float64

	// LineWidth of region outlines and axes, in pixels.
	LineWidth float64
}

// Overlay draws a result over a copy of the frame.
//
// Drawn layers, bottom to top:
//   - the outline of every extracted region (box or rotated rectangle)
//   - a filled circle on each correspondence point, when there is one
//   - the X (red), Y (green) and Z (blue) board axes, when the pose is valid
func Overlay(frame *imaging.Frame, res pipeline.Result, opts OverlayOptions) image.Image {
	if frame.Empty() {
		return image.NewNRGBA(image.Rect(0, 0, frame.Width(), frame.Height()))
	}

	dc := gg.NewContextForImage(frame.Image())
	lw := opts.LineWidth
	if lw <= 0 {
		lw = 2
	}
	dc.SetLineWidth(lw)

	dc.SetColor(RegionColor)
	for _, r := range res.Regions {
		drawRegion(dc, r)
	}
	dc.Stroke()

	if res.HasCorrespondence {
		dc.SetColor(CornerColor)
		for _, p := range res.Correspondence {
			dc.DrawCircle(p.X, p.Y, CornerRadius)
			dc.Fill()
		}
	}

	if res.Pose.Valid && opts.AxisLength > 0 {
		origin, x, y, z := opts.Camera.ProjectAxes(res.Pose, opts.AxisLength)
		for _, axis := range []struct {
			tip detection.Point2
			c   color.Color
		}{{x, AxisX}, {y, AxisY}, {z, AxisZ}} {
			dc.SetColor(axis.c)
			dc.DrawLine(origin.X, origin.Y, axis.tip.X, axis.tip.Y)
			dc.Stroke()
		}
	}

	return dc.Image()
}

func drawRegion(dc *gg.Context, r detection.Region) {
	if r.Variant == detection.VariantRotated {
		pts := r.Rotated.Points()
		dc.MoveTo(pts[0].X, pts[0].Y)
		for _, p := range pts[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.ClosePath()
		return
	}
	b := r.Box
	dc.DrawRectangle(float64(b.Min.X), float64(b.Min.Y), float64(b.Dx()), float64(b.Dy()))
}

// MaskImage renders a mask as white foreground on black.
func MaskImage(mask *imaging.Mask) image.Image {
	return mask.Image()
}

// Masked keeps the frame's pixels where the mask is set and blacks out the
// rest, showing exactly which colours passed the threshold.
func Masked(frame *imaging.Frame, mask *imaging.Mask) image.Image {
	out := image.NewNRGBA(image.Rect(0, 0, frame.Width(), frame.Height()))
	for y := 0; y < frame.Height(); y++ {
		for x := 0; x < frame.Width(); x++ {
			if !mask.At(x, y) {
				out.SetNRGBA(x, y, color.NRGBA{A: 255})
				continue
			}
			r, g, b := frame.RGB(x, y)
			out.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return out
}
