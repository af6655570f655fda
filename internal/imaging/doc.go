// Package imaging provides frame handling and colour segmentation for the marker tracker.
//
// This package turns decoded video frames into binary foreground masks. It owns
// the Frame type shared by the rest of the pipeline, the RGB to HSV conversion,
// inclusive HSV range thresholding, and the binary morphology used to clean
// the mask up before shape extraction. Frame I/O (single files, cached loads,
// directories of numbered frames) and PNG crops of detected regions live here
// too.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Frames and masks always start at (0, 0), regardless of the bounds of
//     the decoded source image
//
// # Colour Representation
//
// HSV values follow the 8-bit convention used by common vision toolkits, so
// threshold bounds picked with those tools can be used unchanged:
//   - Hue: 0-179 (degrees divided by two)
//   - Saturation: 0-255
//   - Value: 0-255
//
// # Morphology
//
// Dilation and erosion use a square (2r+1)×(2r+1) neighbourhood. Pixels outside
// the mask are ignored by dilation and count as foreground for erosion, so a
// closing never shrinks a region that touches the frame border.
//
// # Thread Safety
//
// The FrameCache type is safe for concurrent use. Frames are immutable once
// built and masks are created fresh by every Segment call, so the Segmenter
// can be shared between goroutines.
//
// # Error Handling
//
// Segmentation never fails: an empty frame yields an empty, all-zero mask.
// Errors are returned only by frame I/O (missing files, undecodable images,
// empty frame directories).
package imaging
