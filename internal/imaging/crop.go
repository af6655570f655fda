package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// CropResult contains a PNG-encoded cut-out of a frame
type CropResult struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Crop cuts rect out of the frame, grown by padding pixels on every side and
// clipped to the frame, then resized by scale.
//
// Parameters:
//   - frame: Source frame.
//   - rect: Region to cut, usually a detected region's bounding box.
//   - padding: Context pixels added around rect. Negative values count as zero.
//   - scale: Resize factor applied after cropping; 1 or values <= 0 keep the size.
//
// X and Y of the result give the top-left corner of the cut in frame
// coordinates; Width and Height are the encoded (scaled) size.
//
// Returns an error if the padded rectangle does not overlap the frame.
func Crop(frame *Frame, rect image.Rectangle, padding int, scale float64) (*CropResult, error) {
	if padding < 0 {
		padding = 0
	}
	bounds := image.Rect(0, 0, frame.Width(), frame.Height())
	cut := rect.Inset(-padding).Intersect(bounds)
	if cut.Empty() {
		return nil, fmt.Errorf("crop region %v outside frame bounds %dx%d", rect, frame.Width(), frame.Height())
	}

	cropped := imaging.Crop(frame.Image(), cut)

	if scale != 1.0 && scale > 0 {
		newWidth := max(1, int(float64(cut.Dx())*scale))
		newHeight := max(1, int(float64(cut.Dy())*scale))
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.NearestNeighbor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		X:           cut.Min.X,
		Y:           cut.Min.Y,
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
