package imaging

import (
	"image"
	"image/color"
)

// Mask is a binary foreground mask with the same extent as the frame it came from.
//
// Pix is indexed [y][x]; true marks a foreground (candidate marker) pixel.
type Mask struct {
	Width  int
	Height int
	Pix    [][]bool
}

// NewMask allocates an all-background mask. Negative sizes are treated as zero.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	pix := make([][]bool, height)
	for y := 0; y < height; y++ {
		pix[y] = make([]bool, width)
	}
	return &Mask{Width: width, Height: height, Pix: pix}
}

// At reports whether (x, y) is foreground. Coordinates outside the mask are background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y][x]
}

// Set marks (x, y) as foreground or background. Out-of-range writes are ignored.
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y][x] = v
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y][x] {
				n++
			}
		}
	}
	return n
}

// Equal reports whether two masks have the same size and pixels.
func (m *Mask) Equal(o *Mask) bool {
	if m.Width != o.Width || m.Height != o.Height {
		return false
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y][x] != o.Pix[y][x] {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	c := NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		copy(c.Pix[y], m.Pix[y])
	}
	return c
}

// Image renders the mask as a grayscale image: foreground 255, background 0.
func (m *Mask) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y][x] {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// Threshold builds a mask of the pixels whose HSV value falls inside r.
//
// Every pixel is converted with ToHSV and tested with HSVRange.Contains, so
// both bounds are inclusive on every channel. An empty frame yields an empty
// mask.
func Threshold(frame *Frame, r HSVRange) *Mask {
	width, height := frame.Width(), frame.Height()
	mask := NewMask(width, height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			red, green, blue := frame.RGB(x, y)
			if r.Contains(ToHSV(red, green, blue)) {
				mask.Pix[y][x] = true
			}
		}
	}

	return mask
}

// Dilate grows the foreground: a pixel is set if any pixel in its
// (2r+1)×(2r+1) neighbourhood is set. Neighbours outside the mask are ignored.
func Dilate(m *Mask, radius int) *Mask {
	result := NewMask(m.Width, m.Height)

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			anySet := false
			for dy := -radius; dy <= radius && !anySet; dy++ {
				for dx := -radius; dx <= radius && !anySet; dx++ {
					if m.At(x+dx, y+dy) {
						anySet = true
					}
				}
			}
			result.Pix[y][x] = anySet
		}
	}

	return result
}

// Erode shrinks the foreground: a pixel stays set only if every pixel in its
// (2r+1)×(2r+1) neighbourhood is set. Neighbours outside the mask count as set.
func Erode(m *Mask, radius int) *Mask {
	result := NewMask(m.Width, m.Height)

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.Pix[y][x] {
				continue
			}
			allSet := true
			for dy := -radius; dy <= radius && allSet; dy++ {
				for dx := -radius; dx <= radius && allSet; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= m.Width || ny >= m.Height {
						continue
					}
					if !m.Pix[ny][nx] {
						allSet = false
					}
				}
			}
			result.Pix[y][x] = allSet
		}
	}

	return result
}

// Close performs a morphological closing: iterations dilations followed by
// the same number of erosions.
//
// Closing fills gaps and pinholes narrower than the structuring element and
// bridges nearby fragments of the same region. It never adds foreground
// outside the dilated-then-eroded envelope of the input, so region
// boundaries do not grow beyond what closing guarantees.
func Close(m *Mask, radius, iterations int) *Mask {
	result := m
	for i := 0; i < iterations; i++ {
		result = Dilate(result, radius)
	}
	for i := 0; i < iterations; i++ {
		result = Erode(result, radius)
	}
	if result == m {
		return m.Clone()
	}
	return result
}

// Segmenter converts frames into cleaned-up foreground masks.
//
// The zero value is not useful; build one from configuration or use
// DefaultSegmenter for the reference blue-panel settings.
type Segmenter struct {
	// Range is the inclusive HSV interval of marker material.
	Range HSVRange

	// KernelRadius is the half-size of the square closing neighbourhood
	// (1 = 3×3).
	KernelRadius int

	// Iterations is the number of dilate/erode passes of the closing.
	// Zero disables the closing.
	Iterations int
}

// DefaultSegmenter returns the reference configuration: hue 90-140,
// saturation 30-255, value 180-255, 3×3 closing with 2 iterations.
func DefaultSegmenter() Segmenter {
	return Segmenter{
		Range: HSVRange{
			Lower: HSV{H: 90, S: 30, V: 180},
			Upper: HSV{H: 140, S: 255, V: 255},
		},
		KernelRadius: 1,
		Iterations:   2,
	}
}

// Segment thresholds the frame and applies the closing.
//
// The result is a fresh mask owned by the caller. Segment has no hidden
// state: the same frame always produces an identical mask. A nil or empty
// frame yields an all-zero mask of the frame's size.
func (s Segmenter) Segment(frame *Frame) *Mask {
	if frame.Empty() {
		return NewMask(frame.Width(), frame.Height())
	}
	mask := Threshold(frame, s.Range)
	return Close(mask, s.KernelRadius, s.Iterations)
}
