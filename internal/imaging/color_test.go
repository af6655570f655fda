package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createSolidFrame creates an in-memory frame filled with a single colour
func createSolidFrame(width, height int, c color.Color) *Frame {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return NewFrame(img)
}

func TestToHSV_KnownColors(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		want    HSV
	}{
		{"pure red", 255, 0, 0, HSV{H: 0, S: 255, V: 255}},
		{"pure green", 0, 255, 0, HSV{H: 60, S: 255, V: 255}},
		{"pure blue", 0, 0, 255, HSV{H: 120, S: 255, V: 255}},
		{"cyan", 0, 255, 255, HSV{H: 90, S: 255, V: 255}},
		{"white", 255, 255, 255, HSV{H: 0, S: 0, V: 255}},
		{"black", 0, 0, 0, HSV{H: 0, S: 0, V: 0}},
		{"gray", 128, 128, 128, HSV{H: 0, S: 0, V: 128}},
		{"azure", 0, 128, 255, HSV{H: 105, S: 255, V: 255}},
		{"marker blue", 40, 120, 230, HSV{H: 107, S: 211, V: 230}},
		{"hue wraps to zero", 255, 0, 2, HSV{H: 0, S: 255, V: 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToHSV(tt.r, tt.g, tt.b))
		})
	}
}

func TestHSVRange_ContainsIsInclusive(t *testing.T) {
	r := HSVRange{
		Lower: HSV{H: 90, S: 30, V: 180},
		Upper: HSV{H: 140, S: 255, V: 255},
	}

	tests := []struct {
		name string
		c    HSV
		want bool
	}{
		{"lower corner", HSV{H: 90, S: 30, V: 180}, true},
		{"upper corner", HSV{H: 140, S: 255, V: 255}, true},
		{"inside", HSV{H: 110, S: 200, V: 220}, true},
		{"hue below", HSV{H: 89, S: 200, V: 220}, false},
		{"hue above", HSV{H: 141, S: 200, V: 220}, false},
		{"saturation below", HSV{H: 110, S: 29, V: 220}, false},
		{"value below", HSV{H: 110, S: 200, V: 179}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Contains(tt.c))
		})
	}
}

func TestHSVRange_Validate(t *testing.T) {
	assert.NoError(t, DefaultSegmenter().Range.Validate())

	inverted := HSVRange{Lower: HSV{H: 100}, Upper: HSV{H: 90, S: 255, V: 255}}
	assert.Error(t, inverted.Validate())

	hueTooLarge := HSVRange{Upper: HSV{H: 200, S: 255, V: 255}}
	assert.Error(t, hueTooLarge.Validate())
}

func TestSampleHSV(t *testing.T) {
	frame := createSolidFrame(20, 10, color.RGBA{40, 120, 230, 255})

	sample, err := SampleHSV(frame, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, "#2878E6", sample.Hex)
	assert.Equal(t, HSV{H: 107, S: 211, V: 230}, sample.HSV)
	assert.Equal(t, 5, sample.X)
	assert.Equal(t, 5, sample.Y)
}

func TestSampleHSV_OutOfBounds(t *testing.T) {
	frame := createSolidFrame(20, 10, color.White)

	tests := []struct {
		name string
		x, y int
	}{
		{"negative x", -1, 5},
		{"negative y", 5, -1},
		{"x too large", 20, 5},
		{"y too large", 5, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SampleHSV(frame, tt.x, tt.y)
			assert.Error(t, err)
		})
	}
}

func TestRangeFromSamples(t *testing.T) {
	_, ok := RangeFromSamples(nil)
	assert.False(t, ok)

	r, ok := RangeFromSamples([]HSV{
		{H: 100, S: 200, V: 230},
		{H: 95, S: 220, V: 250},
		{H: 110, S: 180, V: 240},
	})
	require.True(t, ok)
	assert.Equal(t, HSV{H: 95, S: 180, V: 230}, r.Lower)
	assert.Equal(t, HSV{H: 110, S: 220, V: 250}, r.Upper)
	assert.NoError(t, r.Validate())
}
