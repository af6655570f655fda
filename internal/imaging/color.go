package imaging

import (
	"fmt"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// HSV represents a colour in 8-bit HSV space.
//
// The ranges match the 8-bit convention of common vision toolkits:
//   - H: 0-179 (hue in degrees divided by two)
//   - S: 0-255 (0 = gray, 255 = fully saturated)
//   - V: 0-255 (0 = black, 255 = brightest)
type HSV struct {
	H uint8 `json:"h" yaml:"h"`
	S uint8 `json:"s" yaml:"s"`
	V uint8 `json:"v" yaml:"v"`
}

// HSVRange is an inclusive per-channel HSV interval.
//
// A colour is inside the range when every channel satisfies
// Lower <= value <= Upper. Hue ranges do not wrap around 0.
type HSVRange struct {
	Lower HSV `json:"lower"`
	Upper HSV `json:"upper"`
}

// Contains reports whether c lies inside the range on all three channels.
func (r HSVRange) Contains(c HSV) bool {
	return c.H >= r.Lower.H && c.H <= r.Upper.H &&
		c.S >= r.Lower.S && c.S <= r.Upper.S &&
		c.V >= r.Lower.V && c.V <= r.Upper.V
}

// Validate checks that every lower bound is at most its upper bound and that
// hue stays inside 0-179.
func (r HSVRange) Validate() error {
	if r.Lower.H > r.Upper.H || r.Lower.S > r.Upper.S || r.Lower.V > r.Upper.V {
		return fmt.Errorf("hsv lower bound %v exceeds upper bound %v", r.Lower, r.Upper)
	}
	if r.Upper.H > 179 {
		return fmt.Errorf("hsv hue upper bound %d outside 0-179", r.Upper.H)
	}
	return nil
}

// ToHSV converts 8-bit RGB components to 8-bit HSV.
//
// The conversion is done in floating point by go-colorful and then scaled:
//
//	H = round(hue° / 2)   (wrapped so 180 becomes 0)
//	S = round(s × 255)
//	V = round(v × 255)
//
// Grays (R = G = B) have H = 0 and S = 0.
func ToHSV(r, g, b uint8) HSV {
	c := colorful.Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}
	h, s, v := c.Hsv()

	hue := int(math.Round(h / 2))
	if hue >= 180 {
		hue -= 180
	}

	return HSV{
		H: uint8(hue),
		S: uint8(math.Round(s * 255)),
		V: uint8(math.Round(v * 255)),
	}
}

// HSVSample contains the colour of one pixel in both RGB and HSV form.
type HSVSample struct {
	X   int    `json:"x"`
	Y   int    `json:"y"`
	Hex string `json:"hex"` // "#RRGGBB"
	HSV HSV    `json:"hsv"`
}

// SampleHSV reads the pixel at (x, y) and reports its HSV value.
//
// This is the helper behind picking threshold bounds from a reference frame:
// sample a few pixels on the marker and widen the range around them.
//
// Returns an error if (x, y) lies outside the frame.
func SampleHSV(frame *Frame, x, y int) (*HSVSample, error) {
	if !frame.In(x, y) {
		return nil, fmt.Errorf("coordinates (%d,%d) outside frame bounds %dx%d", x, y, frame.Width(), frame.Height())
	}

	r, g, b := frame.RGB(x, y)
	return &HSVSample{
		X:   x,
		Y:   y,
		Hex: fmt.Sprintf("#%02X%02X%02X", r, g, b),
		HSV: ToHSV(r, g, b),
	}, nil
}

// RangeFromSamples returns the tightest HSVRange containing every sample:
// the per-channel minimum and maximum. Returns false for no samples.
func RangeFromSamples(samples []HSV) (HSVRange, bool) {
	if len(samples) == 0 {
		return HSVRange{}, false
	}
	r := HSVRange{Lower: samples[0], Upper: samples[0]}
	for _, s := range samples[1:] {
		r.Lower.H, r.Upper.H = min(r.Lower.H, s.H), max(r.Upper.H, s.H)
		r.Lower.S, r.Upper.S = min(r.Lower.S, s.S), max(r.Upper.S, s.S)
		r.Lower.V, r.Upper.V = min(r.Lower.V, s.V), max(r.Upper.V, s.V)
	}
	return r, true
}
