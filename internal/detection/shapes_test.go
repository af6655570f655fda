package detection

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/marker-pose/internal/imaging"
)

func TestExtract_FourRegions(t *testing.T) {
	m := createMask(120, 100,
		image.Rect(10, 10, 22, 20),
		image.Rect(80, 12, 92, 22),
		image.Rect(12, 70, 24, 80),
		image.Rect(82, 72, 94, 82),
	)

	regions := Extract(m, DefaultExtractOptions())
	require.Len(t, regions, 4)

	assert.Equal(t, image.Rect(10, 10, 22, 20), regions[0].Box)
	assert.Equal(t, image.Rect(80, 12, 92, 22), regions[1].Box)
	assert.Equal(t, image.Rect(12, 70, 24, 80), regions[2].Box)
	assert.Equal(t, image.Rect(82, 72, 94, 82), regions[3].Box)
	for _, r := range regions {
		assert.Equal(t, 99.0, r.Area)
		assert.Equal(t, VariantBox, r.Variant)
	}
}

func TestExtract_AreaBoundaryIsInclusive(t *testing.T) {
	// A 9x11 block has a border polygon of exactly 8x10 = 80
	exact := createMask(40, 40, image.Rect(5, 5, 14, 16))
	regions := Extract(exact, DefaultExtractOptions())
	require.Len(t, regions, 1)
	assert.Equal(t, 80.0, regions[0].Area)

	// Clipping one corner pixel cuts the polygon to 79.5
	clipped := createMask(40, 40, image.Rect(5, 5, 14, 16))
	clipped.Set(5, 5, false)
	assert.Empty(t, Extract(clipped, DefaultExtractOptions()))
}

func TestExtract_AreaThreshold(t *testing.T) {
	m := createMask(40, 40, image.Rect(5, 5, 14, 16))

	tests := []struct {
		name    string
		minArea float64
		want    int
	}{
		{"below area", 79, 1},
		{"at area", 80, 1},
		{"above area", 81, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultExtractOptions()
			opts.MinArea = tt.minArea
			assert.Len(t, Extract(m, opts), tt.want)
		})
	}
}

func TestExtract_ExtentFilter(t *testing.T) {
	tests := []struct {
		name    string
		rect    image.Rectangle
		variant Variant
		want    int
	}{
		{"sliver box", image.Rect(10, 10, 13, 70), VariantBox, 0},
		{"five wide box", image.Rect(10, 10, 15, 40), VariantBox, 1},
		{"five wide rotated", image.Rect(10, 10, 15, 40), VariantRotated, 0},
		{"six wide rotated", image.Rect(10, 10, 16, 40), VariantRotated, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultExtractOptions()
			opts.Variant = tt.variant
			m := createMask(80, 80, tt.rect)
			assert.Len(t, Extract(m, opts), tt.want)
		})
	}
}

func TestExtract_RotatedVariant(t *testing.T) {
	m := createMask(40, 40, image.Rect(2, 3, 11, 14))
	opts := DefaultExtractOptions()
	opts.Variant = VariantRotated

	regions := Extract(m, opts)
	require.Len(t, regions, 1)

	r := regions[0].Rotated
	assert.InDelta(t, 8.0, r.Width, 1e-9)
	assert.InDelta(t, 10.0, r.Height, 1e-9)
	assert.InDelta(t, 0.0, r.Angle, 1e-9)
	assert.InDelta(t, 6.0, r.Center.X, 1e-9)
	assert.InDelta(t, 8.0, r.Center.Y, 1e-9)
}

func TestExtract_EmptyMask(t *testing.T) {
	assert.Empty(t, Extract(imaging.NewMask(50, 50), DefaultExtractOptions()))
	assert.Empty(t, Extract(nil, DefaultExtractOptions()))
}

func TestExtract_Idempotent(t *testing.T) {
	m := createMask(100, 100,
		image.Rect(10, 10, 25, 22),
		image.Rect(50, 50, 70, 61),
	)
	opts := DefaultExtractOptions()
	opts.Variant = VariantRotated

	first := Extract(m, opts)
	second := Extract(m, opts)

	assert.Equal(t, first, second)
}

func TestMinAreaRect_Rotated(t *testing.T) {
	// Corners of a 50x25 rectangle whose long side runs along (3,4)
	c := Contour{{X: 30, Y: 10}, {X: 60, Y: 50}, {X: 40, Y: 65}, {X: 10, Y: 25}}

	r := MinAreaRect(c)

	assert.InDelta(t, 50.0, r.Width, 1e-9)
	assert.InDelta(t, 25.0, r.Height, 1e-9)
	assert.InDelta(t, 53.130102354, r.Angle, 1e-6)
	assert.InDelta(t, 35.0, r.Center.X, 1e-9)
	assert.InDelta(t, 37.5, r.Center.Y, 1e-9)
}

func TestMinAreaRect_Degenerate(t *testing.T) {
	assert.Equal(t, RotatedRect{}, MinAreaRect(nil))

	point := MinAreaRect(Contour{{X: 4, Y: 7}})
	assert.Equal(t, Point2{X: 4, Y: 7}, point.Center)
	assert.Zero(t, point.Width)

	line := MinAreaRect(Contour{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}})
	assert.InDelta(t, 10.0, line.Width, 1e-9)
	assert.InDelta(t, 0.0, line.Height, 1e-9)
}

func TestRotatedRect_Points(t *testing.T) {
	r := RotatedRect{Center: Point2{X: 50, Y: 50}, Width: 40, Height: 20}

	pts := r.Points()

	want := [4]Point2{{X: 30, Y: 40}, {X: 70, Y: 40}, {X: 70, Y: 60}, {X: 30, Y: 60}}
	for i := range want {
		assert.InDelta(t, want[i].X, pts[i].X, 1e-9)
		assert.InDelta(t, want[i].Y, pts[i].Y, 1e-9)
	}
}

func TestConvexHull(t *testing.T) {
	points := []image.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 2, Y: 2}, {X: 4, Y: 4}, {X: 0, Y: 4}, {X: 2, Y: 0}, {X: 0, Y: 0}}

	hull := ConvexHull(points)

	assert.ElementsMatch(t, []image.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}}, hull)
}

func TestRegion_CornersBox(t *testing.T) {
	r := Region{Box: image.Rect(10, 20, 20, 35), Variant: VariantBox}

	tl, bl, tr, br := r.Corners()

	assert.Equal(t, Point2{X: 10, Y: 20}, tl)
	assert.Equal(t, Point2{X: 10, Y: 35}, bl)
	assert.Equal(t, Point2{X: 20, Y: 20}, tr)
	assert.Equal(t, Point2{X: 20, Y: 35}, br)
	assert.Equal(t, Point2{X: 15, Y: 27.5}, r.Centroid())
}

func TestRegion_CornersRotated(t *testing.T) {
	r := Region{
		Variant: VariantRotated,
		Rotated: RotatedRect{Center: Point2{X: 50, Y: 50}, Width: 40, Height: 20},
	}

	tl, bl, tr, br := r.Corners()

	assert.InDelta(t, 30.0, tl.X, 1e-9)
	assert.InDelta(t, 40.0, tl.Y, 1e-9)
	assert.InDelta(t, 30.0, bl.X, 1e-9)
	assert.InDelta(t, 60.0, bl.Y, 1e-9)
	assert.InDelta(t, 70.0, tr.X, 1e-9)
	assert.InDelta(t, 40.0, tr.Y, 1e-9)
	assert.InDelta(t, 70.0, br.X, 1e-9)
	assert.InDelta(t, 60.0, br.Y, 1e-9)
	assert.Equal(t, Point2{X: 50, Y: 50}, r.Centroid())
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in      string
		want    Variant
		wantErr bool
	}{
		{"box", VariantBox, false},
		{"", VariantBox, false},
		{"Rotated", VariantRotated, false},
		{" minarea ", VariantRotated, false},
		{"circle", VariantBox, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVariant(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}
