package detection

import (
	"image"
	"math"

	"github.com/ironsheep/marker-pose/internal/imaging"
)

// Contour is the outer border of a foreground component, as pixel
// coordinates in tracing order.
type Contour []image.Point

// neighbours lists the 8-connected offsets in clockwise order on screen
// (y grows downward), starting east.
var neighbours = [8]image.Point{
	{X: 1, Y: 0},   // E
	{X: 1, Y: 1},   // SE
	{X: 0, Y: 1},   // S
	{X: -1, Y: 1},  // SW
	{X: -1, Y: 0},  // W
	{X: -1, Y: -1}, // NW
	{X: 0, Y: -1},  // N
	{X: 1, Y: -1},  // NE
}

const west = 4

// FindExternalContours returns the outer border of every outermost
// foreground component in the mask.
//
// # Algorithm
//
//  1. Outside Background: Flood-fill (4-connected) the background reachable
//     from the frame edge. Background not reached this way forms holes.
//  2. Component Labelling: Scan the mask in raster order; each unvisited
//     foreground pixel starts a new 8-connected component.
//  3. Nesting Check: A component is external if one of its pixels touches the
//     frame edge or the outside background. Components sitting inside a hole
//     of another component are skipped.
//  4. Border Following: Trace the outer border from the component's first
//     raster pixel using Suzuki-Abe border following.
//
// Returns contours in discovery order. A nil or empty mask yields nil.
func FindExternalContours(mask *imaging.Mask) []Contour {
	if mask == nil || mask.Width == 0 || mask.Height == 0 {
		return nil
	}
	width, height := mask.Width, mask.Height

	outside := outsideBackground(mask)

	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	var contours []Contour
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !mask.Pix[y][x] || visited[y][x] {
				continue
			}
			component := floodFill(mask, visited, x, y)
			if !isExternal(component, outside, width, height) {
				continue
			}
			contours = append(contours, traceBorder(mask, image.Point{X: x, Y: y}))
		}
	}

	return contours
}

// outsideBackground marks background pixels 4-connected to the frame edge.
func outsideBackground(mask *imaging.Mask) [][]bool {
	width, height := mask.Width, mask.Height
	outside := make([][]bool, height)
	for y := 0; y < height; y++ {
		outside[y] = make([]bool, width)
	}

	stack := make([]image.Point, 0, 2*(width+height))
	for x := 0; x < width; x++ {
		stack = append(stack, image.Point{X: x, Y: 0}, image.Point{X: x, Y: height - 1})
	}
	for y := 0; y < height; y++ {
		stack = append(stack, image.Point{X: 0, Y: y}, image.Point{X: width - 1, Y: y})
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if outside[p.Y][p.X] || mask.Pix[p.Y][p.X] {
			continue
		}
		outside[p.Y][p.X] = true

		stack = append(stack,
			image.Point{X: p.X + 1, Y: p.Y},
			image.Point{X: p.X - 1, Y: p.Y},
			image.Point{X: p.X, Y: p.Y + 1},
			image.Point{X: p.X, Y: p.Y - 1},
		)
	}

	return outside
}

// floodFill collects the 8-connected foreground component containing
// (startX, startY), marking its pixels visited.
//
// Uses an explicit stack rather than recursion so large blobs cannot
// overflow the goroutine stack.
func floodFill(mask *imaging.Mask, visited [][]bool, startX, startY int) []image.Point {
	stack := []image.Point{{X: startX, Y: startY}}
	var component []image.Point

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !mask.At(p.X, p.Y) || visited[p.Y][p.X] {
			continue
		}
		visited[p.Y][p.X] = true
		component = append(component, p)

		for _, d := range neighbours {
			stack = append(stack, p.Add(d))
		}
	}

	return component
}

// isExternal reports whether a component touches the frame edge or the
// outside background through a 4-neighbour.
func isExternal(component []image.Point, outside [][]bool, width, height int) bool {
	for _, p := range component {
		for _, d := range [4]image.Point{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}} {
			n := p.Add(d)
			if n.X < 0 || n.Y < 0 || n.X >= width || n.Y >= height {
				return true
			}
			if outside[n.Y][n.X] {
				return true
			}
		}
	}
	return false
}

// traceBorder follows the outer border that starts at start, whose west
// neighbour must be background.
//
// The trace examines the neighbours of the current pixel counter-clockwise,
// starting just after the pixel it came from, and stops when it returns to
// the start pixel about to repeat its first move. An isolated pixel yields a
// one-point contour.
func traceBorder(mask *imaging.Mask, start image.Point) Contour {
	// Find the first foreground neighbour clockwise from west.
	first := -1
	for i := 0; i < 8; i++ {
		d := (west + i) % 8
		if mask.At(start.X+neighbours[d].X, start.Y+neighbours[d].Y) {
			first = d
			break
		}
	}
	if first < 0 {
		return Contour{start}
	}

	p1 := start.Add(neighbours[first])
	prev, cur := p1, start
	var contour Contour

	for {
		back := directionOf(prev.Sub(cur))
		var next image.Point
		for i := 1; i <= 8; i++ {
			d := (back - i + 8) % 8
			n := cur.Add(neighbours[d])
			if mask.At(n.X, n.Y) {
				next = n
				break
			}
		}

		contour = append(contour, cur)
		if next == start && cur == p1 {
			break
		}
		prev, cur = cur, next
	}

	return contour
}

func directionOf(d image.Point) int {
	for i, n := range neighbours {
		if n == d {
			return i
		}
	}
	return 0
}

// ContourArea returns the area enclosed by the contour polygon using the
// shoelace formula. The result is always non-negative.
//
// Vertices are pixel centres, so a filled w×h block encloses (w-1)×(h-1).
// Contours with fewer than three points have zero area.
func ContourArea(c Contour) float64 {
	if len(c) < 3 {
		return 0
	}
	var sum int
	for i := range c {
		a := c[i]
		b := c[(i+1)%len(c)]
		sum += a.X*b.Y - b.X*a.Y
	}
	return math.Abs(float64(sum)) / 2
}

// BoundingRect returns the smallest axis-aligned rectangle containing every
// contour pixel. Max is exclusive, so Dx() and Dy() are the pixel extents.
func BoundingRect(c Contour) image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}
	minX, minY := c[0].X, c[0].Y
	maxX, maxY := c[0].X, c[0].Y
	for _, p := range c[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}
