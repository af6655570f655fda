package pose

import (
	"errors"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/marker-pose/internal/detection"
)

var errDegenerateHomography = errors.New("degenerate homography")

// normalisation returns the similarity transform that moves the points'
// centroid to the origin and scales their mean distance from it to √2.
func normalisation(points []detection.Point2) *mat.Dense {
	var cx, cy float64
	for _, p := range points {
		cx += p.X
		cy += p.Y
	}
	n := float64(len(points))
	cx /= n
	cy /= n

	var mean float64
	for _, p := range points {
		mean += math.Hypot(p.X-cx, p.Y-cy)
	}
	mean /= n

	s := 1.0
	if mean > 0 {
		s = math.Sqrt2 / mean
	}

	return mat.NewDense(3, 3, []float64{
		s, 0, -s * cx,
		0, s, -s * cy,
		0, 0, 1,
	})
}

func applyHomogeneous(t *mat.Dense, p detection.Point2) detection.Point2 {
	w := t.At(2, 0)*p.X + t.At(2, 1)*p.Y + t.At(2, 2)
	return detection.Point2{
		X: (t.At(0, 0)*p.X + t.At(0, 1)*p.Y + t.At(0, 2)) / w,
		Y: (t.At(1, 0)*p.X + t.At(1, 1)*p.Y + t.At(1, 2)) / w,
	}
}

// estimateHomography computes H with dst ~ H·src by the normalised direct
// linear transform. The solution is the right singular vector of the design
// matrix with the smallest singular value.
func estimateHomography(src, dst []detection.Point2) (*mat.Dense, error) {
	ts := normalisation(src)
	td := normalisation(dst)

	// Pad to at least 9 rows so the full SVD always exposes a null vector.
	rows := 2 * len(src)
	if rows < 9 {
		rows = 9
	}
	a := mat.NewDense(rows, 9, nil)
	for i := range src {
		s := applyHomogeneous(ts, src[i])
		d := applyHomogeneous(td, dst[i])
		a.SetRow(2*i, []float64{s.X, s.Y, 1, 0, 0, 0, -d.X * s.X, -d.X * s.Y, -d.X})
		a.SetRow(2*i+1, []float64{0, 0, 0, s.X, s.Y, 1, -d.Y * s.X, -d.Y * s.Y, -d.Y})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return nil, errDegenerateHomography
	}
	var v mat.Dense
	svd.VTo(&v)

	hn := mat.NewDense(3, 3, nil)
	for i := 0; i < 9; i++ {
		hn.Set(i/3, i%3, v.At(i, 8))
	}

	// H = Td⁻¹ · Hn · Ts
	var tdInv mat.Dense
	if err := tdInv.Inverse(td); err != nil {
		return nil, errDegenerateHomography
	}
	var h mat.Dense
	h.Product(&tdInv, hn, ts)

	if math.Abs(h.At(2, 2)) < 1e-12 {
		return nil, errDegenerateHomography
	}
	h.Scale(1/h.At(2, 2), &h)
	return &h, nil
}

// decomposeHomography extracts an initial pose from a homography mapping the
// board plane (Z = 0) to normalised image coordinates.
//
// With H = λ[r1 r2 t], the scale is fixed by averaging the norms of the
// first two columns. The sign is chosen so the board lies in front of the
// camera, and R = [r1 r2 r1×r2] is projected onto the nearest rotation by SVD.
func decomposeHomography(h *mat.Dense) (r3.Vector, r3.Vector, error) {
	h1 := r3.Vector{X: h.At(0, 0), Y: h.At(1, 0), Z: h.At(2, 0)}
	h2 := r3.Vector{X: h.At(0, 1), Y: h.At(1, 1), Z: h.At(2, 1)}
	h3 := r3.Vector{X: h.At(0, 2), Y: h.At(1, 2), Z: h.At(2, 2)}

	norms := h1.Norm() + h2.Norm()
	if norms == 0 || !finite(norms) {
		return r3.Vector{}, r3.Vector{}, errDegenerateHomography
	}
	lambda := 2 / norms

	r1, r2, t := h1.Mul(lambda), h2.Mul(lambda), h3.Mul(lambda)
	if t.Z < 0 {
		r1, r2, t = r1.Mul(-1), r2.Mul(-1), t.Mul(-1)
	}
	r3v := r1.Cross(r2)

	approx := mat.NewDense(3, 3, []float64{
		r1.X, r2.X, r3v.X,
		r1.Y, r2.Y, r3v.Y,
		r1.Z, r2.Z, r3v.Z,
	})

	var svd mat.SVD
	if !svd.Factorize(approx, mat.SVDFull) {
		return r3.Vector{}, r3.Vector{}, errDegenerateHomography
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var rot mat.Dense
	rot.Mul(&u, v.T())
	if mat.Det(&rot) < 0 {
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		rot.Mul(&u, v.T())
	}

	return RodriguesInverse(&rot), t, nil
}
