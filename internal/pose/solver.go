package pose

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/marker-pose/internal/detection"
)

const (
	// collinearTolerance is the smallest accepted triangle area formed by any
	// three observed points, relative to the squared largest point spread.
	collinearTolerance = 1e-3

	// DefaultMaxIterations bounds the Levenberg-Marquardt refinement.
	DefaultMaxIterations = 50

	// DefaultMaxReprojectionError is the largest accepted RMS reprojection
	// error in pixels.
	DefaultMaxReprojectionError = 5.0
)

// PoseEstimate is the board pose in the camera frame.
//
// Rvec is a Rodrigues rotation vector and Tvec a translation in the units of
// the reference corners (millimetres). When Valid is false the other fields
// carry whatever the solver reached and must not be used as a pose.
type PoseEstimate struct {
	Rvec              r3.Vector `json:"rvec"`
	Tvec              r3.Vector `json:"tvec"`
	Valid             bool      `json:"valid"`
	ReprojectionError float64   `json:"reprojection_error"`
}

// RotationMatrix returns the 3x3 rotation matrix for Rvec.
func (p PoseEstimate) RotationMatrix() *mat.Dense {
	return Rodrigues(p.Rvec)
}

// DefaultReference returns the reference board corners in millimetres,
// indexed by Role: a 200×150 mm rectangle centred on the board origin.
func DefaultReference() [4]r3.Vector {
	return [4]r3.Vector{
		TopLeft:     {X: -100, Y: -75},
		BottomLeft:  {X: -100, Y: 75},
		TopRight:    {X: 100, Y: -75},
		BottomRight: {X: 100, Y: 75},
	}
}

// Solver recovers a pose from a Correspondence by planar Perspective-n-Point.
//
// The reference corners must be coplanar in a plane of constant Z.
type Solver struct {
	Camera    CameraModel
	Reference [4]r3.Vector

	// MaxReprojectionError is the RMS pixel error above which a solve is
	// reported invalid. Zero disables the check.
	MaxReprojectionError float64

	// MaxIterations bounds the refinement. Zero uses DefaultMaxIterations.
	MaxIterations int
}

// Solve estimates the board pose for one correspondence.
//
// # Algorithm
//
//  1. Undistort: Map observed pixels to normalised image coordinates
//  2. Degeneracy: Reject configurations where any three points are nearly
//     collinear
//  3. Homography: Fit the board-plane to image homography by normalised DLT
//  4. Decomposition: Extract an initial rotation and translation with the
//     board in front of the camera
//  5. Refinement: Levenberg-Marquardt on the pixel reprojection error using
//     the full distortion model
//
// Solve never fails with an error. Degenerate input, non-finite results, a
// board behind the camera or an RMS error above MaxReprojectionError all
// produce a PoseEstimate with Valid false.
func (s Solver) Solve(c Correspondence) PoseEstimate {
	if !s.planar() {
		return PoseEstimate{}
	}

	observed := c[:]
	normalised := make([]detection.Point2, len(observed))
	for i, p := range observed {
		normalised[i] = s.Camera.Normalize(p)
	}
	if NearlyCollinear(normalised) {
		return PoseEstimate{}
	}

	plane := make([]detection.Point2, len(s.Reference))
	for i, ref := range s.Reference {
		plane[i] = detection.Point2{X: ref.X, Y: ref.Y}
	}
	h, err := estimateHomography(plane, normalised)
	if err != nil {
		return PoseEstimate{}
	}
	rvec, tvec, err := decomposeHomography(h)
	if err != nil {
		return PoseEstimate{}
	}
	// The homography absorbs the plane offset into the translation.
	if z0 := s.Reference[0].Z; z0 != 0 {
		tvec = tvec.Sub(newRotation(rvec).column(2).Mul(z0))
	}

	params := [6]float64{rvec.X, rvec.Y, rvec.Z, tvec.X, tvec.Y, tvec.Z}
	params, sumSq := s.refine(params, c)

	est := PoseEstimate{
		Rvec:              r3.Vector{X: params[0], Y: params[1], Z: params[2]},
		Tvec:              r3.Vector{X: params[3], Y: params[4], Z: params[5]},
		ReprojectionError: math.Sqrt(sumSq / float64(len(c))),
	}
	est.Valid = s.accept(est)
	return est
}

// planar reports whether every reference corner shares the first corner's Z.
func (s Solver) planar() bool {
	for _, ref := range s.Reference[1:] {
		if math.Abs(ref.Z-s.Reference[0].Z) > 1e-9 {
			return false
		}
	}
	return true
}

func (s Solver) accept(est PoseEstimate) bool {
	for _, v := range []float64{
		est.Rvec.X, est.Rvec.Y, est.Rvec.Z,
		est.Tvec.X, est.Tvec.Y, est.Tvec.Z,
		est.ReprojectionError,
	} {
		if !finite(v) {
			return false
		}
	}
	if est.Tvec.Z <= 0 {
		return false
	}
	if s.MaxReprojectionError > 0 && est.ReprojectionError > s.MaxReprojectionError {
		return false
	}
	return true
}

// residuals returns the pixel reprojection differences (du, dv per point)
// for the parameter vector (rvec, tvec).
func (s Solver) residuals(params [6]float64, observed Correspondence) []float64 {
	rot := newRotation(r3.Vector{X: params[0], Y: params[1], Z: params[2]})
	t := r3.Vector{X: params[3], Y: params[4], Z: params[5]}

	out := make([]float64, 0, 2*len(observed))
	for i, ref := range s.Reference {
		p := s.Camera.Project(rot.apply(ref).Add(t))
		out = append(out, p.X-observed[i].X, p.Y-observed[i].Y)
	}
	return out
}

func sumSquares(r []float64) float64 {
	var sum float64
	for _, v := range r {
		sum += v * v
	}
	if math.IsNaN(sum) {
		return math.Inf(1)
	}
	return sum
}

// refine runs Levenberg-Marquardt on the reprojection error. The Jacobian is
// taken by central differences; the damped normal equations
// (JᵀJ + μ·diag(JᵀJ))·δ = -Jᵀr are solved with gonum.
//
// Returns the refined parameters and their sum of squared residuals.
func (s Solver) refine(params [6]float64, observed Correspondence) ([6]float64, float64) {
	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	r := s.residuals(params, observed)
	cost := sumSquares(r)
	mu := 1e-3

	for iter := 0; iter < maxIter && cost > 1e-20; iter++ {
		jac := mat.NewDense(len(r), 6, nil)
		for j := 0; j < 6; j++ {
			step := 1e-6 * math.Max(1, math.Abs(params[j]))
			plus, minus := params, params
			plus[j] += step
			minus[j] -= step
			rp := s.residuals(plus, observed)
			rm := s.residuals(minus, observed)
			for i := range r {
				jac.Set(i, j, (rp[i]-rm[i])/(2*step))
			}
		}

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var jtr mat.VecDense
		jtr.MulVec(jac.T(), mat.NewVecDense(len(r), r))

		improved := false
		for mu <= 1e10 {
			damped := mat.DenseCopyOf(&jtj)
			for k := 0; k < 6; k++ {
				damped.Set(k, k, jtj.At(k, k)*(1+mu))
			}

			var delta mat.VecDense
			if err := delta.SolveVec(damped, &jtr); err != nil {
				mu *= 10
				continue
			}

			next := params
			for k := 0; k < 6; k++ {
				next[k] -= delta.AtVec(k)
			}
			nr := s.residuals(next, observed)
			if nc := sumSquares(nr); nc < cost {
				relative := (cost - nc) / cost
				params, r, cost = next, nr, nc
				mu /= 10
				improved = true
				if relative < 1e-12 {
					return params, cost
				}
				break
			}
			mu *= 10
		}
		if !improved {
			break
		}
	}

	return params, cost
}

// NearlyCollinear reports whether any three of the points span a triangle
// too thin to constrain a homography.
func NearlyCollinear(points []detection.Point2) bool {
	var spread float64
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			spread = math.Max(spread, points[i].Dist(points[j]))
		}
	}
	if !(spread > 0) || !finite(spread) {
		return true
	}

	limit := collinearTolerance * spread * spread
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			for k := j + 1; k < len(points); k++ {
				a, b, c := points[i], points[j], points[k]
				area := math.Abs((b.X-a.X)*(c.Y-a.Y)-(b.Y-a.Y)*(c.X-a.X)) / 2
				if area < limit {
					return true
				}
			}
		}
	}
	return false
}
