package pose

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Rodrigues converts a rotation vector (axis scaled by angle in radians) to a
// 3x3 rotation matrix.
func Rodrigues(rvec r3.Vector) *mat.Dense {
	return newRotation(rvec).dense()
}

// RodriguesInverse converts a 3x3 rotation matrix back to a rotation vector
// with angle in [0, π].
func RodriguesInverse(r mat.Matrix) r3.Vector {
	at := r.At
	trace := at(0, 0) + at(1, 1) + at(2, 2)
	cosTheta := math.Max(-1, math.Min(1, (trace-1)/2))
	theta := math.Acos(cosTheta)

	v := r3.Vector{
		X: at(2, 1) - at(1, 2),
		Y: at(0, 2) - at(2, 0),
		Z: at(1, 0) - at(0, 1),
	}

	switch {
	case theta < 1e-9:
		return v.Mul(0.5)
	case math.Pi-theta < 1e-6:
		// Near a half turn the antisymmetric part vanishes; recover the
		// axis from the diagonal of R = 2kkᵀ - I instead.
		k := r3.Vector{
			X: math.Sqrt(math.Max(0, (at(0, 0)+1)/2)),
			Y: math.Sqrt(math.Max(0, (at(1, 1)+1)/2)),
			Z: math.Sqrt(math.Max(0, (at(2, 2)+1)/2)),
		}
		switch {
		case k.X >= k.Y && k.X >= k.Z:
			k.Y = math.Copysign(k.Y, at(0, 1))
			k.Z = math.Copysign(k.Z, at(0, 2))
		case k.Y >= k.Z:
			k.X = math.Copysign(k.X, at(0, 1))
			k.Z = math.Copysign(k.Z, at(1, 2))
		default:
			k.X = math.Copysign(k.X, at(0, 2))
			k.Y = math.Copysign(k.Y, at(1, 2))
		}
		return k.Normalize().Mul(theta)
	default:
		return v.Mul(theta / (2 * math.Sin(theta)))
	}
}

// rotation is a row-major 3x3 rotation used on the hot path of the solver,
// where allocating a mat.Dense per residual evaluation would dominate.
type rotation [3]r3.Vector

func newRotation(rvec r3.Vector) rotation {
	theta := rvec.Norm()
	if theta < 1e-12 {
		return rotation{
			{X: 1, Y: -rvec.Z, Z: rvec.Y},
			{X: rvec.Z, Y: 1, Z: -rvec.X},
			{X: -rvec.Y, Y: rvec.X, Z: 1},
		}
	}

	k := rvec.Mul(1 / theta)
	c, s := math.Cos(theta), math.Sin(theta)
	t := 1 - c

	return rotation{
		{X: c + t*k.X*k.X, Y: t*k.X*k.Y - s*k.Z, Z: t*k.X*k.Z + s*k.Y},
		{X: t*k.Y*k.X + s*k.Z, Y: c + t*k.Y*k.Y, Z: t*k.Y*k.Z - s*k.X},
		{X: t*k.Z*k.X - s*k.Y, Y: t*k.Z*k.Y + s*k.X, Z: c + t*k.Z*k.Z},
	}
}

func (r rotation) apply(p r3.Vector) r3.Vector {
	return r3.Vector{X: r[0].Dot(p), Y: r[1].Dot(p), Z: r[2].Dot(p)}
}

func (r rotation) column(i int) r3.Vector {
	c := [3]r3.Vector{
		{X: r[0].X, Y: r[1].X, Z: r[2].X},
		{X: r[0].Y, Y: r[1].Y, Z: r[2].Y},
		{X: r[0].Z, Y: r[1].Z, Z: r[2].Z},
	}
	return c[i]
}

func (r rotation) dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		r[0].X, r[0].Y, r[0].Z,
		r[1].X, r[1].Y, r[1].Z,
		r[2].X, r[2].Y, r[2].Z,
	})
}
