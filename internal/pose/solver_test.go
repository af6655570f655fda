package pose

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/marker-pose/internal/detection"
)

// referenceCamera returns the calibrated camera used across the tests
func referenceCamera() CameraModel {
	return CameraModel{
		Fx: 1174.5, Fy: 1175.2, Cx: 638.6, Cy: 862.7,
		Dist: [5]float64{0.103247081556123, 0.225565033862951, 0, 0, 0},
	}
}

// projectCorrespondence renders the reference corners at a known pose
func projectCorrespondence(t *testing.T, cam CameraModel, pose PoseEstimate) Correspondence {
	t.Helper()
	ref := DefaultReference()
	pts := cam.ProjectPose(pose, ref[:])
	var c Correspondence
	copy(c[:], pts)
	return c
}

func TestRodrigues_QuarterTurnAboutZ(t *testing.T) {
	r := Rodrigues(r3.Vector{Z: math.Pi / 2})

	want := mat.NewDense(3, 3, []float64{
		0, -1, 0,
		1, 0, 0,
		0, 0, 1,
	})
	assert.True(t, mat.EqualApprox(r, want, 1e-12))
}

func TestRodrigues_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rvec r3.Vector
	}{
		{"identity", r3.Vector{}},
		{"small", r3.Vector{X: 1e-7, Y: -2e-7, Z: 3e-7}},
		{"general", r3.Vector{X: 0.3, Y: -0.2, Z: 0.1}},
		{"large", r3.Vector{X: -1.2, Y: 0.8, Z: 1.5}},
		{"near half turn", r3.Vector{X: 0, Y: 0, Z: math.Pi - 1e-8}},
		{"half turn off axis", r3.Vector{X: 1, Y: -1, Z: 0}.Normalize().Mul(math.Pi)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Rodrigues(tt.rvec)

			var rrt mat.Dense
			rrt.Mul(r, r.T())
			assert.True(t, mat.EqualApprox(&rrt, eye(3), 1e-9), "rotation must be orthonormal")

			back := RodriguesInverse(r)
			assert.InDelta(t, tt.rvec.X, back.X, 1e-6)
			assert.InDelta(t, tt.rvec.Y, back.Y, 1e-6)
			assert.InDelta(t, tt.rvec.Z, back.Z, 1e-6)
		})
	}
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func TestCameraModel_NormalizeInvertsProject(t *testing.T) {
	cam := referenceCamera()

	for _, p := range []r3.Vector{
		{X: 0, Y: 0, Z: 700},
		{X: -130, Y: -115, Z: 650},
		{X: 70, Y: 35, Z: 760},
	} {
		px := cam.Project(p)
		n := cam.Normalize(px)
		assert.InDelta(t, p.X/p.Z, n.X, 1e-9)
		assert.InDelta(t, p.Y/p.Z, n.Y, 1e-9)
	}
}

func TestCameraModel_ProjectBehindCamera(t *testing.T) {
	p := referenceCamera().Project(r3.Vector{X: 1, Y: 1, Z: -10})
	assert.True(t, math.IsNaN(p.X))
	assert.True(t, math.IsNaN(p.Y))
}

func TestCameraModel_Validate(t *testing.T) {
	assert.NoError(t, referenceCamera().Validate())

	bad := referenceCamera()
	bad.Fx = 0
	assert.Error(t, bad.Validate())

	bad = referenceCamera()
	bad.Dist[2] = math.NaN()
	assert.Error(t, bad.Validate())
}

func TestSolve_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cam  CameraModel
		pose PoseEstimate
	}{
		{
			name: "no distortion",
			cam:  CameraModel{Fx: 1000, Fy: 1000, Cx: 640, Cy: 480},
			pose: PoseEstimate{Rvec: r3.Vector{X: 0.1, Y: 0.2, Z: -0.05}, Tvec: r3.Vector{X: 10, Y: 20, Z: 900}},
		},
		{
			name: "radial distortion",
			cam:  referenceCamera(),
			pose: PoseEstimate{Rvec: r3.Vector{X: 0.3, Y: -0.2, Z: 0.1}, Tvec: r3.Vector{X: 30, Y: -40, Z: 700}},
		},
		{
			name: "fronto-parallel",
			cam:  referenceCamera(),
			pose: PoseEstimate{Tvec: r3.Vector{X: 0, Y: 0, Z: 600}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := projectCorrespondence(t, tt.cam, tt.pose)
			solver := Solver{
				Camera:               tt.cam,
				Reference:            DefaultReference(),
				MaxReprojectionError: DefaultMaxReprojectionError,
			}

			got := solver.Solve(c)

			require.True(t, got.Valid)
			assert.Less(t, got.ReprojectionError, 1e-3)
			assert.InDelta(t, tt.pose.Rvec.X, got.Rvec.X, 1e-4)
			assert.InDelta(t, tt.pose.Rvec.Y, got.Rvec.Y, 1e-4)
			assert.InDelta(t, tt.pose.Rvec.Z, got.Rvec.Z, 1e-4)
			assert.InDelta(t, tt.pose.Tvec.X, got.Tvec.X, 1e-2)
			assert.InDelta(t, tt.pose.Tvec.Y, got.Tvec.Y, 1e-2)
			assert.InDelta(t, tt.pose.Tvec.Z, got.Tvec.Z, 1e-2)
		})
	}
}

func TestSolve_Collinear(t *testing.T) {
	solver := Solver{Camera: CameraModel{Fx: 1000, Fy: 1000, Cx: 640, Cy: 480}, Reference: DefaultReference()}
	c := Correspondence{{X: 100, Y: 100}, {X: 200, Y: 200}, {X: 300, Y: 300}, {X: 400, Y: 100}}

	got := solver.Solve(c)

	assert.False(t, got.Valid)
}

func TestSolve_DuplicatePoints(t *testing.T) {
	solver := Solver{Camera: referenceCamera(), Reference: DefaultReference()}
	p := detection.Point2{X: 500, Y: 500}

	assert.False(t, solver.Solve(Correspondence{p, p, p, p}).Valid)
}

func TestSolve_ReprojectionGate(t *testing.T) {
	cam := referenceCamera()
	c := projectCorrespondence(t, cam, PoseEstimate{
		Rvec: r3.Vector{X: 0.3, Y: -0.2, Z: 0.1},
		Tvec: r3.Vector{X: 30, Y: -40, Z: 700},
	})
	c[BottomRight].X += 60
	c[BottomRight].Y -= 40

	solver := Solver{Camera: cam, Reference: DefaultReference(), MaxReprojectionError: 1}
	got := solver.Solve(c)

	assert.False(t, got.Valid)
	assert.Greater(t, got.ReprojectionError, 1.0)

	solver.MaxReprojectionError = 0
	assert.True(t, solver.Solve(c).Valid, "zero disables the reprojection gate")
}

func TestSolve_OffsetPlane(t *testing.T) {
	cam := referenceCamera()
	ref := DefaultReference()
	for i := range ref {
		ref[i].Z = 25
	}
	pose := PoseEstimate{Rvec: r3.Vector{X: -0.2, Y: 0.1, Z: 0.3}, Tvec: r3.Vector{X: -20, Y: 15, Z: 800}}
	pts := cam.ProjectPose(pose, ref[:])
	var c Correspondence
	copy(c[:], pts)

	got := Solver{Camera: cam, Reference: ref}.Solve(c)

	require.True(t, got.Valid)
	assert.InDelta(t, pose.Tvec.Z, got.Tvec.Z, 1e-2)
	assert.InDelta(t, pose.Rvec.Z, got.Rvec.Z, 1e-4)
}

func TestSolve_NonPlanarReference(t *testing.T) {
	ref := DefaultReference()
	ref[3].Z = 10
	solver := Solver{Camera: referenceCamera(), Reference: ref}
	c := projectCorrespondence(t, referenceCamera(), PoseEstimate{Tvec: r3.Vector{Z: 700}})

	assert.False(t, solver.Solve(c).Valid)
}

func TestProjectAxes(t *testing.T) {
	cam := CameraModel{Fx: 1000, Fy: 1000, Cx: 640, Cy: 480}
	pose := PoseEstimate{Tvec: r3.Vector{Z: 1000}, Valid: true}

	origin, x, y, z := cam.ProjectAxes(pose, 100)

	assert.InDelta(t, 640.0, origin.X, 1e-9)
	assert.InDelta(t, 480.0, origin.Y, 1e-9)
	assert.InDelta(t, 740.0, x.X, 1e-9)
	assert.InDelta(t, 580.0, y.Y, 1e-9)
	// The Z axis lies on the optical axis, so its tip projects onto the origin.
	assert.InDelta(t, 640.0, z.X, 1e-9)
	assert.InDelta(t, 480.0, z.Y, 1e-9)
}
