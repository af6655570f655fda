package pipeline

// Report is the flat, JSON-friendly summary of a Result written by the CLI
// and returned by the tool server.
type Report struct {
	Frame        int     `json:"frame"`
	Regions      int     `json:"regions"`
	Detected     bool    `json:"detected"`
	Accepted     bool    `json:"accepted"`
	Displacement float64 `json:"displacement"`
	Valid        bool    `json:"valid"`

	// Rvec, Tvec and Rotation (the row-major matrix of Rvec) are only
	// present for valid poses.
	Rvec              *[3]float64    `json:"rvec,omitempty"`
	Tvec              *[3]float64    `json:"tvec,omitempty"`
	Rotation          *[3][3]float64 `json:"rotation,omitempty"`
	ReprojectionError float64     `json:"reprojection_error,omitempty"`

	// Points are the correspondence points in role order, when detected.
	Points [][2]float64 `json:"points,omitempty"`
}

// Report summarises the result.
func (r Result) Report() Report {
	rep := Report{
		Frame:        r.Frame,
		Regions:      len(r.Regions),
		Detected:     r.HasCorrespondence,
		Accepted:     r.Accepted,
		Displacement: r.Displacement,
		Valid:        r.Pose.Valid,
	}

	if r.HasCorrespondence {
		rep.Points = make([][2]float64, len(r.Correspondence))
		for i, p := range r.Correspondence {
			rep.Points[i] = [2]float64{p.X, p.Y}
		}
	}

	if r.Pose.Valid {
		rv, tv := r.Pose.Rvec, r.Pose.Tvec
		rep.Rvec = &[3]float64{rv.X, rv.Y, rv.Z}
		rep.Tvec = &[3]float64{tv.X, tv.Y, tv.Z}
		rot := r.Pose.RotationMatrix()
		rep.Rotation = new([3][3]float64)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				rep.Rotation[i][j] = rot.At(i, j)
			}
		}
		rep.ReprojectionError = r.Pose.ReprojectionError
	}
	return rep
}
