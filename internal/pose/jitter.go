package pose

// DefaultJitterThreshold is the reference mean displacement, in pixels, at
// which a new correspondence is rejected.
const DefaultJitterThreshold = 40.0

// MeanDisplacement returns the mean Euclidean distance between index-aligned
// points of two correspondences.
func MeanDisplacement(a, b Correspondence) float64 {
	var sum float64
	for i := range a {
		sum += a[i].Dist(b[i])
	}
	return sum / float64(len(a))
}

// JitterFilter rejects correspondences that jump too far from the last
// accepted one.
//
// The filter is a single gate: the same comparison decides whether a
// correspondence is accepted and whether it replaces the stored one, so the
// stored correspondence is always the last accepted one. The first
// correspondence after construction or Reset is accepted unconditionally.
type JitterFilter struct {
	// Threshold is the exclusive upper bound on the mean displacement.
	Threshold float64

	prev   Correspondence
	primed bool
}

// NewJitterFilter creates an unprimed filter.
func NewJitterFilter(threshold float64) *JitterFilter {
	return &JitterFilter{Threshold: threshold}
}

// Update gates c against the last accepted correspondence.
//
// Returns whether c was accepted and its mean displacement from the last
// accepted correspondence (0 for the first one). Accepted correspondences
// replace the stored state; rejected ones leave it untouched.
func (f *JitterFilter) Update(c Correspondence) (accepted bool, displacement float64) {
	if !f.primed {
		f.prev = c
		f.primed = true
		return true, 0
	}

	displacement = MeanDisplacement(c, f.prev)
	if displacement < f.Threshold {
		f.prev = c
		return true, displacement
	}
	return false, displacement
}

// Reset forgets the stored correspondence.
func (f *JitterFilter) Reset() {
	f.prev = Correspondence{}
	f.primed = false
}

// Last returns the last accepted correspondence, if any.
func (f *JitterFilter) Last() (Correspondence, bool) {
	return f.prev, f.primed
}
