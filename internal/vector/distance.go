package vector

import "github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/pkg/utils"

// SquaredL2 returns the squared Euclidean distance between a and b.
// The vectors must have equal length.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// normalized returns a unit-length copy of v. A zero vector is copied unchanged.
func normalized(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	utils.NormalizeL2(out)
	return out
}
