// internal/core/distribution.go
package core

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// DistributionTolerance is the allowed distance of a probability vector's sum from 1.
const DistributionTolerance = 1e-6

// CheckDistribution verifies that p is non-negative, finite and sums to 1.
func CheckDistribution(op string, p []float64) error {
	if len(p) == 0 {
		return Distribution(op, "empty probability vector")
	}
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Distribution(op, fmt.Sprintf("entry %d is not finite", i))
		}
		if v < 0 {
			return Distribution(op, fmt.Sprintf("entry %d is negative (%g)", i, v))
		}
	}
	if sum := floats.Sum(p); math.Abs(sum-1) > DistributionTolerance {
		return Distribution(op, fmt.Sprintf("entries sum to %g, want 1", sum))
	}
	return nil
}

// Draw picks an index from the categorical distribution p using rng.
// Indexes with zero probability are never selected.
func Draw(rng *rand.Rand, p []float64) (int, error) {
	if err := CheckDistribution("core.Draw", p); err != nil {
		return -1, err
	}
	cum := make([]float64, len(p))
	floats.CumSum(cum, p)

	u := rng.Float64() * cum[len(cum)-1]
	for i, c := range cum {
		if c > u && p[i] > 0 {
			return i, nil
		}
	}
	// u landed on the rounding tail; take the last non-zero entry
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] > 0 {
			return i, nil
		}
	}
	return -1, Distribution("core.Draw", "no positive entries")
}
