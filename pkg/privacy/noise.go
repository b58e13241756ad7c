package privacy

import (
	"math"
	"math/rand"

	"github.com/absmach/dpsshare/pkg/shares"
)

// Laplace perturbation for differential privacy. The noise scale is a pure
// configuration value (sensitivity/epsilon); it is never derived from the
// data being perturbed.

func laplace(rng *rand.Rand, scale float64) float64 {
	// Inverse CDF sampling over u in (-0.5, 0.5).
	u := rng.Float64() - 0.5

	return -scale * math.Copysign(math.Log(1-2*math.Abs(u)), u)
}

// Perturb returns a copy of the update with independent Laplace(0,
// sensitivity/epsilon) noise added to every coordinate. Zero sensitivity or
// non-positive epsilon disables perturbation.
func Perturb(u shares.Update, epsilon, sensitivity float64, rng *rand.Rand) shares.Update {
	out := u.Clone()
	if epsilon <= 0 || sensitivity == 0 {
		return out
	}

	scale := sensitivity / epsilon
	for i := range out {
		out[i] += laplace(rng, scale)
	}

	return out
}
