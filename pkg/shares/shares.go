package shares

import (
	"math"
	"math/rand"

	"github.com/absmach/dpsshare/pkg/errors"
)

// Update is a model update: an ordered numeric vector of protocol-agreed
// length. The coordinator never interprets its contents.
type Update []float64

// Clone returns an independent copy of the update.
func (u Update) Clone() Update {
	c := make(Update, len(u))
	copy(c, u)

	return c
}

const blindingSigma = 0.01

// Split derives n additive shares from an update. The first n-1 shares are
// random blindings and the last one absorbs the remainder, adjusted so that
// Combine's ascending-order sum reproduces the update bit-exactly. Additive
// sharing is used instead of polynomial threshold sharing because polynomial
// coefficients over large moduli are numerically unstable on floating-point
// weights; the trade-off is that reconstruction needs every share.
func Split(u Update, n int, rng *rand.Rand) []Update {
	if n < 1 {
		return nil
	}

	out := make([]Update, n)
	last := u.Clone()
	for i := range n - 1 {
		s := make(Update, len(u))
		for j := range s {
			s[j] = rng.NormFloat64() * blindingSigma
			last[j] -= s[j]
		}
		out[i] = s
	}
	out[n-1] = last

	// Sequential subtraction above and the ascending-order sum in Combine
	// associate differently, so the candidate last share can be off by a few
	// ulps. Fold the residual back into it until the reconstruction is
	// bit-exact.
	for {
		combined, err := Combine(out)
		if err != nil {
			return out
		}
		changed := false
		for j := range u {
			if combined[j] != u[j] {
				next := last[j] + (u[j] - combined[j])
				if next != last[j] {
					last[j] = next
					changed = true
				}
			}
		}
		if !changed {
			return out
		}
	}
}

// Combine reconstructs the update from a complete share set. Shares are
// summed elementwise in ascending slice index order; callers that receive
// shares out of band must order them by share index before combining so
// reconstruction stays bit-reproducible (float64 addition is not
// associative). A nil entry marks a missing share and fails the whole
// reconstruction: summing a strict subset would silently yield a wrong
// result. Combine is pure, so re-running it on the same inputs is safe.
func Combine(set []Update) (Update, error) {
	if len(set) == 0 {
		return nil, errors.ErrReconstructionIncomplete
	}

	width := -1
	for _, s := range set {
		if s == nil {
			return nil, errors.ErrReconstructionIncomplete
		}
		if width == -1 {
			width = len(s)
		}
		if len(s) != width {
			return nil, errors.ErrInvalidData
		}
	}

	sum := make(Update, width)
	for _, s := range set {
		for j, v := range s {
			sum[j] += v
		}
	}

	return sum, nil
}

// Add accumulates src into dst elementwise. It reports false when the
// shapes differ, leaving dst untouched.
func Add(dst, src Update) bool {
	if len(dst) != len(src) {
		return false
	}
	for i, v := range src {
		dst[i] += v
	}

	return true
}

// Scale multiplies the update by a scalar in place.
func Scale(u Update, k float64) {
	for i := range u {
		u[i] *= k
	}
}

// Equal reports exact elementwise equality, treating NaN as unequal.
func Equal(a, b Update) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] || math.IsNaN(a[i]) {
			return false
		}
	}

	return true
}
