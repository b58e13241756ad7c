package privacy_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/absmach/dpsshare/pkg/privacy"
	"github.com/absmach/dpsshare/pkg/shares"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerturbShapeAndIndependence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	u := shares.Update{1.0, 2.0, 3.0}

	got := privacy.Perturb(u, 1.0, 0.01, rng)
	require.Len(t, got, len(u))
	assert.True(t, shares.Equal(shares.Update{1.0, 2.0, 3.0}, u), "input must not be mutated")

	for _, v := range got {
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
	}
}

func TestPerturbDisabled(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	u := shares.Update{1.0, 2.0}

	assert.True(t, shares.Equal(u, privacy.Perturb(u, 0, 1.0, rng)))
	assert.True(t, shares.Equal(u, privacy.Perturb(u, 1.0, 0, rng)))
}

func TestPerturbNoiseScalesWithBudget(t *testing.T) {
	const dims = 10_000

	u := make(shares.Update, dims)
	spread := func(epsilon float64) float64 {
		rng := rand.New(rand.NewSource(7))
		p := privacy.Perturb(u, epsilon, 1.0, rng)
		var sum float64
		for _, v := range p {
			sum += math.Abs(v)
		}

		return sum / dims
	}

	// Smaller epsilon (stronger privacy) means larger noise on average.
	assert.Greater(t, spread(0.1), spread(10.0))
}
