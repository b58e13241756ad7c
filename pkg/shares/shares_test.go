package shares_test

import (
	"math/rand"
	"testing"

	"github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/pkg/shares"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCombineRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	cases := []struct {
		name string
		u    shares.Update
		n    int
	}{
		{"single share", shares.Update{1.0, 2.0}, 1},
		{"two shares", shares.Update{2.0}, 2},
		{"three shares", shares.Update{1.5, -2.25, 0.0, 4.75}, 3},
		{"many shares", shares.Update{0.125, 0.25, 0.5}, 16},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := shares.Split(tc.u, tc.n, rng)
			require.Len(t, set, tc.n)

			got, err := shares.Combine(set)
			require.NoError(t, err)
			assert.True(t, shares.Equal(tc.u, got), "reconstruction must be exact")
		})
	}
}

func TestSplitCombineRoundTripRandom(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))

		u := make(shares.Update, 32)
		for i := range u {
			u[i] = rng.NormFloat64() * 1e3
		}

		for _, n := range []int{2, 3, 5, 16} {
			set := shares.Split(u, n, rng)
			got, err := shares.Combine(set)
			require.NoError(t, err)
			assert.True(t, shares.Equal(u, got), "reconstruction must be exact for n=%d seed=%d", n, seed)
		}
	}
}

func TestSplitSingleShareIsUpdate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	u := shares.Update{1.0, 2.0}

	set := shares.Split(u, 1, rng)
	require.Len(t, set, 1)
	assert.True(t, shares.Equal(u, set[0]))
}

func TestCombineMissingShare(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	set := shares.Split(shares.Update{3.0, 1.0}, 3, rng)

	set[1] = nil
	_, err := shares.Combine(set)
	assert.ErrorIs(t, err, errors.ErrReconstructionIncomplete)

	_, err = shares.Combine(nil)
	assert.ErrorIs(t, err, errors.ErrReconstructionIncomplete)
}

func TestCombineShapeMismatch(t *testing.T) {
	_, err := shares.Combine([]shares.Update{{1.0, 2.0}, {1.0}})
	assert.ErrorIs(t, err, errors.ErrInvalidData)
}

func TestCombineIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	set := shares.Split(shares.Update{0.1, 0.2, 0.3}, 4, rng)

	first, err := shares.Combine(set)
	require.NoError(t, err)
	second, err := shares.Combine(set)
	require.NoError(t, err)

	assert.True(t, shares.Equal(first, second), "same inputs must give the same output")
}

func TestAddAndScale(t *testing.T) {
	dst := shares.Update{1.0, 2.0}
	assert.True(t, shares.Add(dst, shares.Update{0.5, -1.0}))
	assert.True(t, shares.Equal(shares.Update{1.5, 1.0}, dst))

	assert.False(t, shares.Add(dst, shares.Update{1.0}))
	assert.True(t, shares.Equal(shares.Update{1.5, 1.0}, dst), "mismatched add must not mutate dst")

	shares.Scale(dst, 2.0)
	assert.True(t, shares.Equal(shares.Update{3.0, 2.0}, dst))
}
