package abe_test

import (
	"testing"

	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (abe.PublicParams, abe.MasterSecret) {
	t.Helper()
	pp, msk, err := abe.Setup(256, []string{"facility_0", "facility_1"}, []string{"role", "region"})
	require.NoError(t, err)

	return pp, msk
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	pp, msk := setup(t)
	policy := abe.Policy{"role": "hospital", "region": "North"}
	key := abe.KeyGen(msk, "facility_0", abe.Attributes{"role": "hospital", "region": "North"})

	payload := []byte("seed model weights")
	ct := abe.Encrypt(payload, pp, policy)

	got, err := abe.Decrypt(ct, key)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Decryption is deterministic for a matching key.
	again, err := abe.Decrypt(ct, key)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestDecryptPolicyNotSatisfied(t *testing.T) {
	pp, msk := setup(t)
	policy := abe.Policy{"role": "hospital", "region": "North"}
	ct := abe.Encrypt([]byte("seed model weights"), pp, policy)

	cases := []abe.Attributes{
		{"role": "clinic", "region": "North"},
		{"role": "hospital", "region": "South"},
		{"role": "hospital"},
		{},
	}
	for _, attrs := range cases {
		key := abe.KeyGen(msk, "facility_1", attrs)
		_, err := abe.Decrypt(ct, key)
		assert.ErrorIs(t, err, errors.ErrAccessDenied)
	}
}

func TestPolicySatisfiedBy(t *testing.T) {
	policy := abe.Policy{"role": "hospital"}

	assert.True(t, policy.SatisfiedBy(abe.Attributes{"role": "hospital", "region": "North"}))
	assert.False(t, policy.SatisfiedBy(abe.Attributes{"region": "North"}))
	assert.True(t, abe.Policy{}.SatisfiedBy(abe.Attributes{}))
}

func TestKeyGenBindsAttributes(t *testing.T) {
	_, msk := setup(t)

	a := abe.KeyGen(msk, "facility_0", abe.Attributes{"role": "hospital"})
	b := abe.KeyGen(msk, "facility_0", abe.Attributes{"role": "clinic"})
	assert.NotEqual(t, a.Secret, b.Secret)
}
