package crypto_test

import (
	"testing"

	"github.com/absmach/dpsshare/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	signer := crypto.NewSigner([]byte("session-key"))
	msg := []byte("share payload")

	sig := signer.Sign(msg)
	assert.True(t, signer.Verify(msg, sig))
	assert.False(t, signer.Verify([]byte("tampered payload"), sig))

	sig[0] ^= 0xff
	assert.False(t, signer.Verify(msg, sig))
}

func TestVerifyDeterministic(t *testing.T) {
	signer := crypto.NewSigner([]byte("session-key"))
	msg := []byte("partial aggregate")

	assert.Equal(t, signer.Sign(msg), signer.Sign(msg))
}

func TestDeriveKeyPerIdentity(t *testing.T) {
	secret := []byte("session-secret")

	a := crypto.DeriveKey(secret, "facility_0")
	b := crypto.DeriveKey(secret, "facility_1")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, crypto.DeriveKey(secret, "facility_0"))
}

func TestKeyRing(t *testing.T) {
	ring := crypto.NewKeyRing()
	require.Error(t, ring.Add("", []byte("k")))
	require.NoError(t, ring.Add("fog_0", []byte("fog-key")))

	msg := []byte("partial")
	sig := crypto.NewSigner([]byte("fog-key")).Sign(msg)

	assert.True(t, ring.Verify("fog_0", msg, sig))
	assert.False(t, ring.Verify("fog_1", msg, sig), "unknown identity must not verify")
	assert.False(t, ring.Verify("fog_0", msg, append([]byte{0}, sig...)))
}

func TestDerivingKeyRing(t *testing.T) {
	secret := []byte("session-secret")
	ring := crypto.NewDerivingKeyRing(secret)

	msg := []byte("signed share")
	sig := crypto.NewSigner(crypto.DeriveKey(secret, "facility_3")).Sign(msg)

	assert.True(t, ring.Verify("facility_3", msg, sig))

	forged := crypto.NewSigner([]byte("attacker")).Sign(msg)
	assert.False(t, ring.Verify("facility_3", msg, forged))
}
