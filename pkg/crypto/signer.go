package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"sync"

	"github.com/absmach/dpsshare/pkg/errors"
)

// The coordinator only depends on unforgeability and deterministic
// verification, not on a particular scheme. This implementation is a keyed
// MAC; swapping in an asymmetric keypair scheme only needs to honor
// Sign/Verify.

// Signer signs messages on behalf of one role for the session.
type Signer struct {
	key []byte
}

// NewSigner wraps a session key issued out of band.
func NewSigner(key []byte) Signer {
	k := make([]byte, len(key))
	copy(k, key)

	return Signer{key: k}
}

// DeriveKey deterministically derives an identity's session key from a
// shared session secret. Deterministic derivation is a known weakening kept
// from the reference protocol; it stays behind this function so a proper
// key-generation scheme can replace it without touching callers.
func DeriveKey(sessionSecret []byte, identity string) []byte {
	mac := hmac.New(sha256.New, sessionSecret)
	mac.Write([]byte("session_key_" + identity))

	return mac.Sum(nil)
}

// Sign produces an HMAC-SHA256 tag over the message.
func (s Signer) Sign(message []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(message)

	return mac.Sum(nil)
}

// Verify checks the tag in constant time.
func (s Signer) Verify(message, signature []byte) bool {
	return hmac.Equal(s.Sign(message), signature)
}

// KeyRing records verification keys per identity. When a derive function is
// configured, keys for unseen identities are derived lazily; otherwise an
// unknown identity fails verification.
type KeyRing struct {
	mu     sync.RWMutex
	keys   map[string][]byte
	derive func(identity string) []byte
}

func NewKeyRing() *KeyRing {
	return &KeyRing{keys: make(map[string][]byte)}
}

// NewDerivingKeyRing builds a key ring that derives missing keys from the
// shared session secret.
func NewDerivingKeyRing(sessionSecret []byte) *KeyRing {
	return &KeyRing{
		keys: make(map[string][]byte),
		derive: func(identity string) []byte {
			return DeriveKey(sessionSecret, identity)
		},
	}
}

// Add registers the verification key for an identity.
func (r *KeyRing) Add(identity string, key []byte) error {
	if identity == "" {
		return errors.ErrEmptyKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := make([]byte, len(key))
	copy(k, key)
	r.keys[identity] = k

	return nil
}

// Verify checks a signature against the claimed identity's known key.
func (r *KeyRing) Verify(identity string, message, signature []byte) bool {
	r.mu.RLock()
	key, ok := r.keys[identity]
	r.mu.RUnlock()

	if !ok {
		if r.derive == nil {
			return false
		}
		key = r.derive(identity)
		r.mu.Lock()
		r.keys[identity] = key
		r.mu.Unlock()
	}

	return NewSigner(key).Verify(message, signature)
}
