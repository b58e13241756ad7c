package abe

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/absmach/dpsshare/pkg/errors"
)

// Attribute-based policy gate. The coordinator only relies on the contract:
// encrypt binds a payload to a policy, decrypt is deterministic for a key
// whose attributes satisfy the policy and fails cleanly otherwise. The
// cipher itself is a keystream mock standing in for a real CP-ABE scheme;
// it enforces the gate, not cryptographic hardness.

// Attributes describe a facility, e.g. role=hospital, region=North.
type Attributes map[string]string

// Policy is a conjunction of attribute equalities. It is immutable once a
// round's model is encrypted under it.
type Policy map[string]string

// SatisfiedBy reports whether every policy term matches the attributes.
func (p Policy) SatisfiedBy(attrs Attributes) bool {
	for k, v := range p {
		if attrs[k] != v {
			return false
		}
	}

	return true
}

func (p Policy) canonical() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(p[k])
		sb.WriteByte(';')
	}

	return sb.String()
}

// PublicParams are published after setup and embedded into ciphertexts.
type PublicParams struct {
	PK string `json:"pk"`
}

// MasterSecret never leaves the trusted authority.
type MasterSecret struct {
	value string
}

// Key is the attribute-bound decryption capability issued to a facility.
type Key struct {
	Secret     string     `json:"secret"`
	FacilityID string     `json:"facility_id"`
	Attributes Attributes `json:"attributes"`
}

// Ciphertext carries the encrypted payload together with the policy it was
// bound to.
type Ciphertext struct {
	CT     []byte `json:"ct"`
	Policy Policy `json:"policy"`
	PK     string `json:"pk"`
}

// Setup initializes the scheme over the facility and attribute universes.
func Setup(securityParam int, facilities, attributes []string) (PublicParams, MasterSecret, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return PublicParams{}, MasterSecret{}, err
	}

	pkSum := sha256.Sum256(fmt.Appendf(seed,
		"pk|%d|%s|%s", securityParam, strings.Join(facilities, ","), strings.Join(attributes, ",")))
	pk := hex.EncodeToString(pkSum[:])

	mskSum := sha256.Sum256(fmt.Appendf(seed, "msk|%s", pk))

	return PublicParams{PK: pk}, MasterSecret{value: hex.EncodeToString(mskSum[:])}, nil
}

// KeyGen issues a decryption key bound to the facility's attributes.
func KeyGen(msk MasterSecret, facilityID string, attrs Attributes) Key {
	sum := sha256.Sum256([]byte(msk.value + "|" + facilityID + "|" + Policy(attrs).canonical()))

	return Key{
		Secret:     hex.EncodeToString(sum[:]),
		FacilityID: facilityID,
		Attributes: attrs,
	}
}

func keystream(pk string, policy Policy) []byte {
	sum := sha256.Sum256([]byte(pk + "_" + policy.canonical()))

	return sum[:]
}

// Encrypt binds the payload to the access policy.
func Encrypt(payload []byte, pp PublicParams, policy Policy) Ciphertext {
	ks := keystream(pp.PK, policy)
	ct := make([]byte, len(payload))
	for i, b := range payload {
		ct[i] = b ^ ks[i%len(ks)]
	}

	return Ciphertext{CT: ct, Policy: policy, PK: pp.PK}
}

// Decrypt recovers the payload when the key's attributes satisfy the
// ciphertext policy and returns ErrAccessDenied otherwise.
func Decrypt(ct Ciphertext, key Key) ([]byte, error) {
	if !ct.Policy.SatisfiedBy(key.Attributes) {
		return nil, errors.ErrAccessDenied
	}

	ks := keystream(ct.PK, ct.Policy)
	payload := make([]byte, len(ct.CT))
	for i, b := range ct.CT {
		payload[i] = b ^ ks[i%len(ks)]
	}

	return payload, nil
}
