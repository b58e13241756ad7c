package share

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/absmach/dpsshare/pkg/shares"
)

// Wire entities exchanged between roles. Every message is tagged with its
// round; receivers drop anything referencing a closed or unopened round
// instead of queueing it, which prevents replay across rounds. The tuple
// (round, sender, type) doubles as the dedup key for at-least-once
// transports.

// Share is one additive share of a facility's perturbed update, addressed
// to a single fog node index for the lifetime of the round.
type Share struct {
	Round      uint64        `json:"round"       cbor:"1,keyasint"`
	FacilityID string        `json:"facility_id" cbor:"2,keyasint"`
	Index      int           `json:"index"       cbor:"3,keyasint"`
	Payload    shares.Update `json:"payload"     cbor:"4,keyasint"`
	NumSamples int           `json:"num_samples" cbor:"5,keyasint"`
}

// SigningBytes returns the canonical byte encoding that signatures cover.
// The layout is fixed (tags, then big-endian float bits in ascending
// coordinate order) so signing and verification agree across processes.
func (s Share) SigningBytes() []byte {
	buf := make([]byte, 0, 8+8+8+len(s.FacilityID)+8*len(s.Payload))
	buf = binary.BigEndian.AppendUint64(buf, s.Round)
	buf = append(buf, s.FacilityID...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(s.Index))
	buf = binary.BigEndian.AppendUint64(buf, uint64(s.NumSamples))
	for _, v := range s.Payload {
		buf = binary.BigEndian.AppendUint64(buf, floatBits(v))
	}

	return buf
}

// Signed is a share together with the submission puzzle solution and the
// facility's signature over SigningBytes.
type Signed struct {
	Share
	Nonce     string `json:"nonce"     cbor:"6,keyasint"`
	Signature []byte `json:"signature" cbor:"7,keyasint"`
}

// Approved is a committee-accepted share, co-signed by the committee and
// forwarded to its target fog node.
type Approved struct {
	Signed
	CommitteeSignature []byte `json:"committee_signature" cbor:"8,keyasint"`
}

// PartialAggregate is one fog node's regional sum of its accepted shares,
// signed once and immutable afterwards.
type PartialAggregate struct {
	Round     uint64        `json:"round"     cbor:"1,keyasint"`
	FogID     string        `json:"fog_id"    cbor:"2,keyasint"`
	Index     int           `json:"index"     cbor:"3,keyasint"`
	Sum       shares.Update `json:"sum"       cbor:"4,keyasint"`
	Weighted  bool          `json:"weighted"  cbor:"5,keyasint"`
	Signature []byte        `json:"signature" cbor:"6,keyasint"`
}

// SigningBytes covers everything except the signature itself.
func (p PartialAggregate) SigningBytes() []byte {
	buf := make([]byte, 0, 8+len(p.FogID)+8+1+8*len(p.Sum))
	buf = binary.BigEndian.AppendUint64(buf, p.Round)
	buf = append(buf, p.FogID...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(p.Index))
	if p.Weighted {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	for _, v := range p.Sum {
		buf = binary.BigEndian.AppendUint64(buf, floatBits(v))
	}

	return buf
}

// RoundStart announces a new round to every subscribed role. ModelLen is
// the expected update width, used by validators to reject malformed
// shares without holding the model itself.
type RoundStart struct {
	Round    uint64 `json:"round"     cbor:"1,keyasint"`
	ModelLen int    `json:"model_len" cbor:"2,keyasint"`
}

// RoundFlush is the leader's deadline signal: fog nodes seal and publish
// whatever shares they hold for the round so missing facilities cannot
// starve it.
type RoundFlush struct {
	Round uint64 `json:"round" cbor:"1,keyasint"`
}

// GlobalModel is the round's single aggregation result, redistributed to
// every eligible facility as the next round's seed.
type GlobalModel struct {
	Round   uint64        `json:"round"   cbor:"1,keyasint"`
	Weights shares.Update `json:"weights" cbor:"2,keyasint"`
}

// Digest is the audit digest recorded in the round log.
func (g GlobalModel) Digest() string {
	buf := make([]byte, 0, 8+8*len(g.Weights))
	buf = binary.BigEndian.AppendUint64(buf, g.Round)
	for _, v := range g.Weights {
		buf = binary.BigEndian.AppendUint64(buf, floatBits(v))
	}
	sum := sha256.Sum256(buf)

	return hex.EncodeToString(sum[:])
}

func floatBits(v float64) uint64 {
	return math.Float64bits(v)
}
