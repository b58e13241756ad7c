package authority

import (
	"encoding/json"
	"time"

	"github.com/absmach/dpsshare/pkg/abe"
)

// Status tracks a facility's admission lifecycle. A facility is created on
// successful puzzle verification and revoked on repeated signature
// failures.
type Status uint8

const (
	Unregistered Status = iota
	PendingPuzzle
	Registered
	Revoked
)

func (s Status) String() string {
	switch s {
	case PendingPuzzle:
		return "pending-puzzle"
	case Registered:
		return "registered"
	case Revoked:
		return "revoked"
	default:
		return "unregistered"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Facility is the authority's admission record for one participant.
type Facility struct {
	ID           string         `json:"id"`
	Attributes   abe.Attributes `json:"attributes"`
	Status       Status         `json:"status"`
	SigFailures  int            `json:"sig_failures"`
	Nonce        string         `json:"nonce"`
	RegisteredAt time.Time      `json:"registered_at"`
}

type FacilityPage struct {
	Offset     uint64     `json:"offset"`
	Limit      uint64     `json:"limit"`
	Total      uint64     `json:"total"`
	Facilities []Facility `json:"facilities"`
}

// Registration is returned to a newly admitted facility: its
// attribute-bound decryption key, its session signing key and the public
// parameters.
type Registration struct {
	Key        abe.Key          `json:"key"`
	SigningKey []byte           `json:"signing_key"`
	Params     abe.PublicParams `json:"params"`
}
