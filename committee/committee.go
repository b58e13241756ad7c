package committee

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/absmach/dpsshare/share"
)

// Member is one validator on the committee. Assess is the member's local
// judgement of an already-authenticated share; the pipeline in service.go
// handles puzzle, signature and shape checks before any vote is cast.
type Member interface {
	ID() string
	Assess(ctx context.Context, s share.Signed) bool
}

type validator struct {
	id string
}

// NewValidator returns an honest member: it accepts any share whose payload
// is present and numerically sane.
func NewValidator(id string) Member {
	return &validator{id: id}
}

func (v *validator) ID() string {
	return v.id
}

func (v *validator) Assess(_ context.Context, s share.Signed) bool {
	if len(s.Payload) == 0 {
		return false
	}
	for _, val := range s.Payload {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return false
		}
	}

	return true
}

// Rejection is the audit record for a dropped share: exactly one taxonomy
// kind and one offending identity.
type Rejection struct {
	Round      uint64    `json:"round"`
	FacilityID string    `json:"facility_id"`
	Index      int       `json:"index"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}

// tally collects votes for one share. Votes for the same share are
// serialized through the tally mutex and deduplicated per member, so a
// repeated vote cannot be double-counted toward quorum. Once the outcome is
// mathematically decidable the decision freezes.
type tally struct {
	mu sync.Mutex

	votes     map[string]bool
	accepts   int
	decided   bool
	accepted  bool
	forwarded bool
}

func newTally() *tally {
	return &tally{votes: make(map[string]bool)}
}

// record registers one member's vote and reports whether the decision is
// now (or already was) final. quorum is the accept threshold, members the
// committee size.
func (t *tally) record(memberID string, accept bool, quorum, members int) (decided, accepted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.decided {
		return true, t.accepted
	}
	if _, voted := t.votes[memberID]; voted {
		return false, false
	}

	t.votes[memberID] = accept
	if accept {
		t.accepts++
	}

	switch {
	case t.accepts >= quorum:
		t.decided, t.accepted = true, true
	case t.accepts+(members-len(t.votes)) < quorum:
		// Even if every remaining member accepts, quorum is out of reach.
		t.decided, t.accepted = true, false
	}

	return t.decided, t.accepted
}

func (t *tally) outcome() (decided, accepted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.decided, t.accepted
}

// claimForward grants the forwarding slot for an accepted share to exactly
// one caller. Two handlers can race past the vote loop with the same
// accepted tally; only the first claim succeeds, so the share is co-signed
// and published once.
func (t *tally) claimForward() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.decided || !t.accepted || t.forwarded {
		return false
	}
	t.forwarded = true

	return true
}
