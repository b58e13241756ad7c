package committee

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTallyQuorumMonotonic(t *testing.T) {
	// m=5, quorum=3: once three accepts land, later votes cannot flip
	// the decision.
	tl := newTally()

	for _, member := range []string{"v0", "v1"} {
		decided, _ := tl.record(member, true, 3, 5)
		assert.False(t, decided)
	}

	decided, accepted := tl.record("v2", true, 3, 5)
	assert.True(t, decided)
	assert.True(t, accepted)

	decided, accepted = tl.record("v3", false, 3, 5)
	assert.True(t, decided)
	assert.True(t, accepted, "decision is immutable once quorum is reached")
}

func TestTallyEarlyRejectDecision(t *testing.T) {
	// m=3, quorum=2: two reject votes make the threshold unreachable
	// before the last member votes.
	tl := newTally()

	decided, _ := tl.record("v0", false, 2, 3)
	assert.False(t, decided)

	decided, accepted := tl.record("v1", false, 2, 3)
	assert.True(t, decided, "outcome is decidable without the third vote")
	assert.False(t, accepted)
}

func TestTallyClaimForwardSingleWinner(t *testing.T) {
	tl := newTally()

	// No decision yet: nothing to forward.
	assert.False(t, tl.claimForward())

	tl.record("v0", true, 1, 1)

	// Concurrent handlers racing past the vote with the same accepted
	// tally: exactly one gets the forwarding slot.
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tl.claimForward() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	// A rejected tally never grants the slot.
	rejected := newTally()
	rejected.record("v0", false, 1, 1)
	assert.False(t, rejected.claimForward())
}

func TestTallyDuplicateVoteNotDoubleCounted(t *testing.T) {
	// m=3, quorum=2: one member voting accept twice must not reach
	// quorum alone.
	tl := newTally()

	tl.record("v0", true, 2, 3)
	decided, _ := tl.record("v0", true, 2, 3)
	assert.False(t, decided)

	decided, accepted := tl.outcome()
	assert.False(t, decided)
	assert.False(t, accepted)
}
