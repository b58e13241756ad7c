package round

import (
	"strconv"
	"time"
)

// Decision is the terminal outcome of one round. A round produces exactly
// one global model or it is marked incomplete; there is no partial success.
type Decision string

const (
	Completed  Decision = "completed"
	Incomplete Decision = "incomplete"
)

// TimeoutPolicy picks what the leader does when the deadline expires with
// some, but not all, expected partial aggregates delivered.
type TimeoutPolicy string

const (
	// Abort marks the round incomplete and issues no global model.
	Abort TimeoutPolicy = "abort"
	// Proceed aggregates whatever partials arrived, as long as at least
	// one did.
	Proceed TimeoutPolicy = "proceed"
)

// Record is one append-only round log entry: enough for an auditor to tie
// a global model digest to the round that produced it.
type Record struct {
	Round     uint64    `json:"round"`
	Decision  Decision  `json:"decision"`
	Digest    string    `json:"digest,omitempty"`
	Partials  int       `json:"partials"`
	DecidedAt time.Time `json:"decided_at"`
}

// Page is a paginated slice of the round log.
type Page struct {
	Offset  uint64   `json:"offset"`
	Limit   uint64   `json:"limit"`
	Total   uint64   `json:"total"`
	Records []Record `json:"records"`
}

// SubmissionContext is the public context facilities bind their per-round
// submission puzzles to.
func SubmissionContext(r uint64) string {
	return "submit-" + strconv.FormatUint(r, 10)
}

// RegistrationContext is the public context for the one-time admission
// puzzle.
const RegistrationContext = "registration"
