package leader

import (
	"context"

	"github.com/absmach/dpsshare/round"
	"github.com/absmach/dpsshare/share"
)

// Status is a point-in-time view of the leader's round state machine.
type Status struct {
	Round    uint64 `json:"round"`
	Open     bool   `json:"open"`
	Partials int    `json:"partials"`
	FogCount int    `json:"fog_count"`
}

type Service interface {
	// StartRound advances the round counter and broadcasts the new round.
	// The counter advances exactly once per call, whether or not the
	// previous round completed.
	StartRound(ctx context.Context, modelLen int) (uint64, error)

	// SubmitPartial buffers a fog node's partial aggregate for the open
	// round. Duplicates from the same fog index are absorbed; partials for
	// any other round are rejected as stale.
	SubmitPartial(ctx context.Context, pa share.PartialAggregate) error

	// Collect blocks until every expected partial has arrived or the round
	// deadline expires, then decides the round: signature check over all
	// partials, global aggregation, redistribution, and an append-only log
	// record. The record is returned alongside the taxonomy error for
	// rounds that end incomplete.
	Collect(ctx context.Context) (round.Record, error)

	// Status reports the current round and how many partials arrived.
	Status(ctx context.Context) (Status, error)

	// GetRound returns the log record for one decided round.
	GetRound(ctx context.Context, r uint64) (round.Record, error)

	// ListRounds pages through decided rounds in ascending order.
	ListRounds(ctx context.Context, offset, limit uint64) (round.Page, error)

	// Subscribe wires the leader to the partial aggregate topic.
	Subscribe(ctx context.Context) error
}
