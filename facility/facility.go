package facility

import (
	"context"

	"github.com/absmach/dpsshare/pkg/shares"
)

// Trainer produces one local training update from the current model
// weights. Implementations own the local dataset; the service never sees
// raw records, only the update vector and the declared sample count.
type Trainer interface {
	Train(ctx context.Context, weights shares.Update) (shares.Update, int, error)
}

// State tracks where a facility is inside one round.
type State uint8

const (
	AwaitingModel State = iota
	Ready
	Submitted
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Submitted:
		return "submitted"
	default:
		return "awaiting-model"
	}
}
