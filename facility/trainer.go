package facility

import (
	"context"

	"github.com/absmach/dpsshare/pkg/shares"
)

// StaticTrainer reports a fixed update regardless of the incoming
// weights. It stands in for a real training loop in simulations and
// tests, where reproducible updates matter more than learning. A nil
// delta yields a zero update matching the incoming weight length.
type StaticTrainer struct {
	Delta   shares.Update
	Samples int
}

func (t StaticTrainer) Train(_ context.Context, weights shares.Update) (shares.Update, int, error) {
	if t.Delta == nil {
		return make(shares.Update, len(weights)), t.Samples, nil
	}

	return t.Delta.Clone(), t.Samples, nil
}
