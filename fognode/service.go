package fognode

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/absmach/dpsshare/pkg/crypto"
	"github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/pkg/mqtt"
	"github.com/absmach/dpsshare/pkg/shares"
	"github.com/absmach/dpsshare/share"
	"github.com/fxamacker/cbor/v2"
)

type Service interface {
	// OpenRound clears the share buffer for a new round.
	OpenRound(ctx context.Context, r uint64) error

	// Accept buffers a committee-approved share addressed to this node.
	// Duplicate deliveries for a facility are absorbed. When the expected
	// number of shares has arrived the partial aggregate is published
	// automatically.
	Accept(ctx context.Context, as share.Approved) error

	// Aggregate seals and returns the partial aggregate for the current
	// round. Once sealed the partial is immutable: repeated calls return
	// the recorded value, never a recomputed one.
	Aggregate(ctx context.Context) (share.PartialAggregate, error)

	// Flush seals and publishes whatever the node holds for round r. The
	// leader requests it at the deadline so one missing facility cannot
	// starve the round.
	Flush(ctx context.Context, r uint64) error

	// Subscribe wires the node to its approved-share topic and the
	// leader's flush signal.
	Subscribe(ctx context.Context) error
}

type service struct {
	id            string
	index         int
	committeeRing *crypto.KeyRing
	signer        crypto.Signer
	pubsub        mqtt.PubSub
	channelID     string
	expected      int
	weighted      bool
	logger        *slog.Logger

	mu       sync.Mutex
	current  uint64
	open     bool
	accepted map[string]share.Approved
	sealed   map[uint64]share.PartialAggregate
}

// NewService builds a regional aggregator for one fog index. Weighting by
// each facility's declared dataset size is explicit configuration, never
// inferred.
func NewService(id string, index int, committeeRing *crypto.KeyRing, signer crypto.Signer, pubsub mqtt.PubSub, channelID string, expected int, weighted bool, logger *slog.Logger) Service {
	return &service{
		id:            id,
		index:         index,
		committeeRing: committeeRing,
		signer:        signer,
		pubsub:        pubsub,
		channelID:     channelID,
		expected:      expected,
		weighted:      weighted,
		logger:        logger,
		accepted:      make(map[string]share.Approved),
		sealed:        make(map[uint64]share.PartialAggregate),
	}
}

func (svc *service) OpenRound(ctx context.Context, r uint64) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.current = r
	svc.open = true
	svc.accepted = make(map[string]share.Approved)

	return nil
}

func (svc *service) Accept(ctx context.Context, as share.Approved) error {
	svc.mu.Lock()
	if !svc.open || as.Round != svc.current {
		svc.mu.Unlock()

		return errors.ErrRoundStale
	}
	if _, sealed := svc.sealed[as.Round]; sealed {
		svc.mu.Unlock()

		return errors.ErrRoundStale
	}
	svc.mu.Unlock()

	if as.Index != svc.index {
		return errors.ErrInvalidData
	}
	if !svc.committeeRing.Verify("committee", as.SigningBytes(), as.CommitteeSignature) {
		return errors.ErrSignatureInvalid
	}

	svc.mu.Lock()
	if _, dup := svc.accepted[as.FacilityID]; dup {
		svc.mu.Unlock()

		return nil
	}
	svc.accepted[as.FacilityID] = as
	ready := len(svc.accepted) == svc.expected
	svc.mu.Unlock()

	svc.logger.Info("Share accepted",
		slog.Uint64("round", as.Round),
		slog.String("facility_id", as.FacilityID),
		slog.Int("fog_index", svc.index),
	)

	if !ready {
		return nil
	}

	pa, err := svc.Aggregate(ctx)
	if err != nil {
		return err
	}

	return svc.pubsub.Publish(ctx, mqtt.PartialTopic(svc.channelID), pa)
}

func (svc *service) Aggregate(ctx context.Context) (share.PartialAggregate, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if pa, ok := svc.sealed[svc.current]; ok {
		return pa, nil
	}
	if len(svc.accepted) == 0 {
		return share.PartialAggregate{}, errors.ErrReconstructionIncomplete
	}

	// Fixed summation order (ascending facility ID) keeps re-aggregation
	// after a restart bit-identical.
	ids := make([]string, 0, len(svc.accepted))
	for id := range svc.accepted {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var total int
	for _, id := range ids {
		total += svc.accepted[id].NumSamples
	}

	width := len(svc.accepted[ids[0]].Payload)
	sum := make(shares.Update, width)
	for _, id := range ids {
		contribution := svc.accepted[id].Payload
		if svc.weighted && total > 0 {
			contribution = contribution.Clone()
			shares.Scale(contribution, float64(svc.accepted[id].NumSamples)/float64(total))
		}
		if !shares.Add(sum, contribution) {
			return share.PartialAggregate{}, errors.ErrInvalidData
		}
	}

	pa := share.PartialAggregate{
		Round:    svc.current,
		FogID:    svc.id,
		Index:    svc.index,
		Sum:      sum,
		Weighted: svc.weighted,
	}
	pa.Signature = svc.signer.Sign(pa.SigningBytes())
	svc.sealed[svc.current] = pa

	svc.logger.Info("Partial aggregate sealed",
		slog.Uint64("round", pa.Round),
		slog.Int("fog_index", pa.Index),
		slog.Int("shares", len(ids)),
	)

	return pa, nil
}

func (svc *service) Flush(ctx context.Context, r uint64) error {
	svc.mu.Lock()
	if !svc.open || r != svc.current {
		svc.mu.Unlock()

		return errors.ErrRoundStale
	}
	held := len(svc.accepted)
	svc.mu.Unlock()

	if held == 0 {
		return errors.ErrReconstructionIncomplete
	}

	pa, err := svc.Aggregate(ctx)
	if err != nil {
		return err
	}

	svc.logger.Info("Partial flushed",
		slog.Uint64("round", r),
		slog.Int("fog_index", svc.index),
		slog.Int("shares", held),
	)

	return svc.pubsub.Publish(ctx, mqtt.PartialTopic(svc.channelID), pa)
}

func (svc *service) Subscribe(ctx context.Context) error {
	err := svc.pubsub.Subscribe(ctx, mqtt.ApprovedShareTopic(svc.channelID, svc.index), func(_ string, payload []byte) error {
		var as share.Approved
		if err := cbor.Unmarshal(payload, &as); err != nil {
			return err
		}

		if err := svc.Accept(ctx, as); err != nil {
			svc.logger.Warn("Share dropped", slog.Any("error", err))
		}

		return nil
	})
	if err != nil {
		return err
	}

	return svc.pubsub.Subscribe(ctx, mqtt.RoundFlushTopic(svc.channelID), func(_ string, payload []byte) error {
		var rf share.RoundFlush
		if err := cbor.Unmarshal(payload, &rf); err != nil {
			return err
		}

		// An empty buffer has nothing to contribute; the leader's own
		// deadline policy decides what that means for the round.
		if err := svc.Flush(ctx, rf.Round); err != nil {
			svc.logger.Debug("flush skipped", slog.Any("error", err))
		}

		return nil
	})
}
