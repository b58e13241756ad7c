package leader

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/absmach/dpsshare/pkg/crypto"
	"github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/pkg/mqtt"
	"github.com/absmach/dpsshare/pkg/roundlog"
	"github.com/absmach/dpsshare/pkg/shares"
	"github.com/absmach/dpsshare/round"
	"github.com/absmach/dpsshare/share"
	"github.com/fxamacker/cbor/v2"
)

type service struct {
	fogRing   *crypto.KeyRing
	pubsub    mqtt.PubSub
	channelID string
	fogCount  int
	deadline  time.Duration
	policy    round.TimeoutPolicy
	log       *roundlog.Log
	logger    *slog.Logger

	mu       sync.Mutex
	current  uint64
	open     bool
	modelLen int
	partials map[int]share.PartialAggregate
	full     chan struct{}
}

// NewService builds the global aggregation leader. The timeout policy
// picks between aborting a round with missing partials and proceeding on
// whatever arrived before the deadline.
func NewService(fogRing *crypto.KeyRing, pubsub mqtt.PubSub, channelID string, fogCount int, deadline time.Duration, policy round.TimeoutPolicy, log *roundlog.Log, logger *slog.Logger) Service {
	return &service{
		fogRing:   fogRing,
		pubsub:    pubsub,
		channelID: channelID,
		fogCount:  fogCount,
		deadline:  deadline,
		policy:    policy,
		log:       log,
		logger:    logger,
		partials:  make(map[int]share.PartialAggregate),
	}
}

func (svc *service) StartRound(ctx context.Context, modelLen int) (uint64, error) {
	svc.mu.Lock()
	svc.current++
	svc.open = true
	svc.modelLen = modelLen
	svc.partials = make(map[int]share.PartialAggregate)
	svc.full = make(chan struct{})
	r := svc.current
	svc.mu.Unlock()

	start := share.RoundStart{Round: r, ModelLen: modelLen}
	if err := svc.pubsub.Publish(ctx, mqtt.RoundStartTopic(svc.channelID), start); err != nil {
		return 0, err
	}

	svc.logger.Info("Round started",
		slog.Uint64("round", r),
		slog.Int("model_len", modelLen),
	)

	return r, nil
}

func (svc *service) SubmitPartial(ctx context.Context, pa share.PartialAggregate) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if !svc.open || pa.Round != svc.current {
		return errors.ErrRoundStale
	}
	if pa.Index < 0 || pa.Index >= svc.fogCount {
		return errors.ErrInvalidData
	}
	if _, dup := svc.partials[pa.Index]; dup {
		return nil
	}

	svc.partials[pa.Index] = pa
	if len(svc.partials) == svc.fogCount {
		close(svc.full)
	}

	return nil
}

func (svc *service) Collect(ctx context.Context) (round.Record, error) {
	svc.mu.Lock()
	if !svc.open {
		svc.mu.Unlock()

		return round.Record{}, errors.ErrRoundStale
	}
	r := svc.current
	full := svc.full
	svc.mu.Unlock()

	timer := time.NewTimer(svc.deadline)
	defer timer.Stop()

	select {
	case <-full:
	case <-timer.C:
		// Deadline reached with partials outstanding. Ask the fogs to seal
		// and publish whatever they hold, then give the flushed partials a
		// grace window to arrive before deciding.
		if err := svc.pubsub.Publish(ctx, mqtt.RoundFlushTopic(svc.channelID), share.RoundFlush{Round: r}); err != nil {
			svc.logger.Warn("Flush request failed", slog.Uint64("round", r), slog.Any("error", err))
		}

		grace := time.NewTimer(svc.deadline / 4)
		select {
		case <-full:
		case <-grace.C:
		case <-ctx.Done():
			grace.Stop()

			return round.Record{}, ctx.Err()
		}
		grace.Stop()
	case <-ctx.Done():
		return round.Record{}, ctx.Err()
	}

	return svc.decide(ctx)
}

// decide closes the round and produces its single immutable outcome.
func (svc *service) decide(ctx context.Context) (round.Record, error) {
	svc.mu.Lock()
	svc.open = false
	r := svc.current
	gathered := make([]share.PartialAggregate, 0, len(svc.partials))
	for _, pa := range svc.partials {
		gathered = append(gathered, pa)
	}
	svc.mu.Unlock()

	sort.Slice(gathered, func(i, j int) bool { return gathered[i].Index < gathered[j].Index })

	rec := round.Record{
		Round:     r,
		Decision:  round.Incomplete,
		Partials:  len(gathered),
		DecidedAt: time.Now().UTC(),
	}

	outcome := svc.verdict(gathered)
	if outcome != nil {
		if err := svc.log.Append(ctx, rec); err != nil {
			return rec, err
		}
		svc.logger.Warn("Round incomplete",
			slog.Uint64("round", r),
			slog.Int("partials", len(gathered)),
			slog.Any("error", outcome),
		)

		return rec, outcome
	}

	sum := make(shares.Update, svc.modelLen)
	for _, pa := range gathered {
		if !shares.Add(sum, pa.Sum) {
			rec.Partials = len(gathered)
			if err := svc.log.Append(ctx, rec); err != nil {
				return rec, err
			}

			return rec, errors.ErrInvalidData
		}
	}

	model := share.GlobalModel{Round: r, Weights: sum}
	if err := svc.pubsub.Publish(ctx, mqtt.GlobalModelTopic(svc.channelID), model); err != nil {
		return rec, err
	}

	rec.Decision = round.Completed
	rec.Digest = model.Digest()
	if err := svc.log.Append(ctx, rec); err != nil {
		return rec, err
	}

	svc.logger.Info("Round completed",
		slog.Uint64("round", r),
		slog.Int("partials", len(gathered)),
		slog.String("digest", rec.Digest),
	)

	return rec, nil
}

// verdict decides whether the gathered partials can produce a global
// model. A single bad fog signature fails the whole round: there is no
// way to subtract one regional sum from the result afterwards.
func (svc *service) verdict(gathered []share.PartialAggregate) error {
	for _, pa := range gathered {
		if !svc.fogRing.Verify(pa.FogID, pa.SigningBytes(), pa.Signature) {
			return errors.ErrSignatureInvalid
		}
	}

	if len(gathered) == svc.fogCount {
		return nil
	}
	if svc.policy == round.Proceed && len(gathered) > 0 {
		return nil
	}

	return errors.ErrRoundIncomplete
}

func (svc *service) Status(ctx context.Context) (Status, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return Status{
		Round:    svc.current,
		Open:     svc.open,
		Partials: len(svc.partials),
		FogCount: svc.fogCount,
	}, nil
}

func (svc *service) GetRound(ctx context.Context, r uint64) (round.Record, error) {
	return svc.log.Get(ctx, r)
}

func (svc *service) ListRounds(ctx context.Context, offset, limit uint64) (round.Page, error) {
	return svc.log.List(ctx, offset, limit)
}

func (svc *service) Subscribe(ctx context.Context) error {
	topic := mqtt.PartialTopic(svc.channelID)

	return svc.pubsub.Subscribe(ctx, topic, func(_ string, payload []byte) error {
		var pa share.PartialAggregate
		if err := cbor.Unmarshal(payload, &pa); err != nil {
			return err
		}

		if err := svc.SubmitPartial(ctx, pa); err != nil {
			svc.logger.Warn("Partial dropped",
				slog.Uint64("round", pa.Round),
				slog.String("fog_id", pa.FogID),
				slog.Any("error", err),
			)
		}

		return nil
	})
}
