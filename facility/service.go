package facility

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/absmach/dpsshare/authority"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/crypto"
	"github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/pkg/mqtt"
	"github.com/absmach/dpsshare/pkg/privacy"
	"github.com/absmach/dpsshare/pkg/puzzle"
	"github.com/absmach/dpsshare/pkg/shares"
	"github.com/absmach/dpsshare/round"
	"github.com/absmach/dpsshare/share"
)

type Service interface {
	// ObtainSeed decrypts the authority's round-0 ciphertext with the
	// facility's attribute-bound key. A facility whose attributes do not
	// satisfy the policy never sees the weights.
	ObtainSeed(ctx context.Context, ct abe.Ciphertext) error

	// HandleRoundStart runs the facility's side of one round: local
	// training, noise perturbation, additive splitting and one signed
	// share per fog node. Rounds at or below the last submitted one are
	// rejected as stale.
	HandleRoundStart(ctx context.Context, rs share.RoundStart) error

	// HandleGlobalModel installs the leader's redistributed model as the
	// seed for the next round.
	HandleGlobalModel(ctx context.Context, gm share.GlobalModel) error

	// Model returns the current local copy of the weights.
	Model(ctx context.Context) (shares.Update, error)

	// Status reports the facility's position in the current round.
	Status(ctx context.Context) State

	// Subscribe wires the facility to the round start and global model
	// topics.
	Subscribe(ctx context.Context) error
}

type service struct {
	id            string
	reg           authority.Registration
	signer        crypto.Signer
	trainer       Trainer
	pubsub        mqtt.PubSub
	channelID     string
	fogCount      int
	epsilon       float64
	sensitivity   float64
	subDifficulty uint
	rng           *rand.Rand
	logger        *slog.Logger

	mu        sync.Mutex
	state     State
	model     shares.Update
	lastRound uint64
}

// NewService builds one participating facility from its registration.
// The rng drives both blinding shares and differential privacy noise, so
// tests can pin it for reproducible splits.
func NewService(id string, reg authority.Registration, trainer Trainer, pubsub mqtt.PubSub, channelID string, fogCount int, epsilon, sensitivity float64, subDifficulty uint, rng *rand.Rand, logger *slog.Logger) Service {
	return &service{
		id:            id,
		reg:           reg,
		signer:        crypto.NewSigner(reg.SigningKey),
		trainer:       trainer,
		pubsub:        pubsub,
		channelID:     channelID,
		fogCount:      fogCount,
		epsilon:       epsilon,
		sensitivity:   sensitivity,
		subDifficulty: subDifficulty,
		rng:           rng,
		logger:        logger,
		state:         AwaitingModel,
	}
}

func (svc *service) ObtainSeed(ctx context.Context, ct abe.Ciphertext) error {
	payload, err := abe.Decrypt(ct, svc.reg.Key)
	if err != nil {
		return err
	}

	var model shares.Update
	if err := cbor.Unmarshal(payload, &model); err != nil {
		return err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.model = model
	svc.state = Ready

	return nil
}

func (svc *service) HandleRoundStart(ctx context.Context, rs share.RoundStart) error {
	svc.mu.Lock()
	if svc.model == nil {
		svc.mu.Unlock()

		return errors.ErrNotFound
	}
	if rs.Round <= svc.lastRound {
		svc.mu.Unlock()

		return errors.ErrRoundStale
	}
	if len(svc.model) != rs.ModelLen {
		svc.mu.Unlock()

		return errors.ErrInvalidData
	}
	weights := svc.model.Clone()
	svc.mu.Unlock()

	update, samples, err := svc.trainer.Train(ctx, weights)
	if err != nil {
		return err
	}
	if len(update) != rs.ModelLen {
		return errors.ErrInvalidData
	}

	perturbed := privacy.Perturb(update, svc.epsilon, svc.sensitivity, svc.rng)
	parts := shares.Split(perturbed, svc.fogCount, svc.rng)

	// One puzzle per round covers every share of the submission.
	nonce, err := puzzle.Solve(ctx, svc.id, round.SubmissionContext(rs.Round), svc.subDifficulty)
	if err != nil {
		return err
	}

	for i, p := range parts {
		ss := share.Signed{
			Share: share.Share{
				Round:      rs.Round,
				FacilityID: svc.id,
				Index:      i,
				Payload:    p,
				NumSamples: samples,
			},
			Nonce: nonce,
		}
		ss.Signature = svc.signer.Sign(ss.SigningBytes())

		if err := svc.pubsub.Publish(ctx, mqtt.ShareSubmitTopic(svc.channelID), ss); err != nil {
			return err
		}
	}

	svc.mu.Lock()
	svc.lastRound = rs.Round
	svc.state = Submitted
	svc.mu.Unlock()

	svc.logger.Info("Shares submitted",
		slog.Uint64("round", rs.Round),
		slog.String("facility_id", svc.id),
		slog.Int("shares", len(parts)),
	)

	return nil
}

func (svc *service) HandleGlobalModel(ctx context.Context, gm share.GlobalModel) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if gm.Round < svc.lastRound {
		return errors.ErrRoundStale
	}

	svc.model = gm.Weights.Clone()
	svc.state = Ready

	svc.logger.Info("Global model installed",
		slog.Uint64("round", gm.Round),
		slog.String("facility_id", svc.id),
	)

	return nil
}

func (svc *service) Model(ctx context.Context) (shares.Update, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.model == nil {
		return nil, errors.ErrNotFound
	}

	return svc.model.Clone(), nil
}

func (svc *service) Status(ctx context.Context) State {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return svc.state
}

func (svc *service) Subscribe(ctx context.Context) error {
	err := svc.pubsub.Subscribe(ctx, mqtt.RoundStartTopic(svc.channelID), func(_ string, payload []byte) error {
		var rs share.RoundStart
		if err := cbor.Unmarshal(payload, &rs); err != nil {
			return err
		}

		if err := svc.HandleRoundStart(ctx, rs); err != nil {
			svc.logger.Warn("Round start dropped",
				slog.Uint64("round", rs.Round),
				slog.Any("error", err),
			)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return svc.pubsub.Subscribe(ctx, mqtt.GlobalModelTopic(svc.channelID), func(_ string, payload []byte) error {
		var gm share.GlobalModel
		if err := cbor.Unmarshal(payload, &gm); err != nil {
			return err
		}

		if err := svc.HandleGlobalModel(ctx, gm); err != nil {
			svc.logger.Warn("Global model dropped",
				slog.Uint64("round", gm.Round),
				slog.Any("error", err),
			)
		}

		return nil
	})
}
