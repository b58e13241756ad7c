package committee

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/dpsshare/pkg/crypto"
	"github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/pkg/mqtt"
	"github.com/absmach/dpsshare/pkg/puzzle"
	"github.com/absmach/dpsshare/round"
	"github.com/absmach/dpsshare/share"
	"github.com/fxamacker/cbor/v2"
)

type Service interface {
	// OpenRound resets the committee for a new round. Shares tagged with
	// any other round are rejected as stale, never queued.
	OpenRound(ctx context.Context, r uint64, modelLen int) error

	// HandleShare runs the per-share pipeline: puzzle, signature, shape,
	// quorum vote, then co-sign-and-forward or drop-and-record. The
	// returned error is the taxonomy kind for rejected shares; a rejected
	// share never aborts the round.
	HandleShare(ctx context.Context, ss share.Signed) error

	// Rejections returns the audit trail for the current run.
	Rejections(ctx context.Context) []Rejection

	// Subscribe wires the service to the share submission topic.
	Subscribe(ctx context.Context) error
}

type service struct {
	members       []Member
	quorum        int
	ring          *crypto.KeyRing
	signer        crypto.Signer
	pubsub        mqtt.PubSub
	channelID     string
	subDifficulty uint
	fogCount      int
	onSigFailure  func(ctx context.Context, facilityID string)
	logger        *slog.Logger

	mu         sync.Mutex
	current    uint64
	roundOpen  bool
	modelLen   int
	tallies    map[string]*tally
	rejections []Rejection
}

// NewService builds a committee over the given members. The quorum is a
// fixed majority, floor(m/2)+1. onSigFailure, when set, reports signature
// failures back to the authority for revocation accounting.
func NewService(members []Member, ring *crypto.KeyRing, signer crypto.Signer, pubsub mqtt.PubSub, channelID string, subDifficulty uint, fogCount int, onSigFailure func(ctx context.Context, facilityID string), logger *slog.Logger) Service {
	return &service{
		members:       members,
		quorum:        len(members)/2 + 1,
		ring:          ring,
		signer:        signer,
		pubsub:        pubsub,
		channelID:     channelID,
		subDifficulty: subDifficulty,
		fogCount:      fogCount,
		onSigFailure:  onSigFailure,
		logger:        logger,
		tallies:       make(map[string]*tally),
	}
}

func (svc *service) OpenRound(ctx context.Context, r uint64, modelLen int) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.current = r
	svc.roundOpen = true
	svc.modelLen = modelLen
	svc.tallies = make(map[string]*tally)

	return nil
}

func shareKey(ss share.Signed) string {
	return fmt.Sprintf("%d|%s|%d", ss.Round, ss.FacilityID, ss.Index)
}

func (svc *service) HandleShare(ctx context.Context, ss share.Signed) error {
	// Stage 1: round freshness. Stale shares are dropped before any
	// cryptographic work.
	svc.mu.Lock()
	open, current, modelLen := svc.roundOpen, svc.current, svc.modelLen
	svc.mu.Unlock()

	if !open || ss.Round != current {
		return svc.reject(ss, errors.ErrRoundStale)
	}

	// Stage 2: submission puzzle.
	if !puzzle.Verify(ss.FacilityID, round.SubmissionContext(ss.Round), ss.Nonce, svc.subDifficulty) {
		return svc.reject(ss, errors.ErrPuzzleInvalid)
	}

	// Stage 3: facility signature against its known key.
	if !svc.ring.Verify(ss.FacilityID, ss.SigningBytes(), ss.Signature) {
		if svc.onSigFailure != nil {
			svc.onSigFailure(ctx, ss.FacilityID)
		}

		return svc.reject(ss, errors.ErrSignatureInvalid)
	}

	// Stage 4: well-formedness.
	if len(ss.Payload) != modelLen || ss.Index < 0 || ss.Index >= svc.fogCount {
		return svc.reject(ss, errors.ErrInvalidData)
	}

	// Stage 5: quorum vote, stopping as soon as the outcome is decided.
	t := svc.tallyFor(ss)
	if decided, accepted := t.outcome(); decided {
		// Duplicate delivery of an already-decided share is absorbed.
		if accepted {
			return nil
		}

		return errors.ErrQuorumNotReached
	}

	var accepted bool
	for _, m := range svc.members {
		decided, ok := t.record(m.ID(), m.Assess(ctx, ss), svc.quorum, len(svc.members))
		if decided {
			accepted = ok

			break
		}
	}

	if !accepted {
		return svc.reject(ss, errors.ErrQuorumNotReached)
	}

	// A concurrent delivery of the same share may reach this point with the
	// same accepted tally; the forwarding slot goes to one caller only.
	if !t.claimForward() {
		return nil
	}

	return svc.forward(ctx, ss)
}

func (svc *service) tallyFor(ss share.Signed) *tally {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	k := shareKey(ss)
	t, ok := svc.tallies[k]
	if !ok {
		t = newTally()
		svc.tallies[k] = t
	}

	return t
}

// forward co-signs an accepted share and hands it to its target fog node.
func (svc *service) forward(ctx context.Context, ss share.Signed) error {
	approved := share.Approved{
		Signed:             ss,
		CommitteeSignature: svc.signer.Sign(ss.SigningBytes()),
	}

	topic := mqtt.ApprovedShareTopic(svc.channelID, ss.Index)
	if err := svc.pubsub.Publish(ctx, topic, approved); err != nil {
		return err
	}

	svc.logger.Info("Share approved and forwarded",
		slog.Uint64("round", ss.Round),
		slog.String("facility_id", ss.FacilityID),
		slog.Int("fog_index", ss.Index),
	)

	return nil
}

func (svc *service) reject(ss share.Signed, reason error) error {
	svc.mu.Lock()
	svc.rejections = append(svc.rejections, Rejection{
		Round:      ss.Round,
		FacilityID: ss.FacilityID,
		Index:      ss.Index,
		Reason:     reason.Error(),
		At:         time.Now().UTC(),
	})
	svc.mu.Unlock()

	svc.logger.Warn("Share rejected",
		slog.Uint64("round", ss.Round),
		slog.String("facility_id", ss.FacilityID),
		slog.Int("fog_index", ss.Index),
		slog.Any("error", reason),
	)

	return reason
}

func (svc *service) Rejections(ctx context.Context) []Rejection {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	out := make([]Rejection, len(svc.rejections))
	copy(out, svc.rejections)

	return out
}

func (svc *service) Subscribe(ctx context.Context) error {
	topic := mqtt.ShareSubmitTopic(svc.channelID)

	return svc.pubsub.Subscribe(ctx, topic, func(_ string, payload []byte) error {
		var ss share.Signed
		if err := cbor.Unmarshal(payload, &ss); err != nil {
			return err
		}

		// Per-share pipelines are independent; rejected shares must not
		// fail the subscription.
		if err := svc.HandleShare(ctx, ss); err != nil {
			svc.logger.Debug("share pipeline outcome", slog.Any("error", err))
		}

		return nil
	})
}
