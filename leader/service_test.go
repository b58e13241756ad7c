package leader_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absmach/dpsshare/leader"
	"github.com/absmach/dpsshare/pkg/crypto"
	"github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/pkg/mqtt"
	"github.com/absmach/dpsshare/pkg/mqtt/mocks"
	"github.com/absmach/dpsshare/pkg/roundlog"
	"github.com/absmach/dpsshare/pkg/shares"
	"github.com/absmach/dpsshare/round"
	"github.com/absmach/dpsshare/share"
)

const (
	channelID = "test-channel"
	fogCount  = 2
	modelLen  = 2
)

var sessionSecret = []byte("leader-test-secret")

type fixture struct {
	svc    leader.Service
	broker *mocks.Broker
	starts []share.RoundStart
	models []share.GlobalModel
}

func newFixture(t *testing.T, deadline time.Duration, policy round.TimeoutPolicy) *fixture {
	t.Helper()

	f := &fixture{broker: mocks.NewBroker()}
	ctx := context.Background()

	err := f.broker.Subscribe(ctx, mqtt.RoundStartTopic(channelID), func(_ string, payload []byte) error {
		var rs share.RoundStart
		if err := cbor.Unmarshal(payload, &rs); err != nil {
			return err
		}
		f.starts = append(f.starts, rs)

		return nil
	})
	require.NoError(t, err)

	err = f.broker.Subscribe(ctx, mqtt.GlobalModelTopic(channelID), func(_ string, payload []byte) error {
		var gm share.GlobalModel
		if err := cbor.Unmarshal(payload, &gm); err != nil {
			return err
		}
		f.models = append(f.models, gm)

		return nil
	})
	require.NoError(t, err)

	log, err := roundlog.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	f.svc = leader.NewService(
		crypto.NewDerivingKeyRing(sessionSecret),
		f.broker,
		channelID,
		fogCount,
		deadline,
		policy,
		log,
		slog.Default(),
	)

	return f
}

func partial(rnd uint64, index int, sum shares.Update) share.PartialAggregate {
	fogID := "fog_" + string(rune('0'+index))
	pa := share.PartialAggregate{
		Round: rnd,
		FogID: fogID,
		Index: index,
		Sum:   sum,
	}
	pa.Signature = crypto.NewSigner(crypto.DeriveKey(sessionSecret, fogID)).Sign(pa.SigningBytes())

	return pa
}

func TestRoundCompletes(t *testing.T) {
	f := newFixture(t, time.Second, round.Abort)
	ctx := context.Background()

	r, err := f.svc.StartRound(ctx, modelLen)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r)
	require.Len(t, f.starts, 1)
	assert.Equal(t, modelLen, f.starts[0].ModelLen)

	require.NoError(t, f.svc.SubmitPartial(ctx, partial(1, 0, shares.Update{1.0, 2.0})))
	require.NoError(t, f.svc.SubmitPartial(ctx, partial(1, 1, shares.Update{3.0, 4.0})))

	rec, err := f.svc.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, round.Completed, rec.Decision)
	assert.Equal(t, fogCount, rec.Partials)

	require.Len(t, f.models, 1)
	assert.Equal(t, shares.Update{4.0, 6.0}, f.models[0].Weights)
	assert.Equal(t, f.models[0].Digest(), rec.Digest)

	logged, err := f.svc.GetRound(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, rec, logged)
}

func TestBadPartialSignatureFailsRound(t *testing.T) {
	f := newFixture(t, time.Second, round.Abort)
	ctx := context.Background()

	_, err := f.svc.StartRound(ctx, modelLen)
	require.NoError(t, err)

	bad := partial(1, 0, shares.Update{1.0, 2.0})
	bad.Signature = crypto.NewSigner([]byte("attacker")).Sign(bad.SigningBytes())
	require.NoError(t, f.svc.SubmitPartial(ctx, bad))
	require.NoError(t, f.svc.SubmitPartial(ctx, partial(1, 1, shares.Update{3.0, 4.0})))

	rec, err := f.svc.Collect(ctx)
	assert.ErrorIs(t, err, errors.ErrSignatureInvalid)
	assert.Equal(t, round.Incomplete, rec.Decision)
	assert.Empty(t, f.models, "a failed round issues no global model")

	// The counter advances whether or not the round completed.
	next, err := f.svc.StartRound(ctx, modelLen)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next)
}

func TestDeadlineAbort(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond, round.Abort)
	ctx := context.Background()

	_, err := f.svc.StartRound(ctx, modelLen)
	require.NoError(t, err)
	require.NoError(t, f.svc.SubmitPartial(ctx, partial(1, 0, shares.Update{1.0, 2.0})))

	rec, err := f.svc.Collect(ctx)
	assert.ErrorIs(t, err, errors.ErrRoundIncomplete)
	assert.Equal(t, round.Incomplete, rec.Decision)
	assert.Equal(t, 1, rec.Partials)
	assert.Empty(t, f.models)
}

func TestDeadlineProceed(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond, round.Proceed)
	ctx := context.Background()

	_, err := f.svc.StartRound(ctx, modelLen)
	require.NoError(t, err)
	require.NoError(t, f.svc.SubmitPartial(ctx, partial(1, 0, shares.Update{1.0, 2.0})))

	rec, err := f.svc.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, round.Completed, rec.Decision)
	assert.Equal(t, 1, rec.Partials)
	require.Len(t, f.models, 1)
	assert.Equal(t, shares.Update{1.0, 2.0}, f.models[0].Weights)
}

func TestSubmitPartialStaleAndDuplicate(t *testing.T) {
	f := newFixture(t, time.Second, round.Abort)
	ctx := context.Background()

	err := f.svc.SubmitPartial(ctx, partial(1, 0, shares.Update{1.0, 2.0}))
	assert.ErrorIs(t, err, errors.ErrRoundStale, "no round is open yet")

	_, err = f.svc.StartRound(ctx, modelLen)
	require.NoError(t, err)

	err = f.svc.SubmitPartial(ctx, partial(9, 0, shares.Update{1.0, 2.0}))
	assert.ErrorIs(t, err, errors.ErrRoundStale)

	require.NoError(t, f.svc.SubmitPartial(ctx, partial(1, 0, shares.Update{1.0, 2.0})))
	require.NoError(t, f.svc.SubmitPartial(ctx, partial(1, 0, shares.Update{9.0, 9.0})))

	st, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Partials, "duplicate fog index is absorbed")
}

func TestCollectWithoutOpenRound(t *testing.T) {
	f := newFixture(t, time.Second, round.Abort)

	_, err := f.svc.Collect(context.Background())
	assert.ErrorIs(t, err, errors.ErrRoundStale)
}

func TestSubscribePipesPartials(t *testing.T) {
	f := newFixture(t, time.Second, round.Abort)
	ctx := context.Background()

	require.NoError(t, f.svc.Subscribe(ctx))
	_, err := f.svc.StartRound(ctx, modelLen)
	require.NoError(t, err)

	require.NoError(t, f.broker.Publish(ctx, mqtt.PartialTopic(channelID), partial(1, 0, shares.Update{1.0, 2.0})))

	st, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Partials)
}

func TestListRoundsAscending(t *testing.T) {
	f := newFixture(t, time.Second, round.Proceed)
	ctx := context.Background()

	for i := range 2 {
		_, err := f.svc.StartRound(ctx, modelLen)
		require.NoError(t, err)
		require.NoError(t, f.svc.SubmitPartial(ctx, partial(uint64(i+1), 0, shares.Update{1.0, 2.0})))
		require.NoError(t, f.svc.SubmitPartial(ctx, partial(uint64(i+1), 1, shares.Update{3.0, 4.0})))
		_, err = f.svc.Collect(ctx)
		require.NoError(t, err)
	}

	page, err := f.svc.ListRounds(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), page.Total)
	require.Len(t, page.Records, 2)
	assert.Equal(t, uint64(1), page.Records[0].Round)
	assert.Equal(t, uint64(2), page.Records[1].Round)
}
