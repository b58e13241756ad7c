package leader_test

import (
	"context"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absmach/dpsshare/authority"
	"github.com/absmach/dpsshare/committee"
	"github.com/absmach/dpsshare/facility"
	"github.com/absmach/dpsshare/fognode"
	"github.com/absmach/dpsshare/leader"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/crypto"
	"github.com/absmach/dpsshare/pkg/mqtt"
	"github.com/absmach/dpsshare/pkg/mqtt/mocks"
	"github.com/absmach/dpsshare/pkg/puzzle"
	"github.com/absmach/dpsshare/pkg/roundlog"
	"github.com/absmach/dpsshare/pkg/shares"
	"github.com/absmach/dpsshare/pkg/storage"
	"github.com/absmach/dpsshare/round"
	"github.com/absmach/dpsshare/share"
)

// pipeline wires every role over one in-process broker so a full round
// runs synchronously: round start, training, committee vote, regional
// aggregation and global redistribution.
type pipeline struct {
	t          *testing.T
	broker     *mocks.Broker
	leader     leader.Service
	committee  committee.Service
	fogs       []fognode.Service
	facilities []facility.Service
	models     []share.GlobalModel
}

func buildPipeline(t *testing.T, secret []byte, channel string, facilityCount, fogCount, committeeSize, modelLen int, deltas []shares.Update) *pipeline {
	t.Helper()

	p := &pipeline{t: t, broker: mocks.NewBroker()}
	ctx := context.Background()

	log, err := roundlog.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	p.leader = leader.NewService(
		crypto.NewDerivingKeyRing(secret),
		p.broker, channel, fogCount, time.Second, round.Abort, log, slog.Default(),
	)

	members := make([]committee.Member, committeeSize)
	for i := range committeeSize {
		members[i] = committee.NewValidator("validator_" + string(rune('0'+i)))
	}
	p.committee = committee.NewService(
		members,
		crypto.NewDerivingKeyRing(secret),
		crypto.NewSigner(crypto.DeriveKey(secret, "committee")),
		p.broker, channel, 1, fogCount, nil, slog.Default(),
	)

	for i := range fogCount {
		fogID := "fog_" + string(rune('0'+i))
		p.fogs = append(p.fogs, fognode.NewService(
			fogID, i,
			crypto.NewDerivingKeyRing(secret),
			crypto.NewSigner(crypto.DeriveKey(secret, fogID)),
			p.broker, channel, facilityCount, false, slog.Default(),
		))
	}

	// The committee and the fog nodes open their rounds before any
	// facility can submit: subscription order fixes the dispatch order on
	// the synchronous broker.
	require.NoError(t, p.broker.Subscribe(ctx, mqtt.RoundStartTopic(channel), func(_ string, payload []byte) error {
		var rs share.RoundStart
		if err := cbor.Unmarshal(payload, &rs); err != nil {
			return err
		}
		if err := p.committee.OpenRound(ctx, rs.Round, rs.ModelLen); err != nil {
			return err
		}
		for _, fog := range p.fogs {
			if err := fog.OpenRound(ctx, rs.Round); err != nil {
				return err
			}
		}

		return nil
	}))

	require.NoError(t, p.committee.Subscribe(ctx))
	for _, fog := range p.fogs {
		require.NoError(t, fog.Subscribe(ctx))
	}
	require.NoError(t, p.leader.Subscribe(ctx))

	require.NoError(t, p.broker.Subscribe(ctx, mqtt.GlobalModelTopic(channel), func(_ string, payload []byte) error {
		var gm share.GlobalModel
		if err := cbor.Unmarshal(payload, &gm); err != nil {
			return err
		}
		p.models = append(p.models, gm)

		return nil
	}))

	// Facilities register through the authority and decrypt the seed
	// model with their attribute-bound keys.
	auth := authority.NewService(storage.NewInMemoryStorage(), secret, 1)
	_, err = auth.Setup(ctx, 128, nil, []string{"region"})
	require.NoError(t, err)

	for i := range facilityCount {
		id := "facility_" + string(rune('0'+i))
		nonce, err := puzzle.Solve(ctx, id, round.RegistrationContext, 1)
		require.NoError(t, err)
		reg, err := auth.Register(ctx, id, nonce, abe.Attributes{"region": "eu"})
		require.NoError(t, err)

		svc := facility.NewService(
			id, reg,
			facility.StaticTrainer{Delta: deltas[i], Samples: 10},
			p.broker, channel, fogCount, 0, 1.0, 1,
			rand.New(rand.NewSource(int64(i+1))), slog.Default(),
		)
		p.facilities = append(p.facilities, svc)
	}

	seedWeights := make(shares.Update, modelLen)
	ct, err := auth.PublishSeedModel(ctx, seedWeights, abe.Policy{"region": "eu"})
	require.NoError(t, err)
	for _, svc := range p.facilities {
		require.NoError(t, svc.ObtainSeed(ctx, ct))
		require.NoError(t, svc.Subscribe(ctx))
	}

	return p
}

func (p *pipeline) runRound(modelLen int) round.Record {
	p.t.Helper()
	ctx := context.Background()

	_, err := p.leader.StartRound(ctx, modelLen)
	require.NoError(p.t, err)

	rec, err := p.leader.Collect(ctx)
	require.NoError(p.t, err)

	return rec
}

func TestSingleFacilityRound(t *testing.T) {
	p := buildPipeline(t, []byte("integration-a"), "chan-a", 1, 1, 1, 2, []shares.Update{{1.0, 2.0}})

	rec := p.runRound(2)
	assert.Equal(t, round.Completed, rec.Decision)

	require.Len(t, p.models, 1)
	assert.Equal(t, shares.Update{1.0, 2.0}, p.models[0].Weights)
	assert.Equal(t, p.models[0].Digest(), rec.Digest)

	// The redistributed model became every facility's new seed.
	model, err := p.facilities[0].Model(context.Background())
	require.NoError(t, err)
	assert.Equal(t, shares.Update{1.0, 2.0}, model)
}

func signedShare(t *testing.T, secret []byte, facilityID string, rnd uint64, index int, payload shares.Update) share.Signed {
	t.Helper()

	nonce, err := puzzle.Solve(context.Background(), facilityID, round.SubmissionContext(rnd), 1)
	require.NoError(t, err)

	ss := share.Signed{
		Share: share.Share{Round: rnd, FacilityID: facilityID, Index: index, Payload: payload, NumSamples: 10},
		Nonce: nonce,
	}
	ss.Signature = crypto.NewSigner(crypto.DeriveKey(secret, facilityID)).Sign(ss.SigningBytes())

	return ss
}

func TestRejectedFacilityDoesNotStallRound(t *testing.T) {
	secret := []byte("integration-c")
	channel := "chan-c"
	ctx := context.Background()
	broker := mocks.NewBroker()

	log, err := roundlog.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	ldr := leader.NewService(
		crypto.NewDerivingKeyRing(secret),
		broker, channel, 1, 100*time.Millisecond, round.Proceed, log, slog.Default(),
	)
	cmte := committee.NewService(
		[]committee.Member{committee.NewValidator("validator_0")},
		crypto.NewDerivingKeyRing(secret),
		crypto.NewSigner(crypto.DeriveKey(secret, "committee")),
		broker, channel, 1, 1, nil, slog.Default(),
	)
	// The fog expects two facilities, so one rejection means the expected
	// count is never reached and only the deadline flush can release it.
	fog := fognode.NewService(
		"fog_0", 0,
		crypto.NewDerivingKeyRing(secret),
		crypto.NewSigner(crypto.DeriveKey(secret, "fog_0")),
		broker, channel, 2, false, slog.Default(),
	)

	require.NoError(t, broker.Subscribe(ctx, mqtt.RoundStartTopic(channel), func(_ string, payload []byte) error {
		var rs share.RoundStart
		if err := cbor.Unmarshal(payload, &rs); err != nil {
			return err
		}
		if err := cmte.OpenRound(ctx, rs.Round, rs.ModelLen); err != nil {
			return err
		}

		return fog.OpenRound(ctx, rs.Round)
	}))
	require.NoError(t, cmte.Subscribe(ctx))
	require.NoError(t, fog.Subscribe(ctx))
	require.NoError(t, ldr.Subscribe(ctx))

	var models []share.GlobalModel
	require.NoError(t, broker.Subscribe(ctx, mqtt.GlobalModelTopic(channel), func(_ string, payload []byte) error {
		var gm share.GlobalModel
		if err := cbor.Unmarshal(payload, &gm); err != nil {
			return err
		}
		models = append(models, gm)

		return nil
	}))

	_, err = ldr.StartRound(ctx, 1)
	require.NoError(t, err)

	honest := signedShare(t, secret, "facility_0", 1, 0, shares.Update{2.0})
	forged := signedShare(t, secret, "facility_1", 1, 0, shares.Update{9.0})
	forged.Signature = crypto.NewSigner([]byte("attacker")).Sign(forged.SigningBytes())

	require.NoError(t, broker.Publish(ctx, mqtt.ShareSubmitTopic(channel), honest))
	require.NoError(t, broker.Publish(ctx, mqtt.ShareSubmitTopic(channel), forged))

	rec, err := ldr.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, round.Completed, rec.Decision)
	assert.Equal(t, 1, rec.Partials)

	require.Len(t, models, 1)
	assert.Equal(t, shares.Update{2.0}, models[0].Weights, "only the accepted share contributes")

	rejections := cmte.Rejections(ctx)
	require.Len(t, rejections, 1)
	assert.Equal(t, "facility_1", rejections[0].FacilityID)
}

func TestTwoFacilitiesTwoFogs(t *testing.T) {
	p := buildPipeline(t, []byte("integration-b"), "chan-b", 2, 2, 3, 1, []shares.Update{{2.0}, {4.0}})

	rec := p.runRound(1)
	assert.Equal(t, round.Completed, rec.Decision)
	assert.Equal(t, 2, rec.Partials)

	require.Len(t, p.models, 1)
	require.Len(t, p.models[0].Weights, 1)
	assert.InDelta(t, 6.0, p.models[0].Weights[0], 1e-9)
}
