package sdk_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absmach/dpsshare/authority"
	authorityapi "github.com/absmach/dpsshare/authority/api"
	"github.com/absmach/dpsshare/leader"
	leaderapi "github.com/absmach/dpsshare/leader/api"
	"github.com/absmach/dpsshare/pkg/crypto"
	"github.com/absmach/dpsshare/pkg/mqtt/mocks"
	"github.com/absmach/dpsshare/pkg/puzzle"
	"github.com/absmach/dpsshare/pkg/roundlog"
	"github.com/absmach/dpsshare/pkg/sdk"
	"github.com/absmach/dpsshare/pkg/storage"
	"github.com/absmach/dpsshare/round"
)

const regDifficulty = 1

var sessionSecret = []byte("sdk-test-secret")

func newSDK(t *testing.T) sdk.SDK {
	t.Helper()

	authSvc := authority.NewService(storage.NewInMemoryStorage(), sessionSecret, regDifficulty)
	authSrv := httptest.NewServer(authorityapi.MakeHandler(authSvc, slog.Default(), "test"))
	t.Cleanup(authSrv.Close)

	log, err := roundlog.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	leaderSvc := leader.NewService(
		crypto.NewDerivingKeyRing(sessionSecret),
		mocks.NewBroker(),
		"sdk-channel", 1, time.Second, round.Abort, log, slog.Default(),
	)
	leaderSrv := httptest.NewServer(leaderapi.MakeHandler(leaderSvc, slog.Default(), "test"))
	t.Cleanup(leaderSrv.Close)

	return sdk.NewSDK(sdk.Config{
		AuthorityURL: authSrv.URL,
		LeaderURL:    leaderSrv.URL,
	})
}

func TestAuthorityFlow(t *testing.T) {
	s := newSDK(t)

	pp, err := s.Setup(128, nil, []string{"region"})
	require.NoError(t, err)
	assert.NotEmpty(t, pp.PK)

	nonce, err := puzzle.Solve(context.Background(), "facility_0", round.RegistrationContext, regDifficulty)
	require.NoError(t, err)

	reg, err := s.Register("facility_0", nonce, map[string]string{"region": "eu"})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.SigningKey)
	assert.Equal(t, "facility_0", reg.Key.FacilityID)

	_, err = s.Register("facility_0", nonce, map[string]string{"region": "eu"})
	assert.Error(t, err, "duplicate registration is rejected")

	_, err = s.Register("facility_1", "bogus", map[string]string{"region": "eu"})
	assert.Error(t, err, "an unsolved puzzle is rejected")

	ct, err := s.PublishSeedModel([]float64{1.0, 2.0}, map[string]string{"region": "eu"})
	require.NoError(t, err)
	assert.NotEmpty(t, ct.CT)

	fetched, err := s.SeedModel()
	require.NoError(t, err)
	assert.Equal(t, ct.CT, fetched.CT)

	f, err := s.GetFacility("facility_0")
	require.NoError(t, err)
	assert.Equal(t, "registered", f.Status)

	page, err := s.ListFacilities(0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), page.Total)
}

func TestReportSignatureFailureRevokes(t *testing.T) {
	s := newSDK(t)

	_, err := s.Setup(128, nil, []string{"region"})
	require.NoError(t, err)

	nonce, err := puzzle.Solve(context.Background(), "facility_0", round.RegistrationContext, regDifficulty)
	require.NoError(t, err)
	_, err = s.Register("facility_0", nonce, map[string]string{"region": "eu"})
	require.NoError(t, err)

	var f sdk.Facility
	for range 3 {
		f, err = s.ReportSignatureFailure("facility_0")
		require.NoError(t, err)
	}
	assert.Equal(t, "revoked", f.Status)
	assert.Equal(t, 3, f.SigFailures)
}

func TestLeaderRounds(t *testing.T) {
	s := newSDK(t)

	r, err := s.StartRound(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r)

	st, err := s.LeaderStatus()
	require.NoError(t, err)
	assert.True(t, st.Open)
	assert.Equal(t, uint64(1), st.Round)
	assert.Equal(t, 0, st.Partials)

	_, err = s.GetRound(1)
	assert.Error(t, err, "an undecided round has no log record")

	page, err := s.ListRounds(0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), page.Total)
}
