package authority_test

import (
	"context"
	"testing"

	"github.com/absmach/dpsshare/authority"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/crypto"
	"github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/pkg/puzzle"
	"github.com/absmach/dpsshare/pkg/shares"
	"github.com/absmach/dpsshare/pkg/storage"
	"github.com/absmach/dpsshare/round"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const regDifficulty = 2

var sessionSecret = []byte("test-session-secret")

func newAuthority(t *testing.T) authority.Service {
	t.Helper()
	svc := authority.NewService(storage.NewInMemoryStorage(), sessionSecret, regDifficulty)
	_, err := svc.Setup(context.Background(), 256, []string{"facility_0"}, []string{"role", "region"})
	require.NoError(t, err)

	return svc
}

func solveRegistration(t *testing.T, facilityID string) string {
	t.Helper()
	nonce, err := puzzle.Solve(context.Background(), facilityID, round.RegistrationContext, regDifficulty)
	require.NoError(t, err)

	return nonce
}

func TestSetupOnce(t *testing.T) {
	svc := newAuthority(t)

	_, err := svc.Setup(context.Background(), 256, nil, nil)
	assert.ErrorIs(t, err, errors.ErrEntityExists)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc := newAuthority(t)
	attrs := abe.Attributes{"role": "hospital", "region": "North"}

	nonce := solveRegistration(t, "facility_0")
	reg, err := svc.Register(ctx, "facility_0", nonce, attrs)
	require.NoError(t, err)
	assert.Equal(t, "facility_0", reg.Key.FacilityID)
	assert.Equal(t, crypto.DeriveKey(sessionSecret, "facility_0"), reg.SigningKey)

	f, err := svc.GetFacility(ctx, "facility_0")
	require.NoError(t, err)
	assert.Equal(t, authority.Registered, f.Status)
}

func TestRegisterInvalidPuzzle(t *testing.T) {
	ctx := context.Background()
	svc := newAuthority(t)

	_, err := svc.Register(ctx, "facility_0", "not-a-solution", abe.Attributes{"role": "hospital"})
	assert.ErrorIs(t, err, errors.ErrPuzzleInvalid)

	// A failed registration leaves no facility record behind.
	_, err = svc.GetFacility(ctx, "facility_0")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := newAuthority(t)
	nonce := solveRegistration(t, "facility_0")

	_, err := svc.Register(ctx, "facility_0", nonce, abe.Attributes{"role": "hospital"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, "facility_0", nonce, abe.Attributes{"role": "hospital"})
	assert.ErrorIs(t, err, errors.ErrEntityExists)
}

func TestRegisterAfterClose(t *testing.T) {
	ctx := context.Background()
	svc := newAuthority(t)
	require.NoError(t, svc.Close(ctx))

	_, err := svc.Register(ctx, "facility_0", solveRegistration(t, "facility_0"), nil)
	assert.Error(t, err)
}

func TestPublishSeedModelOnce(t *testing.T) {
	ctx := context.Background()
	svc := newAuthority(t)
	policy := abe.Policy{"role": "hospital"}

	_, err := svc.SeedModel(ctx)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	ct, err := svc.PublishSeedModel(ctx, shares.Update{1.0, 2.0}, policy)
	require.NoError(t, err)
	assert.Equal(t, policy, ct.Policy)

	_, err = svc.PublishSeedModel(ctx, shares.Update{3.0}, policy)
	assert.ErrorIs(t, err, errors.ErrEntityExists)

	got, err := svc.SeedModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, ct, got)
}

func TestReportSignatureFailureRevokes(t *testing.T) {
	ctx := context.Background()
	svc := newAuthority(t)

	_, err := svc.Register(ctx, "facility_0", solveRegistration(t, "facility_0"), abe.Attributes{"role": "hospital"})
	require.NoError(t, err)

	var f authority.Facility
	for range 3 {
		f, err = svc.ReportSignatureFailure(ctx, "facility_0")
		require.NoError(t, err)
	}
	assert.Equal(t, authority.Revoked, f.Status)
	assert.Equal(t, 3, f.SigFailures)
}
