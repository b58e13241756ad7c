package authority

import (
	"context"
	"sync"
	"time"

	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/crypto"
	"github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/pkg/puzzle"
	"github.com/absmach/dpsshare/pkg/shares"
	"github.com/absmach/dpsshare/pkg/storage"
	"github.com/absmach/dpsshare/round"
	"github.com/fxamacker/cbor/v2"
)

// maxSigFailures is how many committee-reported signature failures a
// facility survives before revocation.
const maxSigFailures = 3

// State is the authority's lifecycle.
type State uint8

const (
	Uninitialized State = iota
	SettingUp
	Accepting
	Closed
)

type Service interface {
	// Setup runs the one-time system initialization over the facility and
	// attribute universes. The master secret never leaves the service.
	Setup(ctx context.Context, securityParam int, facilities, attributes []string) (abe.PublicParams, error)

	// Register admits a facility: it verifies the admission puzzle at
	// registration difficulty and issues keys bound to the claimed
	// attributes. Invalid puzzles and duplicates are reported without
	// mutating authority state.
	Register(ctx context.Context, facilityID, nonce string, attrs abe.Attributes) (Registration, error)

	// PublishSeedModel encrypts the round-0 seed model under the access
	// policy. Later rounds' seeds come from the leader's redistribution,
	// never from the authority again.
	PublishSeedModel(ctx context.Context, model shares.Update, policy abe.Policy) (abe.Ciphertext, error)

	// SeedModel returns the published round-0 ciphertext.
	SeedModel(ctx context.Context) (abe.Ciphertext, error)

	GetFacility(ctx context.Context, facilityID string) (Facility, error)
	ListFacilities(ctx context.Context, offset, limit uint64) (FacilityPage, error)

	// ReportSignatureFailure records a committee-observed signature
	// failure; crossing the threshold revokes the facility.
	ReportSignatureFailure(ctx context.Context, facilityID string) (Facility, error)

	// Close stops admissions.
	Close(ctx context.Context) error
}

type service struct {
	mu sync.Mutex

	state         State
	params        abe.PublicParams
	master        abe.MasterSecret
	seed          *abe.Ciphertext
	facilitiesDB  storage.Storage
	sessionSecret []byte
	regDifficulty uint
}

func NewService(facilitiesDB storage.Storage, sessionSecret []byte, regDifficulty uint) Service {
	return &service{
		state:         Uninitialized,
		facilitiesDB:  facilitiesDB,
		sessionSecret: sessionSecret,
		regDifficulty: regDifficulty,
	}
}

func (svc *service) Setup(ctx context.Context, securityParam int, facilities, attributes []string) (abe.PublicParams, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.state != Uninitialized {
		return abe.PublicParams{}, errors.ErrEntityExists
	}
	svc.state = SettingUp

	pp, msk, err := abe.Setup(securityParam, facilities, attributes)
	if err != nil {
		svc.state = Uninitialized

		return abe.PublicParams{}, err
	}

	svc.params = pp
	svc.master = msk
	svc.state = Accepting

	return pp, nil
}

func (svc *service) Register(ctx context.Context, facilityID, nonce string, attrs abe.Attributes) (Registration, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.state != Accepting {
		return Registration{}, errors.ErrNotFound
	}

	if _, err := svc.facilitiesDB.Get(ctx, facilityID); err == nil {
		return Registration{}, errors.ErrEntityExists
	}

	if !puzzle.Verify(facilityID, round.RegistrationContext, nonce, svc.regDifficulty) {
		return Registration{}, errors.ErrPuzzleInvalid
	}

	f := Facility{
		ID:           facilityID,
		Attributes:   attrs,
		Status:       Registered,
		Nonce:        nonce,
		RegisteredAt: time.Now().UTC(),
	}
	if err := svc.facilitiesDB.Create(ctx, facilityID, f); err != nil {
		return Registration{}, err
	}

	return Registration{
		Key:        abe.KeyGen(svc.master, facilityID, attrs),
		SigningKey: crypto.DeriveKey(svc.sessionSecret, facilityID),
		Params:     svc.params,
	}, nil
}

func (svc *service) PublishSeedModel(ctx context.Context, model shares.Update, policy abe.Policy) (abe.Ciphertext, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.state != Accepting {
		return abe.Ciphertext{}, errors.ErrNotFound
	}
	if svc.seed != nil {
		return abe.Ciphertext{}, errors.ErrEntityExists
	}

	payload, err := cbor.Marshal(model)
	if err != nil {
		return abe.Ciphertext{}, err
	}

	ct := abe.Encrypt(payload, svc.params, policy)
	svc.seed = &ct

	return ct, nil
}

func (svc *service) SeedModel(ctx context.Context) (abe.Ciphertext, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.seed == nil {
		return abe.Ciphertext{}, errors.ErrNotFound
	}

	return *svc.seed, nil
}

func (svc *service) GetFacility(ctx context.Context, facilityID string) (Facility, error) {
	data, err := svc.facilitiesDB.Get(ctx, facilityID)
	if err != nil {
		return Facility{}, err
	}
	f, ok := data.(Facility)
	if !ok {
		return Facility{}, errors.ErrInvalidData
	}

	return f, nil
}

func (svc *service) ListFacilities(ctx context.Context, offset, limit uint64) (FacilityPage, error) {
	data, total, err := svc.facilitiesDB.List(ctx, offset, limit)
	if err != nil {
		return FacilityPage{}, err
	}

	facilities := make([]Facility, len(data))
	for i := range data {
		f, ok := data[i].(Facility)
		if !ok {
			return FacilityPage{}, errors.ErrInvalidData
		}
		facilities[i] = f
	}

	return FacilityPage{
		Offset:     offset,
		Limit:      limit,
		Total:      total,
		Facilities: facilities,
	}, nil
}

func (svc *service) ReportSignatureFailure(ctx context.Context, facilityID string) (Facility, error) {
	f, err := svc.GetFacility(ctx, facilityID)
	if err != nil {
		return Facility{}, err
	}

	f.SigFailures++
	if f.SigFailures >= maxSigFailures {
		f.Status = Revoked
	}
	if err := svc.facilitiesDB.Update(ctx, facilityID, f); err != nil {
		return Facility{}, err
	}

	return f, nil
}

func (svc *service) Close(ctx context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.state = Closed

	return nil
}
