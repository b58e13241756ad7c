package sdk

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
)

const CTJSON string = "application/json"

// SDK is the HTTP client for the authority's control plane and the
// leader's round API. The data plane (shares, partials, models) stays on
// MQTT and is not exposed here.
type SDK interface {
	// Setup runs the authority's one-time initialization.
	//
	// example:
	//  pp, _ := sdk.Setup(128, nil, []string{"region"})
	//  fmt.Println(pp)
	Setup(securityParam int, facilities, attributes []string) (PublicParams, error)

	// Register admits a facility with a solved admission puzzle.
	//
	// example:
	//  reg, _ := sdk.Register("facility_0", nonce, map[string]string{"region": "eu"})
	//  fmt.Println(reg)
	Register(facilityID, nonce string, attributes map[string]string) (Registration, error)

	// PublishSeedModel publishes the policy-encrypted round-0 model.
	PublishSeedModel(model []float64, policy map[string]string) (Ciphertext, error)

	// SeedModel fetches the published round-0 ciphertext.
	SeedModel() (Ciphertext, error)

	// GetFacility gets a facility's admission record.
	GetFacility(facilityID string) (Facility, error)

	// ListFacilities lists admission records.
	//
	// example:
	//  page, _ := sdk.ListFacilities(0, 10)
	//  fmt.Println(page)
	ListFacilities(offset, limit uint64) (FacilityPage, error)

	// ReportSignatureFailure reports a committee-observed signature
	// failure for revocation accounting.
	ReportSignatureFailure(facilityID string) (Facility, error)

	// StartRound asks the leader to open a new round.
	StartRound(modelLen int) (uint64, error)

	// GetRound fetches the decided record for one round.
	GetRound(round uint64) (RoundRecord, error)

	// ListRounds pages through decided rounds.
	ListRounds(offset, limit uint64) (RoundPage, error)

	// LeaderStatus reports the leader's open round and partial count.
	LeaderStatus() (LeaderStatus, error)
}

type dpsSDK struct {
	authorityURL string
	leaderURL    string
	client       *http.Client
}

type Config struct {
	AuthorityURL    string
	LeaderURL       string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &dpsSDK{
		authorityURL: cfg.AuthorityURL,
		leaderURL:    cfg.LeaderURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *dpsSDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		return []byte{}, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, nil
}
