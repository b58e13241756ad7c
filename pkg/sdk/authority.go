package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	setupEndpoint      = "/setup"
	facilitiesEndpoint = "/facilities"
	modelsEndpoint     = "/models"
)

type PublicParams struct {
	PK string `json:"pk"`
}

type Key struct {
	Secret     string            `json:"secret"`
	FacilityID string            `json:"facility_id"`
	Attributes map[string]string `json:"attributes"`
}

type Ciphertext struct {
	CT     []byte            `json:"ct"`
	Policy map[string]string `json:"policy"`
	PK     string            `json:"pk"`
}

type Registration struct {
	Key        Key          `json:"key"`
	SigningKey []byte       `json:"signing_key"`
	Params     PublicParams `json:"params"`
}

type Facility struct {
	ID           string            `json:"id"`
	Attributes   map[string]string `json:"attributes"`
	Status       string            `json:"status"`
	SigFailures  int               `json:"sig_failures"`
	RegisteredAt time.Time         `json:"registered_at"`
}

type FacilityPage struct {
	Offset     uint64     `json:"offset"`
	Limit      uint64     `json:"limit"`
	Total      uint64     `json:"total"`
	Facilities []Facility `json:"facilities"`
}

func (sdk *dpsSDK) Setup(securityParam int, facilities, attributes []string) (PublicParams, error) {
	data, err := json.Marshal(map[string]any{
		"security_param": securityParam,
		"facilities":     facilities,
		"attributes":     attributes,
	})
	if err != nil {
		return PublicParams{}, err
	}

	url := sdk.authorityURL + setupEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, data, http.StatusCreated)
	if err != nil {
		return PublicParams{}, err
	}

	var pp PublicParams
	if err := json.Unmarshal(body, &pp); err != nil {
		return PublicParams{}, err
	}

	return pp, nil
}

func (sdk *dpsSDK) Register(facilityID, nonce string, attributes map[string]string) (Registration, error) {
	data, err := json.Marshal(map[string]any{
		"id":         facilityID,
		"nonce":      nonce,
		"attributes": attributes,
	})
	if err != nil {
		return Registration{}, err
	}

	url := sdk.authorityURL + facilitiesEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, data, http.StatusCreated)
	if err != nil {
		return Registration{}, err
	}

	var reg Registration
	if err := json.Unmarshal(body, &reg); err != nil {
		return Registration{}, err
	}

	return reg, nil
}

func (sdk *dpsSDK) PublishSeedModel(model []float64, policy map[string]string) (Ciphertext, error) {
	data, err := json.Marshal(map[string]any{
		"model":  model,
		"policy": policy,
	})
	if err != nil {
		return Ciphertext{}, err
	}

	url := sdk.authorityURL + modelsEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, data, http.StatusCreated)
	if err != nil {
		return Ciphertext{}, err
	}

	var ct Ciphertext
	if err := json.Unmarshal(body, &ct); err != nil {
		return Ciphertext{}, err
	}

	return ct, nil
}

func (sdk *dpsSDK) SeedModel() (Ciphertext, error) {
	url := sdk.authorityURL + modelsEndpoint + "/seed"

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Ciphertext{}, err
	}

	var ct Ciphertext
	if err := json.Unmarshal(body, &ct); err != nil {
		return Ciphertext{}, err
	}

	return ct, nil
}

func (sdk *dpsSDK) GetFacility(facilityID string) (Facility, error) {
	url := sdk.authorityURL + facilitiesEndpoint + "/" + facilityID

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Facility{}, err
	}

	var f Facility
	if err := json.Unmarshal(body, &f); err != nil {
		return Facility{}, err
	}

	return f, nil
}

func (sdk *dpsSDK) ListFacilities(offset, limit uint64) (FacilityPage, error) {
	queries := make([]string, 0)
	if offset > 0 {
		queries = append(queries, fmt.Sprintf("offset=%d", offset))
	}
	if limit > 0 {
		queries = append(queries, fmt.Sprintf("limit=%d", limit))
	}
	query := ""
	if len(queries) > 0 {
		query = "?" + strings.Join(queries, "&")
	}
	url := sdk.authorityURL + facilitiesEndpoint + query

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return FacilityPage{}, err
	}

	var page FacilityPage
	if err := json.Unmarshal(body, &page); err != nil {
		return FacilityPage{}, err
	}

	return page, nil
}

func (sdk *dpsSDK) ReportSignatureFailure(facilityID string) (Facility, error) {
	url := fmt.Sprintf("%s%s/%s/failures", sdk.authorityURL, facilitiesEndpoint, facilityID)

	body, err := sdk.processRequest(http.MethodPost, url, nil, http.StatusOK)
	if err != nil {
		return Facility{}, err
	}

	var f Facility
	if err := json.Unmarshal(body, &f); err != nil {
		return Facility{}, err
	}

	return f, nil
}
