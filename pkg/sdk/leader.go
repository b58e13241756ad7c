package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const roundsEndpoint = "/rounds"

type RoundRecord struct {
	Round     uint64    `json:"round"`
	Decision  string    `json:"decision"`
	Digest    string    `json:"digest,omitempty"`
	Partials  int       `json:"partials"`
	DecidedAt time.Time `json:"decided_at"`
}

type RoundPage struct {
	Offset  uint64        `json:"offset"`
	Limit   uint64        `json:"limit"`
	Total   uint64        `json:"total"`
	Records []RoundRecord `json:"records"`
}

type LeaderStatus struct {
	Round    uint64 `json:"round"`
	Open     bool   `json:"open"`
	Partials int    `json:"partials"`
	FogCount int    `json:"fog_count"`
}

func (sdk *dpsSDK) StartRound(modelLen int) (uint64, error) {
	data, err := json.Marshal(map[string]any{"model_len": modelLen})
	if err != nil {
		return 0, err
	}

	url := sdk.leaderURL + roundsEndpoint + "/start"

	body, err := sdk.processRequest(http.MethodPost, url, data, http.StatusCreated)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Round uint64 `json:"round"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, err
	}

	return resp.Round, nil
}

func (sdk *dpsSDK) GetRound(round uint64) (RoundRecord, error) {
	url := fmt.Sprintf("%s%s/%d", sdk.leaderURL, roundsEndpoint, round)

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return RoundRecord{}, err
	}

	var rec RoundRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return RoundRecord{}, err
	}

	return rec, nil
}

func (sdk *dpsSDK) ListRounds(offset, limit uint64) (RoundPage, error) {
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
	url := sdk.leaderURL + roundsEndpoint + query

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return RoundPage{}, err
	}

	var page RoundPage
	if err := json.Unmarshal(body, &page); err != nil {
		return RoundPage{}, err
	}

	return page, nil
}

func (sdk *dpsSDK) LeaderStatus() (LeaderStatus, error) {
	url := sdk.leaderURL + "/status"

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return LeaderStatus{}, err
	}

	var st LeaderStatus
	if err := json.Unmarshal(body, &st); err != nil {
		return LeaderStatus{}, err
	}

	return st, nil
}
