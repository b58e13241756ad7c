package api

import (
	"net/http"

	"github.com/absmach/supermq"

	"github.com/absmach/dpsshare/leader"
	"github.com/absmach/dpsshare/round"
)

var (
	_ supermq.Response = (*startRoundResponse)(nil)
	_ supermq.Response = (*partialResponse)(nil)
	_ supermq.Response = (*roundResponse)(nil)
	_ supermq.Response = (*listRoundsResponse)(nil)
	_ supermq.Response = (*statusResponse)(nil)
)

type startRoundResponse struct {
	Round uint64 `json:"round"`
}

func (r startRoundResponse) Code() int {
	return http.StatusCreated
}

func (r startRoundResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r startRoundResponse) Empty() bool {
	return false
}

type partialResponse struct {
	accepted bool
}

func (r partialResponse) Code() int {
	if r.accepted {
		return http.StatusAccepted
	}

	return http.StatusOK
}

func (r partialResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r partialResponse) Empty() bool {
	return true
}

type roundResponse struct {
	round.Record
}

func (r roundResponse) Code() int {
	return http.StatusOK
}

func (r roundResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r roundResponse) Empty() bool {
	return false
}

type listRoundsResponse struct {
	round.Page
}

func (r listRoundsResponse) Code() int {
	return http.StatusOK
}

func (r listRoundsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r listRoundsResponse) Empty() bool {
	return false
}

type statusResponse struct {
	leader.Status
}

func (r statusResponse) Code() int {
	return http.StatusOK
}

func (r statusResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r statusResponse) Empty() bool {
	return false
}
