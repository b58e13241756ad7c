package api

import (
	apiutil "github.com/absmach/supermq/api/http/util"

	"github.com/absmach/dpsshare/share"
)

type startRoundReq struct {
	ModelLen int `json:"model_len"`
}

func (r *startRoundReq) validate() error {
	if r.ModelLen <= 0 {
		return apiutil.ErrValidation
	}

	return nil
}

type partialReq struct {
	share.PartialAggregate `json:",inline"`
}

func (r *partialReq) validate() error {
	if r.FogID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type roundReq struct {
	round uint64
}

func (r *roundReq) validate() error {
	return nil
}

type listRoundsReq struct {
	offset, limit uint64
}

func (r *listRoundsReq) validate() error {
	return nil
}
