package api

import (
	apiutil "github.com/absmach/supermq/api/http/util"

	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/shares"
)

type setupReq struct {
	SecurityParam int      `json:"security_param"`
	Facilities    []string `json:"facilities"`
	Attributes    []string `json:"attributes"`
}

func (r *setupReq) validate() error {
	if r.SecurityParam <= 0 {
		return apiutil.ErrValidation
	}

	return nil
}

type registerReq struct {
	ID         string         `json:"id"`
	Nonce      string         `json:"nonce"`
	Attributes abe.Attributes `json:"attributes"`
}

func (r *registerReq) validate() error {
	if r.ID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type seedModelReq struct {
	Model  shares.Update `json:"model"`
	Policy abe.Policy    `json:"policy"`
}

func (r *seedModelReq) validate() error {
	if len(r.Model) == 0 {
		return apiutil.ErrValidation
	}

	return nil
}

type entityReq struct {
	id string
}

func (r *entityReq) validate() error {
	if r.id == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type listEntityReq struct {
	offset, limit uint64
}

func (r *listEntityReq) validate() error {
	return nil
}
