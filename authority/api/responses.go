package api

import (
	"net/http"

	"github.com/absmach/supermq"

	"github.com/absmach/dpsshare/authority"
	"github.com/absmach/dpsshare/pkg/abe"
)

var (
	_ supermq.Response = (*setupResponse)(nil)
	_ supermq.Response = (*registrationResponse)(nil)
	_ supermq.Response = (*ciphertextResponse)(nil)
	_ supermq.Response = (*facilityResponse)(nil)
	_ supermq.Response = (*listFacilitiesResponse)(nil)
)

type setupResponse struct {
	abe.PublicParams
}

func (r setupResponse) Code() int {
	return http.StatusCreated
}

func (r setupResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r setupResponse) Empty() bool {
	return false
}

type registrationResponse struct {
	authority.Registration
	created bool
}

func (r registrationResponse) Code() int {
	if r.created {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (r registrationResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r registrationResponse) Empty() bool {
	return false
}

type ciphertextResponse struct {
	abe.Ciphertext
	created bool
}

func (r ciphertextResponse) Code() int {
	if r.created {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (r ciphertextResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r ciphertextResponse) Empty() bool {
	return false
}

type facilityResponse struct {
	authority.Facility
}

func (r facilityResponse) Code() int {
	return http.StatusOK
}

func (r facilityResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r facilityResponse) Empty() bool {
	return false
}

type listFacilitiesResponse struct {
	authority.FacilityPage
}

func (r listFacilitiesResponse) Code() int {
	return http.StatusOK
}

func (r listFacilitiesResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r listFacilitiesResponse) Empty() bool {
	return false
}
