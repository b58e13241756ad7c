package api

import (
	"context"
	"errors"

	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"

	"github.com/absmach/dpsshare/authority"
	pkgerrors "github.com/absmach/dpsshare/pkg/errors"
)

func setupEndpoint(svc authority.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(setupReq)
		if !ok {
			return setupResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return setupResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		pp, err := svc.Setup(ctx, req.SecurityParam, req.Facilities, req.Attributes)
		if err != nil {
			return setupResponse{}, err
		}

		return setupResponse{PublicParams: pp}, nil
	}
}

func registerEndpoint(svc authority.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(registerReq)
		if !ok {
			return registrationResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return registrationResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		reg, err := svc.Register(ctx, req.ID, req.Nonce, req.Attributes)
		if err != nil {
			return registrationResponse{}, err
		}

		return registrationResponse{
			Registration: reg,
			created:      true,
		}, nil
	}
}

func publishSeedModelEndpoint(svc authority.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(seedModelReq)
		if !ok {
			return ciphertextResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return ciphertextResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		ct, err := svc.PublishSeedModel(ctx, req.Model, req.Policy)
		if err != nil {
			return ciphertextResponse{}, err
		}

		return ciphertextResponse{
			Ciphertext: ct,
			created:    true,
		}, nil
	}
}

func seedModelEndpoint(svc authority.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		ct, err := svc.SeedModel(ctx)
		if err != nil {
			return ciphertextResponse{}, err
		}

		return ciphertextResponse{Ciphertext: ct}, nil
	}
}

func getFacilityEndpoint(svc authority.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return facilityResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return facilityResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		f, err := svc.GetFacility(ctx, req.id)
		if err != nil {
			return facilityResponse{}, err
		}

		return facilityResponse{Facility: f}, nil
	}
}

func listFacilitiesEndpoint(svc authority.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listFacilitiesResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listFacilitiesResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.ListFacilities(ctx, req.offset, req.limit)
		if err != nil {
			return listFacilitiesResponse{}, err
		}

		return listFacilitiesResponse{FacilityPage: page}, nil
	}
}

func reportSignatureFailureEndpoint(svc authority.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return facilityResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return facilityResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		f, err := svc.ReportSignatureFailure(ctx, req.id)
		if err != nil {
			return facilityResponse{}, err
		}

		return facilityResponse{Facility: f}, nil
	}
}
