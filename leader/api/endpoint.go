package api

import (
	"context"
	"errors"

	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"

	"github.com/absmach/dpsshare/leader"
	pkgerrors "github.com/absmach/dpsshare/pkg/errors"
)

func startRoundEndpoint(svc leader.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(startRoundReq)
		if !ok {
			return startRoundResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return startRoundResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		r, err := svc.StartRound(ctx, req.ModelLen)
		if err != nil {
			return startRoundResponse{}, err
		}

		return startRoundResponse{Round: r}, nil
	}
}

func submitPartialEndpoint(svc leader.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(partialReq)
		if !ok {
			return partialResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return partialResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.SubmitPartial(ctx, req.PartialAggregate); err != nil {
			return partialResponse{}, err
		}

		return partialResponse{accepted: true}, nil
	}
}

func getRoundEndpoint(svc leader.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(roundReq)
		if !ok {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		rec, err := svc.GetRound(ctx, req.round)
		if err != nil {
			return roundResponse{}, err
		}

		return roundResponse{Record: rec}, nil
	}
}

func listRoundsEndpoint(svc leader.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listRoundsReq)
		if !ok {
			return listRoundsResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listRoundsResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.ListRounds(ctx, req.offset, req.limit)
		if err != nil {
			return listRoundsResponse{}, err
		}

		return listRoundsResponse{Page: page}, nil
	}
}

func statusEndpoint(svc leader.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		st, err := svc.Status(ctx)
		if err != nil {
			return statusResponse{}, err
		}

		return statusResponse{Status: st}, nil
	}
}
