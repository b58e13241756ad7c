package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/absmach/dpsshare/authority"
	"github.com/absmach/dpsshare/pkg/api"
)

func MakeHandler(svc authority.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Post("/setup", otelhttp.NewHandler(kithttp.NewServer(
		setupEndpoint(svc),
		decodeSetupReq,
		api.EncodeResponse,
		opts...,
	), "setup").ServeHTTP)

	mux.Route("/facilities", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			registerEndpoint(svc),
			decodeRegisterReq,
			api.EncodeResponse,
			opts...,
		), "register-facility").ServeHTTP)
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listFacilitiesEndpoint(svc),
			decodeListEntityReq,
			api.EncodeResponse,
			opts...,
		), "list-facilities").ServeHTTP)
		r.Route("/{facilityID}", func(r chi.Router) {
			r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
				getFacilityEndpoint(svc),
				decodeEntityReq("facilityID"),
				api.EncodeResponse,
				opts...,
			), "get-facility").ServeHTTP)
			r.Post("/failures", otelhttp.NewHandler(kithttp.NewServer(
				reportSignatureFailureEndpoint(svc),
				decodeEntityReq("facilityID"),
				api.EncodeResponse,
				opts...,
			), "report-signature-failure").ServeHTTP)
		})
	})

	mux.Route("/models", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			publishSeedModelEndpoint(svc),
			decodeSeedModelReq,
			api.EncodeResponse,
			opts...,
		), "publish-seed-model").ServeHTTP)
		r.Get("/seed", otelhttp.NewHandler(kithttp.NewServer(
			seedModelEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "get-seed-model").ServeHTTP)
	})

	mux.Get("/health", supermq.Health("authority", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeSetupReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req setupReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeRegisterReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeSeedModelReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req seedModelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		return entityReq{
			id: chi.URLParam(r, key),
		}, nil
	}
}

func decodeListEntityReq(_ context.Context, r *http.Request) (any, error) {
	o, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return listEntityReq{
		offset: o,
		limit:  l,
	}, nil
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return nil, nil
}
