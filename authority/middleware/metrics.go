package middleware

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"

	"github.com/absmach/dpsshare/authority"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/shares"
)

var _ authority.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     authority.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc authority.Service) authority.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Setup(ctx context.Context, securityParam int, facilities, attributes []string) (abe.PublicParams, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "setup").Add(1)
		mm.latency.With("method", "setup").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Setup(ctx, securityParam, facilities, attributes)
}

func (mm *metricsMiddleware) Register(ctx context.Context, facilityID, nonce string, attrs abe.Attributes) (authority.Registration, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "register").Add(1)
		mm.latency.With("method", "register").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Register(ctx, facilityID, nonce, attrs)
}

func (mm *metricsMiddleware) PublishSeedModel(ctx context.Context, model shares.Update, policy abe.Policy) (abe.Ciphertext, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "publish-seed-model").Add(1)
		mm.latency.With("method", "publish-seed-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.PublishSeedModel(ctx, model, policy)
}

func (mm *metricsMiddleware) SeedModel(ctx context.Context) (abe.Ciphertext, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "seed-model").Add(1)
		mm.latency.With("method", "seed-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SeedModel(ctx)
}

func (mm *metricsMiddleware) GetFacility(ctx context.Context, facilityID string) (authority.Facility, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-facility").Add(1)
		mm.latency.With("method", "get-facility").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetFacility(ctx, facilityID)
}

func (mm *metricsMiddleware) ListFacilities(ctx context.Context, offset, limit uint64) (authority.FacilityPage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-facilities").Add(1)
		mm.latency.With("method", "list-facilities").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListFacilities(ctx, offset, limit)
}

func (mm *metricsMiddleware) ReportSignatureFailure(ctx context.Context, facilityID string) (authority.Facility, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "report-signature-failure").Add(1)
		mm.latency.With("method", "report-signature-failure").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ReportSignatureFailure(ctx, facilityID)
}

func (mm *metricsMiddleware) Close(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "close").Add(1)
		mm.latency.With("method", "close").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Close(ctx)
}
