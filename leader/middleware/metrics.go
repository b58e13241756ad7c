package middleware

import (
	"context"
	"time"

	"github.com/absmach/dpsshare/leader"
	"github.com/absmach/dpsshare/round"
	"github.com/absmach/dpsshare/share"
	"github.com/go-kit/kit/metrics"
)

var _ leader.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     leader.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc leader.Service) leader.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) StartRound(ctx context.Context, modelLen int) (uint64, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "start-round").Add(1)
		mm.latency.With("method", "start-round").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.StartRound(ctx, modelLen)
}

func (mm *metricsMiddleware) SubmitPartial(ctx context.Context, pa share.PartialAggregate) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "submit-partial").Add(1)
		mm.latency.With("method", "submit-partial").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SubmitPartial(ctx, pa)
}

func (mm *metricsMiddleware) Collect(ctx context.Context) (round.Record, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "collect").Add(1)
		mm.latency.With("method", "collect").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Collect(ctx)
}

func (mm *metricsMiddleware) Status(ctx context.Context) (leader.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "status").Add(1)
		mm.latency.With("method", "status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Status(ctx)
}

func (mm *metricsMiddleware) GetRound(ctx context.Context, r uint64) (round.Record, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-round").Add(1)
		mm.latency.With("method", "get-round").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetRound(ctx, r)
}

func (mm *metricsMiddleware) ListRounds(ctx context.Context, offset, limit uint64) (round.Page, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-rounds").Add(1)
		mm.latency.With("method", "list-rounds").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListRounds(ctx, offset, limit)
}

func (mm *metricsMiddleware) Subscribe(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "subscribe").Add(1)
		mm.latency.With("method", "subscribe").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Subscribe(ctx)
}
