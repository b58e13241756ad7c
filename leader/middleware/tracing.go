package middleware

import (
	"context"

	"github.com/absmach/dpsshare/leader"
	"github.com/absmach/dpsshare/round"
	"github.com/absmach/dpsshare/share"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ leader.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    leader.Service
}

func Tracing(tracer trace.Tracer, svc leader.Service) leader.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) StartRound(ctx context.Context, modelLen int) (uint64, error) {
	ctx, span := tm.tracer.Start(ctx, "start-round", trace.WithAttributes(
		attribute.Int("model_len", modelLen),
	))
	defer span.End()

	return tm.svc.StartRound(ctx, modelLen)
}

func (tm *tracing) SubmitPartial(ctx context.Context, pa share.PartialAggregate) error {
	ctx, span := tm.tracer.Start(ctx, "submit-partial", trace.WithAttributes(
		attribute.Int64("round", int64(pa.Round)),
		attribute.String("fog_id", pa.FogID),
		attribute.Int("index", pa.Index),
	))
	defer span.End()

	return tm.svc.SubmitPartial(ctx, pa)
}

func (tm *tracing) Collect(ctx context.Context) (round.Record, error) {
	ctx, span := tm.tracer.Start(ctx, "collect")
	defer span.End()

	return tm.svc.Collect(ctx)
}

func (tm *tracing) Status(ctx context.Context) (leader.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "status")
	defer span.End()

	return tm.svc.Status(ctx)
}

func (tm *tracing) GetRound(ctx context.Context, r uint64) (round.Record, error) {
	ctx, span := tm.tracer.Start(ctx, "get-round", trace.WithAttributes(
		attribute.Int64("round", int64(r)),
	))
	defer span.End()

	return tm.svc.GetRound(ctx, r)
}

func (tm *tracing) ListRounds(ctx context.Context, offset, limit uint64) (round.Page, error) {
	ctx, span := tm.tracer.Start(ctx, "list-rounds", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListRounds(ctx, offset, limit)
}

func (tm *tracing) Subscribe(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "subscribe")
	defer span.End()

	return tm.svc.Subscribe(ctx)
}
