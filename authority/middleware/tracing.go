package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/absmach/dpsshare/authority"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/shares"
)

var _ authority.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    authority.Service
}

func Tracing(tracer trace.Tracer, svc authority.Service) authority.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Setup(ctx context.Context, securityParam int, facilities, attributes []string) (abe.PublicParams, error) {
	ctx, span := tm.tracer.Start(ctx, "setup", trace.WithAttributes(
		attribute.Int("security_param", securityParam),
	))
	defer span.End()

	return tm.svc.Setup(ctx, securityParam, facilities, attributes)
}

func (tm *tracing) Register(ctx context.Context, facilityID, nonce string, attrs abe.Attributes) (authority.Registration, error) {
	ctx, span := tm.tracer.Start(ctx, "register", trace.WithAttributes(
		attribute.String("facility_id", facilityID),
	))
	defer span.End()

	return tm.svc.Register(ctx, facilityID, nonce, attrs)
}

func (tm *tracing) PublishSeedModel(ctx context.Context, model shares.Update, policy abe.Policy) (abe.Ciphertext, error) {
	ctx, span := tm.tracer.Start(ctx, "publish-seed-model", trace.WithAttributes(
		attribute.Int("model_len", len(model)),
	))
	defer span.End()

	return tm.svc.PublishSeedModel(ctx, model, policy)
}

func (tm *tracing) SeedModel(ctx context.Context) (abe.Ciphertext, error) {
	ctx, span := tm.tracer.Start(ctx, "seed-model")
	defer span.End()

	return tm.svc.SeedModel(ctx)
}

func (tm *tracing) GetFacility(ctx context.Context, facilityID string) (authority.Facility, error) {
	ctx, span := tm.tracer.Start(ctx, "get-facility", trace.WithAttributes(
		attribute.String("facility_id", facilityID),
	))
	defer span.End()

	return tm.svc.GetFacility(ctx, facilityID)
}

func (tm *tracing) ListFacilities(ctx context.Context, offset, limit uint64) (authority.FacilityPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-facilities", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListFacilities(ctx, offset, limit)
}

func (tm *tracing) ReportSignatureFailure(ctx context.Context, facilityID string) (authority.Facility, error) {
	ctx, span := tm.tracer.Start(ctx, "report-signature-failure", trace.WithAttributes(
		attribute.String("facility_id", facilityID),
	))
	defer span.End()

	return tm.svc.ReportSignatureFailure(ctx, facilityID)
}

func (tm *tracing) Close(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "close")
	defer span.End()

	return tm.svc.Close(ctx)
}
