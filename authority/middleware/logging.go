package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/dpsshare/authority"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/shares"
)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    authority.Service
}

func Logging(logger *slog.Logger, svc authority.Service) authority.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Setup(ctx context.Context, securityParam int, facilities, attributes []string) (pp abe.PublicParams, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("security_param", securityParam),
			slog.Int("facilities", len(facilities)),
			slog.Int("attributes", len(attributes)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Setup failed", args...)

			return
		}
		lm.logger.Info("Setup completed successfully", args...)
	}(time.Now())

	return lm.svc.Setup(ctx, securityParam, facilities, attributes)
}

func (lm *loggingMiddleware) Register(ctx context.Context, facilityID, nonce string, attrs abe.Attributes) (reg authority.Registration, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("facility",
				slog.String("id", facilityID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Register facility failed", args...)

			return
		}
		lm.logger.Info("Register facility completed successfully", args...)
	}(time.Now())

	return lm.svc.Register(ctx, facilityID, nonce, attrs)
}

func (lm *loggingMiddleware) PublishSeedModel(ctx context.Context, model shares.Update, policy abe.Policy) (ct abe.Ciphertext, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("model_len", len(model)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Publish seed model failed", args...)

			return
		}
		lm.logger.Info("Publish seed model completed successfully", args...)
	}(time.Now())

	return lm.svc.PublishSeedModel(ctx, model, policy)
}

func (lm *loggingMiddleware) SeedModel(ctx context.Context) (ct abe.Ciphertext, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get seed model failed", args...)

			return
		}
		lm.logger.Info("Get seed model completed successfully", args...)
	}(time.Now())

	return lm.svc.SeedModel(ctx)
}

func (lm *loggingMiddleware) GetFacility(ctx context.Context, facilityID string) (f authority.Facility, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("facility",
				slog.String("id", facilityID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get facility failed", args...)

			return
		}
		lm.logger.Info("Get facility completed successfully", args...)
	}(time.Now())

	return lm.svc.GetFacility(ctx, facilityID)
}

func (lm *loggingMiddleware) ListFacilities(ctx context.Context, offset, limit uint64) (page authority.FacilityPage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List facilities failed", args...)

			return
		}
		lm.logger.Info("List facilities completed successfully", args...)
	}(time.Now())

	return lm.svc.ListFacilities(ctx, offset, limit)
}

func (lm *loggingMiddleware) ReportSignatureFailure(ctx context.Context, facilityID string) (f authority.Facility, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("facility",
				slog.String("id", facilityID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Report signature failure failed", args...)

			return
		}
		args = append(args, slog.String("status", f.Status.String()))
		lm.logger.Info("Report signature failure completed successfully", args...)
	}(time.Now())

	return lm.svc.ReportSignatureFailure(ctx, facilityID)
}

func (lm *loggingMiddleware) Close(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Close authority failed", args...)

			return
		}
		lm.logger.Info("Close authority completed successfully", args...)
	}(time.Now())

	return lm.svc.Close(ctx)
}
