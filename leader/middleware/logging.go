package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/dpsshare/leader"
	"github.com/absmach/dpsshare/round"
	"github.com/absmach/dpsshare/share"
)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    leader.Service
}

func Logging(logger *slog.Logger, svc leader.Service) leader.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) StartRound(ctx context.Context, modelLen int) (r uint64, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("model_len", modelLen),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Start round failed", args...)

			return
		}
		args = append(args, slog.Uint64("round", r))
		lm.logger.Info("Start round completed successfully", args...)
	}(time.Now())

	return lm.svc.StartRound(ctx, modelLen)
}

func (lm *loggingMiddleware) SubmitPartial(ctx context.Context, pa share.PartialAggregate) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("partial",
				slog.Uint64("round", pa.Round),
				slog.String("fog_id", pa.FogID),
				slog.Int("index", pa.Index),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Submit partial failed", args...)

			return
		}
		lm.logger.Info("Submit partial completed successfully", args...)
	}(time.Now())

	return lm.svc.SubmitPartial(ctx, pa)
}

func (lm *loggingMiddleware) Collect(ctx context.Context) (rec round.Record, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("round",
				slog.Uint64("number", rec.Round),
				slog.String("decision", string(rec.Decision)),
				slog.Int("partials", rec.Partials),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Collect round failed", args...)

			return
		}
		lm.logger.Info("Collect round completed successfully", args...)
	}(time.Now())

	return lm.svc.Collect(ctx)
}

func (lm *loggingMiddleware) Status(ctx context.Context) (resp leader.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get status failed", args...)

			return
		}
		lm.logger.Info("Get status completed successfully", args...)
	}(time.Now())

	return lm.svc.Status(ctx)
}

func (lm *loggingMiddleware) GetRound(ctx context.Context, r uint64) (rec round.Record, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("round", r),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get round failed", args...)

			return
		}
		lm.logger.Info("Get round completed successfully", args...)
	}(time.Now())

	return lm.svc.GetRound(ctx, r)
}

func (lm *loggingMiddleware) ListRounds(ctx context.Context, offset, limit uint64) (resp round.Page, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List rounds failed", args...)

			return
		}
		lm.logger.Info("List rounds completed successfully", args...)
	}(time.Now())

	return lm.svc.ListRounds(ctx, offset, limit)
}

func (lm *loggingMiddleware) Subscribe(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Subscribe to MQTT topic failed", args...)

			return
		}
		lm.logger.Info("Subscribe to MQTT topic completed successfully", args...)
	}(time.Now())

	return lm.svc.Subscribe(ctx)
}
