package leader

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/dpsshare/pkg/cron"
)

// RoundScheduler opens aggregation rounds on a cron schedule and
// collects each one before arming the next activation.
type RoundScheduler interface {
	Start(ctx context.Context) error
	Stop()
}

type roundScheduler struct {
	service  Service
	schedule *cron.Schedule
	modelLen int
	logger   *slog.Logger
	stopChan chan struct{}
}

func NewRoundScheduler(svc Service, expr string, modelLen int, logger *slog.Logger) (RoundScheduler, error) {
	schedule, err := cron.Parse(expr)
	if err != nil {
		return nil, err
	}

	return &roundScheduler{
		service:  svc,
		schedule: schedule,
		modelLen: modelLen,
		logger:   logger,
		stopChan: make(chan struct{}),
	}, nil
}

func (rs *roundScheduler) Start(ctx context.Context) error {
	next := rs.schedule.Next(time.Now())
	rs.logger.Info("round scheduler started", slog.Time("next_round", next))

	for {
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-rs.stopChan:
			timer.Stop()
			rs.logger.Info("round scheduler stopped")

			return nil
		case <-timer.C:
			rs.runRound(ctx)
			next = rs.schedule.Next(time.Now())
		}
	}
}

func (rs *roundScheduler) Stop() {
	close(rs.stopChan)
}

func (rs *roundScheduler) runRound(ctx context.Context) {
	r, err := rs.service.StartRound(ctx, rs.modelLen)
	if err != nil {
		rs.logger.Error("failed to start scheduled round", slog.String("error", err.Error()))

		return
	}

	rec, err := rs.service.Collect(ctx)
	if err != nil {
		rs.logger.Warn("scheduled round did not complete",
			slog.Uint64("round", r),
			slog.String("error", err.Error()),
		)

		return
	}

	rs.logger.Info("scheduled round completed",
		slog.Uint64("round", rec.Round),
		slog.Int("partials", rec.Partials),
	)
}
