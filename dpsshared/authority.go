package dpsshared

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/absmach/dpsshare/authority"
	"github.com/absmach/dpsshare/authority/api"
	"github.com/absmach/dpsshare/authority/middleware"
	"github.com/absmach/dpsshare/pkg/storage"
)

const authoritySvcName = "authority"

var (
	logLevel      = "info"
	sessionSecret = ""
	regDifficulty = uint(4)
	authorityPort = "7070"
)

// AuthorityConfig collects what the authority needs to serve
// registrations over HTTP.
type AuthorityConfig struct {
	LogLevel      string
	InstanceID    string
	SessionSecret string
	RegDifficulty uint
	Server        server.Config
}

// StartAuthority assembles the authority service and blocks until the
// server stops or ctx is cancelled.
func StartAuthority(ctx context.Context, cancel context.CancelFunc, cfg AuthorityConfig) error {
	if cfg.SessionSecret == "" {
		return errors.New("session secret must be set")
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	tracer := noop.NewTracerProvider().Tracer(authoritySvcName)

	svc := authority.NewService(
		storage.NewInMemoryStorage(),
		[]byte(cfg.SessionSecret),
		cfg.RegDifficulty,
	)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(authoritySvcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	g, ctx := errgroup.WithContext(ctx)

	hs := httpserver.NewServer(ctx, cancel, authoritySvcName, cfg.Server, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, authoritySvcName, hs)
	})

	return g.Wait()
}

var authorityCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start authority",
		Long:  `Start authority.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := AuthorityConfig{
				LogLevel:      logLevel,
				SessionSecret: sessionSecret,
				RegDifficulty: regDifficulty,
				Server: server.Config{
					Port: authorityPort,
				},
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			if err := StartAuthority(ctx, cancel, cfg); err != nil {
				cmd.PrintErrf("failed to start authority: %s", err.Error())
			}
			cancel()
		},
	},
}

func NewAuthorityCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "authority [start]",
		Short: "Authority management",
		Long:  `Start the registration authority for DPSShare.`,
	}

	for i := range authorityCmd {
		cmd.AddCommand(&authorityCmd[i])
	}

	cmd.PersistentFlags().StringVarP(
		&logLevel,
		"log-level",
		"l",
		logLevel,
		"Log level",
	)

	cmd.PersistentFlags().StringVarP(
		&sessionSecret,
		"session-secret",
		"s",
		sessionSecret,
		"Session secret",
	)

	cmd.PersistentFlags().UintVarP(
		&regDifficulty,
		"reg-difficulty",
		"d",
		regDifficulty,
		"Registration puzzle difficulty",
	)

	cmd.PersistentFlags().StringVarP(
		&authorityPort,
		"port",
		"p",
		authorityPort,
		"HTTP port",
	)

	return &cmd
}
