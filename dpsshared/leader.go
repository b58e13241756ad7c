package dpsshared

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/absmach/dpsshare/leader"
	"github.com/absmach/dpsshare/leader/api"
	"github.com/absmach/dpsshare/leader/middleware"
	"github.com/absmach/dpsshare/pkg/crypto"
	"github.com/absmach/dpsshare/pkg/mqtt"
	"github.com/absmach/dpsshare/pkg/roundlog"
	"github.com/absmach/dpsshare/round"
)

const leaderSvcName = "leader"

var (
	mqttAddress   = "tcp://localhost:1883"
	mqttQOS       = 2
	mqttTimeout   = 30 * time.Second
	clientID      = ""
	clientKey     = ""
	channelID     = ""
	fogCount      = 1
	roundDeadline = 5 * time.Minute
	timeoutPolicy = string(round.Abort)
	roundLogPath  = ""
	leaderPort    = "7071"
)

// LeaderConfig collects what the leader needs to drive rounds over
// MQTT and serve round history over HTTP.
type LeaderConfig struct {
	LogLevel      string
	InstanceID    string
	MQTTAddress   string
	MQTTQoS       uint8
	MQTTTimeout   time.Duration
	ClientID      string
	ClientKey     string
	ChannelID     string
	SessionSecret string
	FogCount      int
	RoundDeadline time.Duration
	TimeoutPolicy string
	LogPath       string
	Server        server.Config
}

// StartLeader assembles the leader service and blocks until the server
// stops or ctx is cancelled.
func StartLeader(ctx context.Context, cancel context.CancelFunc, cfg LeaderConfig) error {
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

	tracer := noop.NewTracerProvider().Tracer(leaderSvcName)

	mqttPubSub, err := mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, leaderSvcName, cfg.ClientID, cfg.ClientKey, cfg.ChannelID, cfg.MQTTTimeout, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := mqttPubSub.Disconnect(ctx); err != nil {
			logger.Error("error disconnecting mqtt", slog.Any("error", err))
		}
	}()

	roundLog, err := roundlog.Open(cfg.LogPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := roundLog.Close(); err != nil {
			logger.Error("error closing round log", slog.Any("error", err))
		}
	}()

	policy := round.Abort
	if cfg.TimeoutPolicy == string(round.Proceed) {
		policy = round.Proceed
	}

	svc := leader.NewService(
		crypto.NewDerivingKeyRing([]byte(cfg.SessionSecret)),
		mqttPubSub,
		cfg.ChannelID,
		cfg.FogCount,
		cfg.RoundDeadline,
		policy,
		roundLog,
		logger,
	)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(leaderSvcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	if err := svc.Subscribe(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	hs := httpserver.NewServer(ctx, cancel, leaderSvcName, cfg.Server, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, leaderSvcName, hs)
	})

	return g.Wait()
}

var leaderCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start leader",
		Long:  `Start leader.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := LeaderConfig{
				LogLevel:      logLevel,
				MQTTAddress:   mqttAddress,
				MQTTQoS:       uint8(mqttQOS),
				MQTTTimeout:   mqttTimeout,
				ClientID:      clientID,
				ClientKey:     clientKey,
				ChannelID:     channelID,
				SessionSecret: sessionSecret,
				FogCount:      fogCount,
				RoundDeadline: roundDeadline,
				TimeoutPolicy: timeoutPolicy,
				LogPath:       roundLogPath,
				Server: server.Config{
					Port: leaderPort,
				},
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			if err := StartLeader(ctx, cancel, cfg); err != nil {
				cmd.PrintErrf("failed to start leader: %s", err.Error())
			}
			cancel()
		},
	},
}

func NewLeaderCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "leader [start]",
		Short: "Leader management",
		Long:  `Start the aggregation leader for DPSShare.`,
	}

	for i := range leaderCmd {
		cmd.AddCommand(&leaderCmd[i])
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

	cmd.PersistentFlags().StringVarP(
		&mqttAddress,
		"mqtt-address",
		"m",
		mqttAddress,
		"MQTT Address",
	)

	cmd.PersistentFlags().IntVarP(
		&mqttQOS,
		"mqtt-qos",
		"q",
		mqttQOS,
		"MQTT QOS",
	)

	cmd.PersistentFlags().DurationVarP(
		&mqttTimeout,
		"mqtt-timeout",
		"o",
		mqttTimeout,
		"MQTT Timeout",
	)

	cmd.PersistentFlags().StringVarP(
		&clientID,
		"client-id",
		"t",
		clientID,
		"MQTT Client ID",
	)

	cmd.PersistentFlags().StringVarP(
		&clientKey,
		"client-key",
		"k",
		clientKey,
		"MQTT Client Key",
	)

	cmd.PersistentFlags().StringVarP(
		&channelID,
		"channel-id",
		"c",
		channelID,
		"Channel ID",
	)

	cmd.PersistentFlags().IntVarP(
		&fogCount,
		"fog-count",
		"f",
		fogCount,
		"Number of fog nodes",
	)

	cmd.PersistentFlags().DurationVarP(
		&roundDeadline,
		"round-deadline",
		"D",
		roundDeadline,
		"Round collection deadline",
	)

	cmd.PersistentFlags().StringVarP(
		&timeoutPolicy,
		"timeout-policy",
		"P",
		timeoutPolicy,
		"Deadline policy, abort or proceed",
	)

	cmd.PersistentFlags().StringVarP(
		&roundLogPath,
		"round-log-path",
		"r",
		roundLogPath,
		"Round log directory, empty for in-memory",
	)

	cmd.PersistentFlags().StringVarP(
		&leaderPort,
		"port",
		"p",
		leaderPort,
		"HTTP port",
	)

	return &cmd
}
