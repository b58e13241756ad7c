package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
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

const (
	svcName       = "leader"
	defHTTPPort   = "7071"
	envPrefixHTTP = "LEADER_HTTP_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel      string        `env:"LEADER_LOG_LEVEL"      envDefault:"info"`
	InstanceID    string        `env:"LEADER_INSTANCE_ID"`
	MQTTAddress   string        `env:"LEADER_MQTT_ADDRESS"   envDefault:"tcp://localhost:1883"`
	MQTTQoS       uint8         `env:"LEADER_MQTT_QOS"       envDefault:"2"`
	MQTTTimeout   time.Duration `env:"LEADER_MQTT_TIMEOUT"   envDefault:"30s"`
	ClientID      string        `env:"LEADER_CLIENT_ID"`
	ClientKey     string        `env:"LEADER_CLIENT_KEY"`
	ChannelID     string        `env:"LEADER_CHANNEL_ID"`
	SessionSecret string        `env:"LEADER_SESSION_SECRET"`
	FogCount      int           `env:"LEADER_FOG_COUNT"      envDefault:"1"`
	RoundDeadline time.Duration `env:"LEADER_ROUND_DEADLINE" envDefault:"5m"`
	TimeoutPolicy string        `env:"LEADER_TIMEOUT_POLICY" envDefault:"abort"`
	LogPath       string        `env:"LEADER_ROUND_LOG_PATH"`
	RoundCron     string        `env:"LEADER_ROUND_CRON"`
	ModelLen      int           `env:"LEADER_MODEL_LEN"      envDefault:"4"`
	OTELURL       url.URL       `env:"LEADER_OTEL_URL"`
	TraceRatio    float64       `env:"LEADER_TRACE_RATIO"    envDefault:"0"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if cfg.SessionSecret == "" {
		log.Fatal("LEADER_SESSION_SECRET must be set")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, "", cfg.TraceRatio)
		if err != nil {
			logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	mqttPubSub, err := mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, svcName, cfg.ClientID, cfg.ClientKey, cfg.ChannelID, cfg.MQTTTimeout, logger)
	if err != nil {
		logger.Error("failed to initialize mqtt pubsub", slog.String("error", err.Error()))

		return
	}

	roundLog, err := roundlog.Open(cfg.LogPath)
	if err != nil {
		logger.Error("failed to open round log", slog.String("error", err.Error()))

		return
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
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	if err := svc.Subscribe(ctx); err != nil {
		logger.Error("failed to subscribe to partial aggregates", slog.String("error", err.Error()))

		return
	}

	if cfg.RoundCron != "" {
		scheduler, err := leader.NewRoundScheduler(svc, cfg.RoundCron, cfg.ModelLen, logger)
		if err != nil {
			logger.Error("failed to build round scheduler", slog.String("error", err.Error()))

			return
		}
		g.Go(func() error {
			if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			return nil
		})
	}

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err.Error()))

		return
	}

	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}
}
