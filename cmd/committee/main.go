package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fxamacker/cbor/v2"
	"github.com/joho/godotenv"

	"github.com/absmach/dpsshare/committee"
	"github.com/absmach/dpsshare/pkg/crypto"
	"github.com/absmach/dpsshare/pkg/mqtt"
	"github.com/absmach/dpsshare/pkg/sdk"
	"github.com/absmach/dpsshare/share"
)

const (
	svcName = "committee"
	pathEnv = ".env"
)

type envConfig struct {
	LogLevel      string        `env:"COMMITTEE_LOG_LEVEL"      envDefault:"info"`
	MQTTAddress   string        `env:"COMMITTEE_MQTT_ADDRESS"   envDefault:"tcp://localhost:1883"`
	MQTTQoS       uint8         `env:"COMMITTEE_MQTT_QOS"       envDefault:"2"`
	MQTTTimeout   time.Duration `env:"COMMITTEE_MQTT_TIMEOUT"   envDefault:"30s"`
	ClientID      string        `env:"COMMITTEE_CLIENT_ID"`
	ClientKey     string        `env:"COMMITTEE_CLIENT_KEY"`
	ChannelID     string        `env:"COMMITTEE_CHANNEL_ID"`
	SessionSecret string        `env:"COMMITTEE_SESSION_SECRET"`
	Size          int           `env:"COMMITTEE_SIZE"           envDefault:"3"`
	SubDifficulty uint          `env:"COMMITTEE_SUB_DIFFICULTY" envDefault:"4"`
	FogCount      int           `env:"COMMITTEE_FOG_COUNT"      envDefault:"1"`
	AuthorityURL  string        `env:"COMMITTEE_AUTHORITY_URL"  envDefault:"http://localhost:7070"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}
	if cfg.SessionSecret == "" {
		log.Fatal("COMMITTEE_SESSION_SECRET must be set")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	mqttPubSub, err := mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, svcName, cfg.ClientID, cfg.ClientKey, cfg.ChannelID, cfg.MQTTTimeout, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize mqtt pubsub: %w", err)
	}
	defer func() {
		if err := mqttPubSub.Disconnect(ctx); err != nil {
			logger.Error("error disconnecting mqtt", slog.Any("error", err))
		}
	}()

	members := make([]committee.Member, cfg.Size)
	for i := range cfg.Size {
		members[i] = committee.NewValidator(fmt.Sprintf("validator_%d", i))
	}

	authSDK := sdk.NewSDK(sdk.Config{AuthorityURL: cfg.AuthorityURL})
	onSigFailure := func(_ context.Context, facilityID string) {
		if _, err := authSDK.ReportSignatureFailure(facilityID); err != nil {
			logger.Warn("failed to report signature failure",
				slog.String("facility_id", facilityID),
				slog.Any("error", err),
			)
		}
	}

	svc := committee.NewService(
		members,
		crypto.NewDerivingKeyRing([]byte(cfg.SessionSecret)),
		crypto.NewSigner(crypto.DeriveKey([]byte(cfg.SessionSecret), svcName)),
		mqttPubSub,
		cfg.ChannelID,
		cfg.SubDifficulty,
		cfg.FogCount,
		onSigFailure,
		logger,
	)

	err = mqttPubSub.Subscribe(ctx, mqtt.RoundStartTopic(cfg.ChannelID), func(_ string, payload []byte) error {
		var rs share.RoundStart
		if err := cbor.Unmarshal(payload, &rs); err != nil {
			return err
		}

		return svc.OpenRound(ctx, rs.Round, rs.ModelLen)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to round starts: %w", err)
	}

	if err := svc.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to share submissions: %w", err)
	}

	logger.Info("Committee service started", slog.Int("members", cfg.Size))
	<-ctx.Done()

	return nil
}
