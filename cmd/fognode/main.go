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

	"github.com/absmach/dpsshare/fognode"
	"github.com/absmach/dpsshare/pkg/crypto"
	"github.com/absmach/dpsshare/pkg/mqtt"
	"github.com/absmach/dpsshare/share"
)

const (
	svcName = "fognode"
	pathEnv = ".env"
)

type envConfig struct {
	LogLevel       string        `env:"FOGNODE_LOG_LEVEL"       envDefault:"info"`
	MQTTAddress    string        `env:"FOGNODE_MQTT_ADDRESS"    envDefault:"tcp://localhost:1883"`
	MQTTQoS        uint8         `env:"FOGNODE_MQTT_QOS"        envDefault:"2"`
	MQTTTimeout    time.Duration `env:"FOGNODE_MQTT_TIMEOUT"    envDefault:"30s"`
	ClientID       string        `env:"FOGNODE_CLIENT_ID"`
	ClientKey      string        `env:"FOGNODE_CLIENT_KEY"`
	ChannelID      string        `env:"FOGNODE_CHANNEL_ID"`
	SessionSecret  string        `env:"FOGNODE_SESSION_SECRET"`
	ID             string        `env:"FOGNODE_ID"`
	Index          int           `env:"FOGNODE_INDEX"           envDefault:"0"`
	ExpectedShares int           `env:"FOGNODE_EXPECTED_SHARES" envDefault:"1"`
	Weighted       bool          `env:"FOGNODE_WEIGHTED"        envDefault:"false"`
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
		log.Fatal("FOGNODE_SESSION_SECRET must be set")
	}
	if cfg.ID == "" {
		cfg.ID = fmt.Sprintf("fog_%d", cfg.Index)
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

	svc := fognode.NewService(
		cfg.ID,
		cfg.Index,
		crypto.NewDerivingKeyRing([]byte(cfg.SessionSecret)),
		crypto.NewSigner(crypto.DeriveKey([]byte(cfg.SessionSecret), cfg.ID)),
		mqttPubSub,
		cfg.ChannelID,
		cfg.ExpectedShares,
		cfg.Weighted,
		logger,
	)

	err = mqttPubSub.Subscribe(ctx, mqtt.RoundStartTopic(cfg.ChannelID), func(_ string, payload []byte) error {
		var rs share.RoundStart
		if err := cbor.Unmarshal(payload, &rs); err != nil {
			return err
		}

		return svc.OpenRound(ctx, rs.Round)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to round starts: %w", err)
	}

	if err := svc.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to approved shares: %w", err)
	}

	logger.Info("Fog node started", slog.String("id", cfg.ID), slog.Int("index", cfg.Index))
	<-ctx.Done()

	return nil
}
