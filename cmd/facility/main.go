package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/absmach/dpsshare"
	"github.com/absmach/dpsshare/authority"
	"github.com/absmach/dpsshare/facility"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/mqtt"
	"github.com/absmach/dpsshare/pkg/puzzle"
	"github.com/absmach/dpsshare/pkg/sdk"
	"github.com/absmach/dpsshare/pkg/shares"
	"github.com/absmach/dpsshare/round"
)

const (
	svcName = "facility"
	pathEnv = ".env"
)

type envConfig struct {
	LogLevel      string        `env:"FACILITY_LOG_LEVEL"      envDefault:"info"`
	MQTTAddress   string        `env:"FACILITY_MQTT_ADDRESS"   envDefault:"tcp://localhost:1883"`
	MQTTQoS       uint8         `env:"FACILITY_MQTT_QOS"       envDefault:"2"`
	MQTTTimeout   time.Duration `env:"FACILITY_MQTT_TIMEOUT"   envDefault:"30s"`
	ClientID      string        `env:"FACILITY_CLIENT_ID"`
	ClientKey     string        `env:"FACILITY_CLIENT_KEY"`
	ChannelID     string        `env:"FACILITY_CHANNEL_ID"`
	ID            string        `env:"FACILITY_ID"`
	ConfigPath    string        `env:"FACILITY_CONFIG_PATH"`
	Attributes    string        `env:"FACILITY_ATTRIBUTES"     envDefault:"region=eu"`
	AuthorityURL  string        `env:"FACILITY_AUTHORITY_URL"  envDefault:"http://localhost:7070"`
	RegDifficulty uint          `env:"FACILITY_REG_DIFFICULTY" envDefault:"4"`
	SubDifficulty uint          `env:"FACILITY_SUB_DIFFICULTY" envDefault:"4"`
	FogCount      int           `env:"FACILITY_FOG_COUNT"      envDefault:"1"`
	Epsilon       float64       `env:"FACILITY_DP_EPSILON"     envDefault:"1.0"`
	Sensitivity   float64       `env:"FACILITY_DP_SENSITIVITY" envDefault:"1.0"`
	Samples       int           `env:"FACILITY_NUM_SAMPLES"    envDefault:"100"`
	Delta         []float64     `env:"FACILITY_STATIC_DELTA"`
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
	if cfg.ID == "" {
		log.Fatal("FACILITY_ID must be set")
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

	attrs := parseAttributes(cfg.Attributes)

	if cfg.ConfigPath != "" {
		fileCfg, err := dpsshare.LoadConfig(cfg.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load provisioning config: %w", err)
		}
		applyFileConfig(&cfg, fileCfg)
		if len(fileCfg.Facility.Attributes) > 0 {
			attrs = fileCfg.Facility.Attributes
		}
	}

	authSDK := sdk.NewSDK(sdk.Config{AuthorityURL: cfg.AuthorityURL})

	logger.Info("Solving admission puzzle", slog.Uint64("difficulty", uint64(cfg.RegDifficulty)))
	nonce, err := puzzle.Solve(ctx, cfg.ID, round.RegistrationContext, cfg.RegDifficulty)
	if err != nil {
		return fmt.Errorf("failed to solve admission puzzle: %w", err)
	}

	sdkReg, err := authSDK.Register(cfg.ID, nonce, attrs)
	if err != nil {
		return fmt.Errorf("failed to register with authority: %w", err)
	}
	reg := authority.Registration{
		Key: abe.Key{
			Secret:     sdkReg.Key.Secret,
			FacilityID: sdkReg.Key.FacilityID,
			Attributes: abe.Attributes(sdkReg.Key.Attributes),
		},
		SigningKey: sdkReg.SigningKey,
		Params:     abe.PublicParams{PK: sdkReg.Params.PK},
	}
	logger.Info("Registered with authority", slog.String("facility_id", cfg.ID))

	mqttPubSub, err := mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, svcName, cfg.ClientID, cfg.ClientKey, cfg.ChannelID, cfg.MQTTTimeout, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize mqtt pubsub: %w", err)
	}
	defer func() {
		if err := mqttPubSub.Disconnect(ctx); err != nil {
			logger.Error("error disconnecting mqtt", slog.Any("error", err))
		}
	}()

	trainer := facility.StaticTrainer{
		Delta:   shares.Update(cfg.Delta),
		Samples: cfg.Samples,
	}

	svc := facility.NewService(
		cfg.ID,
		reg,
		trainer,
		mqttPubSub,
		cfg.ChannelID,
		cfg.FogCount,
		cfg.Epsilon,
		cfg.Sensitivity,
		cfg.SubDifficulty,
		rand.New(rand.NewSource(time.Now().UnixNano())),
		logger,
	)

	sdkCT, err := authSDK.SeedModel()
	if err != nil {
		return fmt.Errorf("failed to fetch seed model: %w", err)
	}
	ct := abe.Ciphertext{
		CT:     sdkCT.CT,
		Policy: abe.Policy(sdkCT.Policy),
		PK:     sdkCT.PK,
	}
	if err := svc.ObtainSeed(ctx, ct); err != nil {
		return fmt.Errorf("failed to decrypt seed model: %w", err)
	}

	if err := svc.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	logger.Info("Facility started", slog.String("id", cfg.ID))
	<-ctx.Done()

	return nil
}

// applyFileConfig overlays the shared provisioning file on top of env
// settings, so one file can align every role's protocol parameters.
func applyFileConfig(cfg *envConfig, file *dpsshare.Config) {
	if file.Protocol.ChannelID != "" {
		cfg.ChannelID = file.Protocol.ChannelID
	}
	if file.Protocol.FogCount > 0 {
		cfg.FogCount = file.Protocol.FogCount
	}
	if file.Protocol.SubmissionDifficulty > 0 {
		cfg.SubDifficulty = file.Protocol.SubmissionDifficulty
	}
	if file.Protocol.RegistrationDifficulty > 0 {
		cfg.RegDifficulty = file.Protocol.RegistrationDifficulty
	}
	if file.Protocol.PrivacyEpsilon > 0 {
		cfg.Epsilon = file.Protocol.PrivacyEpsilon
	}
	if file.Protocol.PrivacySensitivity > 0 {
		cfg.Sensitivity = file.Protocol.PrivacySensitivity
	}
	if file.Facility.ClientID != "" {
		cfg.ClientID = file.Facility.ClientID
	}
	if file.Facility.ClientKey != "" {
		cfg.ClientKey = file.Facility.ClientKey
	}
	if file.Authority.URL != "" {
		cfg.AuthorityURL = file.Authority.URL
	}
}

func parseAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok {
			attrs[k] = v
		}
	}

	return attrs
}
