package dpsshare

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml"
)

type Config struct {
	Protocol  ProtocolConfig  `toml:"protocol"`
	Authority AuthorityConfig `toml:"authority"`
	Leader    LeaderConfig    `toml:"leader"`
	Committee CommitteeConfig `toml:"committee"`
	FogNode   FogNodeConfig   `toml:"fognode"`
	Facility  FacilityConfig  `toml:"facility"`
}

// ProtocolConfig holds the parameters every role must agree on before a
// deployment can complete a round.
type ProtocolConfig struct {
	ChannelID              string        `toml:"channel_id"`
	FogCount               int           `toml:"fog_count"`
	CommitteeSize          int           `toml:"committee_size"`
	ModelLen               int           `toml:"model_len"`
	RegistrationDifficulty uint          `toml:"registration_difficulty"`
	SubmissionDifficulty   uint          `toml:"submission_difficulty"`
	RoundDeadline          time.Duration `toml:"round_deadline"`
	TimeoutPolicy          string        `toml:"timeout_policy"`
	WeightedAggregation    bool          `toml:"weighted_aggregation"`
	PrivacyEpsilon         float64       `toml:"privacy_epsilon"`
	PrivacySensitivity     float64       `toml:"privacy_sensitivity"`
	SecurityParam          int           `toml:"security_param"`
}

type AuthorityConfig struct {
	ClientID  string `toml:"client_id"`
	ClientKey string `toml:"client_key"`
	URL       string `toml:"url"`
}

type LeaderConfig struct {
	ClientID  string `toml:"client_id"`
	ClientKey string `toml:"client_key"`
	URL       string `toml:"url"`
	LogPath   string `toml:"log_path"`
}

type CommitteeConfig struct {
	ClientID  string `toml:"client_id"`
	ClientKey string `toml:"client_key"`
}

type FogNodeConfig struct {
	ClientID  string `toml:"client_id"`
	ClientKey string `toml:"client_key"`
	Index     int    `toml:"index"`
}

type FacilityConfig struct {
	ClientID   string            `toml:"client_id"`
	ClientKey  string            `toml:"client_key"`
	Attributes map[string]string `toml:"attributes"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
