package dpsshare_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absmach/dpsshare"
)

func TestLoadConfig(t *testing.T) {
	content := `
[protocol]
channel_id = "chan-1"
fog_count = 3
committee_size = 5
model_len = 8
registration_difficulty = 4
submission_difficulty = 2
round_deadline = 300000000000
timeout_policy = "proceed"
weighted_aggregation = true
privacy_epsilon = 0.5
privacy_sensitivity = 1.0
security_param = 128

[authority]
url = "http://localhost:7070"

[leader]
url = "http://localhost:7071"
log_path = "/var/lib/dpsshare/rounds"

[facility]
client_id = "client-1"
client_key = "key-1"

[facility.attributes]
region = "eu"
tier = "hospital"
`
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := dpsshare.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "chan-1", cfg.Protocol.ChannelID)
	assert.Equal(t, 3, cfg.Protocol.FogCount)
	assert.Equal(t, 5, cfg.Protocol.CommitteeSize)
	assert.Equal(t, 5*time.Minute, cfg.Protocol.RoundDeadline)
	assert.Equal(t, "proceed", cfg.Protocol.TimeoutPolicy)
	assert.True(t, cfg.Protocol.WeightedAggregation)
	assert.InDelta(t, 0.5, cfg.Protocol.PrivacyEpsilon, 1e-9)
	assert.Equal(t, "http://localhost:7070", cfg.Authority.URL)
	assert.Equal(t, "/var/lib/dpsshare/rounds", cfg.Leader.LogPath)
	assert.Equal(t, "client-1", cfg.Facility.ClientID)
	assert.Equal(t, map[string]string{"region": "eu", "tier": "hospital"}, cfg.Facility.Attributes)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := dpsshare.LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
