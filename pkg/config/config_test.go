package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "songvocab.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[http]
addr = "127.0.0.1:9000"
trust_proxy = true

[rate_limit]
agent_per_minute = 2

[timeouts]
lyrics = "5s"

[extractor]
kind = "sample"
max_items = 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.True(t, cfg.HTTP.TrustProxy)
	assert.Equal(t, 2, cfg.RateLimit.AgentPerMinute)
	assert.Equal(t, 10, cfg.RateLimit.ThoughtsPerMinute, "unset keys keep defaults")
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Lyrics)
	assert.Equal(t, 60*time.Second, cfg.Timeouts.Vocabulary)
	assert.Equal(t, "sample", cfg.Extractor.Kind)
	assert.Equal(t, 3, cfg.Extractor.MaxItems)
}

func TestLoadEnvironmentWins(t *testing.T) {
	path := writeConfig(t, "[rate_limit]\nagent_per_minute = 2\n")
	t.Setenv("SONGVOCAB_RATE_LIMIT__AGENT_PER_MINUTE", "7")
	t.Setenv("SONGVOCAB_TIMEOUTS__VOCABULARY", "90s")
	t.Setenv("SONGVOCAB_DATABASE__DRIVER", "sqlite")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.RateLimit.AgentPerMinute)
	assert.Equal(t, 90*time.Second, cfg.Timeouts.Vocabulary)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.RateLimit.AgentPerMinute = 0
	cfg.Timeouts.Lyrics = -time.Second
	cfg.Extractor.Kind = "markov"
	cfg.Lyrics.Provider = "web"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"agent_per_minute", "timeouts.lyrics", "extractor.kind", "lyrics.api_key"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "rate_limit.idle_ttl", envKey("SONGVOCAB_RATE_LIMIT__IDLE_TTL"))
	assert.Equal(t, "http.addr", envKey("SONGVOCAB_HTTP__ADDR"))
}
