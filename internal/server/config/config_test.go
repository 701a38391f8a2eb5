package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetArgs(t *testing.T) {
	t.Helper()
	oldArgs := os.Args
	os.Args = []string{"server"}
	t.Cleanup(func() { os.Args = oldArgs })
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetArgs(t)

	cfg := LoadConfig()

	assert.Equal(t, ":8080", cfg.EndpointAddr)
	assert.Equal(t, "cuppie-auth", cfg.Issuer)
	assert.Equal(t, "cuppie", cfg.Audience)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenValidityDuration)
	assert.Equal(t, 64, cfg.RefreshTokenLength)
	assert.Empty(t, cfg.SentryDSN)
}

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	resetArgs(t)
	t.Setenv("RUN_ADDRESS", ":9090")
	t.Setenv("JWT_SECRET_KEY", "env-secret")
	t.Setenv("ACCESS_TOKEN_VALIDITY", "5m")

	cfg := LoadConfig()

	assert.Equal(t, ":9090", cfg.EndpointAddr)
	assert.Equal(t, "env-secret", cfg.SecretKey)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenValidityDuration)
	// untouched fields keep their defaults
	assert.Equal(t, "cuppie-auth", cfg.Issuer)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	oldArgs := os.Args
	os.Args = []string{"server", "-a", ":7070", "-t", "1"}
	t.Cleanup(func() { os.Args = oldArgs })
	t.Setenv("RUN_ADDRESS", ":9090")

	cfg := LoadConfig()

	assert.Equal(t, ":7070", cfg.EndpointAddr)
	assert.Equal(t, time.Minute, cfg.AccessTokenValidityDuration)
}

func TestLoadConfig_JsonFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	content := `{
		"endpoint_addr": ":6060",
		"secret_key": "json-secret",
		"access_token_validity_duration": "30m",
		"refresh_token_length": 48
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	oldArgs := os.Args
	os.Args = []string{"server", "-c", path}
	t.Cleanup(func() { os.Args = oldArgs })

	cfg := LoadConfig()

	assert.Equal(t, ":6060", cfg.EndpointAddr)
	assert.Equal(t, "json-secret", cfg.SecretKey)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 48, cfg.RefreshTokenLength)
	// absent fields keep defaults
	assert.Equal(t, "cuppie", cfg.Audience)
}
