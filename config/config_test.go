package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sui-replay/replaycore/config"
)

func TestFromEnvReadsAllVariables(t *testing.T) {
	t.Setenv("RPC_ENDPOINT", "archive.example:9000")
	t.Setenv("RPC_API_KEY", "secret")
	t.Setenv("CACHE_DIR", "/var/cache/replay")
	t.Setenv("PROTOCOL_VERSION_OVERRIDE", "48")

	cfg := config.FromEnv()
	require.Equal(t, "archive.example:9000", cfg.RPCEndpoint)
	require.Equal(t, "secret", cfg.RPCAPIKey)
	require.Equal(t, "/var/cache/replay", cfg.CacheDir)
	require.EqualValues(t, 48, cfg.ProtocolVersionOverride)
	require.True(t, cfg.Authenticated())
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("RPC_ENDPOINT", "")
	t.Setenv("RPC_API_KEY", "")
	t.Setenv("CACHE_DIR", "")
	t.Setenv("PROTOCOL_VERSION_OVERRIDE", "")

	cfg := config.FromEnv()
	require.NotEmpty(t, cfg.CacheDir, "absent CACHE_DIR must fall back to a default root")
	require.Zero(t, cfg.ProtocolVersionOverride)
	require.False(t, cfg.Authenticated(), "absent RPC_API_KEY means unauthenticated mode")
}

func TestFromEnvIgnoresMalformedProtocolOverride(t *testing.T) {
	t.Setenv("PROTOCOL_VERSION_OVERRIDE", "not-a-number")
	cfg := config.FromEnv()
	require.Zero(t, cfg.ProtocolVersionOverride)
}
