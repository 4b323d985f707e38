// Package config loads the replay core's environment-variable interface.
// The replay core stays a library: FromEnv is the only place that reads
// process environment; constructors such as histcache.Open take explicit
// values.
package config

import "os"

// Config is the process-wide configuration read once at startup.
type Config struct {
	// RPCEndpoint is the archive RPC host; empty when RPC_ENDPOINT is unset.
	RPCEndpoint string
	// RPCAPIKey is the bearer token for the archive RPC. Its absence means
	// unauthenticated mode.
	RPCAPIKey string
	// CacheDir overrides the default historical-cache root.
	CacheDir string
	// ProtocolVersionOverride pins a protocol parameter set for
	// reproducible tests; zero means "use the epoch->params table."
	ProtocolVersionOverride uint32
}

const defaultCacheDir = ".sui-replay-cache"

// FromEnv reads the process's configuration environment variables.
func FromEnv() Config {
	cfg := Config{
		RPCEndpoint: os.Getenv("RPC_ENDPOINT"),
		RPCAPIKey:   os.Getenv("RPC_API_KEY"),
		CacheDir:    os.Getenv("CACHE_DIR"),
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = defaultCacheDir
	}
	if v := os.Getenv("PROTOCOL_VERSION_OVERRIDE"); v != "" {
		cfg.ProtocolVersionOverride = parseUint32(v)
	}
	return cfg
}

func parseUint32(s string) uint32 {
	var n uint32
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + uint32(c-'0')
	}
	return n
}

// Authenticated reports whether an RPC bearer token is configured.
func (c Config) Authenticated() bool { return c.RPCAPIKey != "" }
