package config

import (
	"time"

	"github.com/omahs/minotaur-wallet/pkg/types"
)

// Public endpoints used when nothing else is configured.
const (
	MainnetNodeURL     = "http://127.0.0.1:9053"
	TestnetNodeURL     = "http://127.0.0.1:9052"
	MainnetExplorerURL = "https://api.ergoplatform.com"
	TestnetExplorerURL = "https://api-testnet.ergoplatform.com"
)

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network:  types.Mainnet,
		DataDir:  DefaultDataDir(),
		Node:     NodeConfig{URL: MainnetNodeURL},
		Explorer: ExplorerConfig{URL: MainnetExplorerURL},
		Sync: SyncConfig{
			WindowSize:  50,
			PageSize:    10,
			Interval:    30 * time.Second,
			Workers:     4,
			HeaderDepth: 50,
		},
		Verify: VerifyConfig{
			Interval: 10 * time.Minute,
		},
		Retry: RetryConfig{
			Attempts:  5,
			BaseDelay: 500 * time.Millisecond,
			MaxDelay:  30 * time.Second,
			Timeout:   15 * time.Second,
		},
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       9540,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1",
			Port:    9542,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = types.Testnet
	cfg.Node.URL = TestnetNodeURL
	cfg.Explorer.URL = TestnetExplorerURL
	cfg.RPC.Port = 9541
	cfg.Metrics.Port = 9543
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network types.Network) *Config {
	switch network {
	case types.Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
