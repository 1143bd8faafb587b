// Package config handles daemon configuration.
//
// Settings are layered: per-network defaults, then the config file in the
// data directory, then command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/omahs/minotaur-wallet/pkg/types"
)

// Config holds the runtime configuration of the sync daemon.
type Config struct {
	// Core
	Network types.Network `conf:"network"`
	DataDir string        `conf:"datadir"`

	// Upstream services
	Node     NodeConfig
	Explorer ExplorerConfig

	// Address synchronization
	Sync SyncConfig

	// Balance verification
	Verify VerifyConfig

	// Chain client retry policy
	Retry RetryConfig

	// RPC server
	RPC RPCConfig

	// Prometheus endpoint
	Metrics MetricsConfig

	// Logging
	Log LogConfig

	// Storage engine ("badger" or "memory"; not persisted in config file)
	InMemory bool

	// Drop the network's state before starting (flag only)
	Reset bool
}

// NodeConfig points at an Ergo node REST API.
type NodeConfig struct {
	URL string `conf:"node.url"`
}

// ExplorerConfig points at an Ergo explorer API.
type ExplorerConfig struct {
	URL string `conf:"explorer.url"`
}

// SyncConfig holds the scan and scheduling parameters.
type SyncConfig struct {
	WindowSize  uint64        `conf:"sync.window"`
	PageSize    int           `conf:"sync.pagesize"`
	Interval    time.Duration `conf:"sync.interval"`
	Workers     int           `conf:"sync.workers"`
	HeaderDepth int           `conf:"sync.headerdepth"`
	// Addresses are registered on startup if not tracked yet.
	Addresses []string `conf:"sync.addresses"`
}

// VerifyConfig holds balance verification settings.
type VerifyConfig struct {
	Interval time.Duration `conf:"verify.interval"` // 0 disables
}

// RetryConfig bounds retries of chain client calls.
type RetryConfig struct {
	Attempts  int           `conf:"retry.attempts"`
	BaseDelay time.Duration `conf:"retry.basedelay"`
	MaxDelay  time.Duration `conf:"retry.maxdelay"`
	Timeout   time.Duration `conf:"retry.timeout"` // per attempt
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// MetricsConfig holds the Prometheus listener settings.
type MetricsConfig struct {
	Enabled bool   `conf:"metrics.enabled"`
	Addr    string `conf:"metrics.addr"`
	Port    int    `conf:"metrics.port"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.minotaur
//	macOS:   ~/Library/Application Support/Minotaur
//	Windows: %APPDATA%\Minotaur
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".minotaur"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Minotaur")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Minotaur")
		}
		return filepath.Join(home, "AppData", "Roaming", "Minotaur")
	default:
		return filepath.Join(home, ".minotaur")
	}
}

// DBDir returns the database directory. All networks share one database;
// keys are scoped per network.
func (c *Config) DBDir() string {
	return filepath.Join(c.DataDir, "db")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "minotaur.conf")
}
