package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/omahs/minotaur-wallet/pkg/types"
)

// Version is reported by --version.
const Version = "0.1.0"

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	Testnet bool
	DataDir string
	Config  string
	Memory  bool
	Reset   bool

	// Upstream
	NodeURL     string
	ExplorerURL string

	// Sync
	Window      uint64
	PageSize    int
	Interval    time.Duration
	Workers     int
	HeaderDepth int
	Addresses   string

	// Verification
	VerifyInterval time.Duration

	// RPC
	RPC        bool
	RPCAddr    string
	RPCPort    int
	RPCAllowed string
	RPCCORS    string

	// Metrics
	Metrics     bool
	MetricsAddr string
	MetricsPort int

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set flags (for true/false and zero overrides).
	SetRPC            bool
	SetMetrics        bool
	SetLogJSON        bool
	SetVerifyInterval bool
}

// ParseArgs parses command-line arguments (without the program name).
func ParseArgs(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("minotaurd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet or testnet)")
	fs.BoolVar(&f.Testnet, "testnet", false, "Use testnet (shorthand for --network=testnet)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")
	fs.BoolVar(&f.Memory, "memory", false, "Keep all state in memory")
	fs.BoolVar(&f.Reset, "reset", false, "Drop the network's synchronized state on startup")

	// Upstream
	fs.StringVar(&f.NodeURL, "node", "", "Ergo node REST API URL")
	fs.StringVar(&f.ExplorerURL, "explorer", "", "Ergo explorer API URL")

	// Sync
	fs.Uint64Var(&f.Window, "window", 0, "Heights per sync window")
	fs.IntVar(&f.PageSize, "page-size", 0, "Page limit while paging a window")
	fs.DurationVar(&f.Interval, "interval", 0, "Delay between sync rounds")
	fs.IntVar(&f.Workers, "workers", 0, "Addresses synced concurrently")
	fs.IntVar(&f.HeaderDepth, "header-depth", 0, "Recent node headers kept for fork detection")
	fs.StringVar(&f.Addresses, "addresses", "", "Addresses to track (comma-separated)")
	fs.DurationVar(&f.VerifyInterval, "verify-interval", 0, "Delay between balance verifications (0 disables)")

	// RPC
	fs.BoolVar(&f.RPC, "rpc", true, "Enable RPC server")
	fs.StringVar(&f.RPCAddr, "rpc-addr", "", "RPC listen address")
	fs.IntVar(&f.RPCPort, "rpc-port", 0, "RPC listen port")
	fs.StringVar(&f.RPCAllowed, "rpc-allowed", "", "Allowed IPs for RPC")
	fs.StringVar(&f.RPCCORS, "rpc-cors", "", "Allowed CORS origins for RPC (comma-separated)")

	// Metrics
	fs.BoolVar(&f.Metrics, "metrics", false, "Serve Prometheus metrics")
	fs.StringVar(&f.MetricsAddr, "metrics-addr", "", "Metrics listen address")
	fs.IntVar(&f.MetricsPort, "metrics-port", 0, "Metrics listen port")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			f.Help = true
			return f, nil
		}
		return nil, err
	}

	if f.Testnet {
		f.Network = string(types.Testnet)
	}
	f.SetRPC = isFlagSet(fs, "rpc")
	f.SetMetrics = isFlagSet(fs, "metrics")
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.SetVerifyInterval = isFlagSet(fs, "verify-interval")

	f.Args = fs.Args()

	// Detect flags left unparsed because a positional argument stopped the
	// parser.
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %q was not parsed (positional argument stopped parsing)", arg)
		}
	}
	return f, nil
}

// ParseFlags parses os.Args and exits on error.
func ParseFlags() *Flags {
	f, err := ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return f
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = types.Network(strings.ToLower(f.Network))
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.Memory {
		cfg.InMemory = true
	}
	if f.Reset {
		cfg.Reset = true
	}

	// Upstream
	if f.NodeURL != "" {
		cfg.Node.URL = f.NodeURL
	}
	if f.ExplorerURL != "" {
		cfg.Explorer.URL = f.ExplorerURL
	}

	// Sync
	if f.Window != 0 {
		cfg.Sync.WindowSize = f.Window
	}
	if f.PageSize != 0 {
		cfg.Sync.PageSize = f.PageSize
	}
	if f.Interval != 0 {
		cfg.Sync.Interval = f.Interval
	}
	if f.Workers != 0 {
		cfg.Sync.Workers = f.Workers
	}
	if f.HeaderDepth != 0 {
		cfg.Sync.HeaderDepth = f.HeaderDepth
	}
	if f.Addresses != "" {
		cfg.Sync.Addresses = parseStringList(f.Addresses)
	}
	if f.SetVerifyInterval {
		cfg.Verify.Interval = f.VerifyInterval
	}

	// RPC
	if f.SetRPC {
		cfg.RPC.Enabled = f.RPC
	}
	if f.RPCAddr != "" {
		cfg.RPC.Addr = f.RPCAddr
	}
	if f.RPCPort != 0 {
		cfg.RPC.Port = f.RPCPort
	}
	if f.RPCAllowed != "" {
		cfg.RPC.AllowedIPs = parseStringList(f.RPCAllowed)
	}
	if f.RPCCORS != "" {
		cfg.RPC.CORSOrigins = parseStringList(f.RPCCORS)
	}

	// Metrics
	if f.SetMetrics {
		cfg.Metrics.Enabled = f.Metrics
	}
	if f.MetricsAddr != "" {
		cfg.Metrics.Addr = f.MetricsAddr
	}
	if f.MetricsPort != 0 {
		cfg.Metrics.Port = f.MetricsPort
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// PrintUsage writes the daemon help text to w.
func PrintUsage(w io.Writer) {
	usage := `Minotaur - Ergo address synchronizer

Usage:
  minotaurd [options]
  minotaurd --help

Commands:
  --help, -h         Show this help message
  --version, -v      Show version information

Core Options:
  --network          Network type: mainnet (default) or testnet
  --testnet          Shorthand for --network=testnet
  --datadir          Data directory (default: ~/.minotaur)
  --config, -c       Config file path (default: <datadir>/minotaur.conf)
  --memory           Keep all state in memory (nothing is persisted)
  --reset            Drop the network's tracked addresses, boxes and headers
                     on startup (configured addresses are re-registered)

Upstream Options:
  --node             Ergo node REST API URL (mainnet: :9053, testnet: :9052)
  --explorer         Ergo explorer API URL

Sync Options:
  --window           Heights per sync window (default: 50)
  --page-size        Page limit while paging a window (default: 10)
  --interval         Delay between sync rounds (default: 30s)
  --workers          Addresses synced concurrently (default: 4)
  --header-depth     Recent node headers kept for fork detection (default: 50)
  --addresses        Addresses to track (comma-separated)
  --verify-interval  Delay between balance verifications, 0 disables (default: 10m)

RPC Options:
  --rpc              Enable RPC server (default: true)
  --rpc-addr         RPC listen address (default: 127.0.0.1)
  --rpc-port         RPC port (mainnet: 9540, testnet: 9541)
  --rpc-allowed      Allowed IPs for RPC (comma-separated)
  --rpc-cors         Allowed CORS origins for RPC (comma-separated)

Metrics Options:
  --metrics          Serve Prometheus metrics on /metrics
  --metrics-addr     Metrics listen address (default: 127.0.0.1)
  --metrics-port     Metrics port (mainnet: 9542, testnet: 9543)

Logging Options:
  --log-level        Log level: debug, info, warn, error (default: info)
  --log-file         Log file path (default: stdout)
  --log-json         Output logs as JSON

Examples:
  # Track an address on mainnet
  minotaurd --addresses=9fRAWhdxEsTcdb8PhGNrZfwqa65zfkuYHAMmkQLcic1gdLSV5vA

  # Testnet against a local node
  minotaurd --testnet --node=http://127.0.0.1:9052
`
	fmt.Fprint(w, usage)
}

// Load loads configuration from args with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}
	if flags.Help || flags.Version {
		return nil, flags, nil
	}

	base := DefaultMainnet()
	if flags.DataDir != "" {
		base.DataDir = flags.DataDir
	}
	if err := EnsureDataDirs(base); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = base.ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}

	// Network picks the defaults: flag, then file, then mainnet.
	network := types.Mainnet
	if v, ok := fileValues["network"]; ok && v != "" {
		network = types.Network(strings.ToLower(v))
	}
	if flags.Network != "" {
		network = types.Network(strings.ToLower(flags.Network))
	}

	cfg := Default(network)
	cfg.DataDir = base.DataDir
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Safe to call on every startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.DBDir(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
