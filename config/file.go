package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/omahs/minotaur-wallet/pkg/types"
)

// LoadFile loads configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	var err error
	switch key {
	// Core
	case "network":
		cfg.Network = types.Network(strings.ToLower(value))
	case "datadir":
		cfg.DataDir = value

	// Upstream
	case "node.url", "node":
		cfg.Node.URL = value
	case "explorer.url", "explorer":
		cfg.Explorer.URL = value

	// Sync
	case "sync.window":
		cfg.Sync.WindowSize, err = strconv.ParseUint(value, 10, 64)
	case "sync.pagesize":
		cfg.Sync.PageSize, err = strconv.Atoi(value)
	case "sync.interval":
		cfg.Sync.Interval, err = time.ParseDuration(value)
	case "sync.workers":
		cfg.Sync.Workers, err = strconv.Atoi(value)
	case "sync.headerdepth":
		cfg.Sync.HeaderDepth, err = strconv.Atoi(value)
	case "sync.addresses":
		cfg.Sync.Addresses = parseStringList(value)

	// Verification
	case "verify.interval":
		cfg.Verify.Interval, err = time.ParseDuration(value)

	// Retry
	case "retry.attempts":
		cfg.Retry.Attempts, err = strconv.Atoi(value)
	case "retry.basedelay":
		cfg.Retry.BaseDelay, err = time.ParseDuration(value)
	case "retry.maxdelay":
		cfg.Retry.MaxDelay, err = time.ParseDuration(value)
	case "retry.timeout":
		cfg.Retry.Timeout, err = time.ParseDuration(value)

	// RPC
	case "rpc.enabled", "rpc":
		cfg.RPC.Enabled = parseBool(value)
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port":
		cfg.RPC.Port, err = strconv.Atoi(value)
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = parseStringList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = parseStringList(value)

	// Metrics
	case "metrics.enabled", "metrics":
		cfg.Metrics.Enabled = parseBool(value)
	case "metrics.addr":
		cfg.Metrics.Addr = value
	case "metrics.port":
		cfg.Metrics.Port, err = strconv.Atoi(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return err
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string, network types.Network) error {
	d := Default(network)
	content := `# Minotaur address sync daemon configuration

# Network: mainnet or testnet (default: mainnet)
# network = ` + string(network) + `

# Data directory (default: ~/.minotaur)
# datadir = ~/.minotaur

# ============================================================================
# Upstream
# ============================================================================

# Endpoints and ports default per network; uncomment to pin them.

# Ergo node REST API (chain tip and recent headers)
# node.url = ` + d.Node.URL + `

# Ergo explorer API (address history and confirmed balances)
# explorer.url = ` + d.Explorer.URL + `

# ============================================================================
# Sync
# ============================================================================

# Heights fetched and applied per window
sync.window = 50

# Page limit used while paging through a window
sync.pagesize = 10

# Delay between sync rounds
sync.interval = 30s

# Addresses synced concurrently
sync.workers = 4

# Recent node headers kept for fork detection
sync.headerdepth = 50

# Addresses to track from startup (comma-separated)
# sync.addresses =

# Balance verification against the explorer (0 disables)
verify.interval = 10m

# ============================================================================
# Retry
# ============================================================================

retry.attempts = 5
retry.basedelay = 500ms
retry.maxdelay = 30s
retry.timeout = 15s

# ============================================================================
# RPC Server
# ============================================================================

rpc.enabled = true
rpc.addr = 127.0.0.1
# rpc.port = ` + strconv.Itoa(d.RPC.Port) + `
rpc.allowed = 127.0.0.1
# CORS allowed origins ("*" for all)
# rpc.cors = http://localhost:3000

# ============================================================================
# Metrics
# ============================================================================

metrics.enabled = false
metrics.addr = 127.0.0.1
# metrics.port = ` + strconv.Itoa(d.Metrics.Port) + `

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
