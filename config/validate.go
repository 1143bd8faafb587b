package config

import (
	"fmt"
	"net/url"

	"github.com/omahs/minotaur-wallet/pkg/types"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if _, err := types.ParseNetwork(string(cfg.Network)); err != nil {
		return fmt.Errorf("network must be %q or %q", types.Mainnet, types.Testnet)
	}
	if err := validateURL(cfg.Node.URL, "node.url"); err != nil {
		return err
	}
	if err := validateURL(cfg.Explorer.URL, "explorer.url"); err != nil {
		return err
	}

	if cfg.Sync.WindowSize == 0 {
		return fmt.Errorf("sync.window must be positive")
	}
	if cfg.Sync.PageSize <= 0 {
		return fmt.Errorf("sync.pagesize must be positive")
	}
	if cfg.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive")
	}
	if cfg.Sync.Workers <= 0 {
		return fmt.Errorf("sync.workers must be positive")
	}
	if cfg.Sync.HeaderDepth <= 0 {
		return fmt.Errorf("sync.headerdepth must be positive")
	}
	for i, a := range cfg.Sync.Addresses {
		if _, err := types.ParseAddress(a, cfg.Network); err != nil {
			return fmt.Errorf("sync.addresses[%d]: %w", i, err)
		}
	}
	if cfg.Verify.Interval < 0 {
		return fmt.Errorf("verify.interval must not be negative")
	}

	if cfg.Retry.Attempts < 0 {
		return fmt.Errorf("retry.attempts must not be negative")
	}
	if cfg.Retry.BaseDelay < 0 || cfg.Retry.MaxDelay < 0 {
		return fmt.Errorf("retry delays must not be negative")
	}
	if cfg.Retry.MaxDelay > 0 && cfg.Retry.BaseDelay > cfg.Retry.MaxDelay {
		return fmt.Errorf("retry.basedelay exceeds retry.maxdelay")
	}
	if cfg.Retry.Timeout <= 0 {
		return fmt.Errorf("retry.timeout must be positive")
	}

	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	if cfg.Metrics.Port < 0 || cfg.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be in range [0, 65535]")
	}
	if cfg.RPC.Enabled && cfg.Metrics.Enabled &&
		cfg.RPC.Port != 0 && cfg.RPC.Port == cfg.Metrics.Port && cfg.RPC.Addr == cfg.Metrics.Addr {
		return fmt.Errorf("rpc and metrics listeners must differ")
	}
	return nil
}

func validateURL(raw, field string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL", field)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host", field)
	}
	return nil
}
