package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Klingon-tech/zwalletd/internal/log"
)

// Validate checks the config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(string(cfg.Network)) == "" {
		return fmt.Errorf("network must be %q, %q or %q", Mainnet, Testnet, Regtest)
	}
	params, err := cfg.Params()
	if err != nil {
		return fmt.Errorf("network must be %q, %q or %q", Mainnet, Testnet, Regtest)
	}
	cfg.Network = params.Type
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir is empty")
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	if cfg.Node.URL == "" {
		return fmt.Errorf("node.url is empty")
	}
	u, err := url.Parse(cfg.Node.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("node.url must be an http(s) URL, got %q", cfg.Node.URL)
	}
	if cfg.Sync.Timeout <= 0 {
		return fmt.Errorf("sync.timeout must be positive")
	}
	if cfg.Sync.Timeout > time.Minute {
		return fmt.Errorf("sync.timeout must be at most 1m")
	}
	if cfg.Sync.PollInterval < time.Second {
		return fmt.Errorf("sync.poll_interval must be at least 1s")
	}
	if cfg.Sync.MaxFailures == 0 {
		return fmt.Errorf("sync.max_failures must be positive")
	}
	if cfg.Sync.OpenTimeout <= 0 {
		return fmt.Errorf("sync.open_timeout must be positive")
	}
	if !log.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not a valid level", cfg.Log.Level)
	}
	return nil
}
