// Package config handles daemon configuration.
//
// Settings are layered: per-network defaults, then the key = value config
// file, then command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Klingon-tech/zwalletd/pkg/types"
)

// NetworkType identifies the chain the wallet is bound to.
type NetworkType = types.NetworkType

const (
	Mainnet = types.Mainnet
	Testnet = types.Testnet
	Regtest = types.Regtest
)

// PasswordEnv is the environment variable that may hold the keystore password.
const PasswordEnv = "ZWALLET_PASSWORD"

// Config holds the daemon's runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// API server
	RPC RPCConfig

	// Keystore and account defaults
	Wallet WalletConfig

	// Full node used for sync status
	Node NodeConfig

	// Sync status tracking
	Sync SyncConfig

	// Prometheus endpoint
	Metrics MetricsConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds API server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// WalletConfig holds keystore settings.
type WalletConfig struct {
	FilePath       string `conf:"wallet.file"`          // Keystore path, relative to the network dir.
	PasswordFile   string `conf:"wallet.password_file"` // File holding the keystore password.
	DefaultAccount string `conf:"wallet.default_account"`

	// ViewingKeys runs the wallet watch-only: key i serves account i and no
	// keystore is opened.
	ViewingKeys []string `conf:"wallet.viewing_key"`
}

// WatchOnly reports whether the wallet runs from viewing keys.
func (w WalletConfig) WatchOnly() bool {
	return len(w.ViewingKeys) > 0
}

// NodeConfig holds the chain node connection.
type NodeConfig struct {
	URL      string `conf:"node.url"`
	User     string `conf:"node.user"`
	Password string `conf:"node.password"`
}

// SyncConfig holds sync tracking settings.
type SyncConfig struct {
	Timeout      time.Duration `conf:"sync.timeout"`
	PollInterval time.Duration `conf:"sync.poll_interval"`
	Tolerance    uint64        `conf:"sync.tolerance"` // Blocks behind still counted as synced.
	MaxFailures  uint32        `conf:"sync.max_failures"`
	OpenTimeout  time.Duration `conf:"sync.open_timeout"` // Wait before retrying a node that kept failing.
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `conf:"metrics.enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// Params returns the encoding parameters of the configured network.
func (c *Config) Params() (*types.Network, error) {
	return types.ParseNetwork(string(c.Network))
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.zwalletd
//	macOS:   ~/Library/Application Support/Zwalletd
//	Windows: %APPDATA%\Zwalletd
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".zwalletd"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Zwalletd")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Zwalletd")
		}
		return filepath.Join(home, "AppData", "Roaming", "Zwalletd")
	default:
		return filepath.Join(home, ".zwalletd")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// DBDir returns the account database directory. Networks share one
// database under separate key prefixes.
func (c *Config) DBDir() string {
	return filepath.Join(c.DataDir, "db")
}

// KeystorePath returns the keystore file path.
func (c *Config) KeystorePath() string {
	p := c.Wallet.FilePath
	if p == "" {
		p = "wallet.keys"
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.NetworkDataDir(), p)
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "zwalletd.conf")
}

// RPCListenAddr returns host:port of the API server.
func (c *Config) RPCListenAddr() string {
	return joinHostPort(c.RPC.Addr, c.RPC.Port)
}
