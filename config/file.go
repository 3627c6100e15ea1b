package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads configuration values from a .conf file.
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

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key = value
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
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// RPC
	case "rpc.enabled", "rpc":
		cfg.RPC.Enabled = parseBool(value)
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port", "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.RPC.Port = port
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = parseStringList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = parseStringList(value)

	// Wallet
	case "wallet.file":
		cfg.Wallet.FilePath = value
	case "wallet.password_file":
		cfg.Wallet.PasswordFile = value
	case "wallet.default_account":
		cfg.Wallet.DefaultAccount = value
	case "wallet.viewing_key":
		cfg.Wallet.ViewingKeys = parseStringList(value)

	// Node
	case "node.url":
		cfg.Node.URL = value
	case "node.user":
		cfg.Node.User = value
	case "node.password":
		cfg.Node.Password = value

	// Sync
	case "sync.timeout":
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		cfg.Sync.Timeout = d
	case "sync.poll_interval", "poll_interval":
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		cfg.Sync.PollInterval = d
	case "sync.tolerance":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Sync.Tolerance = n
	case "sync.max_failures":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		cfg.Sync.MaxFailures = uint32(n)
	case "sync.open_timeout":
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		cfg.Sync.OpenTimeout = d

	// Metrics
	case "metrics.enabled", "metrics":
		cfg.Metrics.Enabled = parseBool(value)

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
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseDuration accepts a Go duration ("30s", "1m") or a bare number of seconds.
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
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
func WriteDefaultConfig(path string, network NetworkType) error {
	def := Default(network)
	content := `# zwalletd configuration

# Network: mainnet, testnet or regtest
network = ` + string(network) + `

# Data directory (default: ~/.zwalletd)
# datadir = ~/.zwalletd

# ============================================================================
# API Server
# ============================================================================

rpc.enabled = true
rpc.addr = 127.0.0.1
rpc.port = ` + defaultRPCPort(network) + `
rpc.allowed = 127.0.0.1
# CORS allowed origins ("*" for all)
# rpc.cors = http://localhost:3000

# ============================================================================
# Wallet
# ============================================================================

# Keystore file, relative to <datadir>/<network>
# wallet.file = wallet.keys

# File holding the keystore password (or set ` + PasswordEnv + `)
# wallet.password_file =

# Label of the account created on first start
wallet.default_account = ` + DefaultAccountLabel + `

# Run watch-only from unified full viewing keys (comma-separated, one per
# account, see zwallet-cli account export-vk). No keystore is opened.
# wallet.viewing_key =

# ============================================================================
# Chain Node
# ============================================================================

node.url = ` + def.Node.URL + `
# node.user =
# node.password =

# ============================================================================
# Sync
# ============================================================================

sync.timeout = 5s
sync.poll_interval = ` + def.Sync.PollInterval.String() + `
# Blocks the node may lag and still count as synced
sync.tolerance = 0
sync.max_failures = 5

# ============================================================================
# Metrics
# ============================================================================

# Serve Prometheus metrics at /metrics on the API port
metrics.enabled = false

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0600)
}
