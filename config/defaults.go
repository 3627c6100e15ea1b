package config

import (
	"net"
	"strconv"
	"time"
)

// DefaultAccountLabel labels the account created on first start.
const DefaultAccountLabel = "default"

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       8000,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Wallet: WalletConfig{
			DefaultAccount: DefaultAccountLabel,
		},
		Node: NodeConfig{
			URL: "http://127.0.0.1:8232",
		},
		Sync: SyncConfig{
			Timeout:      5 * time.Second,
			PollInterval: 30 * time.Second,
			Tolerance:    0,
			MaxFailures:  5,
			OpenTimeout:  15 * time.Second,
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
	cfg.Network = Testnet
	cfg.RPC.Port = 18000
	cfg.Node.URL = "http://127.0.0.1:18232"
	return cfg
}

// DefaultRegtest returns the default configuration for regtest.
func DefaultRegtest() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Regtest
	cfg.RPC.Port = 18500
	cfg.Node.URL = "http://127.0.0.1:18344"
	cfg.Sync.PollInterval = 5 * time.Second
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	case Regtest:
		return DefaultRegtest()
	default:
		return DefaultMainnet()
	}
}

func defaultRPCPort(network NetworkType) string {
	return strconv.Itoa(Default(network).RPC.Port)
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
