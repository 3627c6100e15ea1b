package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Version is the daemon version reported by --version.
const Version = "0.1.0"

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// RPC
	RPC        bool
	RPCAddr    string
	RPCPort    int
	RPCAllowed string
	RPCCORS    string

	// Wallet
	WalletFile     string
	PasswordFile   string
	DefaultAccount string
	ViewingKeys    string

	// Node
	NodeURL      string
	NodeUser     string
	NodePassword string

	// Sync
	SyncTimeout  time.Duration
	PollInterval time.Duration
	Tolerance    uint64
	OpenTimeout  time.Duration

	// Metrics
	Metrics bool

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set flags (for true/false and zero-value overrides).
	SetRPC       bool
	SetMetrics   bool
	SetLogJSON   bool
	SetTolerance bool
}

// ParseFlags parses os.Args. It exits on parse errors.
func ParseFlags() *Flags {
	f, err := ParseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage()
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return f
}

// ParseArgs parses command-line arguments.
func ParseArgs(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("zwalletd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet, testnet or regtest)")
	testnet := fs.Bool("testnet", false, "Use testnet (shorthand for --network=testnet)")
	regtest := fs.Bool("regtest", false, "Use regtest (shorthand for --network=regtest)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// RPC
	fs.BoolVar(&f.RPC, "rpc", true, "Enable API server")
	fs.StringVar(&f.RPCAddr, "rpc-addr", "", "API listen address")
	fs.IntVar(&f.RPCPort, "rpc-port", 0, "API listen port")
	fs.StringVar(&f.RPCAllowed, "rpc-allowed", "", "Allowed IPs for the API")
	fs.StringVar(&f.RPCCORS, "rpc-cors", "", "Allowed CORS origins (comma-separated)")

	// Wallet
	fs.StringVar(&f.WalletFile, "wallet-file", "", "Keystore file path")
	fs.StringVar(&f.PasswordFile, "password-file", "", "File holding the keystore password")
	fs.StringVar(&f.DefaultAccount, "default-account", "", "Label of the account created on first start")
	fs.StringVar(&f.ViewingKeys, "viewing-key", "", "Unified full viewing keys for watch-only mode (comma-separated)")

	// Node
	fs.StringVar(&f.NodeURL, "node-url", "", "Chain node JSON-RPC URL")
	fs.StringVar(&f.NodeUser, "node-user", "", "Chain node RPC user")
	fs.StringVar(&f.NodePassword, "node-password", "", "Chain node RPC password")

	// Sync
	fs.DurationVar(&f.SyncTimeout, "sync-timeout", 0, "Chain node query timeout")
	fs.DurationVar(&f.PollInterval, "poll-interval", 0, "Sync status poll interval")
	fs.Uint64Var(&f.Tolerance, "sync-tolerance", 0, "Blocks behind still counted as synced")
	fs.DurationVar(&f.OpenTimeout, "sync-open-timeout", 0, "Wait before querying a node again after repeated failures")

	// Metrics
	fs.BoolVar(&f.Metrics, "metrics", false, "Serve Prometheus metrics at /metrics")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *testnet {
		f.Network = string(Testnet)
	}
	if *regtest {
		f.Network = string(Regtest)
	}
	f.SetRPC = isFlagSet(fs, "rpc")
	f.SetMetrics = isFlagSet(fs, "metrics")
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.SetTolerance = isFlagSet(fs, "sync-tolerance")

	f.Args = fs.Args()

	// Detect unparsed flags caused by positional arguments stopping the parser.
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %q was not parsed (positional argument stopped parsing)", arg)
		}
	}

	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(f.Network)
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
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

	// Wallet
	if f.WalletFile != "" {
		cfg.Wallet.FilePath = f.WalletFile
	}
	if f.PasswordFile != "" {
		cfg.Wallet.PasswordFile = f.PasswordFile
	}
	if f.DefaultAccount != "" {
		cfg.Wallet.DefaultAccount = f.DefaultAccount
	}
	if f.ViewingKeys != "" {
		cfg.Wallet.ViewingKeys = parseStringList(f.ViewingKeys)
	}

	// Node
	if f.NodeURL != "" {
		cfg.Node.URL = f.NodeURL
	}
	if f.NodeUser != "" {
		cfg.Node.User = f.NodeUser
	}
	if f.NodePassword != "" {
		cfg.Node.Password = f.NodePassword
	}

	// Sync
	if f.SyncTimeout != 0 {
		cfg.Sync.Timeout = f.SyncTimeout
	}
	if f.PollInterval != 0 {
		cfg.Sync.PollInterval = f.PollInterval
	}
	if f.SetTolerance {
		cfg.Sync.Tolerance = f.Tolerance
	}
	if f.OpenTimeout != 0 {
		cfg.Sync.OpenTimeout = f.OpenTimeout
	}

	// Metrics
	if f.SetMetrics {
		cfg.Metrics.Enabled = f.Metrics
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

func printUsage() {
	usage := `zwalletd - account and address daemon for unified and sapling wallets

Usage:
  zwalletd [options]
  zwalletd --help

Commands:
  --help, -h      Show this help message
  --version, -v   Show version information

Core Options:
  --network       Network type: mainnet (default), testnet or regtest
  --testnet       Shorthand for --network=testnet
  --regtest       Shorthand for --network=regtest
  --datadir       Data directory (default: ~/.zwalletd)
  --config, -c    Config file path (default: <datadir>/zwalletd.conf)

API Options:
  --rpc           Enable API server (default: true)
  --rpc-addr      API listen address (default: 127.0.0.1)
  --rpc-port      API port (mainnet: 8000, testnet: 18000, regtest: 18500)
  --rpc-allowed   Allowed IPs (comma-separated)
  --rpc-cors      Allowed CORS origins (comma-separated)

Wallet Options:
  --wallet-file       Keystore file (default: <datadir>/<network>/wallet.keys)
  --password-file     File holding the keystore password
                      (or set ` + PasswordEnv + `)
  --default-account   Label of the account created on first start
  --viewing-key       Unified full viewing keys, one per account
                      (comma-separated); runs watch-only

Node Options:
  --node-url        Chain node JSON-RPC URL
  --node-user       Chain node RPC user
  --node-password   Chain node RPC password

Sync Options:
  --sync-timeout     Node query timeout (default: 5s)
  --poll-interval    Sync status poll interval (default: 30s)
  --sync-tolerance   Blocks behind still counted as synced (default: 0)

Metrics Options:
  --metrics       Serve Prometheus metrics at /metrics

Logging Options:
  --log-level     Log level: trace, debug, info, warn, error (default: info)
  --log-file      Log file path (default: stdout)
  --log-json      Output logs as JSON

Examples:
  # Create a wallet, then start the daemon
  zwallet-cli init --regtest
  ZWALLET_PASSWORD=... zwalletd --regtest

  # Point at a remote node
  zwalletd --node-url=http://10.0.0.5:8232 --node-user=rpc --node-password=secret
`
	fmt.Print(usage)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load() (*Config, *Flags, error) {
	flags := ParseFlags()

	// Handle help/version
	if flags.Help {
		printUsage()
		os.Exit(0)
	}
	if flags.Version {
		fmt.Println("zwalletd version " + Version)
		os.Exit(0)
	}

	cfg, err := LoadWithFlags(flags)
	if err != nil {
		return nil, nil, err
	}
	return cfg, flags, nil
}

// LoadWithFlags builds the configuration from defaults, the config file and
// already parsed flags.
func LoadWithFlags(flags *Flags) (*Config, error) {
	// Determine network first (needed for defaults)
	network := Mainnet
	if flags.Network != "" {
		network = NetworkType(strings.ToLower(flags.Network))
	}

	// Start with defaults
	cfg := Default(network)

	// Override datadir if specified
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	// Auto-create data directories and default config on first start.
	if err := EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	// Determine config file path
	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	// Load config file
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}

	// Apply file config
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, fmt.Errorf("applying config file: %w", err)
	}

	// Apply flags (highest precedence)
	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := os.MkdirAll(cfg.NetworkDataDir(), 0700); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", cfg.NetworkDataDir(), err)
	}

	return cfg, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Safe to call on every startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.DBDir(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	// Create default config if it doesn't exist.
	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
