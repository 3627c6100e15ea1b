// Package node wires the wallet daemon together: keystore, account index,
// chain node tracking and the API server.
package node

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Klingon-tech/zwalletd/config"
	"github.com/Klingon-tech/zwalletd/internal/accounts"
	"github.com/Klingon-tech/zwalletd/internal/chainsync"
	klog "github.com/Klingon-tech/zwalletd/internal/log"
	"github.com/Klingon-tech/zwalletd/internal/metrics"
	"github.com/Klingon-tech/zwalletd/internal/rpc"
	"github.com/Klingon-tech/zwalletd/internal/rpcclient"
	"github.com/Klingon-tech/zwalletd/internal/storage"
	"github.com/Klingon-tech/zwalletd/pkg/address"
	"github.com/Klingon-tech/zwalletd/pkg/types"
	"github.com/rs/zerolog"
)

// Node is a fully-initialized wallet daemon.
type Node struct {
	cfg    *config.Config
	params *types.Network
	logger zerolog.Logger

	// Storage
	badger *storage.BadgerDB
	store  *accounts.Store

	// Chain node
	client  *rpcclient.Client
	tracker *chainsync.Tracker
	monitor *chainsync.Monitor

	// API
	rpcServer *rpc.Server
	metrics   *metrics.Metrics
}

// New creates and initializes a new Node. It opens the keystore and the
// account database but does NOT start the API server or the sync monitor.
// Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Network ──────────────────────────────────────────────────
	params, err := cfg.Params()
	if err != nil {
		return nil, err
	}

	// ── 2. Init logger ──────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "zwalletd.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")

	logger.Info().
		Str("network", params.String()).
		Str("datadir", cfg.DataDir).
		Str("node", cfg.Node.URL).
		Msg("Starting wallet daemon")

	// ── 3. Keystore ─────────────────────────────────────────────────
	engine, err := loadEngine(cfg, params)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}
	logger.Info().
		Str("fingerprint", engine.Fingerprint()).
		Bool("watch_only", engine.WatchOnly()).
		Msg("Wallet unlocked")

	// ── 4. Open storage ─────────────────────────────────────────────
	bdb, err := storage.NewBadger(cfg.DBDir())
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.DBDir(), err)
	}
	db := storage.NewPrefixDB(bdb, []byte(params.String()+"/"))
	logger.Info().Str("path", cfg.DBDir()).Msg("Database opened")

	// ── 5. Metrics ──────────────────────────────────────────────────
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// ── 6. Account index ────────────────────────────────────────────
	opts := accounts.Options{}
	if m != nil {
		opts.Observer = m
	}
	store, err := accounts.Open(db, engine, address.NewEncoder(params), opts)
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("open account index: %w", err)
	}
	def, created, err := store.EnsureDefaultAccount(cfg.Wallet.DefaultAccount)
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("default account: %w", err)
	}
	if created {
		logger.Info().Str("label", def.Label).Msg("Default account created")
	}
	if m != nil {
		m.SetAccounts(store.AccountCount())
	}
	logger.Info().
		Int("accounts", store.AccountCount()).
		Int("addresses", store.AddressCount()).
		Msg("Account index loaded")

	// ── 7. Chain node tracking ──────────────────────────────────────
	clientOpts := []rpcclient.Option{rpcclient.WithTimeout(cfg.Sync.Timeout)}
	if cfg.Node.User != "" || cfg.Node.Password != "" {
		clientOpts = append(clientOpts, rpcclient.WithBasicAuth(cfg.Node.User, cfg.Node.Password))
	}
	client := rpcclient.New(cfg.Node.URL, clientOpts...)

	syncCfg := chainsync.Config{
		Timeout:     cfg.Sync.Timeout,
		Tolerance:   cfg.Sync.Tolerance,
		OpenTimeout: cfg.Sync.OpenTimeout,
		MaxFailures: cfg.Sync.MaxFailures,
	}
	if m != nil {
		syncCfg.Observer = m
	}
	tracker := chainsync.NewTracker(client, syncCfg)
	monitor := chainsync.NewMonitor(tracker, cfg.Sync.PollInterval)

	n := &Node{
		cfg:     cfg,
		params:  params,
		logger:  logger,
		badger:  bdb,
		store:   store,
		client:  client,
		tracker: tracker,
		monitor: monitor,
		metrics: m,
	}

	// ── 8. API server ───────────────────────────────────────────────
	if cfg.RPC.Enabled {
		n.rpcServer = rpc.New(cfg.RPCListenAddr(), store, tracker, address.NewEncoder(params), cfg.RPC)
		if m != nil {
			n.rpcServer.SetMetrics(m)
		}
	}

	return n, nil
}

// Start binds the API server and begins polling the chain node.
func (n *Node) Start() error {
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return fmt.Errorf("start API server: %w", err)
		}
	}
	if err := n.monitor.Start(); err != nil {
		return fmt.Errorf("start sync monitor: %w", err)
	}

	n.logger.Info().
		Str("api", n.RPCAddr()).
		Bool("metrics", n.metrics != nil).
		Dur("poll_interval", n.cfg.Sync.PollInterval).
		Msg("Wallet daemon started successfully")
	return nil
}

// Stop performs graceful shutdown in reverse order.
func (n *Node) Stop() {
	n.monitor.Stop()

	if n.rpcServer != nil {
		if err := n.rpcServer.Stop(); err != nil {
			n.logger.Warn().Err(err).Msg("API server shutdown")
		}
	}
	if n.badger != nil {
		if err := n.badger.Close(); err != nil {
			n.logger.Warn().Err(err).Msg("Database close")
		}
	}

	n.logger.Info().Msg("Goodbye!")
}

// RPCAddr returns the address the API server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Accounts returns the account index.
func (n *Node) Accounts() *accounts.Store {
	return n.store
}

// Sync returns the chain node tracker.
func (n *Node) Sync() *chainsync.Tracker {
	return n.tracker
}

// Network returns the network the daemon runs on.
func (n *Node) Network() *types.Network {
	return n.params
}
