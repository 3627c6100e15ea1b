// Package chainsync reports how far the wallet's view of the chain is behind
// the network, as seen by a full node.
package chainsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/Klingon-tech/zwalletd/internal/log"
	"github.com/Klingon-tech/zwalletd/internal/rpcclient"
)

// ErrNodeUnavailable is returned when the chain node cannot be queried:
// transport failure, timeout, malformed reply or an open circuit breaker.
var ErrNodeUnavailable = errors.New("chain node unavailable")

// Defaults.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxFailures = 5
	DefaultOpenTimeout = 15 * time.Second
)

// NodeClient is the chain node query used by the tracker.
type NodeClient interface {
	GetBlockchainInfo(ctx context.Context) (*rpcclient.BlockchainInfo, error)
}

// Observer receives every status query outcome.
type Observer interface {
	SyncObserved(s *Snapshot)
	SyncFailed()
}

// Snapshot is the sync state at the moment of the query.
type Snapshot struct {
	Height       uint64 `json:"height"`
	TargetHeight uint64 `json:"target_height"`
	Synced       bool   `json:"synced"`
}

// Behind returns how many blocks the node is behind the target.
func (s *Snapshot) Behind() uint64 {
	if s.TargetHeight <= s.Height {
		return 0
	}
	return s.TargetHeight - s.Height
}

// Config configures a Tracker.
type Config struct {
	// Timeout bounds one node round trip.
	Timeout time.Duration
	// Tolerance is the number of blocks the node may lag and still count
	// as synced. Zero requires equality.
	Tolerance uint64
	// MaxFailures consecutive failures open the circuit breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before trying the node again.
	OpenTimeout time.Duration
	Observer    Observer
}

func (c *Config) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxFailures == 0 {
		c.MaxFailures = DefaultMaxFailures
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = DefaultOpenTimeout
	}
}

// Tracker queries the chain node for sync status. Every call performs a
// fresh round trip; concurrent calls share one in-flight query.
type Tracker struct {
	node    NodeClient
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	group   singleflight.Group
}

// NewTracker creates a tracker for node.
func NewTracker(node NodeClient, cfg Config) *Tracker {
	cfg.setDefaults()
	t := &Tracker{node: node, cfg: cfg}
	t.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "chain-node",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Sync.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Node circuit breaker state changed")
		},
	})
	return t
}

// BreakerState returns the circuit breaker state.
func (t *Tracker) BreakerState() gobreaker.State {
	return t.breaker.State()
}

// GetSyncStatus queries the node and returns the current snapshot.
func (t *Tracker) GetSyncStatus(ctx context.Context) (*Snapshot, error) {
	ch := t.group.DoChan("status", func() (interface{}, error) {
		// Shared by every waiter, so it must outlive any single caller.
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.cfg.Timeout)
		defer cancel()
		return t.breaker.Execute(func() (interface{}, error) {
			return t.query(qctx)
		})
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrNodeUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			if t.cfg.Observer != nil {
				t.cfg.Observer.SyncFailed()
			}
			if errors.Is(res.Err, ErrNodeUnavailable) {
				return nil, res.Err
			}
			return nil, fmt.Errorf("%w: %v", ErrNodeUnavailable, res.Err)
		}
		snap := *res.Val.(*Snapshot)
		if t.cfg.Observer != nil {
			t.cfg.Observer.SyncObserved(&snap)
		}
		return &snap, nil
	}
}

// Height returns the node's best block height.
func (t *Tracker) Height(ctx context.Context) (uint64, error) {
	snap, err := t.GetSyncStatus(ctx)
	if err != nil {
		return 0, err
	}
	return snap.Height, nil
}

func (t *Tracker) query(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	info, err := t.node.GetBlockchainInfo(ctx)
	if err != nil {
		log.Sync.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("Node query failed")
		return nil, err
	}
	snap := &Snapshot{
		Height:       info.Blocks,
		TargetHeight: info.TargetHeight(),
	}
	snap.Synced = snap.Behind() <= t.cfg.Tolerance
	return snap, nil
}
