package chainsync

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/Klingon-tech/zwalletd/internal/log"
)

// DefaultPollInterval is the monitor's default polling period.
const DefaultPollInterval = 30 * time.Second

// Monitor polls the tracker on a schedule and logs sync progress.
type Monitor struct {
	tracker   *Tracker
	interval  time.Duration
	scheduler *gocron.Scheduler

	mu      sync.Mutex
	last    *Snapshot
	lastErr error
	started bool
}

// NewMonitor creates a monitor polling tracker every interval.
func NewMonitor(tracker *Tracker, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		tracker:   tracker,
		interval:  interval,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Start schedules the poll job. The first poll runs immediately.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}
	if _, err := m.scheduler.Every(m.interval).SingletonMode().Do(m.poll); err != nil {
		return err
	}
	m.scheduler.StartAsync()
	m.started = true
	log.Sync.Info().Dur("interval", m.interval).Msg("Sync monitor started")
	return nil
}

// Stop halts polling and waits for a running poll to return.
func (m *Monitor) Stop() {
	m.mu.Lock()
	started := m.started
	m.started = false
	m.mu.Unlock()
	if started {
		m.scheduler.Stop()
	}
}

// Last returns the outcome of the most recent poll. Both are nil before the
// first poll completes.
func (m *Monitor) Last() (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return nil, m.lastErr
	}
	snap := *m.last
	return &snap, m.lastErr
}

func (m *Monitor) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), m.tracker.cfg.Timeout)
	defer cancel()

	snap, err := m.tracker.GetSyncStatus(ctx)

	m.mu.Lock()
	prev, prevErr := m.last, m.lastErr
	if err != nil {
		m.lastErr = err
	} else {
		m.last, m.lastErr = snap, nil
	}
	m.mu.Unlock()

	switch {
	case err != nil:
		if prevErr == nil {
			log.Sync.Warn().Err(err).Msg("Chain node unreachable")
		}
	case prevErr != nil:
		log.Sync.Info().Uint64("height", snap.Height).Msg("Chain node reachable again")
		fallthrough
	case prev == nil || prev.Synced != snap.Synced:
		if snap.Synced {
			log.Sync.Info().Uint64("height", snap.Height).Msg("Node is synced")
		} else {
			log.Sync.Info().
				Uint64("height", snap.Height).
				Uint64("target", snap.TargetHeight).
				Uint64("behind", snap.Behind()).
				Msg("Node is syncing")
		}
	default:
		log.Sync.Debug().
			Uint64("height", snap.Height).
			Uint64("target", snap.TargetHeight).
			Msg("Sync status")
	}
}
