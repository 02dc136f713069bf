// SPDX-License-Identifier: LGPL-3.0-or-later

// Package reaper implements StaleReaper: a periodic task that transitions
// handshakes stuck in INITIALIZING past a deadline to FAILED and expires
// pending secrets, per spec §4.7.
package reaper

import (
	"sync"
	"time"

	"github.com/0xEodum/NativeLayer/internal/logger"
	"github.com/0xEodum/NativeLayer/internal/metrics"
	"github.com/0xEodum/NativeLayer/pending"
	"github.com/0xEodum/NativeLayer/store"
)

// Config controls the reaper's cadence and thresholds.
type Config struct {
	// Interval is how often the reaper runs. Default 60s.
	Interval time.Duration
	// MaxChatAge is how long a chat may remain INITIALIZING. Default 30m.
	MaxChatAge time.Duration
	// MaxPendingAge is how long a pending secret may remain unclaimed.
	// Default 5m.
	MaxPendingAge time.Duration
}

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() Config {
	return Config{
		Interval:      60 * time.Second,
		MaxChatAge:    30 * time.Minute,
		MaxPendingAge: 5 * time.Minute,
	}
}

// Reaper periodically calls ChatStore.ReapStale and PendingSecretTable.Expire.
type Reaper struct {
	store   *store.Store
	pending *pending.Table
	cfg     Config
	log     logger.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	lastRun time.Time
}

// New creates a Reaper. Call Start to begin the background loop.
func New(st *store.Store, pt *pending.Table, cfg Config, log logger.Logger) *Reaper {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Reaper{
		store:   st,
		pending: pt,
		cfg:     cfg,
		log:     log,
		stop:    make(chan struct{}),
	}
}

// Start launches the background reap loop on cfg.Interval.
func (r *Reaper) Start() {
	r.ticker = time.NewTicker(r.cfg.Interval)
	r.wg.Add(1)
	go r.run()
}

// Stop halts the background loop and waits for it to exit.
func (r *Reaper) Stop() {
	close(r.stop)
	if r.ticker != nil {
		r.ticker.Stop()
	}
	r.wg.Wait()
}

func (r *Reaper) run() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ticker.C:
			r.RunOnce()
		case <-r.stop:
			return
		}
	}
}

// RunOnce executes a single reap pass: stale INITIALIZING chats are
// marked FAILED and unclaimed pending secrets older than MaxPendingAge
// are zeroized and removed. It is exported so tests and the CLI can drive
// a deterministic pass without waiting on the ticker.
func (r *Reaper) RunOnce() {
	defer func() {
		r.mu.Lock()
		r.lastRun = time.Now()
		r.mu.Unlock()
	}()

	chatsReaped, err := r.store.ReapStale(r.cfg.MaxChatAge)
	if err != nil {
		r.log.Error("stale reap failed", logger.Error(err))
	} else if chatsReaped > 0 {
		r.log.Info("reaped stale chats", logger.Int("count", chatsReaped))
		metrics.ChatsReaped.Add(float64(chatsReaped))
	}

	if expired := r.pending.Expire(r.cfg.MaxPendingAge); expired > 0 {
		r.log.Info("expired pending secrets", logger.Int("count", expired))
		metrics.PendingSecretsExpired.Add(float64(expired))
	}
}

// LastRun returns the time of the most recently completed reap pass, or
// the zero Time if RunOnce has never been called. Used by the health
// package to detect a stalled reaper.
func (r *Reaper) LastRun() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun
}
