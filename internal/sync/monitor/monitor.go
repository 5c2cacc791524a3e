// Package monitor tracks online/offline transitions and triggers
// synchronization on reconnect.
package monitor

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	apperrors "github.com/gfcamara/eventsync/internal/errors"
	"github.com/gfcamara/eventsync/internal/logging"
	"github.com/gfcamara/eventsync/internal/store"
	"github.com/gfcamara/eventsync/internal/sync"
)

// ErrOffline is returned when a sync is requested without connectivity.
// Being offline is the expected steady state, not a failure.
var ErrOffline = apperrors.New(apperrors.ErrSyncOffline, "not connected, sync not attempted")

// Config holds monitor configuration.
type Config struct {
	// SettleDelay is how long a reconnect must hold before a sync is
	// attempted, so a flapping connection does not trigger a pass per flap.
	SettleDelay time.Duration

	// PollInterval is how often the pending count is re-read for observers.
	PollInterval time.Duration
}

// DefaultConfig returns the default monitor configuration.
func DefaultConfig() *Config {
	return &Config{
		SettleDelay:  2 * time.Second,
		PollInterval: 2 * time.Second,
	}
}

// EventHandler receives monitor and sync lifecycle events. Implementations
// must not block; all callbacks are invoked from monitor goroutines.
type EventHandler interface {
	OnConnectivityChanged(online bool)
	OnPendingCount(count int)
	OnSyncStarted()
	OnSyncCompleted(result *sync.SyncResult)
	OnSyncFailed(err error)
}

// Monitor is the connectivity monitor. It funnels both its reconnect trigger
// and any manual trigger through the same engine guard, so two sources can
// never race into two simultaneous passes.
type Monitor struct {
	engine  *sync.Engine
	store   *store.Store
	gateway sync.Gateway
	config  *Config

	mu          gosync.RWMutex
	online      bool
	handler     EventHandler
	settleTimer *time.Timer
	lastPending int
	isRunning   bool
	launched    bool

	baseCtx context.Context
	stopCh  chan struct{}
	wg      gosync.WaitGroup
}

// New creates a Monitor. The monitor starts offline; the platform
// connectivity signal drives it via SetOnline.
func New(engine *sync.Engine, s *store.Store, gateway sync.Gateway, config *Config) *Monitor {
	if config == nil {
		config = DefaultConfig()
	}
	return &Monitor{
		engine:      engine,
		store:       s,
		gateway:     gateway,
		config:      config,
		stopCh:      make(chan struct{}),
		lastPending: -1,
	}
}

// SetEventHandler sets the observer for connectivity and sync events.
func (m *Monitor) SetEventHandler(h EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

// Start launches the pending-count poll loop.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = true
	m.baseCtx = ctx
	m.mu.Unlock()

	m.wg.Add(1)
	go m.pollLoop(ctx)

	logging.Info("Connectivity monitor started", nil)
}

// Stop stops the monitor gracefully.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = false
	if m.settleTimer != nil {
		m.settleTimer.Stop()
		m.settleTimer = nil
	}
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()

	logging.Info("Connectivity monitor stopped", nil)
}

// IsOnline returns the current connectivity state.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// PendingCount returns the number of queued writes across all kinds.
func (m *Monitor) PendingCount() int {
	return m.store.Count()
}

// SetOnline records a connectivity transition. An Offline to Online
// transition with pending items schedules a sync attempt after the settle
// delay; a transition back to Offline cancels a not-yet-fired attempt but
// never aborts a pass already running.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	handler := m.handler

	if !online && m.settleTimer != nil {
		m.settleTimer.Stop()
		m.settleTimer = nil
	}

	var schedule bool
	if online && !wasOnline && m.store.Count() > 0 {
		schedule = true
	}
	if schedule {
		if m.settleTimer != nil {
			m.settleTimer.Stop()
		}
		m.settleTimer = time.AfterFunc(m.config.SettleDelay, func() {
			m.TriggerSync(m.context())
		})
	}
	m.mu.Unlock()

	if wasOnline != online {
		logging.Info("Connectivity changed",
			map[string]interface{}{"was_online": wasOnline, "is_online": online})
		if handler != nil {
			handler.OnConnectivityChanged(online)
		}
	}
}

// TriggerSync starts a sync pass in the background. It returns false without
// starting one when the monitor is offline or a pass is already running, so
// it is safe to call from any number of goroutines at once. The launched flag
// is claimed under the monitor lock before the goroutine spawns, so of any
// number of concurrent callers exactly one reports true.
func (m *Monitor) TriggerSync(ctx context.Context) bool {
	m.mu.Lock()
	if !m.online {
		m.mu.Unlock()
		logging.Debug("Sync not triggered, offline", nil)
		return false
	}
	if m.launched || m.engine.InProgress() {
		m.mu.Unlock()
		logging.Debug("Sync not triggered, pass already running", nil)
		return false
	}
	m.launched = true
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			m.launched = false
			m.mu.Unlock()
		}()
		m.runSync(ctx)
	}()
	return true
}

// SyncNow runs a sync pass synchronously and returns its result. It reports
// ErrOffline without touching the gateway when there is no connectivity, and
// sync.ErrSyncInProgress when a pass is already running.
func (m *Monitor) SyncNow(ctx context.Context) (*sync.SyncResult, error) {
	if !m.IsOnline() {
		return nil, ErrOffline
	}

	m.emitSyncStarted()
	result, err := m.engine.Sync(ctx, m.gateway)
	if err != nil {
		m.emitSyncFailed(err)
		return nil, err
	}
	m.emitSyncCompleted(result)
	return result, nil
}

// runSync executes a background pass triggered by reconnect or TriggerSync.
func (m *Monitor) runSync(ctx context.Context) {
	result, err := m.SyncNow(ctx)
	if err != nil {
		if !errors.Is(err, sync.ErrSyncInProgress) && !errors.Is(err, ErrOffline) {
			logging.Error("Background sync failed", err, nil)
		}
		return
	}

	logging.Info("Background sync finished",
		map[string]interface{}{
			"committed": result.Committed,
			"errors":    len(result.Errors),
		})
}

// pollLoop re-reads the pending count on a fixed interval so UI observers
// stay current even without a connectivity transition.
func (m *Monitor) pollLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			count := m.store.Count()

			m.mu.Lock()
			changed := count != m.lastPending
			m.lastPending = count
			handler := m.handler
			m.mu.Unlock()

			if changed && handler != nil {
				handler.OnPendingCount(count)
			}
		}
	}
}

func (m *Monitor) context() context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.baseCtx != nil {
		return m.baseCtx
	}
	return context.Background()
}

func (m *Monitor) emitSyncStarted() {
	m.mu.RLock()
	handler := m.handler
	m.mu.RUnlock()
	if handler != nil {
		handler.OnSyncStarted()
	}
}

func (m *Monitor) emitSyncCompleted(result *sync.SyncResult) {
	m.mu.RLock()
	handler := m.handler
	m.mu.RUnlock()
	if handler != nil {
		handler.OnSyncCompleted(result)
	}
}

func (m *Monitor) emitSyncFailed(err error) {
	m.mu.RLock()
	handler := m.handler
	m.mu.RUnlock()
	if handler != nil {
		handler.OnSyncFailed(err)
	}
}
