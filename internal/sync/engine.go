// Package sync provides the orchestrator that replays queued offline writes
// against the backend in dependency order.
package sync

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/gfcamara/eventsync/internal/errors"
	"github.com/gfcamara/eventsync/internal/localid"
	"github.com/gfcamara/eventsync/internal/logging"
	"github.com/gfcamara/eventsync/internal/models"
	"github.com/gfcamara/eventsync/internal/store"
)

// ErrSyncInProgress is returned when a pass is requested while another is
// still running. The second request is a no-op, not queued.
var ErrSyncInProgress = apperrors.New(apperrors.ErrSyncInProgress, "sync already in progress")

// Notifier receives fire-and-forget notifications of attempted remote writes
// for compliance logging. Implementations must tolerate being called
// concurrently; their failures never affect sync outcomes.
type Notifier interface {
	WriteAttempted(kind models.Kind, localID string)
	WriteOutcome(kind models.Kind, localID, serverID string, err error)
}

// ItemError records a single item's replay failure within a pass.
type ItemError struct {
	Kind    models.Kind `json:"kind"`
	LocalID string      `json:"local_id"`
	Err     error       `json:"-"`
	Message string      `json:"error"`
}

// SyncResult aggregates the outcome of one sync pass.
type SyncResult struct {
	Committed map[models.Kind]int `json:"committed"`
	Errors    []ItemError         `json:"errors,omitempty"`
	Deferred  int                 `json:"deferred"`
	StartTime time.Time           `json:"start_time"`
	EndTime   time.Time           `json:"end_time"`
	Duration  time.Duration       `json:"duration"`
}

// Engine is the sync orchestrator. It owns the in-progress guard; the store
// owns queue contents; the resolver is shared across queues within a pass.
type Engine struct {
	store    *store.Store
	resolver *localid.Resolver
	notifier Notifier
	order    []models.Kind

	mu         sync.Mutex
	inProgress bool
}

// NewEngine creates an Engine over a store and resolver. The notifier may be
// nil. The replay order is derived from the declared dependency graph once,
// at construction.
func NewEngine(s *store.Store, resolver *localid.Resolver, notifier Notifier) (*Engine, error) {
	order, err := Order(Dependencies)
	if err != nil {
		return nil, err
	}
	return &Engine{
		store:    s,
		resolver: resolver,
		notifier: notifier,
		order:    order,
	}, nil
}

// Resolver returns the engine's identity resolver.
func (e *Engine) Resolver() *localid.Resolver {
	return e.resolver
}

// InProgress reports whether a sync pass is currently running.
func (e *Engine) InProgress() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inProgress
}

// Sync runs one pass: every queue, in dependency order, items in enqueue
// order. Committed items are evicted; failed or deferred items stay queued
// for the next pass. A second concurrent call returns ErrSyncInProgress
// without starting a pass.
//
// Each remote write is awaited sequentially. Pending volumes are small and
// the incremental resolver updates within the pass are what let a whole
// offline-created chain commit in a single pass.
func (e *Engine) Sync(ctx context.Context, gw Gateway) (*SyncResult, error) {
	e.mu.Lock()
	if e.inProgress {
		e.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	e.inProgress = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inProgress = false
		e.mu.Unlock()
	}()

	result := &SyncResult{
		Committed: make(map[models.Kind]int),
		StartTime: time.Now(),
	}

	// Mark the pass as running without losing the last completed-pass
	// timestamp; observers reading mid-pass still see when the previous
	// pass finished.
	status := e.store.LoadStatus()
	status.Syncing = true
	status.TotalPending = e.store.Count()
	e.store.SaveStatus(status)

	logging.Info("Sync pass started",
		map[string]interface{}{"pending": e.store.Count()})

	for _, kind := range e.order {
		e.syncKind(ctx, gw, kind, result)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	now := result.EndTime
	e.store.SaveStatus(models.SyncStatus{
		LastSyncAt:   &now,
		TotalPending: e.store.Count(),
	})

	logging.Info("Sync pass completed",
		map[string]interface{}{
			"committed": result.Committed,
			"errors":    len(result.Errors),
			"deferred":  result.Deferred,
			"pending":   e.store.Count(),
		})

	return result, nil
}

// syncKind replays one kind's queue in insertion order. Per-item failures are
// collected, never propagated: one failing item must not prevent independent
// items from being attempted.
func (e *Engine) syncKind(ctx context.Context, gw Gateway, kind models.Kind, result *SyncResult) {
	for _, item := range e.store.List(kind) {
		payload, ok := e.rewriteRefs(item)
		if !ok {
			// A referenced entity has not committed yet. Defer, do not
			// fail: the next pass retries once the dependency resolves.
			result.Deferred++
			logging.Debug("Deferred item with unresolved reference",
				map[string]interface{}{"kind": string(kind), "local_id": item.LocalID})
			continue
		}

		e.notifyAttempt(kind, item.LocalID)
		serverID, err := gw.Create(ctx, kind, payload)
		e.notifyOutcome(kind, item.LocalID, serverID, err)

		if err != nil {
			result.Errors = append(result.Errors, ItemError{
				Kind:    kind,
				LocalID: item.LocalID,
				Err:     err,
				Message: err.Error(),
			})
			e.store.MarkAttempt(kind, item.LocalID, err.Error())
			logging.Warn("Replay failed, item stays queued",
				map[string]interface{}{
					"kind":     string(kind),
					"local_id": item.LocalID,
					"error":    err.Error(),
				})
			continue
		}

		if ProducesIdentity(kind) {
			e.resolver.Record(item.LocalID, serverID)
		}
		item.Status = models.StatusCommitted
		item.ServerID = serverID

		if err := e.store.Remove(kind, item.LocalID); err != nil {
			logging.Error("Failed to evict committed item", err,
				map[string]interface{}{"kind": string(kind), "local_id": item.LocalID})
		}
		result.Committed[kind]++
	}
}

// rewriteRefs produces the payload to send: plain fields plus every reference
// field rewritten to its server identifier. It returns ok=false when any
// local reference is still unresolved; a local token never reaches the
// gateway.
func (e *Engine) rewriteRefs(item *models.QueueItem) (map[string]interface{}, bool) {
	payload := make(map[string]interface{}, len(item.Payload)+len(item.Refs))
	for k, v := range item.Payload {
		payload[k] = v
	}

	for field, ref := range item.Refs {
		resolved, ok := e.resolver.ResolveRef(ref)
		if !ok {
			return nil, false
		}
		payload[field] = resolved.ServerID()
	}
	return payload, true
}

// notifyAttempt and notifyOutcome shield the pass from the audit collaborator:
// errors and panics from it are discarded.

func (e *Engine) notifyAttempt(kind models.Kind, localID string) {
	if e.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("Audit notifier panicked",
				map[string]interface{}{"panic": r})
		}
	}()
	e.notifier.WriteAttempted(kind, localID)
}

func (e *Engine) notifyOutcome(kind models.Kind, localID, serverID string, err error) {
	if e.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("Audit notifier panicked",
				map[string]interface{}{"panic": r})
		}
	}()
	e.notifier.WriteOutcome(kind, localID, serverID, err)
}
