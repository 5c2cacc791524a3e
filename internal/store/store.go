// Package store provides the durable local queue of not-yet-committed writes,
// partitioned by entity kind. The whole queue set is persisted as one blob
// under a single key, so the four queues can never be saved out of step with
// each other.
package store

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gfcamara/eventsync/internal/localid"
	"github.com/gfcamara/eventsync/internal/logging"
	"github.com/gfcamara/eventsync/internal/models"
)

const (
	queuesKey = "offline/queues"
	statusKey = "offline/sync_status"
)

// KV is the persistence medium the store writes through. *db.DB satisfies it.
type KV interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, error)
}

// Store is the local queue store. All methods are safe for concurrent use;
// enqueues are never blocked by an in-progress sync pass.
//
// Persistence is best effort: if the medium cannot be read the
// store starts empty, and if a write fails the store degrades to memory-only
// operation instead of failing the caller. Losing queued writes on a crash is
// preferred to blocking new ones.
type Store struct {
	mu       sync.RWMutex
	kv       KV
	queues   models.QueueSet
	degraded bool
}

// New creates a Store backed by kv and loads any persisted queue state.
// A nil kv yields a memory-only store.
func New(kv KV) *Store {
	s := &Store{kv: kv}
	s.load()
	return s
}

// load reads the persisted queue set. Missing state starts empty; a corrupt
// blob is logged and discarded rather than surfaced.
func (s *Store) load() {
	if s.kv == nil {
		return
	}

	data, err := s.kv.Get(queuesKey)
	if err != nil {
		// Includes db.ErrKeyNotFound on first run.
		return
	}

	var queues models.QueueSet
	if err := json.Unmarshal(data, &queues); err != nil {
		logging.Error("Corrupt offline queue blob, starting empty", err,
			map[string]interface{}{"key": queuesKey})
		return
	}

	s.queues = queues
}

// persist writes the full queue set. On failure the store flips to degraded
// (memory-only) mode and the caller proceeds unblocked.
// Caller must hold s.mu.
func (s *Store) persist() {
	if s.kv == nil || s.degraded {
		return
	}

	data, err := json.Marshal(&s.queues)
	if err != nil {
		logging.Error("Failed to serialize offline queues", err, nil)
		return
	}

	if err := s.kv.Put(queuesKey, data); err != nil {
		s.degraded = true
		logging.Error("Failed to persist offline queues, degrading to memory-only", err,
			map[string]interface{}{"pending": s.queues.Count()})
	}
}

// Enqueue captures a write for later replay. It assigns a fresh local
// identifier, timestamps the item, appends it to the kind's queue, and
// persists the updated queue set before returning. Enqueue never fails the
// caller; the error return exists only for invalid kinds.
func (s *Store) Enqueue(kind models.Kind, payload map[string]interface{}, refs map[string]localid.Ref) (*models.QueueItem, error) {
	if !kind.Valid() {
		return nil, errInvalidKind(kind)
	}

	// Clone detaches the queued item from the caller's maps: a payload is
	// immutable once enqueued, so later edits to the argument must not reach
	// the queue.
	item := (&models.QueueItem{
		LocalID:   localid.New(),
		Kind:      kind,
		Payload:   payload,
		Refs:      refs,
		Status:    models.StatusPending,
		CreatedAt: time.Now().UTC(),
	}).Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.queues.SetQueue(kind, append(s.queues.Queue(kind), item))
	s.persist()

	logging.Info("Enqueued offline write",
		map[string]interface{}{"kind": string(kind), "local_id": item.LocalID})

	return item.Clone(), nil
}

// List returns the kind's queue in insertion order. Items are deep copies;
// a queued payload cannot be edited through the returned slice.
func (s *Store) List(kind models.Kind) []*models.QueueItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queue := s.queues.Queue(kind)
	items := make([]*models.QueueItem, 0, len(queue))
	for _, item := range queue {
		items = append(items, item.Clone())
	}
	return items
}

// Remove evicts a committed item from its queue and persists the change.
func (s *Store) Remove(kind models.Kind, localID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.queues.Queue(kind)
	for i, item := range queue {
		if item.LocalID == localID {
			s.queues.SetQueue(kind, append(queue[:i:i], queue[i+1:]...))
			s.persist()
			return nil
		}
	}
	return errItemNotFound(kind, localID)
}

// MarkAttempt records a failed replay attempt on an item, for diagnostics
// only. Replay remains unbounded; attempts never gate a retry.
func (s *Store) MarkAttempt(kind models.Kind, localID string, lastError string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.queues.Queue(kind) {
		if item.LocalID == localID {
			item.Attempts++
			item.LastError = lastError
			s.persist()
			return
		}
	}
}

// Count returns the total number of pending items across all kinds.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queues.Count()
}

// CountByKind returns the pending count per kind.
func (s *Store) CountByKind() map[models.Kind]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.Kind]int, len(models.AllKinds()))
	for _, kind := range models.AllKinds() {
		counts[kind] = len(s.queues.Queue(kind))
	}
	return counts
}

// PendingFor returns pending enrollments whose user reference matches ref,
// so the UI can show a user's not-yet-committed enrollments.
func (s *Store) PendingFor(ref localid.Ref) []*models.QueueItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []*models.QueueItem
	for _, item := range s.queues.Enrollments {
		if userRef, ok := item.Refs["user_id"]; ok && userRef == ref {
			items = append(items, item.Clone())
		}
	}
	return items
}

// Clear discards all queued writes and resets the sync status blob.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queues = models.QueueSet{}
	s.persist()
	s.SaveStatus(models.SyncStatus{})
	logging.Info("Offline queue cleared", nil)
}

// Degraded reports whether the store has fallen back to memory-only mode
// after a persistence failure.
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// LoadStatus reads the persisted sync status blob. Missing or unreadable
// state yields a zero status.
func (s *Store) LoadStatus() models.SyncStatus {
	var status models.SyncStatus
	if s.kv == nil {
		return status
	}

	data, err := s.kv.Get(statusKey)
	if err != nil {
		return status
	}
	if err := json.Unmarshal(data, &status); err != nil {
		logging.Error("Corrupt sync status blob", err, nil)
		return models.SyncStatus{}
	}
	return status
}

// SaveStatus persists the sync status blob, best effort.
func (s *Store) SaveStatus(status models.SyncStatus) {
	if s.kv == nil {
		return
	}

	data, err := json.Marshal(status)
	if err != nil {
		logging.Error("Failed to serialize sync status", err, nil)
		return
	}
	if err := s.kv.Put(statusKey, data); err != nil {
		logging.Error("Failed to persist sync status", err, nil)
	}
}
