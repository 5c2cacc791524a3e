// Package audit records attempted remote writes and their outcomes for
// compliance logging. It is a passive observer of the sync engine: every
// entry point is best effort and failures are logged and discarded, never
// surfaced to the caller.
package audit

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gfcamara/eventsync/internal/logging"
	"github.com/gfcamara/eventsync/internal/models"
)

const (
	logsKey = "audit/logs"

	// maxEntries bounds the in-memory ring; the oldest entries are dropped.
	maxEntries = 1000
)

// Outcome classifies an audited write attempt.
type Outcome string

const (
	OutcomeAttempted Outcome = "attempted"
	OutcomeCommitted Outcome = "committed"
	OutcomeFailed    Outcome = "failed"
)

// Entry is one audit record.
type Entry struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Kind      models.Kind `json:"kind"`
	LocalID   string      `json:"local_id"`
	ServerID  string      `json:"server_id,omitempty"`
	Outcome   Outcome     `json:"outcome"`
	Detail    string      `json:"detail,omitempty"`
}

// KV is the optional persistence medium for the audit ring.
type KV interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, error)
}

// Logger is the audit logger. It implements sync.Notifier.
type Logger struct {
	mu      sync.Mutex
	kv      KV
	entries []Entry
}

// NewLogger creates an audit logger. A nil kv keeps the ring in memory only.
func NewLogger(kv KV) *Logger {
	l := &Logger{kv: kv}
	l.load()
	return l
}

func (l *Logger) load() {
	if l.kv == nil {
		return
	}
	data, err := l.kv.Get(logsKey)
	if err != nil {
		return
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		logging.Warn("Corrupt audit log blob, starting empty", nil)
		return
	}
	l.entries = entries
}

// WriteAttempted implements sync.Notifier.
func (l *Logger) WriteAttempted(kind models.Kind, localID string) {
	l.append(Entry{
		Kind:    kind,
		LocalID: localID,
		Outcome: OutcomeAttempted,
	})
}

// WriteOutcome implements sync.Notifier.
func (l *Logger) WriteOutcome(kind models.Kind, localID, serverID string, err error) {
	entry := Entry{
		Kind:     kind,
		LocalID:  localID,
		ServerID: serverID,
		Outcome:  OutcomeCommitted,
	}
	if err != nil {
		entry.Outcome = OutcomeFailed
		entry.Detail = err.Error()
	}
	l.append(entry)
}

func (l *Logger) append(entry Entry) {
	entry.ID = uuid.New().String()
	entry.Timestamp = time.Now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	if len(l.entries) > maxEntries {
		l.entries = l.entries[len(l.entries)-maxEntries:]
	}
	l.persist()
}

// persist writes the ring, best effort. Caller must hold l.mu.
func (l *Logger) persist() {
	if l.kv == nil {
		return
	}
	data, err := json.Marshal(l.entries)
	if err != nil {
		logging.Warn("Failed to serialize audit log", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := l.kv.Put(logsKey, data); err != nil {
		logging.Warn("Failed to persist audit log", map[string]interface{}{"error": err.Error()})
	}
}

// Entries returns a copy of the recorded entries, oldest first.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// ExportJSON writes the recorded entries to w as a JSON array.
func (l *Logger) ExportJSON(w io.Writer) error {
	entries := l.Entries()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
