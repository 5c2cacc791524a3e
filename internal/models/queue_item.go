package models

import (
	"time"

	"github.com/gfcamara/eventsync/internal/localid"
)

// Status represents the lifecycle state of a queued write.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCommitted Status = "committed"
)

// QueueItem represents one pending write captured while offline.
//
// Payload holds the write's plain fields; Refs holds every field that
// references another entity, keyed by field name. Keeping references out of
// Payload means the sync engine never has to guess which payload values are
// identities, and a local token can never leak to the gateway unnoticed.
type QueueItem struct {
	LocalID   string                 `json:"local_id"`
	Kind      Kind                   `json:"kind"`
	Payload   map[string]interface{} `json:"payload"`
	Refs      map[string]localid.Ref `json:"refs,omitempty"`
	Status    Status                 `json:"status"`
	CreatedAt time.Time              `json:"created_at"`

	// Attempts and LastError are diagnostics only. Replay is unbounded:
	// they never gate a retry.
	Attempts  int    `json:"attempts,omitempty"`
	LastError string `json:"last_error,omitempty"`

	// ServerID is populated transiently during a sync pass, after the remote
	// write succeeds and before the item is evicted. It is never persisted.
	ServerID string `json:"-"`
}

// Clone returns a deep copy of the item. Queued payloads are immutable; the
// store hands out clones so callers cannot edit a queued write in place.
func (i *QueueItem) Clone() *QueueItem {
	c := *i
	if i.Payload != nil {
		c.Payload = make(map[string]interface{}, len(i.Payload))
		for k, v := range i.Payload {
			c.Payload[k] = v
		}
	}
	if i.Refs != nil {
		c.Refs = make(map[string]localid.Ref, len(i.Refs))
		for k, v := range i.Refs {
			c.Refs[k] = v
		}
	}
	return &c
}

// QueueSet is the full queue state, one ordered sequence per kind, persisted
// as a single unit so a crash mid-write cannot leave one queue updated and
// another stale.
type QueueSet struct {
	Users              []*QueueItem `json:"users"`
	Enrollments        []*QueueItem `json:"enrollments"`
	Attendances        []*QueueItem `json:"attendances"`
	NotificationEmails []*QueueItem `json:"notification_emails"`
}

// Queue returns the queue for a kind. Unknown kinds return nil.
func (s *QueueSet) Queue(kind Kind) []*QueueItem {
	switch kind {
	case KindUser:
		return s.Users
	case KindEnrollment:
		return s.Enrollments
	case KindAttendance:
		return s.Attendances
	case KindNotificationEmail:
		return s.NotificationEmails
	}
	return nil
}

// SetQueue replaces the queue for a kind.
func (s *QueueSet) SetQueue(kind Kind, items []*QueueItem) {
	switch kind {
	case KindUser:
		s.Users = items
	case KindEnrollment:
		s.Enrollments = items
	case KindAttendance:
		s.Attendances = items
	case KindNotificationEmail:
		s.NotificationEmails = items
	}
}

// Count returns the total number of items across all queues.
func (s *QueueSet) Count() int {
	return len(s.Users) + len(s.Enrollments) + len(s.Attendances) + len(s.NotificationEmails)
}
