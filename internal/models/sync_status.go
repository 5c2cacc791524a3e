package models

import "time"

// SyncStatus is the persisted synchronization status blob, kept alongside the
// queues so UI observers can show the last outcome across restarts.
type SyncStatus struct {
	Syncing      bool       `json:"syncing"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	TotalPending int        `json:"total_pending"`
}
