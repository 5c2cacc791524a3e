// Package handlers provides the REST surface of the sync daemon: queue
// status, manual sync trigger, pending listings, and audit export.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gfcamara/eventsync/internal/audit"
	apperrors "github.com/gfcamara/eventsync/internal/errors"
	"github.com/gfcamara/eventsync/internal/localid"
	"github.com/gfcamara/eventsync/internal/store"
	enginesync "github.com/gfcamara/eventsync/internal/sync"
	"github.com/gfcamara/eventsync/internal/sync/monitor"
)

// StatusHandler serves the UI-facing read surface.
type StatusHandler struct {
	store   *store.Store
	monitor *monitor.Monitor
	audit   *audit.Logger
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(s *store.Store, m *monitor.Monitor, a *audit.Logger) *StatusHandler {
	return &StatusHandler{
		store:   s,
		monitor: m,
		audit:   a,
	}
}

// Health handles GET /api/health.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","service":"eventsync-syncd"}`))
}

// Status handles GET /api/status. It is a synchronous read with no side
// effects: connectivity state, pending counts, and the last sync outcome.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	byKind := make(map[string]int)
	for kind, count := range h.store.CountByKind() {
		byKind[string(kind)] = count
	}

	status := h.store.LoadStatus()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"online":          h.monitor.IsOnline(),
		"pending_count":   h.store.Count(),
		"pending_by_kind": byKind,
		"degraded":        h.store.Degraded(),
		"last_sync_at":    status.LastSyncAt,
	})
}

// SyncNow handles POST /api/sync: runs a sync pass and returns its result.
// A pass already running yields 409; no connectivity yields 503.
func (h *StatusHandler) SyncNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := h.monitor.SyncNow(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, enginesync.ErrSyncInProgress):
			writeError(w, http.StatusConflict, apperrors.ErrSyncInProgress, err)
		case errors.Is(err, monitor.ErrOffline):
			writeError(w, http.StatusServiceUnavailable, apperrors.ErrSyncOffline, err)
		default:
			writeError(w, http.StatusInternalServerError, apperrors.ErrSyncFailed, err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// PendingEnrollments handles GET /api/enrollments/pending?user=<id>: the
// caller's not-yet-committed enrollments, for UI listings.
func (h *StatusHandler) PendingEnrollments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, apperrors.ErrInvalid,
			apperrors.New(apperrors.ErrInvalid, "missing user query parameter"))
		return
	}

	ref := localid.Server(userID)
	if localid.IsLocal(userID) {
		ref = localid.Local(userID)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"enrollments": h.store.PendingFor(ref),
	})
}

// AuditExport handles GET /api/audit/export: a JSON dump of the audit log.
func (h *StatusHandler) AuditExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-logs.json"`)
	if err := h.audit.ExportJSON(w); err != nil {
		// Headers are already out; nothing left to do but log.
		writeError(w, http.StatusInternalServerError, apperrors.ErrAuditExportFailed, err)
	}
}

// writeError writes a JSON error envelope.
func writeError(w http.ResponseWriter, status int, code apperrors.ErrorCode, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"code":    string(code),
		"message": err.Error(),
	})
}
