package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gfcamara/eventsync/internal/audit"
	"github.com/gfcamara/eventsync/internal/localid"
	"github.com/gfcamara/eventsync/internal/models"
	"github.com/gfcamara/eventsync/internal/store"
	enginesync "github.com/gfcamara/eventsync/internal/sync"
	"github.com/gfcamara/eventsync/internal/sync/monitor"
)

// stubGateway commits every write, optionally blocking first.
type stubGateway struct {
	started chan struct{}
	block   chan struct{}
}

func (g *stubGateway) Create(ctx context.Context, kind models.Kind, payload map[string]interface{}) (string, error) {
	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.block != nil {
		<-g.block
	}
	return "SRV-1", nil
}

func setupHandler(t *testing.T, gw enginesync.Gateway) (*StatusHandler, *store.Store, *monitor.Monitor) {
	t.Helper()

	s := store.New(nil)
	engine, err := enginesync.NewEngine(s, localid.NewResolver(), nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	m := monitor.New(engine, s, gw, nil)
	h := NewStatusHandler(s, m, audit.NewLogger(nil))
	return h, s, m
}

func TestHealth(t *testing.T) {
	h, _, _ := setupHandler(t, &stubGateway{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	h, s, _ := setupHandler(t, &stubGateway{})
	s.Enqueue(models.KindUser, nil, nil)
	s.Enqueue(models.KindEnrollment, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}

	if body["online"] != false {
		t.Errorf("online = %v, want false", body["online"])
	}
	if body["pending_count"] != float64(2) {
		t.Errorf("pending_count = %v, want 2", body["pending_count"])
	}

	byKind, ok := body["pending_by_kind"].(map[string]interface{})
	if !ok || byKind["user"] != float64(1) {
		t.Errorf("pending_by_kind = %v, want user:1", body["pending_by_kind"])
	}
}

func TestSyncNow_methodNotAllowed(t *testing.T) {
	h, _, _ := setupHandler(t, &stubGateway{})

	req := httptest.NewRequest(http.MethodGet, "/api/sync", nil)
	rec := httptest.NewRecorder()
	h.SyncNow(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestSyncNow_offline(t *testing.T) {
	h, s, _ := setupHandler(t, &stubGateway{})
	s.Enqueue(models.KindUser, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	rec := httptest.NewRecorder()
	h.SyncNow(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestSyncNow_success(t *testing.T) {
	h, s, m := setupHandler(t, &stubGateway{})
	s.Enqueue(models.KindUser, map[string]interface{}{"name": "Ana"}, nil)
	m.SetOnline(true)

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	rec := httptest.NewRecorder()
	h.SyncNow(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var result enginesync.SyncResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if result.Committed[models.KindUser] != 1 {
		t.Errorf("committed[user] = %d, want 1", result.Committed[models.KindUser])
	}
	if s.Count() != 0 {
		t.Errorf("pending count = %d, want 0", s.Count())
	}
}

func TestSyncNow_conflictWhileRunning(t *testing.T) {
	gw := &stubGateway{
		started: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}
	h, s, m := setupHandler(t, gw)
	s.Enqueue(models.KindUser, nil, nil)
	m.SetOnline(true)

	done := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
		rec := httptest.NewRecorder()
		h.SyncNow(rec, req)
		done <- rec.Code
	}()

	<-gw.started

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	rec := httptest.NewRecorder()
	h.SyncNow(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("concurrent sync status = %d, want 409", rec.Code)
	}

	close(gw.block)
	select {
	case code := <-done:
		if code != http.StatusOK {
			t.Errorf("first sync status = %d, want 200", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first sync request never finished")
	}
}

func TestPendingEnrollments(t *testing.T) {
	h, s, _ := setupHandler(t, &stubGateway{})

	user, _ := s.Enqueue(models.KindUser, map[string]interface{}{"name": "Ana"}, nil)
	s.Enqueue(models.KindEnrollment, map[string]interface{}{"event_id": 7},
		map[string]localid.Ref{"user_id": localid.Local(user.LocalID)})

	req := httptest.NewRequest(http.MethodGet, "/api/enrollments/pending?user="+user.LocalID, nil)
	rec := httptest.NewRecorder()
	h.PendingEnrollments(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Enrollments []models.QueueItem `json:"enrollments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(body.Enrollments) != 1 {
		t.Errorf("enrollments = %d, want 1", len(body.Enrollments))
	}
}

func TestPendingEnrollments_missingUser(t *testing.T) {
	h, _, _ := setupHandler(t, &stubGateway{})

	req := httptest.NewRequest(http.MethodGet, "/api/enrollments/pending", nil)
	rec := httptest.NewRecorder()
	h.PendingEnrollments(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAuditExport(t *testing.T) {
	h, _, _ := setupHandler(t, &stubGateway{})

	req := httptest.NewRequest(http.MethodGet, "/api/audit/export", nil)
	rec := httptest.NewRecorder()
	h.AuditExport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var entries []audit.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
}
