// Package gateway tests for the HTTP remote write gateway.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gfcamara/eventsync/internal/models"
	"github.com/gfcamara/eventsync/internal/sync"
)

func TestCreate_success(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"id":100}}`))
	}))
	defer server.Close()

	gw := New(Config{BaseURL: server.URL, Token: "tok-1"})

	serverID, err := gw.Create(context.Background(), models.KindUser,
		map[string]interface{}{"name": "Ana"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if serverID != "100" {
		t.Errorf("serverID = %q, want 100", serverID)
	}
	if gotPath != "/api/users" {
		t.Errorf("path = %q, want /api/users", gotPath)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want Bearer tok-1", gotAuth)
	}
	if gotBody["name"] != "Ana" {
		t.Errorf("body name = %v, want Ana", gotBody["name"])
	}
}

func TestCreate_endpointsPerKind(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{"success":true,"data":{"id":"1"}}`))
	}))
	defer server.Close()

	gw := New(Config{BaseURL: server.URL})
	ctx := context.Background()

	gw.Create(ctx, models.KindUser, map[string]interface{}{})
	gw.Create(ctx, models.KindEnrollment, map[string]interface{}{})
	gw.Create(ctx, models.KindAttendance, map[string]interface{}{})
	gw.Create(ctx, models.KindNotificationEmail, map[string]interface{}{"type": EmailTypeAttendance})

	want := []string{"/api/users", "/api/enrollments", "/api/attendances", "/api/email/attendance"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestCreate_separateEmailBase(t *testing.T) {
	mainCalls := 0
	mainServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mainCalls++
		w.Write([]byte(`{"success":true,"data":{"id":"1"}}`))
	}))
	defer mainServer.Close()

	emailCalls := 0
	emailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		emailCalls++
		w.Write([]byte(`{"success":true}`))
	}))
	defer emailServer.Close()

	gw := New(Config{BaseURL: mainServer.URL, EmailBaseURL: emailServer.URL})

	serverID, err := gw.Create(context.Background(), models.KindNotificationEmail,
		map[string]interface{}{"type": EmailTypeEnrollment, "user_id": "42"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if serverID != "" {
		t.Errorf("serverID = %q, want empty for email", serverID)
	}
	if emailCalls != 1 || mainCalls != 0 {
		t.Errorf("email/main calls = %d/%d, want 1/0", emailCalls, mainCalls)
	}
}

func TestCreate_rejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"success":false,"message":"email already registered"}`))
	}))
	defer server.Close()

	gw := New(Config{BaseURL: server.URL})

	_, err := gw.Create(context.Background(), models.KindUser, map[string]interface{}{})
	if err == nil {
		t.Fatal("Create succeeded on rejected write")
	}

	var rej *sync.RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("error = %T, want *sync.RejectionError", err)
	}
	if rej.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want 422", rej.StatusCode)
	}
	if rej.Message != "email already registered" {
		t.Errorf("Message = %q, want backend message", rej.Message)
	}
	if errors.Is(err, sync.ErrUnreachable) {
		t.Error("rejection classified as unreachable")
	}
}

func TestCreate_successFalseWithOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"event is full"}`))
	}))
	defer server.Close()

	gw := New(Config{BaseURL: server.URL})

	_, err := gw.Create(context.Background(), models.KindEnrollment, map[string]interface{}{})
	if !sync.IsRejection(err) {
		t.Errorf("error = %v, want rejection", err)
	}
}

func TestCreate_unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listening anymore

	gw := New(Config{BaseURL: server.URL})

	_, err := gw.Create(context.Background(), models.KindUser, map[string]interface{}{})
	if !errors.Is(err, sync.ErrUnreachable) {
		t.Errorf("error = %v, want ErrUnreachable", err)
	}
	if sync.IsRejection(err) {
		t.Error("transport failure classified as rejection")
	}
}

func TestCreate_unknownEmailType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("gateway sent a request for an unroutable email type")
	}))
	defer server.Close()

	gw := New(Config{BaseURL: server.URL})

	_, err := gw.Create(context.Background(), models.KindNotificationEmail,
		map[string]interface{}{"type": "newsletter"})
	if !sync.IsRejection(err) {
		t.Errorf("error = %v, want rejection", err)
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			t.Errorf("Ping path = %q, want /api/health", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gw := New(Config{BaseURL: server.URL})
	if !gw.Ping(context.Background()) {
		t.Error("Ping = false against a healthy backend")
	}

	server.Close()
	if gw.Ping(context.Background()) {
		t.Error("Ping = true against a dead backend")
	}
}
