// Package main provides the local sync daemon. It owns the offline queue,
// replays it against the backend when connectivity allows, and exposes a
// localhost REST/WebSocket surface for UI observers.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gfcamara/eventsync/cmd/syncd/handlers"
	"github.com/gfcamara/eventsync/internal/audit"
	"github.com/gfcamara/eventsync/internal/db"
	"github.com/gfcamara/eventsync/internal/gateway"
	"github.com/gfcamara/eventsync/internal/localid"
	"github.com/gfcamara/eventsync/internal/logging"
	"github.com/gfcamara/eventsync/internal/store"
	enginesync "github.com/gfcamara/eventsync/internal/sync"
	"github.com/gfcamara/eventsync/internal/sync/monitor"
)

// probeInterval is how often backend reachability is checked.
const probeInterval = 5 * time.Second

func listenPort() string {
	if port := os.Getenv("SYNCD_PORT"); port != "" {
		return port
	}
	return "8090"
}

func main() {
	logging.Init(os.Stdout, logging.LevelInfo)

	dataDir := os.Getenv("DB_PATH")
	if dataDir == "" {
		dataDir = "./data"
	}

	database, err := db.Open(dataDir)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	gw := gateway.New(gateway.Config{
		BaseURL:      getenv("API_BASE_URL", "http://localhost:3000"),
		EmailBaseURL: os.Getenv("API_EMAIL_URL"),
		Token:        os.Getenv("API_TOKEN"),
	})

	queueStore := store.New(database)
	resolver := localid.NewResolver()
	auditLog := audit.NewLogger(database)

	engine, err := enginesync.NewEngine(queueStore, resolver, auditLog)
	if err != nil {
		log.Fatalf("Failed to build sync engine: %v", err)
	}

	mon := monitor.New(engine, queueStore, gw, monitor.DefaultConfig())

	hub := NewWSHub()
	mon.SetEventHandler(hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon.Start(ctx)
	defer mon.Stop()

	go probeLoop(ctx, gw, mon)

	statusHandler := handlers.NewStatusHandler(queueStore, mon, auditLog)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", statusHandler.Health)
	mux.HandleFunc("/api/status", statusHandler.Status)
	mux.HandleFunc("/api/sync", statusHandler.SyncNow)
	mux.HandleFunc("/api/queue/", statusHandler.Enqueue)
	mux.HandleFunc("/api/enrollments/pending", statusHandler.PendingEnrollments)
	mux.HandleFunc("/api/audit/export", statusHandler.AuditExport)
	mux.HandleFunc("/ws", HandleWebSocket(hub))

	port := listenPort()
	logging.Info("Sync daemon starting",
		map[string]interface{}{"port": port, "pending": queueStore.Count()})

	log.Fatal(http.ListenAndServe("localhost:"+port, mux))
}

// probeLoop drives the connectivity monitor from backend reachability.
func probeLoop(ctx context.Context, gw *gateway.HTTPGateway, mon *monitor.Monitor) {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, probeInterval)
			mon.SetOnline(gw.Ping(probeCtx))
			cancel()
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
