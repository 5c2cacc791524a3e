// Package gateway provides the HTTP implementation of the remote write
// gateway consumed by the sync engine.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gfcamara/eventsync/internal/models"
	"github.com/gfcamara/eventsync/internal/sync"
)

// Email write types, routed to distinct email API endpoints.
const (
	EmailTypeEnrollment   = "enrollment"
	EmailTypeAttendance   = "attendance"
	EmailTypeCancellation = "cancellation"
)

// Config holds the HTTP gateway configuration.
type Config struct {
	// BaseURL is the main backend API.
	BaseURL string

	// EmailBaseURL is the notification email API. The email service is
	// deployed separately; when empty, BaseURL is used.
	EmailBaseURL string

	// Token is sent as a bearer token when set.
	Token string

	// Timeout bounds each remote write. Zero means 30 seconds.
	Timeout time.Duration
}

// HTTPGateway performs the actual network calls for queued writes.
type HTTPGateway struct {
	config Config
	client *http.Client
}

// New creates an HTTPGateway.
func New(config Config) *HTTPGateway {
	if config.EmailBaseURL == "" {
		config.EmailBaseURL = config.BaseURL
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGateway{
		config: config,
		client: &http.Client{Timeout: timeout},
	}
}

// apiResponse is the backend's envelope for create endpoints.
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// Create implements sync.Gateway. It posts the payload to the kind's
// endpoint and returns the server-assigned identifier. Transport failures
// wrap sync.ErrUnreachable; definitive backend failures are returned as
// *sync.RejectionError.
func (g *HTTPGateway) Create(ctx context.Context, kind models.Kind, payload map[string]interface{}) (string, error) {
	url, err := g.endpoint(kind, payload)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &sync.RejectionError{Message: fmt.Sprintf("unserializable payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.config.Token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", sync.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil && resp.StatusCode < 300 {
		return "", &sync.RejectionError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unparseable response: %v", err),
		}
	}

	if resp.StatusCode >= 300 || !parsed.Success {
		return "", &sync.RejectionError{
			StatusCode: resp.StatusCode,
			Message:    parsed.Message,
		}
	}

	return parsed.Data.ID.String(), nil
}

// endpoint maps a kind to its create endpoint. Notification emails are
// routed by their payload type to the email API.
func (g *HTTPGateway) endpoint(kind models.Kind, payload map[string]interface{}) (string, error) {
	switch kind {
	case models.KindUser:
		return g.config.BaseURL + "/api/users", nil
	case models.KindEnrollment:
		return g.config.BaseURL + "/api/enrollments", nil
	case models.KindAttendance:
		return g.config.BaseURL + "/api/attendances", nil
	case models.KindNotificationEmail:
		emailType, _ := payload["type"].(string)
		switch emailType {
		case EmailTypeEnrollment, EmailTypeAttendance, EmailTypeCancellation:
			return g.config.EmailBaseURL + "/api/email/" + emailType, nil
		}
		return "", &sync.RejectionError{Message: fmt.Sprintf("unknown email type %q", payload["type"])}
	}
	return "", &sync.RejectionError{Message: fmt.Sprintf("unknown entity kind %q", kind)}
}

// Ping probes backend reachability for the connectivity monitor.
func (g *HTTPGateway) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.config.BaseURL+"/api/health", nil)
	if err != nil {
		return false
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}
