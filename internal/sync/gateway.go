package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/gfcamara/eventsync/internal/models"
)

// Gateway is the remote write gateway the engine replays queued writes
// against. The engine is agnostic to transport; it only needs commit/failure
// semantics and the server identifier a successful create yields.
//
// Create returns the server-assigned identifier for kinds that produce one
// and "" for the rest. Failures distinguish a definitive remote rejection
// (*RejectionError) from an unreachable backend (errors wrapping
// ErrUnreachable); the engine leaves the item queued either way.
type Gateway interface {
	Create(ctx context.Context, kind models.Kind, payload map[string]interface{}) (string, error)
}

// ErrUnreachable marks transport-level failures: the backend could not be
// reached at all and the write was most likely never seen by it.
var ErrUnreachable = errors.New("remote unreachable")

// RejectionError is a definitive failure returned by the backend, such as a
// validation error. The write was seen and refused.
type RejectionError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote rejected write (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote rejected write: %s", e.Message)
}

// IsRejection reports whether err is a definitive remote rejection.
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}
