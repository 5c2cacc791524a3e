package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/gfcamara/eventsync/internal/errors"
	"github.com/gfcamara/eventsync/internal/localid"
	"github.com/gfcamara/eventsync/internal/models"
)

// enqueueRequest is the capture request body. Refs carry raw identifiers,
// keyed by payload field name; each is classified as local or server here at
// the boundary and never re-inspected downstream.
type enqueueRequest struct {
	Payload map[string]interface{} `json:"payload"`
	Refs    map[string]string      `json:"refs,omitempty"`
}

// Enqueue handles POST /api/queue/{kind}: captures a UI write into the
// offline queue for later replay. It answers immediately with the queued item
// and its local identifier; no network call happens on this path.
func (h *StatusHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	kind := models.Kind(strings.TrimPrefix(r.URL.Path, "/api/queue/"))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, apperrors.ErrInvalidKind,
			apperrors.New(apperrors.ErrInvalidKind, fmt.Sprintf("unknown entity kind %q", kind)))
		return
	}

	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.ErrInvalid,
			apperrors.Wrap(apperrors.ErrInvalid, "invalid request body", err))
		return
	}

	refs := make(map[string]localid.Ref, len(req.Refs))
	for field, id := range req.Refs {
		switch {
		case localid.IsLocal(id):
			refs[field] = localid.Local(id)
		case strings.HasPrefix(id, localid.Prefix):
			// Carries the local prefix but is not a well-formed local
			// identifier; reject rather than treat it as a server id.
			writeError(w, http.StatusBadRequest, apperrors.ErrValidation,
				apperrors.New(apperrors.ErrValidation,
					fmt.Sprintf("malformed local identifier %q in field %q", id, field)))
			return
		case id == "":
			writeError(w, http.StatusBadRequest, apperrors.ErrValidation,
				apperrors.New(apperrors.ErrValidation,
					fmt.Sprintf("empty identifier in field %q", field)))
			return
		default:
			refs[field] = localid.Server(id)
		}
	}

	item, err := h.store.Enqueue(kind, req.Payload, refs)
	if err != nil {
		writeError(w, http.StatusBadRequest, apperrors.ErrInvalidKind, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"item":    item,
	})
}
