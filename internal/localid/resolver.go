package localid

import "sync"

// Resolver maps local identifiers to the server identifiers assigned once the
// corresponding writes commit. The mapping is append-only for the lifetime of
// the process: an entry, once recorded, never changes. A single Resolver is
// shared across all queues during a sync pass so that entities committed early
// in the pass can be referenced by entities replayed later in the same pass.
type Resolver struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewResolver creates an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{entries: make(map[string]string)}
}

// Record stores the server identifier assigned to a local identifier.
// The first recording wins; a local id once resolved never changes.
func (r *Resolver) Record(localID, serverID string) {
	if localID == "" || serverID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[localID]; ok {
		return
	}
	r.entries[localID] = serverID
}

// Resolve returns the server identifier for a local identifier, if known.
func (r *Resolver) Resolve(localID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	serverID, ok := r.entries[localID]
	return serverID, ok
}

// ResolveRef rewrites a reference through the mapping. A server reference is
// returned unchanged; a local reference becomes a server reference when an
// entry exists. The second return reports whether the result is resolved.
func (r *Resolver) ResolveRef(ref Ref) (Ref, bool) {
	if !ref.IsLocal() {
		return ref, true
	}
	serverID, ok := r.Resolve(ref.LocalID())
	if !ok {
		return ref, false
	}
	return Server(serverID), true
}

// Len returns the number of recorded entries.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
