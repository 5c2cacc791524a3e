package localid

import (
	"encoding/json"
	"fmt"
)

// Ref is a reference to another entity. It holds either a server-assigned
// identifier or a local identifier, never both. Modeling the distinction as a
// tagged value instead of inferring it from string shape means a server id
// that happens to look like a local token can never be misclassified.
type Ref struct {
	serverID string
	localID  string
}

// Server returns a reference to an entity already known to the backend.
func Server(id string) Ref {
	return Ref{serverID: id}
}

// Local returns a reference to an entity that only exists client-side.
func Local(id string) Ref {
	return Ref{localID: id}
}

// IsZero reports whether the reference is unset.
func (r Ref) IsZero() bool {
	return r.serverID == "" && r.localID == ""
}

// IsLocal reports whether the reference points at a local identifier.
func (r Ref) IsLocal() bool {
	return r.localID != ""
}

// ServerID returns the server identifier, or "" for a local reference.
func (r Ref) ServerID() string {
	return r.serverID
}

// LocalID returns the local identifier, or "" for a server reference.
func (r Ref) LocalID() string {
	return r.localID
}

// String returns the underlying identifier regardless of variant.
func (r Ref) String() string {
	if r.localID != "" {
		return r.localID
	}
	return r.serverID
}

// refJSON is the persisted form of Ref. Exactly one field is set.
type refJSON struct {
	ServerID string `json:"server_id,omitempty"`
	LocalID  string `json:"local_id,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(refJSON{ServerID: r.serverID, LocalID: r.localID})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Ref) UnmarshalJSON(data []byte) error {
	var v refJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.ServerID != "" && v.LocalID != "" {
		return fmt.Errorf("reference holds both server_id %q and local_id %q", v.ServerID, v.LocalID)
	}
	r.serverID = v.ServerID
	r.localID = v.LocalID
	return nil
}
