// Package localid provides local identifier generation and resolution for
// entities created while disconnected from the backend.
//
// A local identifier is a client-generated placeholder identity. It is
// recognizably not a server identity: server ids are opaque tokens assigned by
// the backend, local ids always carry the "local-" prefix followed by a UUID v4.
package localid

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Prefix marks an identifier as locally generated.
const Prefix = "local-"

var uuidV4Regex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// New generates a new local identifier.
func New() string {
	return Prefix + uuid.New().String()
}

// IsLocal checks whether an identifier has the local identifier shape.
// It is used to validate caller-supplied ids at the API boundary; queue
// internals track locality with Ref instead of inspecting strings.
func IsLocal(id string) bool {
	if !strings.HasPrefix(id, Prefix) {
		return false
	}
	return uuidV4Regex.MatchString(strings.TrimPrefix(id, Prefix))
}
