// Package models provides the persisted data shapes for the offline queue.
package models

// Kind identifies an entity kind the client can write while offline.
// The set is closed; each kind depends on at most the kinds before it.
type Kind string

const (
	KindUser              Kind = "user"
	KindEnrollment        Kind = "enrollment"
	KindAttendance        Kind = "attendance"
	KindNotificationEmail Kind = "notification_email"
)

// AllKinds returns the closed set of kinds in dependency order.
// The order is stable and used for serialization only; replay order is
// derived from the dependency graph by the sync engine.
func AllKinds() []Kind {
	return []Kind{KindUser, KindEnrollment, KindAttendance, KindNotificationEmail}
}

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	switch k {
	case KindUser, KindEnrollment, KindAttendance, KindNotificationEmail:
		return true
	}
	return false
}
