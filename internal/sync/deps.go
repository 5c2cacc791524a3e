package sync

import (
	"fmt"

	"github.com/gfcamara/eventsync/internal/models"
)

// Dependencies maps each entity kind to the kinds its payload may reference.
// Replay order is derived from this graph, so adding a kind means adding an
// edge here rather than re-deriving a hand-coded loop order.
var Dependencies = map[models.Kind][]models.Kind{
	models.KindUser:              {},
	models.KindEnrollment:        {models.KindUser},
	models.KindAttendance:        {models.KindEnrollment},
	models.KindNotificationEmail: {models.KindUser, models.KindEnrollment},
}

// ProducesIdentity reports whether a committed write of this kind yields a
// server identifier that later writes may reference. Notification emails are
// fire-and-forget and produce no reusable identity.
func ProducesIdentity(kind models.Kind) bool {
	return kind != models.KindNotificationEmail
}

// Order returns a topological order of the dependency graph: every kind
// appears after all kinds it may reference. The order is stable across calls
// because ties are broken by the declaration order of models.AllKinds.
func Order(deps map[models.Kind][]models.Kind) ([]models.Kind, error) {
	indegree := make(map[models.Kind]int, len(deps))
	for kind := range deps {
		indegree[kind] = len(deps[kind])
	}

	order := make([]models.Kind, 0, len(deps))
	for len(order) < len(deps) {
		progressed := false
		for _, kind := range models.AllKinds() {
			degree, ok := indegree[kind]
			if !ok || degree != 0 {
				continue
			}
			order = append(order, kind)
			delete(indegree, kind)
			for other, otherDeps := range deps {
				for _, dep := range otherDeps {
					if dep == kind {
						indegree[other]--
					}
				}
			}
			progressed = true
		}
		if !progressed {
			return nil, fmt.Errorf("dependency cycle among kinds: %v", remaining(indegree))
		}
	}
	return order, nil
}

func remaining(indegree map[models.Kind]int) []models.Kind {
	var kinds []models.Kind
	for _, kind := range models.AllKinds() {
		if _, ok := indegree[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}
