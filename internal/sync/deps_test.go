package sync

import (
	"testing"

	"github.com/gfcamara/eventsync/internal/models"
)

func TestOrder(t *testing.T) {
	order, err := Order(Dependencies)
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}

	if len(order) != len(Dependencies) {
		t.Fatalf("Order returned %d kinds, want %d", len(order), len(Dependencies))
	}

	position := make(map[models.Kind]int, len(order))
	for i, kind := range order {
		position[kind] = i
	}

	// Every kind must come after all kinds it may reference.
	for kind, deps := range Dependencies {
		for _, dep := range deps {
			if position[dep] >= position[kind] {
				t.Errorf("%s ordered before its dependency %s (order: %v)", kind, dep, order)
			}
		}
	}
}

func TestOrder_stable(t *testing.T) {
	first, err := Order(Dependencies)
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		again, err := Order(Dependencies)
		if err != nil {
			t.Fatalf("Order failed: %v", err)
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("Order not stable: %v vs %v", first, again)
			}
		}
	}
}

func TestOrder_cycle(t *testing.T) {
	cyclic := map[models.Kind][]models.Kind{
		models.KindUser:       {models.KindEnrollment},
		models.KindEnrollment: {models.KindUser},
	}

	if _, err := Order(cyclic); err == nil {
		t.Fatal("Order accepted a cyclic graph")
	}
}

func TestProducesIdentity(t *testing.T) {
	for _, kind := range []models.Kind{models.KindUser, models.KindEnrollment, models.KindAttendance} {
		if !ProducesIdentity(kind) {
			t.Errorf("ProducesIdentity(%s) = false, want true", kind)
		}
	}
	if ProducesIdentity(models.KindNotificationEmail) {
		t.Error("ProducesIdentity(notification_email) = true, want false")
	}
}
