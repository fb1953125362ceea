package events

import (
	"context"
	"testing"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent(TypeOrderCreated, "order-1", map[string]interface{}{"user_id": "user-1"})

	if event.EventID == "" {
		t.Error("Expected non-empty event ID")
	}
	if event.EventType != TypeOrderCreated {
		t.Errorf("Expected event type %s, got %s", TypeOrderCreated, event.EventType)
	}
	if event.OrderID != "order-1" {
		t.Errorf("Expected order ID order-1, got %s", event.OrderID)
	}
	if event.OccurredAt.IsZero() {
		t.Error("Expected OccurredAt to be set")
	}

	other := NewEvent(TypeOrderCreated, "order-1", nil)
	if other.EventID == event.EventID {
		t.Error("Expected unique event IDs")
	}
}

func TestInMemoryPublisher(t *testing.T) {
	publisher := NewInMemoryPublisher()
	ctx := context.Background()

	var delivered []Event
	publisher.Subscribe(func(e Event) {
		delivered = append(delivered, e)
	})

	first := NewEvent(TypeOrderCreated, "order-1", nil)
	second := NewEvent(TypeOrderConfirmed, "order-1", nil)
	if err := publisher.Publish(ctx, first); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := publisher.Publish(ctx, second); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	published := publisher.Published()
	if len(published) != 2 {
		t.Fatalf("Expected 2 published events, got %d", len(published))
	}
	if published[0].EventType != TypeOrderCreated || published[1].EventType != TypeOrderConfirmed {
		t.Errorf("Expected events in publish order, got %s, %s", published[0].EventType, published[1].EventType)
	}

	if len(delivered) != 2 {
		t.Fatalf("Expected 2 delivered events, got %d", len(delivered))
	}
	if delivered[0].EventID != first.EventID {
		t.Errorf("Expected delivered event %s, got %s", first.EventID, delivered[0].EventID)
	}

	if err := publisher.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
