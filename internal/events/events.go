// Package events предоставляет публикацию событий жизненного цикла заказов.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Типы событий заказа
const (
	TypeOrderCreated   = "order.created"
	TypeOrderUpdated   = "order.updated"
	TypeOrderConfirmed = "order.confirmed"
	TypeOrderFulfilled = "order.fulfilled"
	TypeOrderCancelled = "order.cancelled"
)

// Event интеграционное событие заказа
type Event struct {
	EventID    string                 `json:"event_id"`
	EventType  string                 `json:"event_type"`
	OrderID    string                 `json:"order_id"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// NewEvent создает новое событие заказа
func NewEvent(eventType, orderID string, payload map[string]interface{}) Event {
	return Event{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		OrderID:    orderID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Publisher публикатор событий заказа
type Publisher interface {
	// Publish публикует событие
	Publish(ctx context.Context, event Event) error
	// Close закрывает публикатор
	Close() error
}
