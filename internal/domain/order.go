package domain

import "time"

// OrderStatus статус заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsTerminal сообщает, является ли статус терминальным
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusCancelled
}

// OrderLine строка заказа: напиток и запрошенное количество.
// Принадлежит ровно одному заказу.
type OrderLine struct {
	DrinkID  string
	Quantity int
}

// Order заказ пользователя. Мутируется только переходами конечного
// автомата заказа; принадлежит создавшему его пользователю.
type Order struct {
	OrderID     string
	UserID      string
	Lines       []OrderLine
	Status      OrderStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ConfirmedAt *time.Time
}

// ID возвращает идентификатор заказа
func (o *Order) ID() string {
	return o.OrderID
}
