package domain

import "time"

// ReservationStatus статус резервирования
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusCommitted ReservationStatus = "committed"
	ReservationStatusReleased  ReservationStatus = "released"
)

// Reservation провизорная заявка заказа на количество инвентаря.
// Существует, пока заказ Pending либо Confirmed-но-не-закоммичен;
// уничтожается на commit или release. Статус делает commit/release
// идемпотентными.
type Reservation struct {
	ReservationID string
	OrderID       string
	Deltas        []ItemDelta
	Status        ReservationStatus
	CreatedAt     time.Time
}

// ID возвращает идентификатор резервирования
func (r *Reservation) ID() string {
	return r.ReservationID
}
