package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akriventsev/codepop/internal/domain"
)

// ReservationJournal durable-журнал незакоммиченных резервирований.
// Источник истины — in-process ledger движка; журнал читается только
// при старте для восстановления pending-состояния.
type ReservationJournal interface {
	// Record записывает текущие дельты резервирования (полная замена)
	Record(ctx context.Context, reservation *domain.Reservation) error
	// Discard удаляет записи заказа
	Discard(ctx context.Context, orderID string) error
	// Load возвращает все журналированные резервирования
	Load(ctx context.Context) ([]*domain.Reservation, error)
}

// PostgresJournal журнал резервирований поверх pgx
type PostgresJournal struct {
	pool *pgxpool.Pool
}

// NewPostgresJournal создает новый журнал
func NewPostgresJournal(pool *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{pool: pool}
}

// Record записывает дельты резервирования, заменяя прежние записи заказа
func (j *PostgresJournal) Record(ctx context.Context, reservation *domain.Reservation) error {
	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM pending_reservations WHERE order_id = $1`, reservation.OrderID); err != nil {
		return fmt.Errorf("failed to clear journal entries: %w", err)
	}

	for _, d := range reservation.Deltas {
		if _, err := tx.Exec(ctx,
			`INSERT INTO pending_reservations (order_id, item_id, quantity) VALUES ($1, $2, $3)`,
			reservation.OrderID, d.ItemID, d.Quantity); err != nil {
			return fmt.Errorf("failed to insert journal entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Discard удаляет записи заказа
func (j *PostgresJournal) Discard(ctx context.Context, orderID string) error {
	if _, err := j.pool.Exec(ctx,
		`DELETE FROM pending_reservations WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("failed to delete journal entries: %w", err)
	}
	return nil
}

// Load возвращает все журналированные резервирования, сгруппированные
// по заказам. Идентификаторы резервирований генерируются заново:
// прежние умерли вместе с процессом.
func (j *PostgresJournal) Load(ctx context.Context) ([]*domain.Reservation, error) {
	rows, err := j.pool.Query(ctx,
		`SELECT order_id, item_id, quantity FROM pending_reservations ORDER BY order_id, item_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[string]*domain.Reservation)
	var order []string
	for rows.Next() {
		var orderID, itemID string
		var quantity int
		if err := rows.Scan(&orderID, &itemID, &quantity); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}

		r, ok := byOrder[orderID]
		if !ok {
			r = &domain.Reservation{
				ReservationID: uuid.New().String(),
				OrderID:       orderID,
				Status:        domain.ReservationStatusPending,
				CreatedAt:     time.Now().UTC(),
			}
			byOrder[orderID] = r
			order = append(order, orderID)
		}
		r.Deltas = append(r.Deltas, domain.ItemDelta{ItemID: itemID, Quantity: quantity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	restored := make([]*domain.Reservation, 0, len(byOrder))
	for _, orderID := range order {
		restored = append(restored, byOrder[orderID])
	}
	return restored, nil
}
