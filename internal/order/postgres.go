package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akriventsev/codepop/internal/domain"
)

// PostgresRepository хранилище заказов в PostgreSQL. Строки заказа
// хранятся в order_lines и перезаписываются вместе с заказом.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создает новое PostgreSQL хранилище заказов
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save сохраняет заказ и его строки в одной транзакции
func (r *PostgresRepository) Save(ctx context.Context, order *domain.Order) error {
	if order.OrderID == "" {
		return fmt.Errorf("order ID cannot be empty")
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, status, created_at, updated_at, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id)
		DO UPDATE SET status = $3, updated_at = $5, confirmed_at = $6
	`, order.OrderID, order.UserID, string(order.Status), order.CreatedAt, order.UpdatedAt, order.ConfirmedAt)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1`, order.OrderID); err != nil {
		return fmt.Errorf("failed to clear order lines: %w", err)
	}
	for _, line := range order.Lines {
		_, err := tx.Exec(ctx,
			`INSERT INTO order_lines (order_id, drink_id, quantity) VALUES ($1, $2, $3)`,
			order.OrderID, line.DrinkID, line.Quantity)
		if err != nil {
			return fmt.Errorf("failed to save order line: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// FindByID возвращает заказ по идентификатору
func (r *PostgresRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	order := &domain.Order{}
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, status, created_at, updated_at, confirmed_at FROM orders WHERE id = $1`,
		orderID,
	).Scan(&order.OrderID, &order.UserID, &status, &order.CreatedAt, &order.UpdatedAt, &order.ConfirmedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewError(domain.CodeNotFound, fmt.Sprintf("order not found: %s", orderID))
		}
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	order.Status = domain.OrderStatus(status)

	lines, err := r.loadLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines
	return order, nil
}

// FindByUser возвращает заказы пользователя, новые первыми
func (r *PostgresRepository) FindByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return r.findOrders(ctx,
		`SELECT id, user_id, status, created_at, updated_at, confirmed_at
		 FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
}

// FindCommittedInWindow возвращает заказы со списанием внутри окна
func (r *PostgresRepository) FindCommittedInWindow(ctx context.Context, from, to time.Time) ([]*domain.Order, error) {
	return r.findOrders(ctx,
		`SELECT id, user_id, status, created_at, updated_at, confirmed_at
		 FROM orders
		 WHERE status IN ('confirmed', 'fulfilled')
		   AND confirmed_at IS NOT NULL AND confirmed_at >= $1 AND confirmed_at <= $2
		 ORDER BY confirmed_at`,
		from, to)
}

func (r *PostgresRepository) findOrders(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order := &domain.Order{}
		var status string
		if err := rows.Scan(&order.OrderID, &order.UserID, &status,
			&order.CreatedAt, &order.UpdatedAt, &order.ConfirmedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		order.Status = domain.OrderStatus(status)
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		lines, err := r.loadLines(ctx, order.OrderID)
		if err != nil {
			return nil, err
		}
		order.Lines = lines
	}
	return orders, nil
}

func (r *PostgresRepository) loadLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT drink_id, quantity FROM order_lines WHERE order_id = $1 ORDER BY drink_id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.DrinkID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
