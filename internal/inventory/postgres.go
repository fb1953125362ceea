package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akriventsev/codepop/internal/domain"
)

// PostgresConfig конфигурация PostgreSQL хранилища остатков
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
}

// Validate проверяет корректность конфигурации
func (c PostgresConfig) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("DSN cannot be empty")
	}
	if c.MaxOpenConns <= 0 {
		return fmt.Errorf("MaxOpenConns must be greater than 0")
	}
	return nil
}

// DefaultPostgresConfig возвращает конфигурацию PostgreSQL по умолчанию
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		MaxOpenConns: 25,
	}
}

// PostgresStore хранилище остатков в PostgreSQL
type PostgresStore struct {
	config PostgresConfig
	pool   *pgxpool.Pool
}

// NewPostgresStore создает новое PostgreSQL хранилище
func NewPostgresStore(ctx context.Context, config PostgresConfig) (*PostgresStore, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	poolCfg.MaxConns = int32(config.MaxOpenConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return &PostgresStore{config: config, pool: pool}, nil
}

// NewPostgresStoreWithPool создает хранилище поверх существующего пула
func NewPostgresStoreWithPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close закрывает пул соединений
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// GetItem возвращает позицию по идентификатору
func (s *PostgresStore) GetItem(ctx context.Context, itemID string) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, on_hand, reorder_threshold FROM inventory_items WHERE id = $1`,
		itemID,
	).Scan(&item.ItemID, &item.Name, &item.OnHand, &item.ReorderThreshold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.InventoryItem{}, domain.NewError(domain.CodeUnknownItem, fmt.Sprintf("inventory item not found: %s", itemID))
		}
		return domain.InventoryItem{}, fmt.Errorf("failed to query inventory item: %w", err)
	}
	return item, nil
}

// ListItems возвращает все позиции, отсортированные по идентификатору
func (s *PostgresStore) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, on_hand, reorder_threshold FROM inventory_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory items: %w", err)
	}
	defer rows.Close()

	var items []domain.InventoryItem
	for rows.Next() {
		var item domain.InventoryItem
		if err := rows.Scan(&item.ItemID, &item.Name, &item.OnHand, &item.ReorderThreshold); err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SaveItem сохраняет позицию (INSERT ON CONFLICT UPDATE)
func (s *PostgresStore) SaveItem(ctx context.Context, item domain.InventoryItem) error {
	if item.ItemID == "" {
		return fmt.Errorf("item ID cannot be empty")
	}
	if item.OnHand < 0 {
		return fmt.Errorf("on-hand quantity cannot be negative")
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO inventory_items (id, name, on_hand, reorder_threshold)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id)
		DO UPDATE SET name = $2, on_hand = $3, reorder_threshold = $4
	`, item.ItemID, item.Name, item.OnHand, item.ReorderThreshold)
	if err != nil {
		return fmt.Errorf("failed to save inventory item: %w", err)
	}
	return nil
}

// ApplyDeltas атомарно применяет изменения on-hand в одной транзакции.
// Строки обновляются в порядке возрастания идентификаторов; условие
// on_hand + delta >= 0 входит в сам UPDATE, так что инвариант
// неотрицательности обеспечивается на уровне базы.
func (s *PostgresStore) ApplyDeltas(ctx context.Context, deltas []domain.ItemDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	sorted := make([]domain.ItemDelta, len(deltas))
	copy(sorted, deltas)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ItemID < sorted[j].ItemID })

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, d := range sorted {
		tag, err := tx.Exec(ctx, `
			UPDATE inventory_items
			SET on_hand = on_hand + $2
			WHERE id = $1 AND on_hand + $2 >= 0
		`, d.ItemID, d.Quantity)
		if err != nil {
			return fmt.Errorf("failed to apply delta for item %s: %w", d.ItemID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("delta rejected for item %s: unknown item or on-hand would go negative", d.ItemID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit deltas: %w", err)
	}
	return nil
}
