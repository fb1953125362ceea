// Package inventory предоставляет хранилище остатков и движок резервирования.
package inventory

import (
	"context"

	"github.com/akriventsev/codepop/internal/domain"
)

// Store durable-хранилище остатков инвентаря. Единственный источник
// истины по on-hand количествам; мутируется только через ApplyDeltas.
type Store interface {
	// GetItem возвращает позицию по идентификатору
	GetItem(ctx context.Context, itemID string) (domain.InventoryItem, error)
	// ListItems возвращает все позиции
	ListItems(ctx context.Context) ([]domain.InventoryItem, error)
	// SaveItem сохраняет позицию (INSERT/UPDATE)
	SaveItem(ctx context.Context, item domain.InventoryItem) error
	// ApplyDeltas атомарно применяет изменения on-hand по набору позиций.
	// Либо применяются все дельты, либо ни одна; результат по каждой
	// позиции обязан остаться неотрицательным.
	ApplyDeltas(ctx context.Context, deltas []domain.ItemDelta) error
}
