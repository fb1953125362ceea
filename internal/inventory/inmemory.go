package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/akriventsev/codepop/internal/domain"
)

// InMemoryStore хранилище остатков в памяти. Используется в тестах и
// как референсная реализация контракта Store.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[string]domain.InventoryItem
}

// NewInMemoryStore создает новое in-memory хранилище
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		items: make(map[string]domain.InventoryItem),
	}
}

// GetItem возвращает позицию по идентификатору
func (s *InMemoryStore) GetItem(ctx context.Context, itemID string) (domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemID]
	if !ok {
		return domain.InventoryItem{}, domain.NewError(domain.CodeUnknownItem, fmt.Sprintf("inventory item not found: %s", itemID))
	}
	return item, nil
}

// ListItems возвращает все позиции, отсортированные по идентификатору
func (s *InMemoryStore) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.InventoryItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })
	return items, nil
}

// SaveItem сохраняет позицию
func (s *InMemoryStore) SaveItem(ctx context.Context, item domain.InventoryItem) error {
	if item.ItemID == "" {
		return fmt.Errorf("item ID cannot be empty")
	}
	if item.OnHand < 0 {
		return fmt.Errorf("on-hand quantity cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ItemID] = item
	return nil
}

// ApplyDeltas атомарно применяет изменения on-hand. Все дельты
// проверяются до первой записи, поэтому частичных применений не бывает.
func (s *InMemoryStore) ApplyDeltas(ctx context.Context, deltas []domain.ItemDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range deltas {
		item, ok := s.items[d.ItemID]
		if !ok {
			return domain.NewError(domain.CodeUnknownItem, fmt.Sprintf("inventory item not found: %s", d.ItemID))
		}
		if item.OnHand+d.Quantity < 0 {
			return fmt.Errorf("on-hand for item %s would go negative: %d%+d", d.ItemID, item.OnHand, d.Quantity)
		}
	}

	for _, d := range deltas {
		item := s.items[d.ItemID]
		item.OnHand += d.Quantity
		s.items[d.ItemID] = item
	}
	return nil
}
