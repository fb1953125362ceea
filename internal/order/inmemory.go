package order

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/akriventsev/codepop/internal/domain"
)

// InMemoryRepository хранилище заказов в памяти для тестов
type InMemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

// NewInMemoryRepository создает новое in-memory хранилище заказов
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		orders: make(map[string]*domain.Order),
	}
}

// Save сохраняет заказ
func (r *InMemoryRepository) Save(ctx context.Context, order *domain.Order) error {
	if order.OrderID == "" {
		return fmt.Errorf("order ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *order
	stored.Lines = append([]domain.OrderLine(nil), order.Lines...)
	r.orders[order.OrderID] = &stored
	return nil
}

// FindByID возвращает заказ по идентификатору
func (r *InMemoryRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.orders[orderID]
	if !ok {
		return nil, domain.NewError(domain.CodeNotFound, fmt.Sprintf("order not found: %s", orderID))
	}
	return copyOrder(stored), nil
}

// FindByUser возвращает заказы пользователя, новые первыми
func (r *InMemoryRepository) FindByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var orders []*domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			orders = append(orders, copyOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

// FindCommittedInWindow возвращает заказы со списанием внутри окна
func (r *InMemoryRepository) FindCommittedInWindow(ctx context.Context, from, to time.Time) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var orders []*domain.Order
	for _, o := range r.orders {
		if o.Status != domain.OrderStatusConfirmed && o.Status != domain.OrderStatusFulfilled {
			continue
		}
		if o.ConfirmedAt == nil || o.ConfirmedAt.Before(from) || o.ConfirmedAt.After(to) {
			continue
		}
		orders = append(orders, copyOrder(o))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ConfirmedAt.Before(*orders[j].ConfirmedAt) })
	return orders, nil
}

func copyOrder(o *domain.Order) *domain.Order {
	dup := *o
	dup.Lines = append([]domain.OrderLine(nil), o.Lines...)
	if o.ConfirmedAt != nil {
		t := *o.ConfirmedAt
		dup.ConfirmedAt = &t
	}
	return &dup
}
