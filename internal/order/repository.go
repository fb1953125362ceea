// Package order предоставляет сборку заказов, их жизненный цикл и хранилище.
package order

import (
	"context"
	"time"

	"github.com/akriventsev/codepop/internal/domain"
)

// Repository хранилище заказов. Типизированные методы выборки вместо
// динамической фильтрации: принадлежность пользователю и окно коммита
// выражены сигнатурами, а не строковыми фильтрами.
type Repository interface {
	// Save сохраняет заказ (INSERT/UPDATE)
	Save(ctx context.Context, order *domain.Order) error
	// FindByID возвращает заказ по идентификатору
	FindByID(ctx context.Context, orderID string) (*domain.Order, error)
	// FindByUser возвращает заказы пользователя
	FindByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	// FindCommittedInWindow возвращает заказы со списанием,
	// закоммиченным внутри окна (статусы Confirmed/Fulfilled)
	FindCommittedInWindow(ctx context.Context, from, to time.Time) ([]*domain.Order, error)
}
