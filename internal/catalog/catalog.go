// Package catalog предоставляет read-only источник напитков для сборки заказов.
// Управление каталогом (создание и правка напитков) лежит вне сервиса;
// хранилище каталога наполняется снаружи.
package catalog

import (
	"context"

	"github.com/akriventsev/codepop/internal/domain"
)

// Store read-only хранилище каталога напитков
type Store interface {
	// GetDrink возвращает напиток по идентификатору
	GetDrink(ctx context.Context, drinkID string) (domain.Drink, error)
	// ListCatalog возвращает напитки каталога (без пользовательских)
	ListCatalog(ctx context.Context) ([]domain.Drink, error)
	// FindByUser возвращает напитки, созданные пользователем
	FindByUser(ctx context.Context, userID string) ([]domain.Drink, error)
}

// Seeder опциональная запись в хранилище каталога: используется
// миграциями и тестами, не публикуется через API
type Seeder interface {
	SaveDrink(ctx context.Context, drink domain.Drink) error
}
