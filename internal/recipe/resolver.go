// Package recipe предоставляет развертывание строк заказа в расход инвентаря.
package recipe

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/akriventsev/codepop/internal/domain"
)

// CatalogSource read-only источник напитков каталога
type CatalogSource interface {
	GetDrink(ctx context.Context, drinkID string) (domain.Drink, error)
}

// Resolver отображает строки заказа в суммарные дельты позиций
// инвентаря. Ингредиенты, общие для нескольких напитков одного заказа,
// суммируются в одну дельту на позицию.
type Resolver struct {
	catalog CatalogSource
}

// NewResolver создает новый resolver
func NewResolver(catalog CatalogSource) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve возвращает единое отображение позиция -> суммарное требуемое
// количество по всем строкам заказа, отсортированное по возрастанию
// идентификаторов позиций. Строка с несуществующим напитком дает
// UnknownDrink, неположительное количество — InvalidQuantity; в обоих
// случаях никакое состояние не мутируется.
func (r *Resolver) Resolve(ctx context.Context, lines []domain.OrderLine) ([]domain.ItemDelta, error) {
	if len(lines) == 0 {
		return nil, domain.NewError(domain.CodeInvalidQuantity, "order must contain at least one line")
	}

	totals := make(map[string]int)
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, domain.NewError(domain.CodeInvalidQuantity,
				fmt.Sprintf("requested quantity for drink %s must be positive, got %d", line.DrinkID, line.Quantity))
		}

		drink, err := r.catalog.GetDrink(ctx, line.DrinkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnknownDrink) {
				return nil, domain.NewError(domain.CodeUnknownDrink,
					fmt.Sprintf("drink not found: %s", line.DrinkID))
			}
			return nil, fmt.Errorf("failed to load drink %s: %w", line.DrinkID, err)
		}

		for _, entry := range drink.Recipe {
			totals[entry.ItemID] += entry.QtyPerUnit * line.Quantity
		}
	}

	deltas := make([]domain.ItemDelta, 0, len(totals))
	for itemID, qty := range totals {
		deltas = append(deltas, domain.ItemDelta{ItemID: itemID, Quantity: qty})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].ItemID < deltas[j].ItemID })
	return deltas, nil
}
