package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/akriventsev/codepop/internal/domain"
	"github.com/akriventsev/codepop/internal/recipe"
)

// Assembler проверяет входящий запрос заказа и превращает его в заявку
// на резервирование: валидация строк, развертывание рецептов в дельты
// позиций инвентаря
type Assembler struct {
	resolver *recipe.Resolver
}

// NewAssembler создает новый сборщик заказов
func NewAssembler(resolver *recipe.Resolver) *Assembler {
	return &Assembler{resolver: resolver}
}

// Assemble валидирует строки и возвращает новый заказ вместе с
// требуемыми дельтами инвентаря. Заказ еще не персистентен: он
// сохраняется только после успешного резервирования.
func (a *Assembler) Assemble(ctx context.Context, userID string, lines []domain.OrderLine) (*domain.Order, []domain.ItemDelta, error) {
	if userID == "" {
		return nil, nil, fmt.Errorf("user ID cannot be empty")
	}

	deltas, err := a.resolver.Resolve(ctx, lines)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	order := &domain.Order{
		OrderID:   uuid.New().String(),
		UserID:    userID,
		Lines:     mergeLines(lines),
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return order, deltas, nil
}

// mergeLines сливает строки по напитку, суммируя количество; порядок
// первого появления сохраняется. Слитые строки удовлетворяют первичному
// ключу order_lines(order_id, drink_id).
func mergeLines(lines []domain.OrderLine) []domain.OrderLine {
	index := make(map[string]int, len(lines))
	merged := make([]domain.OrderLine, 0, len(lines))
	for _, l := range lines {
		if i, ok := index[l.DrinkID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.DrinkID] = len(merged)
		merged = append(merged, l)
	}
	return merged
}

// ResolveLines развертывает строки существующего заказа в дельты
// (используется при изменении строк и прямом возврате остатка)
func (a *Assembler) ResolveLines(ctx context.Context, lines []domain.OrderLine) ([]domain.ItemDelta, error) {
	return a.resolver.Resolve(ctx, lines)
}
