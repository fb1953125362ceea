package recipe

import (
	"context"
	"errors"
	"testing"

	"github.com/akriventsev/codepop/internal/catalog"
	"github.com/akriventsev/codepop/internal/domain"
)

func newTestResolver(t *testing.T, drinks ...domain.Drink) *Resolver {
	t.Helper()

	store := catalog.NewInMemoryStore()
	for _, d := range drinks {
		if err := store.SaveDrink(context.Background(), d); err != nil {
			t.Fatalf("Failed to seed drink %s: %v", d.DrinkID, err)
		}
	}
	return NewResolver(store)
}

func TestResolver_Resolve_MergesSharedIngredients(t *testing.T) {
	resolver := newTestResolver(t,
		domain.Drink{DrinkID: "latte", Name: "Latte", Recipe: []domain.RecipeEntry{
			{ItemID: "espresso", QtyPerUnit: 1},
			{ItemID: "milk", QtyPerUnit: 3},
		}},
		domain.Drink{DrinkID: "cappuccino", Name: "Cappuccino", Recipe: []domain.RecipeEntry{
			{ItemID: "espresso", QtyPerUnit: 1},
			{ItemID: "milk", QtyPerUnit: 2},
		}},
	)

	deltas, err := resolver.Resolve(context.Background(), []domain.OrderLine{
		{DrinkID: "latte", Quantity: 2},
		{DrinkID: "cappuccino", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Общие ингредиенты сведены в одну дельту на позицию, сортировка по id
	expected := []domain.ItemDelta{
		{ItemID: "espresso", Quantity: 3},
		{ItemID: "milk", Quantity: 8},
	}
	if len(deltas) != len(expected) {
		t.Fatalf("Expected %d deltas, got %d", len(expected), len(deltas))
	}
	for i, d := range expected {
		if deltas[i] != d {
			t.Errorf("Delta %d: expected %+v, got %+v", i, d, deltas[i])
		}
	}
}

func TestResolver_Resolve_UnknownDrink(t *testing.T) {
	resolver := newTestResolver(t)

	_, err := resolver.Resolve(context.Background(), []domain.OrderLine{{DrinkID: "missing", Quantity: 1}})
	if !errors.Is(err, domain.ErrUnknownDrink) {
		t.Errorf("Expected unknown drink error, got %v", err)
	}
}

func TestResolver_Resolve_InvalidQuantity(t *testing.T) {
	resolver := newTestResolver(t, domain.Drink{DrinkID: "latte", Recipe: []domain.RecipeEntry{{ItemID: "milk", QtyPerUnit: 1}}})

	for _, qty := range []int{0, -1} {
		_, err := resolver.Resolve(context.Background(), []domain.OrderLine{{DrinkID: "latte", Quantity: qty}})
		if !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Errorf("Quantity %d: expected invalid quantity error, got %v", qty, err)
		}
	}
}

func TestResolver_Resolve_EmptyOrder(t *testing.T) {
	resolver := newTestResolver(t)

	_, err := resolver.Resolve(context.Background(), nil)
	if !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("Expected invalid quantity error for empty order, got %v", err)
	}
}
