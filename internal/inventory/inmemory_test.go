package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/akriventsev/codepop/internal/domain"
)

func TestInMemoryStore_SaveAndGet(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	item := domain.InventoryItem{ItemID: "espresso", Name: "Espresso Beans", OnHand: 10, ReorderThreshold: 3}
	if err := store.SaveItem(ctx, item); err != nil {
		t.Fatalf("SaveItem failed: %v", err)
	}

	got, err := store.GetItem(ctx, "espresso")
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got != item {
		t.Errorf("Expected %+v, got %+v", item, got)
	}

	if _, err := store.GetItem(ctx, "missing"); !errors.Is(err, domain.ErrUnknownItem) {
		t.Errorf("Expected unknown item error, got %v", err)
	}
}

func TestInMemoryStore_SaveItem_Validation(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.SaveItem(ctx, domain.InventoryItem{OnHand: 1}); err == nil {
		t.Error("Expected error for empty item ID")
	}
	if err := store.SaveItem(ctx, domain.InventoryItem{ItemID: "x", OnHand: -1}); err == nil {
		t.Error("Expected error for negative on-hand")
	}
}

func TestInMemoryStore_ApplyDeltas_Atomic(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	store.SaveItem(ctx, domain.InventoryItem{ItemID: "a", OnHand: 10})
	store.SaveItem(ctx, domain.InventoryItem{ItemID: "b", OnHand: 2})

	// Вторая дельта ушла бы в минус: ни одна не применяется
	err := store.ApplyDeltas(ctx, []domain.ItemDelta{
		{ItemID: "a", Quantity: -5},
		{ItemID: "b", Quantity: -3},
	})
	if err == nil {
		t.Fatal("Expected error for delta driving on-hand negative")
	}

	a, _ := store.GetItem(ctx, "a")
	if a.OnHand != 10 {
		t.Errorf("Expected on-hand 10 untouched, got %d", a.OnHand)
	}

	if err := store.ApplyDeltas(ctx, []domain.ItemDelta{
		{ItemID: "a", Quantity: -5},
		{ItemID: "b", Quantity: -2},
	}); err != nil {
		t.Fatalf("ApplyDeltas failed: %v", err)
	}

	a, _ = store.GetItem(ctx, "a")
	b, _ := store.GetItem(ctx, "b")
	if a.OnHand != 5 || b.OnHand != 0 {
		t.Errorf("Expected on-hand 5/0, got %d/%d", a.OnHand, b.OnHand)
	}
}

func TestInMemoryStore_ListItems_Sorted(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"milk", "espresso", "syrup"} {
		store.SaveItem(ctx, domain.InventoryItem{ItemID: id, OnHand: 1})
	}

	items, err := store.ListItems(ctx)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i-1].ItemID >= items[i].ItemID {
			t.Errorf("Items not sorted: %s before %s", items[i-1].ItemID, items[i].ItemID)
		}
	}
}
