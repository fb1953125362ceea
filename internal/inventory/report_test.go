package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/akriventsev/codepop/internal/domain"
)

type stubOrderSource struct {
	orders []*domain.Order
}

func (s *stubOrderSource) FindCommittedInWindow(ctx context.Context, from, to time.Time) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range s.orders {
		if o.ConfirmedAt != nil && !o.ConfirmedAt.Before(from) && !o.ConfirmedAt.After(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

type stubExpander struct {
	perDrink map[string][]domain.ItemDelta
}

func (s *stubExpander) Resolve(ctx context.Context, lines []domain.OrderLine) ([]domain.ItemDelta, error) {
	totals := make(map[string]int)
	for _, l := range lines {
		for _, d := range s.perDrink[l.DrinkID] {
			totals[d.ItemID] += d.Quantity * l.Quantity
		}
	}
	var deltas []domain.ItemDelta
	for itemID, qty := range totals {
		deltas = append(deltas, domain.ItemDelta{ItemID: itemID, Quantity: qty})
	}
	return deltas, nil
}

func TestReportGenerator_CurrentStock(t *testing.T) {
	engine, store := newTestEngine(t, map[string]int{})
	ctx := context.Background()

	store.SaveItem(ctx, domain.InventoryItem{ItemID: "espresso", Name: "Espresso", OnHand: 10, ReorderThreshold: 5})
	store.SaveItem(ctx, domain.InventoryItem{ItemID: "milk", Name: "Milk", OnHand: 20, ReorderThreshold: 4})

	if _, err := engine.Reserve(ctx, "order-1", []domain.ItemDelta{{ItemID: "espresso", Quantity: 6}}); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	gen := NewReportGenerator(store, engine, &stubOrderSource{}, &stubExpander{})
	entries, err := gen.CurrentStock(ctx)
	if err != nil {
		t.Fatalf("CurrentStock failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	espresso := entries[0]
	if espresso.ItemID != "espresso" {
		t.Fatalf("Expected espresso first, got %s", espresso.ItemID)
	}
	if espresso.OnHand != 10 || espresso.Pending != 6 || espresso.Available != 4 {
		t.Errorf("Unexpected espresso entry: %+v", espresso)
	}
	// available 4 < threshold 5
	if !espresso.LowStock {
		t.Error("Expected espresso flagged low stock")
	}
	if entries[1].LowStock {
		t.Error("Did not expect milk flagged low stock")
	}
}

func TestReportGenerator_LowStock(t *testing.T) {
	engine, store := newTestEngine(t, map[string]int{})
	ctx := context.Background()

	store.SaveItem(ctx, domain.InventoryItem{ItemID: "espresso", OnHand: 2, ReorderThreshold: 5})
	store.SaveItem(ctx, domain.InventoryItem{ItemID: "milk", OnHand: 20, ReorderThreshold: 4})

	gen := NewReportGenerator(store, engine, &stubOrderSource{}, &stubExpander{})
	low, err := gen.LowStock(ctx)
	if err != nil {
		t.Fatalf("LowStock failed: %v", err)
	}
	if len(low) != 1 || low[0].ItemID != "espresso" {
		t.Errorf("Expected only espresso low, got %+v", low)
	}
}

func TestReportGenerator_Consumption(t *testing.T) {
	engine, store := newTestEngine(t, map[string]int{})
	ctx := context.Background()

	now := time.Now().UTC()
	inWindow := now.Add(-time.Hour)
	outOfWindow := now.Add(-48 * time.Hour)

	orders := &stubOrderSource{orders: []*domain.Order{
		{
			OrderID:     "order-1",
			Status:      domain.OrderStatusConfirmed,
			Lines:       []domain.OrderLine{{DrinkID: "latte", Quantity: 2}},
			ConfirmedAt: &inWindow,
		},
		{
			OrderID:     "order-2",
			Status:      domain.OrderStatusFulfilled,
			Lines:       []domain.OrderLine{{DrinkID: "latte", Quantity: 1}},
			ConfirmedAt: &outOfWindow,
		},
	}}
	expander := &stubExpander{perDrink: map[string][]domain.ItemDelta{
		"latte": {{ItemID: "espresso", Quantity: 1}, {ItemID: "milk", Quantity: 3}},
	}}

	gen := NewReportGenerator(store, engine, orders, expander)
	entries, err := gen.Consumption(ctx, now.Add(-2*time.Hour), now)
	if err != nil {
		t.Fatalf("Consumption failed: %v", err)
	}

	expected := map[string]int{"espresso": 2, "milk": 6}
	if len(entries) != len(expected) {
		t.Fatalf("Expected %d entries, got %d", len(expected), len(entries))
	}
	for _, e := range entries {
		if expected[e.ItemID] != e.Quantity {
			t.Errorf("Item %s: expected %d, got %d", e.ItemID, expected[e.ItemID], e.Quantity)
		}
	}
}

func TestReportGenerator_Consumption_InvalidWindow(t *testing.T) {
	engine, store := newTestEngine(t, map[string]int{})
	gen := NewReportGenerator(store, engine, &stubOrderSource{}, &stubExpander{})

	now := time.Now()
	if _, err := gen.Consumption(context.Background(), now, now.Add(-time.Hour)); err == nil {
		t.Error("Expected error for inverted window")
	}
}
