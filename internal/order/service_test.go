package order

import (
	"context"
	"errors"
	"testing"

	"github.com/akriventsev/codepop/internal/catalog"
	"github.com/akriventsev/codepop/internal/domain"
	"github.com/akriventsev/codepop/internal/events"
	"github.com/akriventsev/codepop/internal/inventory"
	"github.com/akriventsev/codepop/internal/payment"
	"github.com/akriventsev/codepop/internal/recipe"
)

type serviceFixture struct {
	service   *Service
	store     *inventory.InMemoryStore
	engine    *inventory.Engine
	repo      *InMemoryRepository
	gateway   *payment.NopGateway
	publisher *events.InMemoryPublisher
}

// newServiceFixture собирает сервис на in-memory зависимостях:
// каталог с latte (1 espresso + 3 milk) и espresso-shot (1 espresso),
// склад с 10 espresso и 30 milk
func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ctx := context.Background()

	catalogStore := catalog.NewInMemoryStore()
	drinks := []domain.Drink{
		{DrinkID: "latte", Name: "Latte", Recipe: []domain.RecipeEntry{
			{ItemID: "espresso", QtyPerUnit: 1},
			{ItemID: "milk", QtyPerUnit: 3},
		}},
		{DrinkID: "espresso-shot", Name: "Espresso Shot", Recipe: []domain.RecipeEntry{
			{ItemID: "espresso", QtyPerUnit: 1},
		}},
	}
	for _, d := range drinks {
		if err := catalogStore.SaveDrink(ctx, d); err != nil {
			t.Fatalf("Failed to seed drink: %v", err)
		}
	}

	store := inventory.NewInMemoryStore()
	store.SaveItem(ctx, domain.InventoryItem{ItemID: "espresso", OnHand: 10})
	store.SaveItem(ctx, domain.InventoryItem{ItemID: "milk", OnHand: 30})

	engine, err := inventory.NewEngine(store, inventory.DefaultEngineConfig())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	repo := NewInMemoryRepository()
	gateway := &payment.NopGateway{}
	publisher := events.NewInMemoryPublisher()
	assembler := NewAssembler(recipe.NewResolver(catalogStore))

	return &serviceFixture{
		service:   NewService(repo, engine, assembler, gateway, publisher),
		store:     store,
		engine:    engine,
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
	}
}

func (f *serviceFixture) onHand(t *testing.T, itemID string) int {
	t.Helper()
	item, err := f.store.GetItem(context.Background(), itemID)
	if err != nil {
		t.Fatalf("Failed to get item %s: %v", itemID, err)
	}
	return item.OnHand
}

func (f *serviceFixture) eventTypes() []string {
	var types []string
	for _, e := range f.publisher.Published() {
		types = append(types, e.EventType)
	}
	return types
}

func TestService_Create(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	order, err := f.service.Create(ctx, "user-1", []domain.OrderLine{{DrinkID: "latte", Quantity: 2}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if order.Status != domain.OrderStatusPending {
		t.Errorf("Expected status pending, got %s", order.Status)
	}
	if _, err := f.repo.FindByID(ctx, order.OrderID); err != nil {
		t.Errorf("Expected order persisted: %v", err)
	}

	// Резервирование провизорно: on-hand не тронут, доступность снижена
	if got := f.onHand(t, "espresso"); got != 10 {
		t.Errorf("Expected on-hand 10, got %d", got)
	}
	if pending := f.engine.PendingSnapshot(); pending["espresso"] != 2 || pending["milk"] != 6 {
		t.Errorf("Unexpected pending: %v", pending)
	}

	types := f.eventTypes()
	if len(types) != 1 || types[0] != events.TypeOrderCreated {
		t.Errorf("Expected single order.created event, got %v", types)
	}
}

func TestService_Create_InsufficientStock_NoOrderPersisted(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, "user-1", []domain.OrderLine{{DrinkID: "espresso-shot", Quantity: 11}})

	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	if stockErr.ItemID != "espresso" || stockErr.Requested != 11 || stockErr.Available != 10 {
		t.Errorf("Unexpected error details: %+v", stockErr)
	}

	orders, _ := f.repo.FindByUser(ctx, "user-1")
	if len(orders) != 0 {
		t.Errorf("Expected no persisted orders, got %d", len(orders))
	}
	if len(f.eventTypes()) != 0 {
		t.Errorf("Expected no events, got %v", f.eventTypes())
	}
}

func TestService_Create_UnknownDrink(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Create(context.Background(), "user-1", []domain.OrderLine{{DrinkID: "mystery", Quantity: 1}})
	if !errors.Is(err, domain.ErrUnknownDrink) {
		t.Errorf("Expected unknown drink error, got %v", err)
	}
}

func TestService_Confirm(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	order, err := f.service.Create(ctx, "user-1", []domain.OrderLine{{DrinkID: "latte", Quantity: 2}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	confirmed, err := f.service.Confirm(ctx, order.OrderID)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if confirmed.Status != domain.OrderStatusConfirmed {
		t.Errorf("Expected status confirmed, got %s", confirmed.Status)
	}
	if confirmed.ConfirmedAt == nil {
		t.Error("Expected ConfirmedAt to be set")
	}

	// Списание закоммичено
	if got := f.onHand(t, "espresso"); got != 8 {
		t.Errorf("Expected on-hand 8, got %d", got)
	}
	if got := f.onHand(t, "milk"); got != 24 {
		t.Errorf("Expected on-hand 24, got %d", got)
	}
	if pending := f.engine.PendingSnapshot(); len(pending) != 0 {
		t.Errorf("Expected empty pending, got %v", pending)
	}

	// Повторный webhook не списывает второй раз
	again, err := f.service.Confirm(ctx, order.OrderID)
	if err != nil {
		t.Fatalf("Repeated confirm failed: %v", err)
	}
	if again.Status != domain.OrderStatusConfirmed {
		t.Errorf("Expected status confirmed, got %s", again.Status)
	}
	if got := f.onHand(t, "espresso"); got != 8 {
		t.Errorf("Expected on-hand 8 after repeated confirm, got %d", got)
	}
}

func TestService_Cancel_Pending_RestoresAvailability(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	order, _ := f.service.Create(ctx, "user-1", []domain.OrderLine{{DrinkID: "espresso-shot", Quantity: 10}})

	cancelled, err := f.service.Cancel(ctx, "user-1", order.OrderID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Errorf("Expected status cancelled, got %s", cancelled.Status)
	}

	// Весь остаток снова доступен
	if _, err := f.service.Create(ctx, "user-2", []domain.OrderLine{{DrinkID: "espresso-shot", Quantity: 10}}); err != nil {
		t.Errorf("Expected released quantity available, got %v", err)
	}

	// Повторная отмена — no-op
	again, err := f.service.Cancel(ctx, "user-1", order.OrderID)
	if err != nil {
		t.Fatalf("Repeated cancel failed: %v", err)
	}
	if again.Status != domain.OrderStatusCancelled {
		t.Errorf("Expected status cancelled, got %s", again.Status)
	}
}

func TestService_Cancel_Confirmed_RefundsAndRestocks(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	order, _ := f.service.Create(ctx, "user-1", []domain.OrderLine{{DrinkID: "latte", Quantity: 2}})
	if _, err := f.service.Confirm(ctx, order.OrderID); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if got := f.onHand(t, "espresso"); got != 8 {
		t.Fatalf("Expected on-hand 8 after confirm, got %d", got)
	}

	cancelled, err := f.service.Cancel(ctx, "user-1", order.OrderID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Errorf("Expected status cancelled, got %s", cancelled.Status)
	}

	// Остаток вернулся прямым кредитованием
	if got := f.onHand(t, "espresso"); got != 10 {
		t.Errorf("Expected on-hand 10 after restock, got %d", got)
	}
	if got := f.onHand(t, "milk"); got != 30 {
		t.Errorf("Expected on-hand 30 after restock, got %d", got)
	}
}

func TestService_Cancel_Confirmed_RefundFailureKeepsOrder(t *testing.T) {
	f := newServiceFixture(t)
	f.gateway.FailRefunds = true
	ctx := context.Background()

	order, _ := f.service.Create(ctx, "user-1", []domain.OrderLine{{DrinkID: "latte", Quantity: 1}})
	if _, err := f.service.Confirm(ctx, order.OrderID); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	_, err := f.service.Cancel(ctx, "user-1", order.OrderID)
	if !errors.Is(err, domain.ErrPaymentFailed) {
		t.Fatalf("Expected payment failed error, got %v", err)
	}

	stored, _ := f.repo.FindByID(ctx, order.OrderID)
	if stored.Status != domain.OrderStatusConfirmed {
		t.Errorf("Expected order to stay confirmed, got %s", stored.Status)
	}
	if got := f.onHand(t, "espresso"); got != 9 {
		t.Errorf("Expected stock untouched after failed refund, got %d", got)
	}
}

func TestService_Cancel_Fulfilled_Illegal(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	order, _ := f.service.Create(ctx, "user-1", []domain.OrderLine{{DrinkID: "latte", Quantity: 1}})
	f.service.Confirm(ctx, order.OrderID)
	if _, err := f.service.Fulfill(ctx, order.OrderID); err != nil {
		t.Fatalf("Fulfill failed: %v", err)
	}

	_, err := f.service.Cancel(ctx, "user-1", order.OrderID)
	if !errors.Is(err, domain.ErrIllegalTransition) {
		t.Errorf("Expected illegal transition error, got %v", err)
	}
}

func TestService_Fulfill(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	order, _ := f.service.Create(ctx, "user-1", []domain.OrderLine{{DrinkID: "latte", Quantity: 1}})

	// Выдача до подтверждения недопустима
	if _, err := f.service.Fulfill(ctx, order.OrderID); !errors.Is(err, domain.ErrIllegalTransition) {
		t.Errorf("Expected illegal transition error, got %v", err)
	}

	f.service.Confirm(ctx, order.OrderID)
	onHandBefore := f.onHand(t, "espresso")

	fulfilled, err := f.service.Fulfill(ctx, order.OrderID)
	if err != nil {
		t.Fatalf("Fulfill failed: %v", err)
	}
	if fulfilled.Status != domain.OrderStatusFulfilled {
		t.Errorf("Expected status fulfilled, got %s", fulfilled.Status)
	}

	// Выдача не трогает инвентарь
	if got := f.onHand(t, "espresso"); got != onHandBefore {
		t.Errorf("Expected on-hand unchanged, got %d", got)
	}
}

func TestService_UpdateLines(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	order, _ := f.service.Create(ctx, "user-1", []domain.OrderLine{{DrinkID: "espresso-shot", Quantity: 4}})

	updated, err := f.service.UpdateLines(ctx, "user-1", order.OrderID, []domain.OrderLine{{DrinkID: "espresso-shot", Quantity: 8}})
	if err != nil {
		t.Fatalf("UpdateLines failed: %v", err)
	}
	if updated.Lines[0].Quantity != 8 {
		t.Errorf("Expected quantity 8, got %d", updated.Lines[0].Quantity)
	}
	if pending := f.engine.PendingSnapshot(); pending["espresso"] != 8 {
		t.Errorf("Expected pending 8, got %v", pending)
	}

	// Запрос сверх остатка оставляет заказ как был
	_, err = f.service.UpdateLines(ctx, "user-1", order.OrderID, []domain.OrderLine{{DrinkID: "espresso-shot", Quantity: 11}})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("Expected insufficient stock, got %v", err)
	}
	stored, _ := f.repo.FindByID(ctx, order.OrderID)
	if stored.Lines[0].Quantity != 8 {
		t.Errorf("Expected stored quantity 8 after failed update, got %d", stored.Lines[0].Quantity)
	}
}

func TestService_UpdateLines_NonPending(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	order, _ := f.service.Create(ctx, "user-1", []domain.OrderLine{{DrinkID: "latte", Quantity: 1}})
	f.service.Confirm(ctx, order.OrderID)

	_, err := f.service.UpdateLines(ctx, "user-1", order.OrderID, []domain.OrderLine{{DrinkID: "latte", Quantity: 2}})
	if !errors.Is(err, domain.ErrIllegalTransition) {
		t.Errorf("Expected illegal transition error, got %v", err)
	}
}

func TestService_OwnershipChecks(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	order, _ := f.service.Create(ctx, "user-1", []domain.OrderLine{{DrinkID: "latte", Quantity: 1}})

	if _, err := f.service.Get(ctx, "user-2", order.OrderID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Expected unauthorized for foreign order, got %v", err)
	}
	if _, err := f.service.Cancel(ctx, "user-2", order.OrderID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Expected unauthorized cancel, got %v", err)
	}
	if _, err := f.service.ListByUser(ctx, "user-2", "user-1"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Expected unauthorized list, got %v", err)
	}

	orders, err := f.service.ListByUser(ctx, "user-1", "user-1")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(orders) != 1 {
		t.Errorf("Expected 1 order, got %d", len(orders))
	}
}

func TestService_LifecycleEvents(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	order, _ := f.service.Create(ctx, "user-1", []domain.OrderLine{{DrinkID: "latte", Quantity: 1}})
	f.service.Confirm(ctx, order.OrderID)
	f.service.Fulfill(ctx, order.OrderID)

	expected := []string{events.TypeOrderCreated, events.TypeOrderConfirmed, events.TypeOrderFulfilled}
	got := f.eventTypes()
	if len(got) != len(expected) {
		t.Fatalf("Expected %d events, got %v", len(expected), got)
	}
	for i, e := range expected {
		if got[i] != e {
			t.Errorf("Event %d: expected %s, got %s", i, e, got[i])
		}
	}
}

func TestService_Create_MergesDuplicateDrinkLines(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	order, err := f.service.Create(ctx, "user-1", []domain.OrderLine{
		{DrinkID: "latte", Quantity: 2},
		{DrinkID: "espresso-shot", Quantity: 1},
		{DrinkID: "latte", Quantity: 3},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Повторы одного напитка слиты в одну строку: ключ (order, drink)
	// в хранилище уникален
	if len(order.Lines) != 2 {
		t.Fatalf("Expected 2 merged lines, got %d", len(order.Lines))
	}
	if order.Lines[0].DrinkID != "latte" || order.Lines[0].Quantity != 5 {
		t.Errorf("Expected latte quantity 5, got %+v", order.Lines[0])
	}
	if order.Lines[1].DrinkID != "espresso-shot" || order.Lines[1].Quantity != 1 {
		t.Errorf("Expected espresso-shot quantity 1, got %+v", order.Lines[1])
	}

	stored, err := f.repo.FindByID(ctx, order.OrderID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if len(stored.Lines) != 2 {
		t.Errorf("Expected 2 persisted lines, got %d", len(stored.Lines))
	}
}

func TestService_UpdateLines_MergesDuplicateDrinkLines(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	order, err := f.service.Create(ctx, "user-1", []domain.OrderLine{{DrinkID: "latte", Quantity: 1}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := f.service.UpdateLines(ctx, "user-1", order.OrderID, []domain.OrderLine{
		{DrinkID: "latte", Quantity: 2},
		{DrinkID: "latte", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("UpdateLines failed: %v", err)
	}

	if len(updated.Lines) != 1 {
		t.Fatalf("Expected 1 merged line, got %d", len(updated.Lines))
	}
	if updated.Lines[0].Quantity != 4 {
		t.Errorf("Expected quantity 4, got %d", updated.Lines[0].Quantity)
	}
	if pending := f.engine.PendingSnapshot(); pending["espresso"] != 4 || pending["milk"] != 12 {
		t.Errorf("Unexpected pending: %v", pending)
	}
}
