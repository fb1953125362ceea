package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/akriventsev/codepop/internal/domain"
)

// StockEntry строка отчета по текущим остаткам
type StockEntry struct {
	ItemID           string `json:"item_id"`
	Name             string `json:"name"`
	OnHand           int    `json:"on_hand"`
	Pending          int    `json:"pending"`
	Available        int    `json:"available"`
	ReorderThreshold int    `json:"reorder_threshold"`
	LowStock         bool   `json:"low_stock"`
}

// ConsumptionEntry строка отчета потребления за окно
type ConsumptionEntry struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// CommittedOrderSource источник заказов с закоммиченным списанием
// внутри временного окна
type CommittedOrderSource interface {
	FindCommittedInWindow(ctx context.Context, from, to time.Time) ([]*domain.Order, error)
}

// RecipeExpander разворачивает строки заказа в дельты позиций инвентаря
type RecipeExpander interface {
	Resolve(ctx context.Context, lines []domain.OrderLine) ([]domain.ItemDelta, error)
}

// ReportGenerator read-only агрегация над хранилищем остатков и
// историей заказов. Пишущий путь не трогает: pending-итоги читаются
// коротким снимком ledger и не задерживают резервирования.
type ReportGenerator struct {
	store    Store
	engine   *Engine
	orders   CommittedOrderSource
	resolver RecipeExpander
}

// NewReportGenerator создает новый генератор отчетов
func NewReportGenerator(store Store, engine *Engine, orders CommittedOrderSource, resolver RecipeExpander) *ReportGenerator {
	return &ReportGenerator{
		store:    store,
		engine:   engine,
		orders:   orders,
		resolver: resolver,
	}
}

// CurrentStock возвращает по каждой позиции on-hand, pending-итог,
// доступное количество и флаг низкого остатка
// (available < reorder threshold)
func (g *ReportGenerator) CurrentStock(ctx context.Context) ([]StockEntry, error) {
	pending := g.engine.PendingSnapshot()

	items, err := g.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory items: %w", err)
	}

	entries := make([]StockEntry, 0, len(items))
	for _, item := range items {
		p := pending[item.ItemID]
		available := item.OnHand - p
		entries = append(entries, StockEntry{
			ItemID:           item.ItemID,
			Name:             item.Name,
			OnHand:           item.OnHand,
			Pending:          p,
			Available:        available,
			ReorderThreshold: item.ReorderThreshold,
			LowStock:         available < item.ReorderThreshold,
		})
	}
	return entries, nil
}

// LowStock возвращает только позиции с низким остатком
func (g *ReportGenerator) LowStock(ctx context.Context) ([]StockEntry, error) {
	entries, err := g.CurrentStock(ctx)
	if err != nil {
		return nil, err
	}

	low := make([]StockEntry, 0)
	for _, e := range entries {
		if e.LowStock {
			low = append(low, e)
		}
	}
	return low, nil
}

// Consumption суммирует рецептурные дельты заказов, чье списание было
// закоммичено внутри окна (статусы Confirmed/Fulfilled), с группировкой
// по позициям
func (g *ReportGenerator) Consumption(ctx context.Context, from, to time.Time) ([]ConsumptionEntry, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid window: to %s precedes from %s", to, from)
	}

	orders, err := g.orders.FindCommittedInWindow(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query committed orders: %w", err)
	}

	totals := make(map[string]int)
	for _, order := range orders {
		deltas, err := g.resolver.Resolve(ctx, order.Lines)
		if err != nil {
			return nil, fmt.Errorf("failed to expand order %s: %w", order.OrderID, err)
		}
		for _, d := range deltas {
			totals[d.ItemID] += d.Quantity
		}
	}

	entries := make([]ConsumptionEntry, 0, len(totals))
	for itemID, qty := range totals {
		entries = append(entries, ConsumptionEntry{ItemID: itemID, Quantity: qty})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ItemID < entries[j].ItemID })
	return entries, nil
}
