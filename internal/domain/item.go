package domain

// InventoryItem позиция инвентаря. OnHand мутируется только операциями
// commit/release движка резервирования; инвариант OnHand >= 0.
type InventoryItem struct {
	ItemID           string
	Name             string
	OnHand           int
	ReorderThreshold int
}

// ID возвращает идентификатор позиции
func (i InventoryItem) ID() string {
	return i.ItemID
}

// ItemDelta требуемое количество по позиции инвентаря
type ItemDelta struct {
	ItemID   string
	Quantity int
}
