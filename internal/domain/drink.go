package domain

// RecipeEntry ингредиент рецепта: позиция инвентаря и расход на единицу напитка
type RecipeEntry struct {
	ItemID     string
	QtyPerUnit int
}

// Drink напиток каталога. Рецепт считается неизменяемым после того, как
// на напиток сослалась строка существующего заказа: правки рецепта
// затрагивают только будущие заказы.
type Drink struct {
	DrinkID       string
	Name          string
	IsUserCreated bool
	UserID        string
	Recipe        []RecipeEntry
}

// ID возвращает идентификатор напитка
func (d Drink) ID() string {
	return d.DrinkID
}
