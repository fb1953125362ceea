package transport

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/akriventsev/codepop/internal/auth"
	"github.com/akriventsev/codepop/internal/domain"
	"github.com/akriventsev/codepop/internal/inventory"
)

// orderLineDTO строка заказа на проводе
type orderLineDTO struct {
	DrinkID  string `json:"drink_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

// orderDTO заказ на проводе
type orderDTO struct {
	OrderID     string         `json:"order_id"`
	UserID      string         `json:"user_id"`
	Lines       []orderLineDTO `json:"lines"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ConfirmedAt *time.Time     `json:"confirmed_at,omitempty"`
}

// recipeEntryDTO ингредиент рецепта на проводе
type recipeEntryDTO struct {
	ItemID     string `json:"item_id"`
	QtyPerUnit int    `json:"qty_per_unit"`
}

// drinkDTO напиток на проводе
type drinkDTO struct {
	DrinkID       string           `json:"drink_id"`
	Name          string           `json:"name"`
	IsUserCreated bool             `json:"is_user_created"`
	UserID        string           `json:"user_id,omitempty"`
	Recipe        []recipeEntryDTO `json:"recipe"`
}

// itemDTO позиция инвентаря на проводе
type itemDTO struct {
	ItemID           string `json:"item_id"`
	Name             string `json:"name"`
	OnHand           int    `json:"on_hand"`
	ReorderThreshold int    `json:"reorder_threshold"`
}

func toOrderDTO(o *domain.Order) orderDTO {
	lines := make([]orderLineDTO, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineDTO{DrinkID: l.DrinkID, Quantity: l.Quantity}
	}
	return orderDTO{
		OrderID:     o.OrderID,
		UserID:      o.UserID,
		Lines:       lines,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		ConfirmedAt: o.ConfirmedAt,
	}
}

func toDrinkDTO(d domain.Drink) drinkDTO {
	recipe := make([]recipeEntryDTO, len(d.Recipe))
	for i, e := range d.Recipe {
		recipe[i] = recipeEntryDTO{ItemID: e.ItemID, QtyPerUnit: e.QtyPerUnit}
	}
	return drinkDTO{
		DrinkID:       d.DrinkID,
		Name:          d.Name,
		IsUserCreated: d.IsUserCreated,
		UserID:        d.UserID,
		Recipe:        recipe,
	}
}

func toItemDTO(i domain.InventoryItem) itemDTO {
	return itemDTO{
		ItemID:           i.ItemID,
		Name:             i.Name,
		OnHand:           i.OnHand,
		ReorderThreshold: i.ReorderThreshold,
	}
}

func toDomainLines(lines []orderLineDTO) []domain.OrderLine {
	out := make([]domain.OrderLine, len(lines))
	for i, l := range lines {
		out[i] = domain.OrderLine{DrinkID: l.DrinkID, Quantity: l.Quantity}
	}
	return out
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListDrinks(c *gin.Context) {
	drinks, err := s.catalog.ListCatalog(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]drinkDTO, len(drinks))
	for i, d := range drinks {
		out[i] = toDrinkDTO(d)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetDrink(c *gin.Context) {
	drink, err := s.catalog.GetDrink(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDrinkDTO(drink))
}

func (s *Server) handleListUserDrinks(c *gin.Context) {
	drinks, err := s.catalog.FindByUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]drinkDTO, len(drinks))
	for i, d := range drinks {
		out[i] = toDrinkDTO(d)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleListInventory(c *gin.Context) {
	items, err := s.store.ListItems(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]itemDTO, len(items))
	for i, item := range items {
		out[i] = toItemDTO(item)
	}
	c.JSON(http.StatusOK, out)
}

// updateItemRequest частичное обновление позиции: nil-поля не трогаются
type updateItemRequest struct {
	Name             *string `json:"name"`
	OnHand           *int    `json:"on_hand"`
	ReorderThreshold *int    `json:"reorder_threshold"`
}

func (s *Server) handleUpdateInventory(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	itemID := c.Param("id")

	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		// Позиции еще нет: PUT создает ее
		item = domain.InventoryItem{ItemID: itemID}
	}
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.OnHand != nil {
		if *req.OnHand < 0 {
			respondError(c, domain.NewError(domain.CodeInvalidQuantity, "on_hand cannot be negative"))
			return
		}
		item.OnHand = *req.OnHand
	}
	if req.ReorderThreshold != nil {
		item.ReorderThreshold = *req.ReorderThreshold
	}

	if err := s.store.SaveItem(ctx, item); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemDTO(item))
}

// inventoryReport агрегированный отчет по инвентарю
type inventoryReport struct {
	Stock       []inventory.StockEntry       `json:"stock"`
	LowStock    []inventory.StockEntry       `json:"low_stock"`
	Consumption []inventory.ConsumptionEntry `json:"consumption,omitempty"`
}

func (s *Server) handleInventoryReport(c *gin.Context) {
	ctx := c.Request.Context()

	stock, err := s.reports.CurrentStock(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	low, err := s.reports.LowStock(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	report := inventoryReport{Stock: stock, LowStock: low}

	fromStr, toStr := c.Query("from"), c.Query("to")
	if fromStr != "" && toStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}
		report.Consumption, err = s.reports.Consumption(ctx, from, to)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, report)
}

// createOrderRequest запрос создания заказа
type createOrderRequest struct {
	Lines []orderLineDTO `json:"lines" binding:"required"`
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := s.orders.Create(c.Request.Context(), auth.UserID(c), toDomainLines(req.Lines))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderDTO(order))
}

func (s *Server) handleGetOrder(c *gin.Context) {
	order, err := s.orders.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderDTO(order))
}

func (s *Server) handleUpdateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := s.orders.UpdateLines(c.Request.Context(), auth.UserID(c), c.Param("id"), toDomainLines(req.Lines))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderDTO(order))
}

func (s *Server) handleConfirmOrder(c *gin.Context) {
	order, err := s.orders.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderDTO(order))
}

func (s *Server) handleCancelOrder(c *gin.Context) {
	order, err := s.orders.Cancel(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderDTO(order))
}

func (s *Server) handleFulfillOrder(c *gin.Context) {
	order, err := s.orders.Fulfill(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderDTO(order))
}

// paymentIntentRequest запрос создания платежного намерения
type paymentIntentRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required"`
}

func (s *Server) handlePaymentIntent(c *gin.Context) {
	var req paymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.AmountCents <= 0 {
		respondError(c, domain.NewError(domain.CodeInvalidQuantity, "amount_cents must be positive"))
		return
	}

	// Заказ должен существовать и принадлежать вызывающему
	if _, err := s.orders.Get(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	secret, err := s.gateway.CreateIntent(c.Request.Context(), req.AmountCents)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"client_secret": secret})
}

func (s *Server) handleListUserOrders(c *gin.Context) {
	orders, err := s.orders.ListByUser(c.Request.Context(), auth.UserID(c), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]orderDTO, len(orders))
	for i, o := range orders {
		out[i] = toOrderDTO(o)
	}
	c.JSON(http.StatusOK, out)
}
