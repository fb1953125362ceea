package transport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akriventsev/codepop/internal/domain"
)

// httpStatus отображает доменную ошибку на HTTP статус
func httpStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrUnknownDrink),
		errors.Is(err, domain.ErrUnknownItem),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRetryExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError пишет ошибку клиенту. Нехватка остатка дополняется
// позицией и доступным количеством, чтобы клиент мог скорректировать
// заказ без повторного чтения инвентаря.
func respondError(c *gin.Context, err error) {
	status := httpStatus(err)

	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		c.JSON(status, gin.H{
			"error":     stockErr.Error(),
			"item_id":   stockErr.ItemID,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
		return
	}

	var domErr *domain.DomainError
	if errors.As(err, &domErr) {
		c.JSON(status, gin.H{"error": domErr.Message, "code": domErr.Code})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
