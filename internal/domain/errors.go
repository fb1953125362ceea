// Package domain предоставляет доменные сущности и систему ошибок сервиса.
package domain

import "fmt"

// Коды доменных ошибок
const (
	CodeUnknownDrink           = "UNKNOWN_DRINK"
	CodeUnknownItem            = "UNKNOWN_ITEM"
	CodeInvalidQuantity        = "INVALID_QUANTITY"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeIllegalStateTransition = "ILLEGAL_STATE_TRANSITION"
	CodePaymentFailed          = "PAYMENT_FAILED"
	CodeRetryExhausted         = "RETRY_EXHAUSTED"
	CodeNotFound               = "NOT_FOUND"
	CodeUnauthorized           = "UNAUTHORIZED"
)

// DomainError базовый тип доменной ошибки
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

// Error реализует интерфейс error
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap возвращает причину ошибки
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is проверяет, соответствует ли ошибка коду
func (e *DomainError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		return e.Code == t.Code
	}
	return false
}

// NewError создает новую доменную ошибку
func NewError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Wrap оборачивает существующую ошибку доменным кодом
func Wrap(err error, code, message string) *DomainError {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, Cause: err}
}

// Sentinel-ошибки для проверки через errors.Is
var (
	ErrUnknownDrink    = &DomainError{Code: CodeUnknownDrink, Message: "unknown drink"}
	ErrUnknownItem     = &DomainError{Code: CodeUnknownItem, Message: "unknown inventory item"}
	ErrInvalidQuantity = &DomainError{Code: CodeInvalidQuantity, Message: "quantity must be positive"}
	ErrNotFound        = &DomainError{Code: CodeNotFound, Message: "not found"}
	ErrUnauthorized    = &DomainError{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrPaymentFailed   = &DomainError{Code: CodePaymentFailed, Message: "payment failed"}
)

// InsufficientStockError ошибка нехватки остатка по конкретной позиции.
// Называет первую позицию, не прошедшую проверку доступности (в порядке
// возрастания идентификаторов), чтобы вызывающая сторона могла повторить
// запрос со скорректированным количеством.
type InsufficientStockError struct {
	ItemID    string
	Requested int
	Available int
}

// Error реализует интерфейс error
func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("[%s] item %s: requested %d, available %d",
		CodeInsufficientStock, e.ItemID, e.Requested, e.Available)
}

// Is проверяет соответствие коду INSUFFICIENT_STOCK
func (e *InsufficientStockError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		return t.Code == CodeInsufficientStock
	}
	_, ok := target.(*InsufficientStockError)
	return ok
}

// ErrInsufficientStock sentinel для errors.Is
var ErrInsufficientStock = &DomainError{Code: CodeInsufficientStock, Message: "insufficient stock"}

// IllegalTransitionError ошибка недопустимого перехода статуса заказа
type IllegalTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

// Error реализует интерфейс error
func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("[%s] %s -> %s", CodeIllegalStateTransition, e.From, e.To)
}

// Is проверяет соответствие коду ILLEGAL_STATE_TRANSITION
func (e *IllegalTransitionError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		return t.Code == CodeIllegalStateTransition
	}
	_, ok := target.(*IllegalTransitionError)
	return ok
}

// ErrIllegalTransition sentinel для errors.Is
var ErrIllegalTransition = &DomainError{Code: CodeIllegalStateTransition, Message: "illegal state transition"}

// RetryExhaustedError ошибка исчерпания бюджета повторов при захвате
// блокировок позиций инвентаря
type RetryExhaustedError struct {
	ItemID   string
	Attempts int
}

// Error реализует интерфейс error
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("[%s] item %s: lock acquisition failed after %d attempts",
		CodeRetryExhausted, e.ItemID, e.Attempts)
}

// Is проверяет соответствие коду RETRY_EXHAUSTED
func (e *RetryExhaustedError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		return t.Code == CodeRetryExhausted
	}
	_, ok := target.(*RetryExhaustedError)
	return ok
}

// ErrRetryExhausted sentinel для errors.Is
var ErrRetryExhausted = &DomainError{Code: CodeRetryExhausted, Message: "concurrent modification retry exhausted"}
