// Package metrics предоставляет систему метрик на основе OpenTelemetry.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics сборщик метрик сервиса
type Metrics struct {
	meter             metric.Meter
	ordersTotal       metric.Int64Counter
	orderDuration     metric.Float64Histogram
	reservationsTotal metric.Int64Counter
	stockConflicts    metric.Int64Counter
	paymentsTotal     metric.Int64Counter
	activeRequests    metric.Int64UpDownCounter
	requestDuration   metric.Float64Histogram
}

// NewMetrics создает новый сборщик метрик
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("codepop")

	ordersTotal, err := meter.Int64Counter(
		"orders_total",
		metric.WithDescription("Total number of order lifecycle transitions"),
	)
	if err != nil {
		return nil, err
	}

	orderDuration, err := meter.Float64Histogram(
		"order_operation_duration_seconds",
		metric.WithDescription("Order operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	reservationsTotal, err := meter.Int64Counter(
		"stock_reservations_total",
		metric.WithDescription("Total number of stock reservation attempts"),
	)
	if err != nil {
		return nil, err
	}

	stockConflicts, err := meter.Int64Counter(
		"stock_conflicts_total",
		metric.WithDescription("Total number of insufficient stock rejections"),
	)
	if err != nil {
		return nil, err
	}

	paymentsTotal, err := meter.Int64Counter(
		"payments_total",
		metric.WithDescription("Total number of payment gateway calls"),
	)
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		meter:             meter,
		ordersTotal:       ordersTotal,
		orderDuration:     orderDuration,
		reservationsTotal: reservationsTotal,
		stockConflicts:    stockConflicts,
		paymentsTotal:     paymentsTotal,
		activeRequests:    activeRequests,
		requestDuration:   requestDuration,
	}, nil
}

// RecordOrderTransition записывает переход заказа по жизненному циклу
func (m *Metrics) RecordOrderTransition(ctx context.Context, transition string, duration time.Duration, success bool) {
	attrs := metric.WithAttributes(
		attribute.String("transition", transition),
		attribute.Bool("success", success),
	)
	m.ordersTotal.Add(ctx, 1, attrs)
	m.orderDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordReservation записывает попытку резервирования
func (m *Metrics) RecordReservation(ctx context.Context, success bool) {
	m.reservationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("success", success),
	))
}

// RecordStockConflict записывает отказ по нехватке остатка
func (m *Metrics) RecordStockConflict(ctx context.Context, itemID string) {
	m.stockConflicts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("item_id", itemID),
	))
}

// RecordPayment записывает вызов платежного шлюза
func (m *Metrics) RecordPayment(ctx context.Context, operation string, success bool) {
	m.paymentsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	))
}

// IncrementActiveRequests увеличивает счетчик активных запросов
func (m *Metrics) IncrementActiveRequests(ctx context.Context) {
	m.activeRequests.Add(ctx, 1)
}

// DecrementActiveRequests уменьшает счетчик активных запросов
func (m *Metrics) DecrementActiveRequests(ctx context.Context) {
	m.activeRequests.Add(ctx, -1)
}

// RecordRequest записывает длительность HTTP запроса
func (m *Metrics) RecordRequest(ctx context.Context, route string, duration time.Duration, status int) {
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}
