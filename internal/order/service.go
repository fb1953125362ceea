package order

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/akriventsev/codepop/internal/domain"
	"github.com/akriventsev/codepop/internal/events"
	"github.com/akriventsev/codepop/internal/fsm"
	"github.com/akriventsev/codepop/internal/inventory"
	"github.com/akriventsev/codepop/internal/metrics"
	"github.com/akriventsev/codepop/internal/payment"
)

// Service оркестрация жизненного цикла заказа: сборка, резервирование,
// подтверждение, отмена и выдача. Единственная точка мутации заказов.
type Service struct {
	repo      Repository
	engine    *inventory.Engine
	assembler *Assembler
	machine   *StateMachine
	gateway   payment.Gateway
	publisher events.Publisher
	metrics   *metrics.Metrics
}

// NewService создает новый сервис заказов
func NewService(repo Repository, engine *inventory.Engine, assembler *Assembler, gateway payment.Gateway, publisher events.Publisher) *Service {
	return &Service{
		repo:      repo,
		engine:    engine,
		assembler: assembler,
		machine:   NewStateMachine(),
		gateway:   gateway,
		publisher: publisher,
	}
}

// WithMetrics подключает сборщик метрик
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// Create валидирует запрос, резервирует остатки и сохраняет заказ в
// статусе Pending. При нехватке остатка заказ не персистится и наружу
// уходит InsufficientStockError; частичных резервирований не остается.
func (s *Service) Create(ctx context.Context, userID string, lines []domain.OrderLine) (*domain.Order, error) {
	start := time.Now()

	order, deltas, err := s.assembler.Assemble(ctx, userID, lines)
	if err != nil {
		return nil, err
	}

	reservation, err := s.engine.Reserve(ctx, order.OrderID, deltas)
	if err != nil {
		s.recordTransition(ctx, "create", start, false)
		return nil, err
	}

	if err := s.repo.Save(ctx, order); err != nil {
		// Заказ не персистнулся: резервирование не должно его пережить
		if releaseErr := s.engine.Release(ctx, reservation); releaseErr != nil {
			log.Printf("failed to release reservation for unsaved order %s: %v", order.OrderID, releaseErr)
		}
		s.recordTransition(ctx, "create", start, false)
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.TypeOrderCreated, order.OrderID, map[string]interface{}{
		"user_id": order.UserID,
		"lines":   len(order.Lines),
	}))
	s.recordTransition(ctx, "create", start, true)
	return order, nil
}

// Get возвращает заказ; доступ только у владельца
func (s *Service) Get(ctx context.Context, requesterID, orderID string) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != requesterID {
		return nil, domain.NewError(domain.CodeUnauthorized, "order belongs to another user")
	}
	return order, nil
}

// ListByUser возвращает заказы пользователя; доступ только у владельца
func (s *Service) ListByUser(ctx context.Context, requesterID, userID string) ([]*domain.Order, error) {
	if requesterID != userID {
		return nil, domain.NewError(domain.CodeUnauthorized, "cannot list orders of another user")
	}
	return s.repo.FindByUser(ctx, userID)
}

// UpdateLines изменяет строки Pending заказа. Вычисляется дельта между
// новым и старым требуемым расходом: net-прирост резервируется
// инкрементально, net-уменьшение возвращается в доступный остаток.
// При отказе инкрементального резервирования заказ не меняется.
func (s *Service) UpdateLines(ctx context.Context, requesterID, orderID string, lines []domain.OrderLine) (*domain.Order, error) {
	order, err := s.Get(ctx, requesterID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusPending {
		return nil, &domain.IllegalTransitionError{From: order.Status, To: domain.OrderStatusPending}
	}

	deltas, err := s.assembler.ResolveLines(ctx, lines)
	if err != nil {
		return nil, err
	}

	if _, err := s.engine.Rebalance(ctx, orderID, deltas); err != nil {
		return nil, err
	}

	order.Lines = mergeLines(lines)
	order.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to persist order update: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.TypeOrderUpdated, order.OrderID, map[string]interface{}{
		"lines": len(order.Lines),
	}))
	return order, nil
}

// Confirm подтверждает заказ после успешного платежа: резервирование
// коммитится и заказ переходит в Confirmed. Повторное подтверждение уже
// подтвержденного заказа — no-op (webhook шлюза может повторяться).
// Отказ платежа сюда не попадает: заказ остается Pending с живым
// резервированием, вызывающая сторона может повторить платеж или
// отменить заказ.
func (s *Service) Confirm(ctx context.Context, orderID string) (*domain.Order, error) {
	start := time.Now()

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.OrderStatusConfirmed {
		return order, nil
	}

	reservation, ok := s.engine.ReservationFor(orderID)
	if !ok {
		return nil, fmt.Errorf("order %s has no reservation to commit", orderID)
	}

	err = s.machine.Transition(ctx, order, EventConfirm, func(ctx context.Context, _ fsm.Event) error {
		return s.engine.Commit(ctx, reservation)
	})
	if err != nil {
		s.recordTransition(ctx, "confirm", start, false)
		return nil, err
	}

	now := time.Now().UTC()
	order.ConfirmedAt = &now
	if err := s.repo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to persist confirmed order: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.TypeOrderConfirmed, order.OrderID, nil))
	s.recordTransition(ctx, "confirm", start, true)
	return order, nil
}

// Cancel отменяет заказ. Из Pending резервирование освобождается; из
// Confirmed сначала инициируется возврат платежа, затем остаток
// возвращается прямым кредитованием on-hand (резервирования уже нет,
// оно было закоммичено). Повторная отмена уже отмененного заказа —
// no-op. Отмена Fulfilled заказа недопустима.
func (s *Service) Cancel(ctx context.Context, requesterID, orderID string) (*domain.Order, error) {
	start := time.Now()

	order, err := s.Get(ctx, requesterID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.OrderStatusCancelled {
		return order, nil
	}

	var action fsm.Action
	switch order.Status {
	case domain.OrderStatusPending:
		reservation, ok := s.engine.ReservationFor(orderID)
		action = func(ctx context.Context, _ fsm.Event) error {
			if !ok {
				return nil
			}
			return s.engine.Release(ctx, reservation)
		}
	case domain.OrderStatusConfirmed:
		action = func(ctx context.Context, _ fsm.Event) error {
			if err := s.gateway.Refund(ctx, orderID); err != nil {
				return err
			}
			deltas, err := s.assembler.ResolveLines(ctx, order.Lines)
			if err != nil {
				return err
			}
			return s.engine.Restock(ctx, deltas)
		}
	default:
		action = func(ctx context.Context, _ fsm.Event) error { return nil }
	}

	if err := s.machine.Transition(ctx, order, EventCancel, action); err != nil {
		s.recordTransition(ctx, "cancel", start, false)
		return nil, err
	}

	if err := s.repo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to persist cancelled order: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.TypeOrderCancelled, order.OrderID, nil))
	s.recordTransition(ctx, "cancel", start, true)
	return order, nil
}

// Fulfill отмечает выдачу подтвержденного заказа. Инвентарь не
// затрагивается: списание уже закоммичено при подтверждении.
func (s *Service) Fulfill(ctx context.Context, orderID string) (*domain.Order, error) {
	start := time.Now()

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.machine.Transition(ctx, order, EventFulfill); err != nil {
		s.recordTransition(ctx, "fulfill", start, false)
		return nil, err
	}

	if err := s.repo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to persist fulfilled order: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.TypeOrderFulfilled, order.OrderID, nil))
	s.recordTransition(ctx, "fulfill", start, true)
	return order, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// Публикация событий best-effort: заказ уже персистентен
		log.Printf("failed to publish %s for order %s: %v", event.EventType, event.OrderID, err)
	}
}

func (s *Service) recordTransition(ctx context.Context, transition string, start time.Time, success bool) {
	if s.metrics != nil {
		s.metrics.RecordOrderTransition(ctx, transition, time.Since(start), success)
	}
}
