package order

import (
	"context"
	"errors"
	"time"

	"github.com/akriventsev/codepop/internal/domain"
	"github.com/akriventsev/codepop/internal/fsm"
)

// События жизненного цикла заказа
const (
	EventConfirm = "confirm"
	EventFulfill = "fulfill"
	EventCancel  = "cancel"
)

// StateMachine конечный автомат жизненного цикла заказа:
// Pending -> Confirmed -> Fulfilled, с Cancelled из Pending и Confirmed.
// Fulfilled и Cancelled терминальны; переход из них недопустим и дает
// IllegalTransitionError.
type StateMachine struct{}

// NewStateMachine создает автомат жизненного цикла заказа
func NewStateMachine() *StateMachine {
	return &StateMachine{}
}

// machineFor строит fsm для заказа в его текущем статусе
func (m *StateMachine) machineFor(order *domain.Order, actions []fsm.Action) (*fsm.FSM, error) {
	machine := fsm.New(string(domain.OrderStatusPending))

	transitions := []fsm.Transition{
		{From: string(domain.OrderStatusPending), To: string(domain.OrderStatusConfirmed), Event: EventConfirm, Actions: actions},
		{From: string(domain.OrderStatusConfirmed), To: string(domain.OrderStatusFulfilled), Event: EventFulfill, Actions: actions},
		{From: string(domain.OrderStatusPending), To: string(domain.OrderStatusCancelled), Event: EventCancel, Actions: actions},
		{From: string(domain.OrderStatusConfirmed), To: string(domain.OrderStatusCancelled), Event: EventCancel, Actions: actions},
	}
	for _, t := range transitions {
		if err := machine.AddTransition(t); err != nil {
			return nil, err
		}
	}

	if err := machine.SetCurrent(string(order.Status)); err != nil {
		return nil, err
	}
	return machine, nil
}

// Transition выполняет переход заказа по событию. Действия выполняются
// до смены статуса; если любое из них вернуло ошибку, статус заказа не
// меняется. Недопустимый переход дает IllegalTransitionError{from, to}.
func (m *StateMachine) Transition(ctx context.Context, order *domain.Order, event string, actions ...fsm.Action) error {
	machine, err := m.machineFor(order, actions)
	if err != nil {
		return err
	}

	if err := machine.Trigger(ctx, fsm.Event{Name: event, Data: order}); err != nil {
		var notFound *fsm.ErrTransitionNotFound
		if errors.As(err, &notFound) {
			return &domain.IllegalTransitionError{
				From: order.Status,
				To:   targetStatus(event),
			}
		}
		return err
	}

	order.Status = domain.OrderStatus(machine.Current())
	order.UpdatedAt = time.Now().UTC()
	return nil
}

// CanTransition сообщает, допустим ли переход по событию из текущего
// статуса заказа
func (m *StateMachine) CanTransition(order *domain.Order, event string) bool {
	machine, err := m.machineFor(order, nil)
	if err != nil {
		return false
	}
	return machine.CanTrigger(event)
}

// targetStatus целевой статус события (для сообщений об ошибке)
func targetStatus(event string) domain.OrderStatus {
	switch event {
	case EventConfirm:
		return domain.OrderStatusConfirmed
	case EventFulfill:
		return domain.OrderStatusFulfilled
	case EventCancel:
		return domain.OrderStatusCancelled
	default:
		return domain.OrderStatus(event)
	}
}
