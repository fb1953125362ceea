// Package fsm предоставляет конечный автомат для жизненных циклов доменных сущностей.
package fsm

import (
	"context"
	"fmt"
	"sync"
)

// Event событие, инициирующее переход
type Event struct {
	Name string
	Data interface{}
}

// Guard функция-охранник, проверяющая возможность перехода
type Guard func(ctx context.Context, event Event) (bool, error)

// Action действие, выполняемое при переходе
type Action func(ctx context.Context, event Event) error

// Transition переход между состояниями
type Transition struct {
	From    string
	To      string
	Event   string
	Guard   Guard
	Actions []Action
}

// ErrTransitionNotFound возвращается, когда из текущего состояния нет
// перехода по событию
type ErrTransitionNotFound struct {
	From  string
	Event string
}

// Error реализует интерфейс error
func (e *ErrTransitionNotFound) Error() string {
	return fmt.Sprintf("no transition from state %q on event %q", e.From, e.Event)
}

// FSM конечный автомат
type FSM struct {
	mu          sync.RWMutex
	current     string
	states      map[string]struct{}
	transitions map[string]Transition // key: "from:event"
}

// New создает новый конечный автомат в начальном состоянии
func New(initial string) *FSM {
	f := &FSM{
		current:     initial,
		states:      make(map[string]struct{}),
		transitions: make(map[string]Transition),
	}
	f.states[initial] = struct{}{}
	return f
}

// AddTransition добавляет переход в автомат
func (f *FSM) AddTransition(t Transition) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := transitionKey(t.From, t.Event)
	if _, exists := f.transitions[key]; exists {
		return fmt.Errorf("transition already registered: %s", key)
	}

	f.states[t.From] = struct{}{}
	f.states[t.To] = struct{}{}
	f.transitions[key] = t
	return nil
}

// Current возвращает текущее состояние
func (f *FSM) Current() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// SetCurrent восстанавливает состояние автомата (rehydration из хранилища)
func (f *FSM) SetCurrent(state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.states[state]; !ok {
		return fmt.Errorf("unknown state: %s", state)
	}
	f.current = state
	return nil
}

// CanTrigger сообщает, допустим ли переход по событию из текущего состояния
func (f *FSM) CanTrigger(event string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.transitions[transitionKey(f.current, event)]
	return ok
}

// Peek возвращает целевое состояние перехода по событию без его выполнения
func (f *FSM) Peek(event string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	t, ok := f.transitions[transitionKey(f.current, event)]
	if !ok {
		return "", &ErrTransitionNotFound{From: f.current, Event: event}
	}
	return t.To, nil
}

// Trigger выполняет переход по событию. Guard проверяется до действий;
// если любое действие вернуло ошибку, состояние не меняется.
func (f *FSM) Trigger(ctx context.Context, event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.transitions[transitionKey(f.current, event.Name)]
	if !ok {
		return &ErrTransitionNotFound{From: f.current, Event: event.Name}
	}

	if t.Guard != nil {
		allowed, err := t.Guard(ctx, event)
		if err != nil {
			return fmt.Errorf("guard check failed: %w", err)
		}
		if !allowed {
			return &ErrTransitionNotFound{From: f.current, Event: event.Name}
		}
	}

	for _, action := range t.Actions {
		if err := action(ctx, event); err != nil {
			return err
		}
	}

	f.current = t.To
	return nil
}

func transitionKey(from, event string) string {
	return from + ":" + event
}
