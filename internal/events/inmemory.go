package events

import (
	"context"
	"sync"
)

// InMemoryPublisher публикатор в памяти для тестов: накапливает события
// и раздает их подписчикам синхронно
type InMemoryPublisher struct {
	mu          sync.RWMutex
	published   []Event
	subscribers []func(Event)
}

// NewInMemoryPublisher создает новый in-memory публикатор
func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{}
}

// Publish сохраняет событие и уведомляет подписчиков
func (p *InMemoryPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	p.published = append(p.published, event)
	subscribers := append(([]func(Event))(nil), p.subscribers...)
	p.mu.Unlock()

	for _, fn := range subscribers {
		fn(event)
	}
	return nil
}

// Subscribe регистрирует подписчика
func (p *InMemoryPublisher) Subscribe(fn func(Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

// Published возвращает копию опубликованных событий
func (p *InMemoryPublisher) Published() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Event(nil), p.published...)
}

// Close ничего не делает
func (p *InMemoryPublisher) Close() error {
	return nil
}
