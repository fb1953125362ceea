package inventory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akriventsev/codepop/internal/domain"
	"github.com/akriventsev/codepop/internal/metrics"
)

// EngineConfig конфигурация движка резервирования
type EngineConfig struct {
	// LockTimeout таймаут захвата блокировки одной позиции
	LockTimeout time.Duration
	// MaxAttempts бюджет повторов полной последовательности захвата
	MaxAttempts int
	// InitialBackoff начальная задержка между повторами
	InitialBackoff time.Duration
	// BackoffMultiplier множитель экспоненциального backoff
	BackoffMultiplier float64
}

// Validate проверяет корректность конфигурации
func (c EngineConfig) Validate() error {
	if c.LockTimeout <= 0 {
		return fmt.Errorf("LockTimeout must be greater than 0")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("MaxAttempts must be greater than 0")
	}
	if c.BackoffMultiplier < 1.0 {
		return fmt.Errorf("BackoffMultiplier must be at least 1.0")
	}
	return nil
}

// DefaultEngineConfig возвращает конфигурацию движка по умолчанию
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		LockTimeout:       2 * time.Second,
		MaxAttempts:       3,
		InitialBackoff:    50 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

// Engine движок атомарного мульти-позиционного резервирования остатков.
//
// Reserve никогда не мутирует on-hand: провизорный вычет живет только в
// ledger незакоммиченных резервирований, поэтому неуспешная попытка не
// требует компенсирующих записей в durable-хранилище. On-hand меняется
// исключительно в Commit (окончательное списание) и Restock (прямой
// возврат при отмене уже подтвержденного заказа).
//
// Блокировки позиций захватываются строго в порядке возрастания
// идентификаторов; этот тотальный порядок исключает deadlock между
// заказами с пересекающимися наборами позиций.
type Engine struct {
	config EngineConfig
	store  Store

	mu            sync.RWMutex
	reservations  map[string]*domain.Reservation // key: orderID
	pendingByItem map[string]int
	locks         map[string]*itemLock
	journal       ReservationJournal
	metrics       *metrics.Metrics
}

// NewEngine создает новый движок резервирования
func NewEngine(store Store, config EngineConfig) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	return &Engine{
		config:        config,
		store:         store,
		reservations:  make(map[string]*domain.Reservation),
		pendingByItem: make(map[string]int),
		locks:         make(map[string]*itemLock),
	}, nil
}

// WithMetrics подключает сборщик метрик
func (e *Engine) WithMetrics(m *metrics.Metrics) *Engine {
	e.metrics = m
	return e
}

// WithJournal подключает durable-журнал резервирований. Авторитетен
// in-process ledger; журнал нужен только для восстановления после
// рестарта через Restore.
func (e *Engine) WithJournal(j ReservationJournal) *Engine {
	e.journal = j
	return e
}

// Restore загружает незакоммиченные резервирования из журнала в ledger.
// Вызывается один раз при старте, до приема трафика.
func (e *Engine) Restore(ctx context.Context) error {
	if e.journal == nil {
		return nil
	}

	restored, err := e.journal.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore reservations: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range restored {
		if _, exists := e.reservations[r.OrderID]; exists {
			continue
		}
		e.reservations[r.OrderID] = r
		for _, d := range r.Deltas {
			e.pendingByItem[d.ItemID] += d.Quantity
		}
	}
	return nil
}

// Reserve атомарно резервирует остатки под заказ: либо доступна каждая
// запрошенная позиция и все они провизорно вычтены, либо ни одна, и
// хранилище остатков не тронуто. При нехватке возвращает
// InsufficientStockError с первой (в порядке возрастания id) позицией,
// не прошедшей проверку.
func (e *Engine) Reserve(ctx context.Context, orderID string, deltas []domain.ItemDelta) (*domain.Reservation, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order ID cannot be empty")
	}
	for _, d := range deltas {
		if d.Quantity <= 0 {
			return nil, domain.NewError(domain.CodeInvalidQuantity,
				fmt.Sprintf("requested quantity for item %s must be positive, got %d", d.ItemID, d.Quantity))
		}
	}

	e.mu.Lock()
	if _, exists := e.reservations[orderID]; exists {
		e.mu.Unlock()
		return nil, fmt.Errorf("order %s already holds a reservation", orderID)
	}
	e.mu.Unlock()

	sorted := sortedDeltas(deltas)

	release, err := e.acquireAll(ctx, itemIDs(sorted))
	if err != nil {
		e.recordReservation(ctx, false)
		return nil, err
	}
	defer release()

	// Все целевые позиции захвачены: проверяем доступность каждой
	for _, d := range sorted {
		available, err := e.available(ctx, d.ItemID)
		if err != nil {
			e.recordReservation(ctx, false)
			return nil, err
		}
		if d.Quantity > available {
			e.recordConflict(ctx, d.ItemID)
			e.recordReservation(ctx, false)
			return nil, &domain.InsufficientStockError{
				ItemID:    d.ItemID,
				Requested: d.Quantity,
				Available: available,
			}
		}
	}

	reservation := &domain.Reservation{
		ReservationID: uuid.New().String(),
		OrderID:       orderID,
		Deltas:        sorted,
		Status:        domain.ReservationStatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	e.mu.Lock()
	e.reservations[orderID] = reservation
	for _, d := range sorted {
		e.pendingByItem[d.ItemID] += d.Quantity
	}
	e.mu.Unlock()

	// Блокировки позиций еще удерживаются: откат ledger безопасен
	if e.journal != nil {
		if err := e.journal.Record(ctx, reservation); err != nil {
			e.mu.Lock()
			delete(e.reservations, orderID)
			for _, d := range sorted {
				e.adjustPending(d.ItemID, -d.Quantity)
			}
			e.mu.Unlock()
			e.recordReservation(ctx, false)
			return nil, fmt.Errorf("failed to journal reservation: %w", err)
		}
	}

	e.recordReservation(ctx, true)
	return reservation, nil
}

// Rebalance инкрементально приводит pending-резервирование заказа к
// новому набору дельт: по net-увеличенным позициям выполняется проверка
// доступности под блокировками, net-уменьшенные просто возвращаются в
// доступный остаток. При отказе резервирование остается прежним.
func (e *Engine) Rebalance(ctx context.Context, orderID string, newDeltas []domain.ItemDelta) (*domain.Reservation, error) {
	for _, d := range newDeltas {
		if d.Quantity <= 0 {
			return nil, domain.NewError(domain.CodeInvalidQuantity,
				fmt.Sprintf("requested quantity for item %s must be positive, got %d", d.ItemID, d.Quantity))
		}
	}

	e.mu.RLock()
	current, ok := e.reservations[orderID]
	if !ok || current.Status != domain.ReservationStatusPending {
		e.mu.RUnlock()
		return nil, fmt.Errorf("order %s has no pending reservation", orderID)
	}
	oldTotals := deltaTotals(current.Deltas)
	e.mu.RUnlock()

	sorted := sortedDeltas(newDeltas)
	newTotals := deltaTotals(sorted)

	// Net-увеличенные позиции требуют проверки доступности
	var increased []domain.ItemDelta
	for _, d := range sorted {
		if gain := d.Quantity - oldTotals[d.ItemID]; gain > 0 {
			increased = append(increased, domain.ItemDelta{ItemID: d.ItemID, Quantity: gain})
		}
	}

	if len(increased) > 0 {
		release, err := e.acquireAll(ctx, itemIDs(increased))
		if err != nil {
			return nil, err
		}
		defer release()

		for _, d := range increased {
			available, err := e.available(ctx, d.ItemID)
			if err != nil {
				return nil, err
			}
			if d.Quantity > available {
				e.recordConflict(ctx, d.ItemID)
				return nil, &domain.InsufficientStockError{
					ItemID:    d.ItemID,
					Requested: d.Quantity,
					Available: available,
				}
			}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Резервирование могло закоммититься, пока мы ждали блокировки
	current, ok = e.reservations[orderID]
	if !ok || current.Status != domain.ReservationStatusPending {
		return nil, fmt.Errorf("order %s has no pending reservation", orderID)
	}

	oldDeltas := current.Deltas
	for itemID, qty := range deltaTotals(oldDeltas) {
		e.adjustPending(itemID, -qty)
	}
	for itemID, qty := range newTotals {
		e.adjustPending(itemID, qty)
	}
	current.Deltas = sorted

	if e.journal != nil {
		if err := e.journal.Record(ctx, current); err != nil {
			for itemID, qty := range newTotals {
				e.adjustPending(itemID, -qty)
			}
			for itemID, qty := range deltaTotals(oldDeltas) {
				e.adjustPending(itemID, qty)
			}
			current.Deltas = oldDeltas
			return nil, fmt.Errorf("failed to journal reservation: %w", err)
		}
	}
	return current, nil
}

// Commit финализирует списание: провизорный вычет становится
// постоянным и резервирование уничтожается. Идемпотентен: повторный
// commit уже закоммиченного (или released) резервирования — no-op.
func (e *Engine) Commit(ctx context.Context, reservation *domain.Reservation) error {
	if reservation == nil {
		return fmt.Errorf("reservation cannot be nil")
	}

	e.mu.Lock()
	current, ok := e.reservations[reservation.OrderID]
	if !ok || current.ReservationID != reservation.ReservationID {
		// Уже закоммичено либо released
		e.mu.Unlock()
		return nil
	}
	deltas := make([]domain.ItemDelta, len(current.Deltas))
	copy(deltas, current.Deltas)
	e.mu.Unlock()

	release, err := e.acquireAll(ctx, itemIDs(deltas))
	if err != nil {
		return err
	}
	defer release()

	// Статус committed выставляется до записи в хранилище: это
	// закрывает резервирование от конкурентного Release на время
	// применения дельт. При отказе хранилища статус возвращается.
	e.mu.Lock()
	current, ok = e.reservations[reservation.OrderID]
	if !ok || current.ReservationID != reservation.ReservationID || current.Status != domain.ReservationStatusPending {
		e.mu.Unlock()
		return nil
	}
	current.Status = domain.ReservationStatusCommitted
	e.mu.Unlock()

	negated := make([]domain.ItemDelta, len(deltas))
	for i, d := range deltas {
		negated[i] = domain.ItemDelta{ItemID: d.ItemID, Quantity: -d.Quantity}
	}
	if err := e.store.ApplyDeltas(ctx, negated); err != nil {
		e.mu.Lock()
		current.Status = domain.ReservationStatusPending
		e.mu.Unlock()
		return fmt.Errorf("failed to commit reservation %s: %w", current.ReservationID, err)
	}

	// Pending снимается только после списания on-hand: в промежутке
	// доступность занижена, но overcommit невозможен
	e.mu.Lock()
	for _, d := range deltas {
		e.adjustPending(d.ItemID, -d.Quantity)
	}
	delete(e.reservations, reservation.OrderID)
	reservation.Status = domain.ReservationStatusCommitted
	e.mu.Unlock()

	e.discardJournal(ctx, reservation.OrderID)
	return nil
}

// Release возвращает провизорно вычтенные количества в доступный
// остаток и уничтожает резервирование. Идемпотентен: release уже
// released или закоммиченного резервирования — no-op, повторного
// пополнения не происходит.
func (e *Engine) Release(ctx context.Context, reservation *domain.Reservation) error {
	if reservation == nil {
		return fmt.Errorf("reservation cannot be nil")
	}

	e.mu.Lock()
	current, ok := e.reservations[reservation.OrderID]
	if !ok || current.ReservationID != reservation.ReservationID || current.Status != domain.ReservationStatusPending {
		e.mu.Unlock()
		return nil
	}

	for _, d := range current.Deltas {
		e.adjustPending(d.ItemID, -d.Quantity)
	}
	delete(e.reservations, reservation.OrderID)
	current.Status = domain.ReservationStatusReleased
	reservation.Status = domain.ReservationStatusReleased
	e.mu.Unlock()

	e.discardJournal(ctx, reservation.OrderID)
	return nil
}

// Restock напрямую кредитует on-hand по набору дельт. Используется при
// отмене подтвержденного заказа, когда резервирования уже нет
// (оно было закоммичено) и вернуть остаток можно только прямой записью.
func (e *Engine) Restock(ctx context.Context, deltas []domain.ItemDelta) error {
	credits := make([]domain.ItemDelta, len(deltas))
	for i, d := range deltas {
		if d.Quantity <= 0 {
			return domain.NewError(domain.CodeInvalidQuantity,
				fmt.Sprintf("restock quantity for item %s must be positive, got %d", d.ItemID, d.Quantity))
		}
		credits[i] = domain.ItemDelta{ItemID: d.ItemID, Quantity: d.Quantity}
	}
	if err := e.store.ApplyDeltas(ctx, credits); err != nil {
		return fmt.Errorf("failed to restock: %w", err)
	}
	return nil
}

// ReservationFor возвращает pending-резервирование заказа, если оно есть
func (e *Engine) ReservationFor(orderID string) (*domain.Reservation, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.reservations[orderID]
	return r, ok
}

// PendingSnapshot возвращает консистентный снимок pending-итогов по
// позициям. Короткий shared read не задерживает попытки резервирования
// дольше окна снятия снимка.
func (e *Engine) PendingSnapshot() map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snapshot := make(map[string]int, len(e.pendingByItem))
	for itemID, qty := range e.pendingByItem {
		snapshot[itemID] = qty
	}
	return snapshot
}

// available вычисляет доступное количество позиции:
// on-hand минус сумма незакоммиченных pending-резервирований
func (e *Engine) available(ctx context.Context, itemID string) (int, error) {
	item, err := e.store.GetItem(ctx, itemID)
	if err != nil {
		return 0, err
	}

	e.mu.RLock()
	pending := e.pendingByItem[itemID]
	e.mu.RUnlock()

	return item.OnHand - pending, nil
}

// acquireAll захватывает блокировки позиций строго в порядке возрастания
// идентификаторов, с ограниченным числом повторов полной
// последовательности. Возвращаемая функция снимает все захваченные
// блокировки; на любом пути выхода частично захваченные блокировки
// освобождаются до возврата.
func (e *Engine) acquireAll(ctx context.Context, ids []string) (func(), error) {
	backoff := e.config.InitialBackoff

	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		held, failedID, err := e.tryAcquireSequence(ctx, ids)
		if err == nil {
			return func() {
				for i := len(held) - 1; i >= 0; i-- {
					held[i].release()
				}
			}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt == e.config.MaxAttempts {
			return nil, &domain.RetryExhaustedError{ItemID: failedID, Attempts: attempt}
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff = time.Duration(float64(backoff) * e.config.BackoffMultiplier)
	}

	return nil, &domain.RetryExhaustedError{Attempts: e.config.MaxAttempts}
}

// tryAcquireSequence одна попытка захвата всей последовательности.
// При таймауте на любой позиции уже захваченные блокировки снимаются.
func (e *Engine) tryAcquireSequence(ctx context.Context, ids []string) ([]*itemLock, string, error) {
	held := make([]*itemLock, 0, len(ids))
	for _, id := range ids {
		lock := e.lockFor(id)
		if err := lock.acquire(ctx, e.config.LockTimeout); err != nil {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].release()
			}
			return nil, id, err
		}
		held = append(held, lock)
	}
	return held, "", nil
}

// lockFor возвращает блокировку позиции, создавая ее при первом обращении
func (e *Engine) lockFor(itemID string) *itemLock {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[itemID]
	if !ok {
		lock = newItemLock()
		e.locks[itemID] = lock
	}
	return lock
}

// adjustPending корректирует pending-итог позиции; вызывается под e.mu
func (e *Engine) adjustPending(itemID string, delta int) {
	total := e.pendingByItem[itemID] + delta
	if total <= 0 {
		delete(e.pendingByItem, itemID)
		return
	}
	e.pendingByItem[itemID] = total
}

// discardJournal удаляет журнальные записи заказа. Ошибка не фатальна
// для текущего процесса: ledger авторитетен. Устаревшая запись всплывет
// при следующем Restore лишним pending и требует ручного release.
func (e *Engine) discardJournal(ctx context.Context, orderID string) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Discard(ctx, orderID); err != nil {
		log.Printf("failed to discard journal entries for order %s: %v", orderID, err)
	}
}

func (e *Engine) recordReservation(ctx context.Context, success bool) {
	if e.metrics != nil {
		e.metrics.RecordReservation(ctx, success)
	}
}

func (e *Engine) recordConflict(ctx context.Context, itemID string) {
	if e.metrics != nil {
		e.metrics.RecordStockConflict(ctx, itemID)
	}
}

// itemLock эксклюзивная блокировка одной позиции с поддержкой таймаута
type itemLock struct {
	ch chan struct{}
}

func newItemLock() *itemLock {
	return &itemLock{ch: make(chan struct{}, 1)}
}

// acquire захватывает блокировку, ожидая не дольше timeout
func (l *itemLock) acquire(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case l.ch <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("lock acquisition timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release снимает блокировку
func (l *itemLock) release() {
	<-l.ch
}

// sortedDeltas возвращает копию дельт, слитую по позициям и
// отсортированную по возрастанию идентификаторов
func sortedDeltas(deltas []domain.ItemDelta) []domain.ItemDelta {
	totals := deltaTotals(deltas)

	merged := make([]domain.ItemDelta, 0, len(totals))
	for itemID, qty := range totals {
		merged = append(merged, domain.ItemDelta{ItemID: itemID, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ItemID < merged[j].ItemID })
	return merged
}

// deltaTotals суммирует дельты по позициям
func deltaTotals(deltas []domain.ItemDelta) map[string]int {
	totals := make(map[string]int, len(deltas))
	for _, d := range deltas {
		totals[d.ItemID] += d.Quantity
	}
	return totals
}

func itemIDs(deltas []domain.ItemDelta) []string {
	ids := make([]string, len(deltas))
	for i, d := range deltas {
		ids[i] = d.ItemID
	}
	return ids
}
