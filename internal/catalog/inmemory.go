package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/akriventsev/codepop/internal/domain"
)

// InMemoryStore каталог в памяти для тестов и локальной разработки
type InMemoryStore struct {
	mu     sync.RWMutex
	drinks map[string]domain.Drink
}

// NewInMemoryStore создает новый in-memory каталог
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		drinks: make(map[string]domain.Drink),
	}
}

// GetDrink возвращает напиток по идентификатору
func (s *InMemoryStore) GetDrink(ctx context.Context, drinkID string) (domain.Drink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	drink, ok := s.drinks[drinkID]
	if !ok {
		return domain.Drink{}, domain.NewError(domain.CodeUnknownDrink, fmt.Sprintf("drink not found: %s", drinkID))
	}
	return drink, nil
}

// ListCatalog возвращает напитки каталога (без пользовательских)
func (s *InMemoryStore) ListCatalog(ctx context.Context) ([]domain.Drink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var drinks []domain.Drink
	for _, d := range s.drinks {
		if !d.IsUserCreated {
			drinks = append(drinks, d)
		}
	}
	sort.Slice(drinks, func(i, j int) bool { return drinks[i].DrinkID < drinks[j].DrinkID })
	return drinks, nil
}

// FindByUser возвращает напитки, созданные пользователем
func (s *InMemoryStore) FindByUser(ctx context.Context, userID string) ([]domain.Drink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var drinks []domain.Drink
	for _, d := range s.drinks {
		if d.IsUserCreated && d.UserID == userID {
			drinks = append(drinks, d)
		}
	}
	sort.Slice(drinks, func(i, j int) bool { return drinks[i].DrinkID < drinks[j].DrinkID })
	return drinks, nil
}

// SaveDrink сохраняет напиток (реализация Seeder)
func (s *InMemoryStore) SaveDrink(ctx context.Context, drink domain.Drink) error {
	if drink.DrinkID == "" {
		return fmt.Errorf("drink ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drinks[drink.DrinkID] = drink
	return nil
}
