package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akriventsev/codepop/internal/domain"
)

// PostgresStore каталог напитков в PostgreSQL. Рецепт хранится
// в таблице recipes по строке на ингредиент.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore создает новый PostgreSQL каталог поверх пула
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// GetDrink возвращает напиток вместе с рецептом
func (s *PostgresStore) GetDrink(ctx context.Context, drinkID string) (domain.Drink, error) {
	var drink domain.Drink
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, is_user_created, COALESCE(user_id, '') FROM drinks WHERE id = $1`,
		drinkID,
	).Scan(&drink.DrinkID, &drink.Name, &drink.IsUserCreated, &drink.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Drink{}, domain.NewError(domain.CodeUnknownDrink, fmt.Sprintf("drink not found: %s", drinkID))
		}
		return domain.Drink{}, fmt.Errorf("failed to query drink: %w", err)
	}

	recipe, err := s.loadRecipe(ctx, drinkID)
	if err != nil {
		return domain.Drink{}, err
	}
	drink.Recipe = recipe
	return drink, nil
}

// ListCatalog возвращает напитки каталога (без пользовательских)
func (s *PostgresStore) ListCatalog(ctx context.Context) ([]domain.Drink, error) {
	return s.findDrinks(ctx,
		`SELECT id, name, is_user_created, COALESCE(user_id, '') FROM drinks WHERE is_user_created = FALSE ORDER BY id`)
}

// FindByUser возвращает напитки, созданные пользователем
func (s *PostgresStore) FindByUser(ctx context.Context, userID string) ([]domain.Drink, error) {
	return s.findDrinks(ctx,
		`SELECT id, name, is_user_created, COALESCE(user_id, '') FROM drinks WHERE is_user_created = TRUE AND user_id = $1 ORDER BY id`,
		userID)
}

// SaveDrink сохраняет напиток и его рецепт (реализация Seeder)
func (s *PostgresStore) SaveDrink(ctx context.Context, drink domain.Drink) error {
	if drink.DrinkID == "" {
		return fmt.Errorf("drink ID cannot be empty")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO drinks (id, name, is_user_created, user_id)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		ON CONFLICT (id)
		DO UPDATE SET name = $2, is_user_created = $3, user_id = NULLIF($4, '')
	`, drink.DrinkID, drink.Name, drink.IsUserCreated, drink.UserID)
	if err != nil {
		return fmt.Errorf("failed to save drink: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM recipes WHERE drink_id = $1`, drink.DrinkID); err != nil {
		return fmt.Errorf("failed to clear recipe: %w", err)
	}
	for _, entry := range drink.Recipe {
		_, err := tx.Exec(ctx,
			`INSERT INTO recipes (drink_id, item_id, qty_per_unit) VALUES ($1, $2, $3)`,
			drink.DrinkID, entry.ItemID, entry.QtyPerUnit)
		if err != nil {
			return fmt.Errorf("failed to save recipe entry: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) findDrinks(ctx context.Context, query string, args ...interface{}) ([]domain.Drink, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query drinks: %w", err)
	}
	defer rows.Close()

	var drinks []domain.Drink
	for rows.Next() {
		var drink domain.Drink
		if err := rows.Scan(&drink.DrinkID, &drink.Name, &drink.IsUserCreated, &drink.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan drink: %w", err)
		}
		drinks = append(drinks, drink)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range drinks {
		recipe, err := s.loadRecipe(ctx, drinks[i].DrinkID)
		if err != nil {
			return nil, err
		}
		drinks[i].Recipe = recipe
	}
	return drinks, nil
}

func (s *PostgresStore) loadRecipe(ctx context.Context, drinkID string) ([]domain.RecipeEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT item_id, qty_per_unit FROM recipes WHERE drink_id = $1 ORDER BY item_id`,
		drinkID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipe: %w", err)
	}
	defer rows.Close()

	var recipe []domain.RecipeEntry
	for rows.Next() {
		var entry domain.RecipeEntry
		if err := rows.Scan(&entry.ItemID, &entry.QtyPerUnit); err != nil {
			return nil, fmt.Errorf("failed to scan recipe entry: %w", err)
		}
		recipe = append(recipe, entry)
	}
	return recipe, rows.Err()
}
