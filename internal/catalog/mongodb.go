package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/akriventsev/codepop/internal/domain"
)

// MongoConfig конфигурация MongoDB каталога
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// Validate проверяет корректность конфигурации
func (c MongoConfig) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("URI cannot be empty")
	}
	if c.Database == "" {
		return fmt.Errorf("Database cannot be empty")
	}
	return nil
}

// DefaultMongoConfig возвращает конфигурацию MongoDB по умолчанию
func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		Collection: "drinks",
	}
}

// drinkDocument документ напитка: рецепт хранится вложенным массивом
type drinkDocument struct {
	ID            string        `bson:"_id"`
	Name          string        `bson:"name"`
	IsUserCreated bool          `bson:"is_user_created"`
	UserID        string        `bson:"user_id,omitempty"`
	Recipe        []recipeEntry `bson:"recipe"`
}

type recipeEntry struct {
	ItemID     string `bson:"item_id"`
	QtyPerUnit int    `bson:"qty_per_unit"`
}

// MongoStore каталог напитков в MongoDB
type MongoStore struct {
	config     MongoConfig
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore создает новый MongoDB каталог
func NewMongoStore(ctx context.Context, config MongoConfig) (*MongoStore, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mongo config: %w", err)
	}
	if config.Collection == "" {
		config.Collection = "drinks"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	return &MongoStore{
		config:     config,
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
	}, nil
}

// Close закрывает соединение с MongoDB
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// GetDrink возвращает напиток по идентификатору
func (s *MongoStore) GetDrink(ctx context.Context, drinkID string) (domain.Drink, error) {
	var doc drinkDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": drinkID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Drink{}, domain.NewError(domain.CodeUnknownDrink, fmt.Sprintf("drink not found: %s", drinkID))
		}
		return domain.Drink{}, fmt.Errorf("failed to query drink: %w", err)
	}
	return docToDrink(doc), nil
}

// ListCatalog возвращает напитки каталога (без пользовательских)
func (s *MongoStore) ListCatalog(ctx context.Context) ([]domain.Drink, error) {
	return s.findDrinks(ctx, bson.M{"is_user_created": false})
}

// FindByUser возвращает напитки, созданные пользователем
func (s *MongoStore) FindByUser(ctx context.Context, userID string) ([]domain.Drink, error) {
	return s.findDrinks(ctx, bson.M{"is_user_created": true, "user_id": userID})
}

// SaveDrink сохраняет напиток (реализация Seeder)
func (s *MongoStore) SaveDrink(ctx context.Context, drink domain.Drink) error {
	if drink.DrinkID == "" {
		return fmt.Errorf("drink ID cannot be empty")
	}

	doc := drinkDocument{
		ID:            drink.DrinkID,
		Name:          drink.Name,
		IsUserCreated: drink.IsUserCreated,
		UserID:        drink.UserID,
		Recipe:        make([]recipeEntry, 0, len(drink.Recipe)),
	}
	for _, entry := range drink.Recipe {
		doc.Recipe = append(doc.Recipe, recipeEntry{ItemID: entry.ItemID, QtyPerUnit: entry.QtyPerUnit})
	}

	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": drink.DrinkID},
		doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save drink: %w", err)
	}
	return nil
}

func (s *MongoStore) findDrinks(ctx context.Context, filter bson.M) ([]domain.Drink, error) {
	cursor, err := s.collection.Find(ctx, filter, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to query drinks: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var drinks []domain.Drink
	for cursor.Next(ctx) {
		var doc drinkDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode drink: %w", err)
		}
		drinks = append(drinks, docToDrink(doc))
	}
	return drinks, cursor.Err()
}

func docToDrink(doc drinkDocument) domain.Drink {
	drink := domain.Drink{
		DrinkID:       doc.ID,
		Name:          doc.Name,
		IsUserCreated: doc.IsUserCreated,
		UserID:        doc.UserID,
		Recipe:        make([]domain.RecipeEntry, 0, len(doc.Recipe)),
	}
	for _, entry := range doc.Recipe {
		drink.Recipe = append(drink.Recipe, domain.RecipeEntry{ItemID: entry.ItemID, QtyPerUnit: entry.QtyPerUnit})
	}
	return drink
}
