package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FactoryConfig конфигурация фабрики каталога
type FactoryConfig struct {
	Backend  string // "postgres", "mongodb", "inmemory"
	Pool     *pgxpool.Pool
	MongoURI string
	MongoDB  string
}

// NewStore создает хранилище каталога по типу backend
func NewStore(ctx context.Context, config FactoryConfig) (Store, error) {
	switch config.Backend {
	case "postgres":
		if config.Pool == nil {
			return nil, fmt.Errorf("postgres catalog backend requires a connection pool")
		}
		return NewPostgresStore(config.Pool), nil
	case "mongodb":
		mongoCfg := DefaultMongoConfig()
		mongoCfg.URI = config.MongoURI
		mongoCfg.Database = config.MongoDB
		return NewMongoStore(ctx, mongoCfg)
	case "inmemory":
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown catalog backend: %s", config.Backend)
	}
}
