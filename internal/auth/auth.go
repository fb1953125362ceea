// Package auth предоставляет проверку токенов пользователей и
// сервисных ключей. Сами механизмы выдачи токенов вне зоны
// ответственности сервиса: токены создаются внешней системой и
// кладутся в Redis, здесь они только проверяются.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akriventsev/codepop/internal/domain"
)

// Verifier проверяет токен и возвращает идентификатор пользователя
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
	Close() error
}

// RedisConfig конфигурация для Redis верификатора токенов
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	KeyPrefix  string // Префикс ключей токенов, например "token:"
	Timeout    time.Duration
}

// Validate проверяет корректность конфигурации
func (c RedisConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr cannot be empty")
	}
	if c.KeyPrefix == "" {
		return fmt.Errorf("KeyPrefix cannot be empty")
	}
	return nil
}

// DefaultRedisConfig возвращает конфигурацию Redis по умолчанию
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:       "localhost:6379",
		Password:   "",
		DB:         0,
		PoolSize:   10,
		MaxRetries: 3,
		KeyPrefix:  "token:",
		Timeout:    2 * time.Second,
	}
}

// RedisVerifier верификатор токенов поверх Redis: значение ключа
// KeyPrefix+token содержит идентификатор пользователя
type RedisVerifier struct {
	config RedisConfig
	client *redis.Client
}

// NewRedisVerifier создает новый Redis верификатор
func NewRedisVerifier(config RedisConfig) (*RedisVerifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:       config.Addr,
		Password:   config.Password,
		DB:         config.DB,
		PoolSize:   config.PoolSize,
		MaxRetries: config.MaxRetries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisVerifier{config: config, client: client}, nil
}

// Verify возвращает идентификатор пользователя по токену
func (v *RedisVerifier) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.NewError(domain.CodeUnauthorized, "empty token")
	}

	ctx, cancel := context.WithTimeout(ctx, v.config.Timeout)
	defer cancel()

	userID, err := v.client.Get(ctx, v.config.KeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.NewError(domain.CodeUnauthorized, "unknown token")
	}
	if err != nil {
		return "", fmt.Errorf("failed to verify token: %w", err)
	}
	return userID, nil
}

// Close закрывает подключение к Redis
func (v *RedisVerifier) Close() error {
	return v.client.Close()
}

// StaticVerifier верификатор с фиксированной таблицей токенов,
// для тестов и локальной разработки
type StaticVerifier struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewStaticVerifier создает верификатор с заданной таблицей token -> userID
func NewStaticVerifier(tokens map[string]string) *StaticVerifier {
	copied := make(map[string]string, len(tokens))
	for k, v := range tokens {
		copied[k] = v
	}
	return &StaticVerifier{tokens: copied}
}

// Verify возвращает идентификатор пользователя по токену
func (v *StaticVerifier) Verify(_ context.Context, token string) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	userID, ok := v.tokens[token]
	if !ok {
		return "", domain.NewError(domain.CodeUnauthorized, "unknown token")
	}
	return userID, nil
}

// Grant добавляет токен в таблицу
func (v *StaticVerifier) Grant(token, userID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens[token] = userID
}

// Close для StaticVerifier ничего не делает
func (v *StaticVerifier) Close() error {
	return nil
}
