package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSConfig конфигурация NATS публикатора
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// Validate проверяет корректность конфигурации
func (c NATSConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	if c.SubjectPrefix == "" {
		return fmt.Errorf("SubjectPrefix cannot be empty")
	}
	return nil
}

// DefaultNATSConfig возвращает конфигурацию NATS по умолчанию
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "codepop",
	}
}

// NATSPublisher публикатор событий через NATS.
// Subject строится как "<prefix>.<event type>".
type NATSPublisher struct {
	config NATSConfig
	conn   *nats.Conn
}

// NewNATSPublisher создает новый NATS публикатор
func NewNATSPublisher(config NATSConfig) (*NATSPublisher, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid NATS config: %w", err)
	}

	conn, err := nats.Connect(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{config: config, conn: conn}, nil
}

// Publish публикует событие в subject "<prefix>.<event type>"
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := p.config.SubjectPrefix + "." + event.EventType
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", subject, err)
	}
	return nil
}

// Close закрывает соединение с NATS
func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}
