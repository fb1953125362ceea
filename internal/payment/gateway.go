// Package payment предоставляет клиент внешнего платежного шлюза.
// Протокол шлюза не входит в ядро сервиса: здесь только контракт
// коллаборатора и тонкий HTTP клиент.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/akriventsev/codepop/internal/domain"
	"github.com/akriventsev/codepop/internal/metrics"
)

// Gateway контракт платежного шлюза. Успех инициирует подтверждение
// заказа; отказ оставляет заказ Pending. Refund вызывается при отмене
// уже подтвержденного заказа.
type Gateway interface {
	// CreateIntent создает платежное намерение на сумму в центах и
	// возвращает client secret для завершения платежа на клиенте
	CreateIntent(ctx context.Context, amountCents int64) (string, error)
	// Refund инициирует возврат платежа по заказу
	Refund(ctx context.Context, orderID string) error
}

// Config конфигурация клиента шлюза. APIKey внедряется явно при
// конструировании и неизменен в течение жизни процесса.
type Config struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// Validate проверяет корректность конфигурации
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("APIKey cannot be empty")
	}
	if c.Endpoint == "" {
		return fmt.Errorf("Endpoint cannot be empty")
	}
	return nil
}

// DefaultConfig возвращает конфигурацию клиента по умолчанию
func DefaultConfig() Config {
	return Config{
		Endpoint: "https://api.stripe.com/v1",
		Timeout:  10 * time.Second,
	}
}

// HTTPGateway клиент платежного шлюза поверх HTTP
type HTTPGateway struct {
	config  Config
	client  *http.Client
	metrics *metrics.Metrics
}

// NewHTTPGateway создает новый HTTP клиент шлюза
func NewHTTPGateway(config Config) (*HTTPGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid gateway config: %w", err)
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &HTTPGateway{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}, nil
}

// WithMetrics подключает сборщик метрик
func (g *HTTPGateway) WithMetrics(m *metrics.Metrics) *HTTPGateway {
	g.metrics = m
	return g
}

// CreateIntent создает платежное намерение
func (g *HTTPGateway) CreateIntent(ctx context.Context, amountCents int64) (string, error) {
	if amountCents <= 0 {
		return "", domain.NewError(domain.CodeInvalidQuantity, "amount must be positive")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", "usd")
	form.Set("payment_method_types[]", "card")

	var result struct {
		ClientSecret string `json:"client_secret"`
	}
	if err := g.post(ctx, "/payment_intents", form, &result); err != nil {
		g.record(ctx, "create_intent", false)
		return "", err
	}

	g.record(ctx, "create_intent", true)
	return result.ClientSecret, nil
}

// Refund инициирует возврат по заказу
func (g *HTTPGateway) Refund(ctx context.Context, orderID string) error {
	form := url.Values{}
	form.Set("metadata[order_id]", orderID)

	if err := g.post(ctx, "/refunds", form, &struct{}{}); err != nil {
		g.record(ctx, "refund", false)
		return err
	}

	g.record(ctx, "refund", true)
	return nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, form url.Values, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.config.Endpoint+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.config.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.Wrap(err, domain.CodePaymentFailed, "payment gateway unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.NewError(domain.CodePaymentFailed,
			fmt.Sprintf("payment gateway returned status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return domain.Wrap(err, domain.CodePaymentFailed, "failed to decode gateway response")
	}
	return nil
}

func (g *HTTPGateway) record(ctx context.Context, operation string, success bool) {
	if g.metrics != nil {
		g.metrics.RecordPayment(ctx, operation, success)
	}
}

// NopGateway заглушка шлюза для тестов и локальной разработки
type NopGateway struct {
	// FailRefunds заставляет Refund возвращать PaymentFailed
	FailRefunds bool
}

// CreateIntent возвращает фиктивный client secret
func (g *NopGateway) CreateIntent(ctx context.Context, amountCents int64) (string, error) {
	if amountCents <= 0 {
		return "", domain.NewError(domain.CodeInvalidQuantity, "amount must be positive")
	}
	return "nop_secret", nil
}

// Refund завершается успешно, если не сконфигурирован отказ
func (g *NopGateway) Refund(ctx context.Context, orderID string) error {
	if g.FailRefunds {
		return domain.NewError(domain.CodePaymentFailed, "refund rejected")
	}
	return nil
}
