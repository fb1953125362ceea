// Package transport предоставляет REST API сервиса на gin.
package transport

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akriventsev/codepop/internal/auth"
	"github.com/akriventsev/codepop/internal/catalog"
	"github.com/akriventsev/codepop/internal/inventory"
	"github.com/akriventsev/codepop/internal/metrics"
	"github.com/akriventsev/codepop/internal/observability"
	"github.com/akriventsev/codepop/internal/order"
	"github.com/akriventsev/codepop/internal/payment"
)

// ServerConfig конфигурация REST сервера
type ServerConfig struct {
	Port          int
	BasePath      string
	ServiceName   string
	ServiceKey    string // shared key для webhook и admin endpoint'ов
	EnableTracing bool
}

// Validate проверяет корректность конфигурации
func (c ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in (0, 65535]")
	}
	if c.BasePath == "" {
		return fmt.Errorf("BasePath cannot be empty")
	}
	return nil
}

// DefaultServerConfig возвращает конфигурацию сервера по умолчанию
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:        8080,
		BasePath:    "/api/v1",
		ServiceName: "codepop",
	}
}

// Server REST сервер: маршрутизация, аутентификация, graceful shutdown
type Server struct {
	config   ServerConfig
	router   *gin.Engine
	orders   *order.Service
	catalog  catalog.Store
	store    inventory.Store
	reports  *inventory.ReportGenerator
	gateway  payment.Gateway
	verifier auth.Verifier
	metrics  *metrics.Metrics
	server   *http.Server
	running  bool
}

// NewServer создает новый REST сервер и регистрирует маршруты
func NewServer(
	config ServerConfig,
	orders *order.Service,
	catalogStore catalog.Store,
	store inventory.Store,
	reports *inventory.ReportGenerator,
	gateway payment.Gateway,
	verifier auth.Verifier,
) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	s := &Server{
		config:   config,
		router:   gin.New(),
		orders:   orders,
		catalog:  catalogStore,
		store:    store,
		reports:  reports,
		gateway:  gateway,
		verifier: verifier,
	}

	s.router.Use(gin.Logger(), gin.Recovery())
	if config.EnableTracing {
		s.router.Use(observability.HTTPTracingMiddleware(config.ServiceName))
		s.router.Use(observability.CorrelationIDMiddleware())
	}
	s.router.Use(s.requestMetrics())

	s.registerRoutes()
	return s, nil
}

// WithMetrics подключает сборщик метрик
func (s *Server) WithMetrics(m *metrics.Metrics) *Server {
	s.metrics = m
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group(s.config.BasePath)

	// Каталог и инвентарь читаются без аутентификации
	api.GET("/drinks", s.handleListDrinks)
	api.GET("/drinks/:id", s.handleGetDrink)
	api.GET("/users/:user_id/drinks", s.handleListUserDrinks)
	api.GET("/inventory", s.handleListInventory)
	api.GET("/inventory/report", s.handleInventoryReport)

	// Внутренние вызовы: пополнение склада, webhook платежа, выдача
	service := api.Group("", auth.ServiceKeyMiddleware(s.config.ServiceKey))
	service.PUT("/inventory/:id", s.handleUpdateInventory)
	service.POST("/orders/:id/confirm", s.handleConfirmOrder)
	service.POST("/orders/:id/fulfill", s.handleFulfillOrder)

	// Пользовательские операции под токеном
	user := api.Group("", auth.Middleware(s.verifier))
	user.POST("/orders", s.handleCreateOrder)
	user.GET("/orders/:id", s.handleGetOrder)
	user.PATCH("/orders/:id", s.handleUpdateOrder)
	user.POST("/orders/:id/cancel", s.handleCancelOrder)
	user.POST("/orders/:id/payment-intent", s.handlePaymentIntent)
	user.GET("/users/:user_id/orders", s.handleListUserOrders)
}

func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.metrics == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		start := time.Now()
		s.metrics.IncrementActiveRequests(ctx)
		defer s.metrics.DecrementActiveRequests(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RecordRequest(ctx, route, time.Since(start), c.Writer.Status())
	}
}

// Start запускает сервер (lifecycle)
func (s *Server) Start(ctx context.Context) error {
	s.running = true

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	return nil
}

// Stop останавливает сервер с graceful shutdown
func (s *Server) Stop(ctx context.Context) error {
	s.running = false

	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}

	return nil
}

// IsRunning проверяет, запущен ли сервер
func (s *Server) IsRunning() bool {
	return s.running
}

// Router возвращает gin router (для httptest)
func (s *Server) Router() *gin.Engine {
	return s.router
}
