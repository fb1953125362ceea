package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/akriventsev/codepop/internal/auth"
	"github.com/akriventsev/codepop/internal/catalog"
	"github.com/akriventsev/codepop/internal/config"
	"github.com/akriventsev/codepop/internal/events"
	"github.com/akriventsev/codepop/internal/inventory"
	"github.com/akriventsev/codepop/internal/metrics"
	"github.com/akriventsev/codepop/internal/migrations"
	"github.com/akriventsev/codepop/internal/observability"
	"github.com/akriventsev/codepop/internal/order"
	"github.com/akriventsev/codepop/internal/payment"
	"github.com/akriventsev/codepop/internal/recipe"
	"github.com/akriventsev/codepop/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Применяем миграции
	if err := runMigrations(cfg); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	// Метрики и трейсинг
	meterProvider, err := metrics.Setup(metrics.SetupConfig{ServiceName: "codepop"})
	if err != nil {
		log.Fatalf("Failed to setup metrics: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Failed to shutdown meter provider: %v", err)
		}
	}()

	m, err := metrics.NewMetrics()
	if err != nil {
		log.Fatalf("Failed to create metrics: %v", err)
	}

	tracingCfg := observability.DefaultTracingConfig()
	tracingCfg.Enabled = cfg.Tracing.Enabled
	tracingCfg.Exporter = cfg.Tracing.Exporter
	tracingCfg.ExporterEndpoint = cfg.Tracing.Endpoint
	tracing, err := observability.NewTracingManager(tracingCfg)
	if err != nil {
		log.Fatalf("Failed to create tracing manager: %v", err)
	}
	if err := tracing.Start(ctx); err != nil {
		log.Fatalf("Failed to start tracing: %v", err)
	}

	// Хранилище остатков и движок резервирования
	store := inventory.NewPostgresStoreWithPool(pool)

	engineCfg := inventory.DefaultEngineConfig()
	engineCfg.LockTimeout = cfg.Reservation.LockTimeout
	engineCfg.MaxAttempts = cfg.Reservation.MaxAttempts
	engineCfg.InitialBackoff = cfg.Reservation.InitialBackoff
	engine, err := inventory.NewEngine(store, engineCfg)
	if err != nil {
		log.Fatalf("Failed to create reservation engine: %v", err)
	}
	engine.WithMetrics(m).WithJournal(inventory.NewPostgresJournal(pool))
	if err := engine.Restore(ctx); err != nil {
		log.Fatalf("Failed to restore reservations: %v", err)
	}

	// Каталог напитков и резолвер рецептов
	catalogStore, err := catalog.NewStore(ctx, catalog.FactoryConfig{
		Backend:  cfg.Catalog.Backend,
		Pool:     pool,
		MongoURI: cfg.Catalog.MongoURI,
		MongoDB:  cfg.Catalog.MongoDB,
	})
	if err != nil {
		log.Fatalf("Failed to create catalog store: %v", err)
	}
	resolver := recipe.NewResolver(catalogStore)

	// Платежный шлюз
	var gateway payment.Gateway
	if cfg.Payment.APIKey != "" {
		paymentCfg := payment.DefaultConfig()
		paymentCfg.APIKey = cfg.Payment.APIKey
		paymentCfg.Endpoint = cfg.Payment.Endpoint
		httpGateway, err := payment.NewHTTPGateway(paymentCfg)
		if err != nil {
			log.Fatalf("Failed to create payment gateway: %v", err)
		}
		gateway = httpGateway.WithMetrics(m)
	} else {
		log.Println("PAYMENT_API_KEY is not set, payments are no-op")
		gateway = &payment.NopGateway{}
	}

	// Публикатор событий заказа
	publisher, err := events.NewPublisher(events.FactoryConfig{
		Publisher:     cfg.Events.Publisher,
		NATSURL:       cfg.Events.NATSURL,
		KafkaBrokers:  cfg.Events.KafkaBrokers,
		SubjectPrefix: cfg.Events.SubjectPrefix,
	})
	if err != nil {
		log.Fatalf("Failed to create events publisher: %v", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Printf("Failed to close events publisher: %v", err)
		}
	}()

	// Сервис заказов
	repo := order.NewPostgresRepository(pool)
	assembler := order.NewAssembler(resolver)
	orders := order.NewService(repo, engine, assembler, gateway, publisher).WithMetrics(m)

	reports := inventory.NewReportGenerator(store, engine, repo, resolver)

	// Аутентификация
	verifierCfg := auth.DefaultRedisConfig()
	verifierCfg.Addr = cfg.Redis.Addr
	verifierCfg.Password = cfg.Redis.Password
	verifierCfg.DB = cfg.Redis.DB
	verifier, err := auth.NewRedisVerifier(verifierCfg)
	if err != nil {
		log.Fatalf("Failed to create token verifier: %v", err)
	}
	defer func() {
		if err := verifier.Close(); err != nil {
			log.Printf("Failed to close token verifier: %v", err)
		}
	}()

	// REST сервер
	gin.SetMode(gin.ReleaseMode)
	serverCfg := transport.DefaultServerConfig()
	serverCfg.Port = cfg.Server.Port
	serverCfg.BasePath = cfg.Server.BasePath
	serverCfg.ServiceKey = cfg.Payment.WebhookSecret
	serverCfg.EnableTracing = cfg.Tracing.Enabled
	server, err := transport.NewServer(serverCfg, orders, catalogStore, store, reports, gateway, verifier)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	server.WithMetrics(m)

	if err := server.Start(ctx); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Server starting on port %d", cfg.Server.Port)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	if err := tracing.Stop(shutdownCtx); err != nil {
		log.Printf("Failed to stop tracing: %v", err)
	}

	log.Println("Server exited")
}

// runMigrations применяет goose миграции через database/sql поверх pgx
func runMigrations(cfg *config.Config) error {
	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.SetDialect("postgres"); err != nil {
		return err
	}
	return migrations.RunMigrations(db, cfg.Database.MigrationsDir)
}
