package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/wms-ledger/internal/application/fulfillment"
	"github.com/jhoicas/wms-ledger/internal/application/ledger"
	"github.com/jhoicas/wms-ledger/internal/application/receiving"
	"github.com/jhoicas/wms-ledger/internal/application/stocksync"
	"github.com/jhoicas/wms-ledger/internal/domain/repository"
	"github.com/jhoicas/wms-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/wms-ledger/internal/infrastructure/events"
	"github.com/jhoicas/wms-ledger/internal/infrastructure/marketplace"
	"github.com/jhoicas/wms-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/wms-ledger/internal/interfaces/http"
	"github.com/jhoicas/wms-ledger/pkg/config"
	"github.com/jhoicas/wms-ledger/pkg/logger"
	"github.com/jhoicas/wms-ledger/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.App.Name, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("configurar trazas")
	}

	if cfg.DB.MigrateOnBoot {
		migrator, err := postgres.NewMigrator(cfg.DB.ConnectionString(), log)
		if err != nil {
			log.Fatal().Err(err).Msg("inicializar migraciones")
		}
		if err := migrator.Up(); err != nil {
			log.Fatal().Err(err).Msg("aplicar migraciones")
		}
		_ = migrator.Close()
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	asnRepo := postgres.NewASNRepository(pool)
	ledgerRepo := postgres.NewLedgerRepository(pool)
	decisionRepo := postgres.NewDecisionRepository(pool)
	warningRepo := postgres.NewSyncWarningRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Caché de códigos de barras: solo si REDIS_ADDR está definido.
	var registryRepo repository.RegistryRepository = postgres.NewRegistryRepository(pool)
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Msg("redis no disponible, escaneo sin caché")
		} else {
			defer rdb.Close()
			registryRepo = cache.NewBarcodeCache(registryRepo, cache.NewRedisStore(rdb), cfg.Redis.BarcodeTTL, log)
		}
	}

	publisher, closePublisher := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	pusher := marketplace.NewClient(cfg.Marketplace.BaseURL, cfg.Marketplace.APIKey, log)
	if pusher.Simulated() {
		log.Warn().Msg("MARKETPLACE_BASE_URL vacío: el push de inventario es simulado")
	}

	coordinator := stocksync.NewCoordinator(ledgerRepo, warningRepo, pusher, publisher, log, stocksync.Config{
		MaxAttempts: cfg.Sync.MaxAttempts,
		BackoffUnit: cfg.Sync.BackoffUnit,
		Timeout:     cfg.Sync.Timeout,
	})

	var sweeper *stocksync.Sweeper
	if cfg.Sync.SweepSchedule != "" {
		sweeper, err = stocksync.NewSweeper(coordinator, log, cfg.Sync.SweepSchedule, cfg.Sync.Timeout)
		if err != nil {
			log.Fatal().Err(err).Msg("programar barrido de sincronización")
		}
		sweeper.Start()
	}

	receivingUC := receiving.NewUseCase(
		txRunner, asnRepo, registryRepo, decisionRepo,
		publisher, log, cfg.Receiving.MaxUnitsPerLine,
	)
	ledgerUC := ledger.NewUseCase(ledgerRepo, coordinator, publisher, log)
	fulfillmentUC := fulfillment.NewUseCase(ledgerRepo, coordinator, publisher, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		ReceivingUC:   receivingUC,
		LedgerUC:      ledgerUC,
		FulfillmentUC: fulfillmentUC,
		SyncCoord:     coordinator,
		JWTSecret:     cfg.JWT.Secret,
		Log:           log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if sweeper != nil {
		sweeper.Stop()
	}
	// Los pushes en curso tienen su propio timeout; se esperan antes de cerrar el pool.
	coordinator.Wait()
	if err := closePublisher(); err != nil {
		log.Error().Err(err).Msg("cerrar publicador de eventos")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cerrar exportador de trazas")
	}

	log.Info().Msg("aplicación detenida")
}
