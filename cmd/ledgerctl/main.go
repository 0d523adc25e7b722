package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jhoicas/wms-ledger/internal/application/ledger"
	"github.com/jhoicas/wms-ledger/internal/application/ports"
	"github.com/jhoicas/wms-ledger/internal/application/stocksync"
	"github.com/jhoicas/wms-ledger/internal/infrastructure/events"
	"github.com/jhoicas/wms-ledger/internal/infrastructure/marketplace"
	"github.com/jhoicas/wms-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/wms-ledger/pkg/config"
	"github.com/jhoicas/wms-ledger/pkg/logger"
)

// ledgerctl tareas operativas: migraciones, barrido de sincronización y auditoría del ledger.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type env struct {
	cfg *config.Config
	log *logger.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cargar configuración: %w", err)
	}
	return &env{cfg: cfg, log: logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Herramientas operativas del ledger de inventario",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newSyncCmd(), newLedgerCmd())
	return root
}

// ─── migrate ─────────────────────────────────────────────────────────────────

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Migraciones del esquema"}

	withMigrator := func(fn func(*postgres.Migrator) error) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		m, err := postgres.NewMigrator(e.cfg.DB.ConnectionString(), e.log)
		if err != nil {
			return err
		}
		defer m.Close()
		return fn(m)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Aplica las migraciones pendientes",
			RunE: func(*cobra.Command, []string) error {
				return withMigrator(func(m *postgres.Migrator) error { return m.Up() })
			},
		},
		&cobra.Command{
			Use:   "down [n]",
			Short: "Revierte n migraciones (por defecto 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				n := 1
				if len(args) == 1 {
					v, err := strconv.Atoi(args[0])
					if err != nil || v <= 0 {
						return fmt.Errorf("n debe ser un entero positivo: %q", args[0])
					}
					n = v
				}
				return withMigrator(func(m *postgres.Migrator) error { return m.Down(n) })
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Muestra la versión actual del esquema",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(func(m *postgres.Migrator) error {
					v, dirty, err := m.Version()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

// ─── sync ────────────────────────────────────────────────────────────────────

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "sync", Short: "Sincronización de inventario con el marketplace"}

	var limit int
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Reintenta una vez por SKU las advertencias abiertas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			pool, err := postgres.NewPool(cmd.Context(), e.cfg.DB)
			if err != nil {
				return fmt.Errorf("conexión a PostgreSQL: %w", err)
			}
			defer pool.Close()

			publisher, closePublisher := events.NewPublisher(e.cfg.Kafka.Brokers, e.cfg.Kafka.Topic, e.log)
			defer closePublisher()

			coord := stocksync.NewCoordinator(
				postgres.NewLedgerRepository(pool),
				postgres.NewSyncWarningRepository(pool),
				marketplace.NewClient(e.cfg.Marketplace.BaseURL, e.cfg.Marketplace.APIKey, e.log),
				publisher, e.log,
				stocksync.Config{MaxAttempts: e.cfg.Sync.MaxAttempts, BackoffUnit: e.cfg.Sync.BackoffUnit, Timeout: e.cfg.Sync.Timeout},
			)
			synced, err := coord.Sweep(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "skus sincronizados: %d\n", synced)
			return nil
		},
	}
	sweep.Flags().IntVar(&limit, "limit", 100, "máximo de advertencias a revisar")
	cmd.AddCommand(sweep)
	return cmd
}

// ─── ledger ──────────────────────────────────────────────────────────────────

func newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "ledger", Short: "Auditoría del ledger"}

	var clientID string
	dups := &cobra.Command{
		Use:   "duplicates",
		Short: "Lista salidas por venta repetidas (solo informa)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			pool, err := postgres.NewPool(cmd.Context(), e.cfg.DB)
			if err != nil {
				return fmt.Errorf("conexión a PostgreSQL: %w", err)
			}
			defer pool.Close()

			uc := ledger.NewUseCase(postgres.NewLedgerRepository(pool), nil, ports.NopPublisher{}, e.log)
			out, err := uc.Duplicates(cmd.Context(), clientID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	dups.Flags().StringVar(&clientID, "client", "", "filtrar por cliente")
	cmd.AddCommand(dups)
	return cmd
}
