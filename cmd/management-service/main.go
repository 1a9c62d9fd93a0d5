package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "lookout/cmd/management-service/docs"
	"lookout/internal/config"
	"lookout/internal/logger"
	"lookout/pkg/bootstrap"
	"lookout/pkg/logging"
	"lookout/pkg/migrations"
)

var (
	configFile string
)

// @title           Lookout Management API
// @version         1.0
// @description     Administrative API for automation rules, their execution logs and module entitlements

// @host      localhost:8080
// @BasePath  /api/v1

// @schemes   http https

func main() {
	rootCmd := &cobra.Command{
		Use:   "management-service",
		Short: "Management Service for automation rules",
		Long:  "Management Service provides the REST API for automation rules, rule logs and module entitlement overrides",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, logger.Logger, error) {
	earlyLog := logging.NewEarlyLog("management-service")

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
		if configFile == "" {
			earlyLog.Error("Config file is required. Use --config flag or CONFIG_FILE environment variable")
			return nil, nil, fmt.Errorf("config file is required")
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		earlyLog.Error("Failed to init logger: %v", err)
		return nil, nil, err
	}
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the management service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting Management Service")

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				app.Shutdown(context.Background())
				return err
			}

			if err := app.Run(ctx); err != nil {
				log.ErrorwCtx(ctx, "Application error", "error", err)
				return err
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	withDB := func(run func(db *sql.DB, cfg *config.Config, log logger.Logger) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			// Each subcommand decides what to apply.
			cfg.Database.RunMigrations = false
			db, err := bootstrap.NewDatabaseConnector(cfg, log).InitPostgreSQL(cmd.Context())
			if err != nil {
				return err
			}
			if db == nil {
				return fmt.Errorf("database.postgres.host is required")
			}
			defer db.Close()

			return run(db, cfg, log)
		}
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: withDB(func(db *sql.DB, cfg *config.Config, log logger.Logger) error {
			if err := migrations.RunPostgres(db, cfg.Database.MigrationsDir); err != nil {
				return err
			}
			log.Infow("Migrations applied", "dir", cfg.Database.MigrationsDir)
			return nil
		}),
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: withDB(func(db *sql.DB, cfg *config.Config, log logger.Logger) error {
			if err := migrations.RollbackPostgres(db, cfg.Database.MigrationsDir, steps); err != nil {
				return err
			}
			log.Infow("Migrations rolled back", "steps", steps)
			return nil
		}),
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: withDB(func(db *sql.DB, cfg *config.Config, log logger.Logger) error {
			v, dirty, err := migrations.PostgresVersion(db, cfg.Database.MigrationsDir)
			if err != nil {
				return err
			}
			log.Infow("Schema version", "version", v, "dirty", dirty)
			return nil
		}),
	}

	cmd.AddCommand(up, down, version)
	return cmd
}
