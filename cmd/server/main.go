// Package main implements the entry point for the namegen API server, which
// generates names as slug-addressed asynchronous tasks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/namegen-api/internal/config"
	"github.com/phrazzld/namegen-api/internal/platform/logger"
	"github.com/phrazzld/namegen-api/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand builds the command tree. The root command runs serve.
func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "namegen-api",
		Short:        "Name generation task API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configFile)
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (yaml, json or toml)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the generation dispatcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configFile)
		},
	}

	migrate := &cobra.Command{
		Use:       "migrate [up|down|status|version|reset]",
		Short:     "Run database migrations (postgres store only)",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: postgres.MigrationCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), configFile, args[0])
		},
	}

	root.AddCommand(serve, migrate)
	return root
}

// initialize loads configuration and sets up structured logging.
func initialize(configFile string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("llm_provider", cfg.LLM.Provider))
	return cfg, log, nil
}

func runServe(ctx context.Context, configFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, err := initialize(configFile)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		return err
	}

	return app.Run(ctx)
}

func runMigrate(ctx context.Context, configFile, command string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, log, err := initialize(configFile)
	if err != nil {
		return err
	}
	if cfg.Store.Driver != config.StoreDriverPostgres {
		return fmt.Errorf("migrations apply to the postgres store only (store.driver is %q)", cfg.Store.Driver)
	}

	db, err := postgres.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}()

	return postgres.Migrate(ctx, db, command, log)
}
