// Package main runs the taskwatch server. It loads configuration, applies
// database migrations, wires the lifecycle engine, the report jobs and the
// HTTP API, and shuts down cleanly on SIGINT or SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/taskwatch/internal/config"
	"github.com/phrazzld/taskwatch/internal/platform/logger"
	"github.com/phrazzld/taskwatch/internal/platform/postgres"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a migration command (up, down, status, version, reset) and exit")
	flag.Parse()

	if err := run(*migrateCmd, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "taskwatch: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration and either executes a single migration command or
// serves until the process is signalled.
func run(migrateCmd string, migrateArgs []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("timezone", cfg.Scheduler.Timezone),
		slog.Bool("telegram_enabled", cfg.Telegram.BotToken != ""),
		slog.Bool("redis_enabled", cfg.Redis.Addr != ""))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := setupAppDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		defer db.Close()
		return postgres.Migrate(ctx, db, log, migrateCmd, migrateArgs...)
	}

	if err := postgres.Migrate(ctx, db, log, "up"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	return app.Run(ctx)
}
