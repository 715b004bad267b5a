package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/config"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/database"
)

func main() {
	action := flag.String("action", "up", "one of: up, down, version, force")
	steps := flag.Int("steps", 1, "migrations to roll back for down; target version for force")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Environment)

	if err := migrate(cfg, logger, *action, *steps); err != nil {
		logger.Error("migration failed", slog.String("action", *action), slog.Any("error", err))
		os.Exit(1)
	}
}

func migrate(cfg *config.Config, logger *slog.Logger, action string, steps int) error {
	if !cfg.UsesDatabase() {
		return errors.New("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.OpenSQL(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	m, err := database.NewMigrator(db, cfg.DatabaseName)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _ = m.Close() }()

	switch action {
	case "up":
		err = m.Up()
	case "down":
		if steps <= 0 {
			return errors.New("-steps must be positive for down")
		}
		err = m.Down(steps)
	case "force":
		if steps <= 0 {
			return errors.New("-steps must name the target version for force")
		}
		err = m.Force(steps)
	case "version":
	default:
		return fmt.Errorf("unknown action %q (use up, down, version, force)", action)
	}
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	logger.Info("migration state",
		slog.String("action", action),
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}
