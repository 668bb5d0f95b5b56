package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/assocbot/core/logger"
)

// RunMigrations applies every pending up migration.
func RunMigrations(ctx context.Context, cfg Config) error {
	cfg.Normalize()
	if err := WaitForPostgres(ctx, cfg.DSN(), 30*time.Second); err != nil {
		logger.MIG.Error("db not ready",
			slog.String("event", "db.migrate"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("database not ready: %w", err)
	}

	dir, err := migrationsDir(cfg)
	if err != nil {
		return err
	}
	files := listMigrationFiles(dir)
	preview, truncated := logger.SummarizeStrings(files, 6)
	logger.MIG.Debug("migrations resolved",
		slog.String("event", "resolve"),
		slog.String("path", dir),
		slog.Int("count", len(files)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)

	m, err := migrate.New("file://"+filepath.ToSlash(dir), cfg.URL())
	if err != nil {
		logger.MIG.Error("init failed",
			slog.String("event", "db.migrate"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", logger.RoundMS(took)),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	toVer, _, _ := m.Version()
	applied := appliedBetween(files, uint64(fromVer), uint64(toVer))
	logger.MIG.Info("migrations summary",
		slog.String("event", "summary"),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("count", len(applied)),
		slog.String("files", strings.Join(applied, ",")),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return nil
}

func migrationsDir(cfg Config) (string, error) {
	if dir := strings.TrimSpace(cfg.MigrationsDir); dir != "" {
		return filepath.Abs(dir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return filepath.Join(cwd, "migrations"), nil
}

func listMigrationFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	head, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(head, 10, 64)
	return v
}

// appliedBetween lists the files with from < version <= to.
func appliedBetween(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
