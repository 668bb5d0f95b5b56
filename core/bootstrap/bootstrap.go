// Package bootstrap brings up the shared infrastructure before the bot starts.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/assocbot/core/config"
	coredatabase "github.com/m3rciful/assocbot/core/database"
	"github.com/m3rciful/assocbot/core/logger"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config
	// SkipDatabase runs without a connection, for in-memory storage.
	SkipDatabase bool

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB *sqlx.DB
}

// Close releases the database connection if one was opened.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger, connects to the database, and applies migrations.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}
	if opts.SkipDatabase {
		logger.Info(ctx, logger.CompDB, "db.skip", slog.String("reason", "memory_storage"))
		return &Result{}, nil
	}

	start := time.Now()
	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(ctx, opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(ctx, opts.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	logger.Info(ctx, logger.CompDB, "db.ready",
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return &Result{DB: db}, nil
}
