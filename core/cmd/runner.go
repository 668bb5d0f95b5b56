// Package cmd is the process entry shared by bot binaries.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/m3rciful/assocbot/core/buildinfo"
	coreconfig "github.com/m3rciful/assocbot/core/config"
	"github.com/m3rciful/assocbot/core/logger"
	coretelegram "github.com/m3rciful/assocbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// ConfigCarrier exposes access to the embedded core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp is the minimal interface required to run a Telegram bot.
type TelegramApp interface {
	Bot() *tele.Bot
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string
	// EnvFiles are loaded into the environment before the config. Missing
	// files are skipped. Defaults to ".env".
	EnvFiles []string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, bot *tele.Bot, opts coretelegram.RunOptions) error
}

// Run loads configuration, bootstraps the Telegram app, and serves until
// SIGINT or SIGTERM.
func Run(opts Options) error {
	if opts.LoadConfig == nil {
		return fmt.Errorf("cmd: LoadConfig is required")
	}
	if opts.Bootstrap == nil {
		return fmt.Errorf("cmd: Bootstrap is required")
	}

	if err := loadEnvFiles(opts.EnvFiles); err != nil {
		return fmt.Errorf("cmd: env files: %w", err)
	}

	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := os.Getenv(env)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}
	if cfgPath == "" {
		return fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := opts.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg.CoreConfig() == nil {
		return fmt.Errorf("cmd: loaded config is missing core configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startedAt := time.Now()
	application, err := opts.Bootstrap(ctx, cfg)

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}

	prevStart := runOpts.OnStart
	runOpts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if prevStart != nil {
			if err := prevStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, logger.CompApp, "app.ready",
			slog.String("version", buildinfo.String()),
			slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
		)
		return nil
	}

	prevStop := runOpts.OnStop
	runOpts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, logger.CompApp, "app.shutdown")
		if prevStop != nil {
			return prevStop(ctx, rt)
		}
		return nil
	}

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.Run
	}
	return run(ctx, application.Bot(), runOpts)
}

func loadEnvFiles(files []string) error {
	if files == nil {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}
