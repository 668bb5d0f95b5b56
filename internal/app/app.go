package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/assocbot/core/bootstrap"
	corecmd "github.com/m3rciful/assocbot/core/cmd"
	"github.com/m3rciful/assocbot/core/logger"
	coretelegram "github.com/m3rciful/assocbot/core/telegram"
	"github.com/m3rciful/assocbot/core/telegram/commands"
	"github.com/m3rciful/assocbot/core/telegram/router"
	tgsender "github.com/m3rciful/assocbot/core/telegram/sender"
	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/admin"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/health"
	"github.com/m3rciful/assocbot/internal/menu"
	"github.com/m3rciful/assocbot/internal/moderation"
	"github.com/m3rciful/assocbot/internal/notify"
	"github.com/m3rciful/assocbot/internal/profile"
	"github.com/m3rciful/assocbot/internal/registration"
	"github.com/m3rciful/assocbot/internal/storage"
	"github.com/m3rciful/assocbot/internal/storage/memstore"
	"github.com/m3rciful/assocbot/internal/storage/postgres"
	"github.com/m3rciful/assocbot/internal/submissions"
	"github.com/m3rciful/assocbot/internal/support"
	"github.com/m3rciful/assocbot/internal/uploads"
	"github.com/m3rciful/assocbot/internal/watcher"

	tele "gopkg.in/telebot.v4"
)

const shutdownTimeout = 10 * time.Second

// Wiring is the platform-independent part of the bot: every flow mounted
// on one engine, plus the watcher.
type Wiring struct {
	Engine   *conversation.Engine
	States   state.Store
	Roster   *notify.Roster
	Notifier *notify.Notifier
	Watcher  *watcher.Watcher
}

// Wire mounts every flow over store and msg and validates the state table.
func Wire(cfg *Config, store storage.Store, msg conversation.Messenger, fetch uploads.Fetcher) (*Wiring, error) {
	roster := notify.NewRoster(store, cfg.Telegram.OwnerID, cfg.Telegram.AdminIDs)
	notifier := notify.New(roster, store, msg, cfg.NotifyDefaults())
	keeper := uploads.NewKeeper(cfg.Uploads.Dir, fetch)
	files := uploads.Receipt(cfg.Uploads.MaxBytes)

	m := menu.New(menu.Deps{Store: store, Roster: roster})
	states := state.NewMemoryStore()
	eng := conversation.New(states, msg,
		conversation.WithHome(menu.Keyboard(false)),
		conversation.WithFallback(m.Fallback()),
	)
	eng.Mount(
		m,
		registration.New(registration.Deps{Store: store, Notifier: notifier, Keeper: keeper, Receipt: files}),
		submissions.New(submissions.Deps{Store: store, Notifier: notifier, Keeper: keeper, Files: files}),
		admin.New(admin.Deps{
			Store:         store,
			Roster:        roster,
			Notifier:      notifier,
			Keeper:        keeper,
			Poster:        uploads.Poster(cfg.Uploads.PosterMaxBytes),
			SingleDefault: cfg.SingleDefault(),
		}),
		moderation.New(store, roster),
		support.New(support.Deps{Store: store, Notifier: notifier, Files: files}),
		profile.New(store),
	)
	if err := eng.Validate(); err != nil {
		return nil, err
	}
	return &Wiring{
		Engine:   eng,
		States:   states,
		Roster:   roster,
		Notifier: notifier,
		Watcher:  watcher.New(store, notifier, cfg.Watcher.Interval),
	}, nil
}

// Commands maps slash commands to the tokens they press.
func Commands() *coretelegram.Registry {
	reg := coretelegram.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Token:       conversation.TokenMainMenu,
		Description: "منوی اصلی",
		Aliases:     []string{"menu"},
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Token:       conversation.TokenCancel,
		Description: "لغو عملیات جاری",
	})
	reg.RegisterCommand("/help", commands.Command{
		Token:       support.TokenHelp,
		Description: "راهنما",
	})
	reg.RegisterCommand("/admin", commands.Command{
		Token:       admin.TokenPanel,
		Description: "پنل مدیریت",
		AdminOnly:   true,
	})
	return reg
}

// SeedSettings stores the default texts that admins can edit later.
func SeedSettings(ctx context.Context, store storage.Store) error {
	return store.SeedSettings(ctx, map[string]string{
		domain.SettingMembershipDesc: domain.DefaultMembershipDesc,
		domain.SettingHelpText:       domain.DefaultHelpText,
		domain.SettingAboutText:      domain.DefaultAboutText,
	})
}

// App is the runnable bot.
type App struct {
	cfg    *Config
	infra  *bootstrap.Result
	store  storage.Store
	bot    *tele.Bot
	out    *tgsender.Dispatcher
	wiring *Wiring
	http   *health.Server
}

// Bootstrap brings up logging, storage, the bot client and the flows.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:       &cfg.Config,
		Database:     cfg.Database,
		SkipDatabase: cfg.Storage.Driver == DriverMemory,
	})
	if err != nil {
		return nil, err
	}

	var store storage.Store
	if infra.DB != nil {
		store = postgres.New(infra.DB)
	} else {
		store = memstore.New()
		logger.Warn(ctx, logger.CompDB, "storage.memory", slog.String("reason", "driver"))
	}
	if err := bootstrap.Seed(ctx, store, bootstrap.SeederFunc[storage.Store](SeedSettings)); err != nil {
		_ = infra.Close()
		return nil, err
	}

	bot, err := coretelegram.NewBot(&cfg.Config)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	out := tgsender.NewDispatcher(tgsender.Options{MaxRetries: 2, RetryBackoff: time.Second})
	transport := NewTransport(bot, out)

	wiring, err := Wire(cfg, store, transport, transport)
	if err != nil {
		out.Close()
		_ = infra.Close()
		return nil, fmt.Errorf("app: state table: %w", err)
	}

	a := &App{cfg: cfg, infra: infra, store: store, bot: bot, out: out, wiring: wiring}
	if cfg.Health.Listen != "" {
		a.http = health.New(store, wiring.States)
	}
	return a, nil
}

// Bot returns the bot client.
func (a *App) Bot() *tele.Bot { return a.bot }

// TelegramRunOptions assembles the routes, middlewares and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := Commands()
	routes := router.Routes(a.wiring.Engine, reg, router.Options{
		Admins: a.wiring.Roster,
		OnAdminReject: func(c tele.Context) error {
			return c.Send(notify.MsgDenied)
		},
	})
	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Dispatcher:  a.out,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, nil),
		Routes:      routes,
		OnStart:     a.start,
		OnStop:      a.stop,
	}, nil
}

func (a *App) start(ctx context.Context, _ coretelegram.Runtime) error {
	if err := a.wiring.Watcher.Start(ctx); err != nil {
		return err
	}
	if a.http != nil {
		go func() {
			if err := a.http.Start(a.cfg.Health.Listen); err != nil {
				logger.Error(ctx, logger.CompHTTP, "http.failed", slog.String("err", err.Error()))
			}
		}()
	}
	return nil
}

func (a *App) stop(ctx context.Context, _ coretelegram.Runtime) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	select {
	case <-a.wiring.Watcher.Stop().Done():
	case <-ctx.Done():
		logger.Warn(ctx, logger.CompWatch, "watcher.stop_timeout")
	}
	if a.http != nil {
		if err := a.http.Shutdown(ctx); err != nil {
			logger.Warn(ctx, logger.CompHTTP, "http.shutdown", slog.String("err", err.Error()))
		}
	}
	return a.infra.Close()
}

// Main runs the bot with the process defaults.
func Main() error {
	return corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return LoadConfig(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			c, ok := cfg.(*Config)
			if !ok {
				return nil, fmt.Errorf("app: unexpected config type %T", cfg)
			}
			return Bootstrap(ctx, c)
		},
	})
}
