package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	coreconfig "github.com/m3rciful/assocbot/core/config"
	"github.com/m3rciful/assocbot/core/logger"
	tgsender "github.com/m3rciful/assocbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// APIBaseURL is the Telegram Bot API root.
const APIBaseURL = "https://api.telegram.org"

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of Run.
type RunOptions struct {
	Config     *coreconfig.Config
	Registry   *Registry
	Dispatcher *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	DisableWebhookCleanup bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// NewBot builds the bot client for cfg without starting it. The poller is
// chosen from the run mode.
func NewBot(cfg *coreconfig.Config) (*tele.Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram: nil config provided")
	}
	poller := BuildPoller(PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	})

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: BuildHTTPClient(),
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	attrs := []slog.Attr{slog.Duration("duration", logger.RoundMS(time.Since(start)))}
	switch p := poller.(type) {
	case *tele.Webhook:
		attrs = append(attrs,
			slog.String("mode", RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
		)
	case *tele.LongPoller:
		attrs = append(attrs,
			slog.String("mode", "polling"),
			slog.Int("timeout_seconds", int(p.Timeout/time.Second)),
		)
	}
	logger.Info(context.Background(), logger.CompTG, "tg.mode", attrs...)
	return bot, nil
}

// Run attaches middlewares, routes and commands to bot and serves updates
// until ctx is done.
func Run(ctx context.Context, bot *tele.Bot, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if bot == nil {
		return fmt.Errorf("telegram: nil bot provided")
	}
	cfg := opts.Config
	if cfg == nil {
		return fmt.Errorf("telegram: nil config provided")
	}
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(tgsender.Options{})
	}
	rt := Runtime{Bot: bot, Dispatcher: dispatcher, Registry: reg}

	if !opts.DisableWebhookCleanup && strings.EqualFold(cfg.Telegram.RunMode, coreconfig.RunModeLongpoll) {
		if err := deleteWebhook(ctx, APIBaseURL, cfg.Telegram.Token, false); err != nil {
			logger.Warn(ctx, logger.CompTG, "tg.delete_webhook",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		} else {
			logger.Info(ctx, logger.CompTG, "tg.delete_webhook", slog.String("status", "ok"))
		}
	}

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, route := range opts.Routes {
		if route.Endpoint != nil && route.Handler != nil {
			bot.Handle(route.Endpoint, route.Handler)
		}
	}
	SetupCommands(bot, reg)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			dispatcher.Close()
			return err
		}
	}

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		runErr = ctx.Err()
	case <-runDone:
	}

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}
	dispatcher.Close()

	if stopErr != nil {
		return stopErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func deleteWebhook(ctx context.Context, baseURL, token string, dropPending bool) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("empty token")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var out apiResponse
	resp, err := resty.NewWithClient(BuildHTTPClient()).
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/bot"+token).
		R().
		SetContext(ctx).
		SetFormData(map[string]string{"drop_pending_updates": fmt.Sprint(dropPending)}).
		SetResult(&out).
		SetError(&out).
		Post("/deleteWebhook")
	if err != nil {
		return err
	}
	if resp.IsError() || !out.OK {
		return fmt.Errorf("deleteWebhook status: %s %s", resp.Status(), out.Description)
	}
	return nil
}
