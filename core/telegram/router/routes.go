package router

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/assocbot/core/logger"
	tg "github.com/m3rciful/assocbot/core/telegram"
	tghelpers "github.com/m3rciful/assocbot/core/telegram/helpers"
	"github.com/m3rciful/assocbot/core/telegram/middleware"
	"github.com/m3rciful/assocbot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

// Dispatcher consumes engine updates.
type Dispatcher interface {
	Handle(ctx context.Context, u conversation.Update) (conversation.Result, error)
}

// Options configures the engine routes.
type Options struct {
	// Admins gates commands marked AdminOnly. Nil rejects them all.
	Admins        middleware.AdminChecker
	OnAdminReject tele.HandlerFunc
}

// Routes returns the text, file and callback handlers. Registered commands
// are pressed as their token so they work from any state.
func Routes(d Dispatcher, reg *tg.Registry, opts Options) []tg.Route {
	h := &bridge{d: d, reg: reg, opts: opts}
	wrap := func(fn tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(fn))
	}
	routes := []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(h.onMessage)},
		{Endpoint: tele.OnDocument, Handler: wrap(h.onMessage)},
		{Endpoint: tele.OnPhoto, Handler: wrap(h.onMessage)},
		{Endpoint: tele.OnCallback, Handler: wrap(h.onCallback)},
	}
	commands := 0
	if reg != nil {
		commands = len(reg.Commands())
	}
	logger.Info(context.Background(), logger.CompTG, "tg.wire",
		slog.String("status", "ok"),
		slog.Int("routes", len(routes)),
		slog.Int("commands", commands),
	)
	return routes
}

type bridge struct {
	d    Dispatcher
	reg  *tg.Registry
	opts Options
}

func (b *bridge) onCallback(c tele.Context) error {
	_ = c.Respond()
	return b.dispatch(c, time.Now())
}

func (b *bridge) onMessage(c tele.Context) error {
	start := time.Now()
	if text := c.Text(); b.reg != nil && strings.HasPrefix(text, "/") && c.Message() != nil && c.Message().Document == nil && c.Message().Photo == nil {
		if key, cmd, ok := b.reg.LookupCommand(text); ok {
			return b.command(c, key, cmd.Token, cmd.AdminOnly, start)
		}
	}
	return b.dispatch(c, start)
}

func (b *bridge) command(c tele.Context, key, token string, adminOnly bool, start time.Time) error {
	press := func(c tele.Context) error {
		u, ok := ToUpdate(c)
		if !ok {
			return nil
		}
		u.Kind = conversation.KindCallback
		u.Token = token
		u.Text = ""
		return b.handle(c, "command."+normalizeHandlerName(key), start, u)
	}
	if adminOnly {
		return middleware.AdminOnlyMiddleware(middleware.AdminOptions{
			Checker:  b.opts.Admins,
			OnReject: b.opts.OnAdminReject,
		})(press)(c)
	}
	return press(c)
}

func (b *bridge) dispatch(c tele.Context, start time.Time) error {
	u, ok := ToUpdate(c)
	if !ok {
		logHandlerSummary(c, "unsupported", start, conversation.Result{Outcome: "ignored"}, nil)
		return nil
	}
	name := u.Kind.String()
	if u.Kind == conversation.KindCallback {
		name = "callback"
	}
	return b.handle(c, name, start, u)
}

func (b *bridge) handle(c tele.Context, name string, start time.Time, u conversation.Update) error {
	if b.d == nil {
		return nil
	}
	ctx := tghelpers.WithHandler(c, name)
	res, err := b.d.Handle(ctx, u)
	logHandlerSummary(c, name, start, res, err)
	return nil
}
