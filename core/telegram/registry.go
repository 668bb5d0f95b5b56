package telegram

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry holds the bot's slash commands.
type Registry struct {
	commands map[string]commands.Command
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]commands.Command)}
}

// RegisterCommand adds a command. Names must start with a slash.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	ctx := context.Background()
	if r == nil || name == "" || cmd.Token == "" || cmd.Description == "" {
		logger.Warn(ctx, "tg.wire", "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "invalid"),
		)
		return
	}
	if name[0] != '/' {
		logger.Warn(ctx, "tg.wire", "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "no_slash_prefix"),
		)
		return
	}
	if _, exists := r.commands[name]; exists {
		logger.Warn(ctx, "tg.wire", "register.command.duplicate", slog.String("name", name))
		return
	}
	r.commands[name] = cmd
}

// ListCommands returns the command menu, optionally without hidden and
// admin-only commands.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	var list []tele.Command
	for cmd, meta := range r.commands {
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(cmd, "/"), Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand finds a command by name or alias and returns its canonical key.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name, _, _ = strings.Cut(strings.TrimSpace(name), " ")
	name, _, _ = strings.Cut(name, "@")
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if alias == name || "/"+alias == name {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// Commands returns all registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// SetupCommands publishes the visible command menu.
func SetupCommands(bot *tele.Bot, reg *Registry) {
	if bot == nil || reg == nil {
		return
	}
	if err := bot.SetCommands(reg.ListCommands(true)); err != nil {
		logger.Error(context.Background(), "tg.wire", "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
	}
}
