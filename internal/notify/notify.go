// Package notify fans messages out to administrators.
package notify

import (
	"context"
	"log/slog"
	"sort"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/storage"
)

// Store is the storage the notifier reads.
type Store interface {
	storage.Admins
	storage.Settings
}

// Roster resolves who is an administrator: the configured ids plus the
// admins table.
type Roster struct {
	owner  int64
	static map[int64]bool
	store  storage.Admins
}

// NewRoster merges owner and configured admins with stored ones.
func NewRoster(store storage.Admins, owner int64, admins []int64) *Roster {
	r := &Roster{owner: owner, static: map[int64]bool{}, store: store}
	if owner != 0 {
		r.static[owner] = true
	}
	for _, id := range admins {
		if id != 0 {
			r.static[id] = true
		}
	}
	return r
}

// IsOwner reports whether userID is the configured owner.
func (r *Roster) IsOwner(userID int64) bool { return r.owner != 0 && userID == r.owner }

// Configured reports whether userID is an admin through configuration and
// so cannot be removed from the bot.
func (r *Roster) Configured(userID int64) bool { return r.static[userID] }

// IsAdmin reports whether userID may use the admin surface. Storage errors
// deny access.
func (r *Roster) IsAdmin(ctx context.Context, userID int64) bool {
	if r.static[userID] {
		return true
	}
	if r.store == nil {
		return false
	}
	ok, err := r.store.IsAdmin(ctx, userID)
	if err != nil {
		logger.Warn(ctx, logger.CompApp, "admin.lookup_failed", slog.String("err", err.Error()))
		return false
	}
	return ok
}

// All returns every admin id, sorted.
func (r *Roster) All(ctx context.Context) []int64 {
	seen := make(map[int64]bool, len(r.static))
	for id := range r.static {
		seen[id] = true
	}
	if r.store != nil {
		ids, err := r.store.ListAdmins(ctx)
		if err != nil {
			logger.Warn(ctx, logger.CompApp, "admin.list_failed", slog.String("err", err.Error()))
		}
		for _, id := range ids {
			seen[id] = true
		}
	}
	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Notifier sends admin notices, gated by per-kind settings flags.
type Notifier struct {
	roster   *Roster
	settings storage.Settings
	msg      conversation.Messenger
	defaults map[string]bool
}

// New builds a Notifier. defaults holds the flag values used when a key is
// absent from settings.
func New(roster *Roster, settings storage.Settings, msg conversation.Messenger, defaults map[string]bool) *Notifier {
	return &Notifier{roster: roster, settings: settings, msg: msg, defaults: defaults}
}

// Roster returns the admin roster.
func (n *Notifier) Roster() *Roster { return n.roster }

// Enabled reports whether notices for key are on. An empty key is always on.
func (n *Notifier) Enabled(ctx context.Context, key string) bool {
	if key == "" {
		return true
	}
	def, ok := n.defaults[key]
	if !ok {
		def = true
	}
	if n.settings == nil {
		return def
	}
	return storage.SettingBool(ctx, n.settings, key, def)
}

// Notice is one admin message.
type Notice struct {
	Key      string
	Text     string
	Keyboard conversation.Keyboard
	File     *conversation.Attachment
}

// Broadcast sends m to every admin and returns how many received it.
// Failures are logged and never returned.
func (n *Notifier) Broadcast(ctx context.Context, m Notice) int {
	if !n.Enabled(ctx, m.Key) {
		logger.Debug(ctx, logger.CompApp, "notify.disabled", slog.String("key", m.Key))
		return 0
	}
	sent := 0
	for _, id := range n.roster.All(ctx) {
		var err error
		if m.File != nil {
			err = n.msg.SendFile(ctx, id, *m.File, m.Text, m.Keyboard)
		} else {
			err = n.msg.SendText(ctx, id, m.Text, m.Keyboard)
		}
		if err != nil {
			logger.Warn(ctx, logger.CompApp, "notify.failed",
				slog.Int64("chat_id", id),
				slog.String("err", err.Error()),
			)
			continue
		}
		sent++
	}
	return sent
}
