package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/assocbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// recentUpdates keeps a short-lived set of processed update IDs to avoid double logging.
var (
	recentMu     sync.Mutex
	recentUpdate = make(map[int]time.Time)
	keepFor      = 10 * time.Second
)

func alreadyLogged(updateID int) bool {
	now := time.Now()
	recentMu.Lock()
	defer recentMu.Unlock()
	for id, ts := range recentUpdate {
		if now.Sub(ts) > keepFor {
			delete(recentUpdate, id)
		}
	}
	if _, ok := recentUpdate[updateID]; ok {
		return true
	}
	recentUpdate[updateID] = now
	return false
}

// LoggerMiddleware sets the rid and the update metadata on the context and
// logs one sampled receipt line per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		c.Set("update_start", time.Now())
		ctx := tghelpers.BuildContext(c)

		if !logger.ShouldSampleDebug("update.received") || alreadyLogged(upd.ID) {
			return next(c)
		}
		attrs := []slog.Attr{
			slog.String("status", "ok"),
			slog.Int("update_id", upd.ID),
		}
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
		}
		if user := c.Sender(); user != nil {
			if user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			if user.LanguageCode != "" {
				attrs = append(attrs, slog.String("lang", user.LanguageCode))
			}
		}
		switch {
		case upd.Callback != nil:
			if key := callbacks.Token(upd.Callback); key != "" {
				attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 64)))
			}
		case upd.Message != nil:
			if t := c.Text(); t != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
			}
		}
		logger.Debug(ctx, logger.CompTG, "update.received", attrs...)
		return next(c)
	}
}
