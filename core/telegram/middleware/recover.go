package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/assocbot/core/logger"
	tghelpers "github.com/m3rciful/assocbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware turns a handler panic into a logged error.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(tghelpers.BuildContext(c), logger.CompTG, "tg.panic",
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return next(c)
	}
}
