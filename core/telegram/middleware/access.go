package middleware

import (
	"context"

	tghelpers "github.com/m3rciful/assocbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminChecker decides whether a user is an administrator.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID int64) bool
}

// AdminOptions defines how admin-only checks behave.
type AdminOptions struct {
	Checker  AdminChecker
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware lets only administrators reach next. Without a
// checker every user is rejected.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Checker == nil || !opts.Checker.IsAdmin(tghelpers.BuildContext(c), user.ID) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
