package middleware

import (
	"runtime/debug"

	"github.com/veisher/licensebot/core/logger"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware catches panics in handlers and prevents the bot from crashing
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return RecoverMiddlewareNotify(nil)(next)
}

// RecoverMiddlewareNotify catches panics like RecoverMiddleware and, when a
// notify handler is provided, invokes it so the user still gets a reply.
func RecoverMiddlewareNotify(notify tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			defer func() {
				if r := recover(); r != nil {
					logger.TG.Error("panic recovered",
						slog.String("event", "tg.panic"),
						slog.Any("err", r),
						slog.String("stack", string(debug.Stack())),
					)
					if notify != nil {
						_ = notify(c)
					}
				}
			}()
			return next(c)
		}
	}
}
