package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/teleform/core/logger"
	tghelpers "github.com/m3rciful/teleform/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware turns a handler panic into an error so one bad update
// cannot stop the poller. Pending callback spinners are cleared.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			ctx := tghelpers.BuildContext(c)
			logger.LogEvent(ctx, logger.TG, slog.LevelError, "tg.panic",
				slog.String("status", "fail"),
				slog.String("handler", logger.HandlerFrom(ctx)),
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
			if c.Callback() != nil {
				_ = c.Respond(&tele.CallbackResponse{Text: "Something went wrong."})
			}
			err = fmt.Errorf("telegram: handler panic: %v", r)
		}()
		return next(c)
	}
}
