package router

import (
	"log/slog"

	tg "github.com/m3rciful/teleform/core/telegram"
	"github.com/m3rciful/teleform/core/telegram/callbacks"
	"github.com/m3rciful/teleform/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute routes every callback query through the registry by its
// unique key. Known keys are answered before the handler runs, so handlers
// reply with messages rather than toasts; the not-found handler answers itself.
func CallbackRoute(reg *tg.Registry) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key := callbacks.Key(c)
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		h, ok := reg.GetCallback(key)
		if !ok || h == nil {
			h = reg.CallbackNotFound()
			extras = append(extras, slog.String("reason", "not_found"))
		} else {
			_ = c.Respond()
		}
		if h == nil {
			return nil
		}
		return handleWithSummary(c, name, h, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
