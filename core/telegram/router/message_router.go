package router

import (
	"time"

	tg "github.com/m3rciful/teleform/core/telegram"
	"github.com/m3rciful/teleform/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Steps answers messages that continue a pending multi-turn step.
type Steps interface {
	// Expects reports whether the sender has a step pending.
	Expects(c tele.Context) bool
	Handle(c tele.Context) error
}

// MessageRoutes binds text and media. A pending step takes precedence, then
// command aliases typed as text, then the registry fallbacks.
func MessageRoutes(steps Steps, reg *tg.Registry) []tg.Route {
	text := func(c tele.Context) error {
		if steps != nil && steps.Expects(c) {
			return handleWithSummary(c, "step", steps.Handle)
		}
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return handleWithSummary(c, normalizeHandlerName(key), cmd.Handler)
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback_text", fb)
			}
		}
		logHandlerSummary(c, "unknown_text", time.Now(), statusSkip, nil)
		return nil
	}

	media := func(c tele.Context) error {
		if steps != nil && steps.Expects(c) {
			return handleWithSummary(c, "step_media", steps.Handle)
		}
		if reg != nil {
			if fb := reg.MediaFallback(); fb != nil {
				return handleWithSummary(c, "fallback_media", fb)
			}
		}
		logHandlerSummary(c, "unexpected_media", time.Now(), statusSkip, nil)
		return nil
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	routes := []tg.Route{{Endpoint: tele.OnText, Handler: wrap(text)}}
	for _, ep := range []string{tele.OnPhoto, tele.OnVideo, tele.OnDocument, tele.OnMedia} {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: wrap(media)})
	}
	return routes
}
