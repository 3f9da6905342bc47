package middleware

import (
	"strconv"

	"github.com/m3rciful/teleform/core/metrics"

	tele "gopkg.in/telebot.v4"
)

const (
	keyMessages = "messages"
	keyKeyboard = "kb"
)

// metricsContext counts what a handler sends for the summary log line and
// the replies counter.
type metricsContext struct{ tele.Context }

func (m metricsContext) sent(opts []any) {
	kb := hasKeyboard(opts)
	n, _ := m.Get(keyMessages).(int)
	m.Set(keyMessages, n+1)
	if kb {
		m.Set(keyKeyboard, true)
	}
	metrics.Replies.WithLabelValues(strconv.FormatBool(kb)).Inc()
}

func hasKeyboard(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (m metricsContext) track(err error, opts []any) error {
	if err == nil {
		m.sent(opts)
	}
	return err
}

// Send counts a successful tele.Context.Send.
func (m metricsContext) Send(what any, opts ...any) error {
	return m.track(m.Context.Send(what, opts...), opts)
}

// Reply counts a successful tele.Context.Reply.
func (m metricsContext) Reply(what any, opts ...any) error {
	return m.track(m.Context.Reply(what, opts...), opts)
}

// Edit counts a successful tele.Context.Edit.
func (m metricsContext) Edit(what any, opts ...any) error {
	return m.track(m.Context.Edit(what, opts...), opts)
}

// EditOrSend counts a successful tele.Context.EditOrSend.
func (m metricsContext) EditOrSend(what any, opts ...any) error {
	return m.track(m.Context.EditOrSend(what, opts...), opts)
}

// EditOrReply counts a successful tele.Context.EditOrReply.
func (m metricsContext) EditOrReply(what any, opts ...any) error {
	return m.track(m.Context.EditOrReply(what, opts...), opts)
}

// MessageMetricsMiddleware counts the update by kind and wraps the context so
// sent messages are counted too.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		metrics.Updates.WithLabelValues(UpdateKind(c)).Inc()
		c.Set(keyMessages, 0)
		c.Set(keyKeyboard, false)
		return next(metricsContext{Context: c})
	}
}

// GetCounters returns how many messages the handler sent and whether any had a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	msgs, _ := c.Get(keyMessages).(int)
	kb, _ := c.Get(keyKeyboard).(bool)
	return msgs, kb
}
