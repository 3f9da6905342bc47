package middleware

import (
	coreconfig "github.com/m3rciful/teleform/core/config"

	tele "gopkg.in/telebot.v4"
)

// UpdateKind classifies an update with the names rate_limit.exclude_updates accepts.
func UpdateKind(c tele.Context) string {
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		return coreconfig.UpdateCallback
	case upd.Query != nil:
		return coreconfig.UpdateInlineQuery
	case upd.Message != nil:
		m := upd.Message
		if m.Photo != nil || m.Video != nil || m.Document != nil {
			return coreconfig.UpdateMedia
		}
		return coreconfig.UpdateMessage
	}
	return "other"
}
