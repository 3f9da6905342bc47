// Package callbacks reads inline button data.
//
// Buttons built with keyboard.InlineBtn carry data in telebot's encoding,
// "\f<unique>|<payload>". Handlers bound through the generic OnCallback
// endpoint see that raw form; handlers bound to a unique see only the payload.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseData splits telebot callback data into its unique key and payload.
func ParseData(data string) (unique, payload string) {
	raw := strings.TrimPrefix(data, "\f")
	unique, payload, _ = strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// Parse returns the unique key and payload of cb.
func Parse(cb *tele.Callback) (unique, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return ParseData(cb.Data)
}

// Key returns the unique key of the current callback.
func Key(c tele.Context) string {
	k, _ := Parse(c.Callback())
	return k
}

// Payload returns the payload of the current callback.
func Payload(c tele.Context) string {
	_, p := Parse(c.Callback())
	return p
}
