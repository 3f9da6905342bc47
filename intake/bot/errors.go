package bot

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	tghelpers "github.com/m3rciful/teleform/core/telegram/helpers"
	"github.com/m3rciful/teleform/intake/domain"

	tele "gopkg.in/telebot.v4"
)

const textInternal = "⚠️ Something went wrong. Please try again later."

// fail tells the user what went wrong and returns err for the handler summary.
func (b *Bot) fail(c tele.Context, err error) error {
	if err == nil {
		return nil
	}
	if sendErr := tghelpers.SendText(c, userMessage(err)); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}

// userMessage renders err for the person who caused it.
func userMessage(err error) string {
	var e *domain.Error
	if !errors.As(err, &e) {
		return textInternal
	}
	switch e.Kind {
	case domain.KindRateLimited:
		return "⏳ You have already posted to this channel. You can post again in " + tghelpers.FormatWait(e.Remaining) + "."
	case domain.KindDispatchFailure:
		if strings.HasSuffix(e.Op, ".reply") {
			return "❌ Could not deliver the reply. The author may have blocked the bot."
		}
		return "❌ Could not publish to the channel. Make sure the bot is a channel administrator allowed to post, then press Accept again."
	}
	if e.Msg == "" {
		return textInternal
	}
	icon := "⚠️ "
	switch e.Kind {
	case domain.KindForbidden:
		icon = "⛔ "
	case domain.KindNotFound:
		icon = "🔍 "
	}
	return icon + capitalize(e.Msg) + "."
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
