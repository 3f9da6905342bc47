package bot

import (
	"log/slog"

	tghelpers "github.com/m3rciful/teleform/core/telegram/helpers"
	"github.com/m3rciful/teleform/core/telegram/keyboard"
	"github.com/m3rciful/teleform/intake/conversation"

	tele "gopkg.in/telebot.v4"
)

// Expects reports whether the sender has a pending step. A store failure is
// logged and treated as no step, so the message falls through to the fallbacks.
func (b *Bot) Expects(c tele.Context) bool {
	uid := senderID(c)
	if uid == 0 {
		return false
	}
	ctx := b.ctx(c)
	step, err := b.svc.PeekStep(ctx, uid)
	if err != nil {
		b.warn(ctx, "step.peek", err, slog.Int64("user_id", uid))
		return false
	}
	return step != nil
}

// Handle continues the sender's pending step with the current message.
func (b *Bot) Handle(c tele.Context) error {
	step, err := b.svc.PeekStep(b.ctx(c), senderID(c))
	if err != nil {
		return err
	}
	switch step.(type) {
	case conversation.AwaitingChannelForward:
		return b.onChannelForward(c)
	case conversation.AwaitingChannelHandle:
		if c.Text() == "" {
			return tghelpers.SendText(c, textWaiting, keyboard.SingleCancel())
		}
		return b.onChannelHandle(c)
	case conversation.AwaitingSubmissionContent:
		return b.onSubmissionContent(c)
	case conversation.AwaitingModeratorIdentity:
		return b.onModeratorIdentity(c)
	case conversation.AwaitingReplyText:
		return b.onReplyText(c)
	}
	return b.onIdle(c)
}
