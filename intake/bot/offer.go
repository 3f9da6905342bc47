package bot

import (
	"fmt"
	"strings"

	"github.com/m3rciful/teleform/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/teleform/core/telegram/helpers"
	"github.com/m3rciful/teleform/core/telegram/keyboard"
	"github.com/m3rciful/teleform/intake/conversation"
	"github.com/m3rciful/teleform/intake/domain"
	"github.com/m3rciful/teleform/intake/registry"

	tele "gopkg.in/telebot.v4"
)

const textChannelNotFound = "❌ Channel not found or not connected to the bot. Check the @username or link; the channel owner connects it by forwarding a post here."

func (b *Bot) onOffer(c tele.Context) error {
	if err := b.svc.BeginChannelLookup(b.ctx(c), senderID(c)); err != nil {
		return err
	}
	return tghelpers.SendText(c,
		"Send the channel's @username or link, for example https://t.me/yourchannel.",
		keyboard.SingleCancel())
}

// onChannelHandle resolves the channel named by the sender's text: first by
// the key forms the text itself implies, then by asking Telegram for the chat.
func (b *Bot) onChannelHandle(c tele.Context) error {
	ctx := b.ctx(c)
	uid := senderID(c)
	text := c.Text()
	keys := registry.CandidateKeys(text)
	if len(keys) == 0 {
		return tghelpers.SendText(c, "Send an @username or a t.me link.", keyboard.SingleCancel())
	}
	step, err := b.svc.ConsumeStepKind(ctx, uid, conversation.KindChannelHandle)
	if err != nil || step == nil {
		return err
	}

	ch, err := b.svc.ResolveChannel(ctx, keys)
	if domain.KindOf(err) == domain.KindNotFound {
		ch, err = b.lookupChannel(c, text)
	}
	if domain.KindOf(err) == domain.KindNotFound {
		return tghelpers.SendText(c, textChannelNotFound, mainMenu())
	}
	if err != nil {
		return b.fail(c, err)
	}
	return b.askOfferMode(c, ch)
}

// lookupChannel resolves text through getChat, then matches every key form
// the resolved chat may have been registered under.
func (b *Bot) lookupChannel(c tele.Context, text string) (domain.Channel, error) {
	const op = "bot.lookup_channel"
	arg := registry.LookupArg(text)
	if arg == "" {
		return domain.Channel{}, domain.E(domain.KindNotFound, op, "channel not found")
	}
	chat, err := b.api.ChatByUsername(arg)
	if err != nil || chat == nil {
		if err != nil {
			b.warn(b.ctx(c), "channel.lookup", err)
		}
		return domain.Channel{}, domain.E(domain.KindNotFound, op, "channel not found")
	}
	return b.svc.ResolveChannel(b.ctx(c), registry.ChatKeys(chat.ID, chat.Username))
}

func (b *Bot) askOfferMode(c tele.Context, ch domain.Channel) error {
	return tghelpers.SendHTML(c,
		fmt.Sprintf("📣 Send a post to %s? Choose how:", b.channelTitle(ch)),
		offerModeMenu(ch.ID))
}

// onOfferMode checks the cooldown and waits for the post itself.
func (b *Bot) onOfferMode(c tele.Context) error {
	ctx := b.ctx(c)
	uid := senderID(c)
	channelID, anonymous, err := callbacks.PayloadIDFlag(c)
	if err != nil {
		return err
	}
	left, err := b.svc.CooldownRemaining(ctx, uid, channelID, b.now())
	if err != nil {
		return b.fail(c, err)
	}
	if left > 0 {
		return tghelpers.SendText(c,
			"⏳ You have already posted to this channel. You can post again in "+tghelpers.FormatWait(left)+".",
			mainMenu())
	}
	ch, err := b.svc.BeginSubmission(ctx, uid, channelID, anonymous)
	if err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendHTML(c,
		fmt.Sprintf("📝 Send text, a photo, a video or a document for %s.\nPress Cancel to stop.", b.channelTitle(ch)),
		keyboard.SingleCancel())
}

// onSubmissionContent turns the sender's message into a submission.
func (b *Bot) onSubmissionContent(c tele.Context) error {
	content, ok := extractContent(c.Message())
	if !ok {
		return tghelpers.SendText(c,
			"This message type is not supported. Send text, a photo, a video or a document.",
			keyboard.SingleCancel())
	}
	sub, err := b.svc.SubmitContent(b.ctx(c), senderID(c), content)
	if err != nil {
		if domain.KindOf(err) == domain.KindValidation {
			_ = b.fail(c, err)
			return tghelpers.SendText(c, "Send a corrected post or press Cancel.", keyboard.SingleCancel())
		}
		return b.fail(c, err)
	}
	return tghelpers.SendText(c,
		fmt.Sprintf("✅ Your submission %s was sent for review. Thank you!", sub.Label()),
		mainMenu())
}

// extractContent describes a message as submission content. ok is false for
// message types that cannot be submitted.
func extractContent(m *tele.Message) (domain.Content, bool) {
	if m == nil {
		return domain.Content{}, false
	}
	var origin *domain.Origin
	if m.Chat != nil {
		origin = &domain.Origin{ChatID: m.Chat.ID, MessageID: m.ID}
	}
	switch {
	case m.Photo != nil:
		return domain.Content{Kind: domain.KindPhoto, Text: m.Caption, MediaRef: m.Photo.FileID, Size: m.Photo.FileSize, Origin: origin}, true
	case m.Video != nil:
		return domain.Content{Kind: domain.KindVideo, Text: m.Caption, MediaRef: m.Video.FileID, Size: m.Video.FileSize, Origin: origin}, true
	case m.Document != nil:
		return domain.Content{Kind: domain.KindDocument, Text: m.Caption, MediaRef: m.Document.FileID, Size: m.Document.FileSize, Origin: origin}, true
	case strings.TrimSpace(m.Text) != "":
		return domain.Content{Kind: domain.KindText, Text: m.Text, Origin: origin}, true
	}
	return domain.Content{}, false
}
