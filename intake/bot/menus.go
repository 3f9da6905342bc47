package bot

import (
	"strconv"
	"strings"

	"github.com/m3rciful/teleform/core/telegram/callbacks"
	"github.com/m3rciful/teleform/core/telegram/format"
	tghelpers "github.com/m3rciful/teleform/core/telegram/helpers"
	"github.com/m3rciful/teleform/core/telegram/keyboard"
	"github.com/m3rciful/teleform/intake/domain"

	tele "gopkg.in/telebot.v4"
)

const (
	textMenu      = "Menu:"
	textChannels  = "🔧 Channel management:"
	textCancelled = "Action cancelled."
	textIdle      = "Type /start to open the menu."
	textWaiting   = "I'm waiting for specific input. Send it or press Cancel. /menu returns to the menu."

	textHelp = `<b>How to offer a post</b>
Open a channel's "Offer a post" button, or press "Offer a post" here and send the channel's @username or link. Choose whether to sign the post, then send text, a photo, a video or a document. Moderators review it before it is published.

<b>How to connect your channel</b>
1. Add this bot to the channel as an administrator allowed to post.
2. Press "Manage channels", then "Connect a channel".
3. Forward any message from the channel here.
4. Choose who reviews submissions: you, another moderator, or decide later.

Moderators get every submission with Accept, Reject and Reply buttons. /pending lists what is still waiting.`
)

func mainMenu() *tele.ReplyMarkup {
	return keyboard.Column(
		keyboard.Btn("✍️ Offer a post", cbOffer, ""),
		keyboard.Btn("🔧 Manage channels", cbChannels, ""),
		keyboard.Btn("❓ Help", cbHelp, ""),
	)
}

func channelsMenu() *tele.ReplyMarkup {
	return keyboard.Column(
		keyboard.Btn("➕ Connect a channel", cbConnect, ""),
		keyboard.Btn("📋 My channels", cbMyChannels, ""),
		keyboard.Btn("◀️ Back", cbMenu, ""),
	)
}

func (b *Bot) channelMenu(ch domain.Channel) *tele.ReplyMarkup {
	id := strconv.FormatInt(ch.ID, 10)
	var link []keyboard.InlineBtn
	if url := b.deepLink(ch.ID); url != "" {
		link = keyboard.Row(keyboard.URLBtn("🔗 Subscriber link", url))
	}
	return keyboard.Inline(
		link,
		keyboard.Row(keyboard.Btn("👥 Moderators", cbModerators, id)),
		keyboard.Row(keyboard.Btn("📣 Post invite to the channel", cbPromo, id)),
		keyboard.Row(keyboard.Btn("🗑 Delete channel", cbDelete, id)),
		keyboard.Row(keyboard.Btn("◀️ Back", cbMyChannels, "")),
	)
}

func setupMenu(channelID int64) *tele.ReplyMarkup {
	id := strconv.FormatInt(channelID, 10)
	return keyboard.Column(
		keyboard.Btn("I will review submissions", cbSetupSelf, id),
		keyboard.Btn("Add another moderator", cbSetupOther, id),
		keyboard.Btn("Skip", cbSetupSkip, id),
	)
}

func offerModeMenu(channelID int64) *tele.ReplyMarkup {
	return keyboard.Inline(
		keyboard.Row(
			keyboard.Btn("👤 Signed", cbOfferMode, joinFlag(channelID, false)),
			keyboard.Btn("🕶 Anonymous", cbOfferMode, joinFlag(channelID, true)),
		),
		keyboard.Row(keyboard.Cancel()),
	)
}

func joinFlag(id int64, flag bool) string {
	var f int64
	if flag {
		f = 1
	}
	return callbacks.Join(id, f)
}

// onStart opens the menu, or the post offer when started from a channel deep link.
func (b *Bot) onStart(c tele.Context) error {
	ctx := b.ctx(c)
	uid := senderID(c)
	if err := b.svc.CancelStep(ctx, uid); err != nil {
		return err
	}
	payload := ""
	if m := c.Message(); m != nil {
		payload = strings.TrimSpace(m.Payload)
	}
	if !strings.HasPrefix(payload, startPostPrefix) {
		return tghelpers.SendHTML(c, textMenu, mainMenu())
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(payload, startPostPrefix), 10, 64)
	if err != nil {
		return tghelpers.SendText(c, "Invalid link.", mainMenu())
	}
	ch, err := b.svc.Channel(ctx, id)
	if domain.KindOf(err) == domain.KindNotFound {
		return tghelpers.SendText(c, "Channel not found or removed.", mainMenu())
	}
	if err != nil {
		return b.fail(c, err)
	}
	return b.askOfferMode(c, ch)
}

func (b *Bot) onMenu(c tele.Context) error {
	if err := b.svc.CancelStep(b.ctx(c), senderID(c)); err != nil {
		return err
	}
	return tghelpers.EditOrSendHTML(c, textMenu, mainMenu())
}

func (b *Bot) onHelp(c tele.Context) error {
	return tghelpers.EditOrSendHTML(c, textHelp, keyboard.Column(keyboard.Btn("◀️ Back", cbMenu, "")))
}

func (b *Bot) onChannels(c tele.Context) error {
	return tghelpers.EditOrSendHTML(c, textChannels, channelsMenu())
}

func (b *Bot) onCancel(c tele.Context) error {
	if err := b.svc.CancelStep(b.ctx(c), senderID(c)); err != nil {
		return err
	}
	return tghelpers.SendText(c, textCancelled, mainMenu())
}

// onIdle answers messages that neither continue a step nor name a command.
func (b *Bot) onIdle(c tele.Context) error {
	return tghelpers.SendText(c, textIdle)
}

func (b *Bot) channelTitle(ch domain.Channel) string {
	return format.Bold(ch.DisplayName())
}
