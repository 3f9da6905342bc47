package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/teleform/core/telegram/callbacks"
	"github.com/m3rciful/teleform/core/telegram/format"
	tghelpers "github.com/m3rciful/teleform/core/telegram/helpers"
	"github.com/m3rciful/teleform/core/telegram/keyboard"
	"github.com/m3rciful/teleform/intake/conversation"
	"github.com/m3rciful/teleform/intake/domain"
	"github.com/m3rciful/teleform/intake/registry"

	tele "gopkg.in/telebot.v4"
)

const textModeratorPrompt = "Forward a message from the user, or send their @username or numeric ID, to add them as a moderator."

func (b *Bot) onConnect(c tele.Context) error {
	if err := b.svc.BeginChannelConnect(b.ctx(c), senderID(c)); err != nil {
		return err
	}
	return tghelpers.SendText(c,
		"Add this bot to your channel as an administrator, then forward any message from the channel here.",
		keyboard.SingleCancel())
}

// onChannelForward connects the channel a forwarded message came from,
// provided the sender administers it.
func (b *Bot) onChannelForward(c tele.Context) error {
	ctx := b.ctx(c)
	uid := senderID(c)
	chat := forwardedChannel(c.Message())
	if chat == nil {
		return tghelpers.SendText(c,
			"❌ That is not a message forwarded from a channel. Forward any message from your channel.",
			keyboard.SingleCancel())
	}
	step, err := b.svc.ConsumeStepKind(ctx, uid, conversation.KindChannelForward)
	if err != nil || step == nil {
		return err
	}

	member, err := b.api.ChatMemberOf(chat, c.Sender())
	if err != nil {
		b.warn(ctx, "channel.verify", err, slog.Int64("chat_id", chat.ID))
		return tghelpers.SendText(c,
			"❌ Could not check your rights in that channel. Make sure the bot is added to the channel.",
			channelsMenu())
	}
	if member.Role != tele.Administrator && member.Role != tele.Creator {
		return tghelpers.SendText(c, "❌ You are not an administrator of this channel.", channelsMenu())
	}

	ch, created, err := b.svc.RegisterChannel(ctx, uid, registry.CanonicalKey(chat.ID, chat.Username), chat.Title)
	if err != nil {
		return b.fail(c, err)
	}
	if !created {
		return tghelpers.SendText(c, "❗ This channel is already connected.", channelsMenu())
	}
	if link := b.deepLink(ch.ID); link != "" {
		text := "This channel is connected to the intake bot. Subscribers can offer posts with the button below."
		if err := b.transport.PostInvite(ch, text, link); err != nil {
			b.warn(ctx, "channel.invite", err, slog.Int64("channel_id", ch.ID))
		}
	}
	return tghelpers.SendHTML(c,
		fmt.Sprintf("✅ Channel %s connected.\nWho should review submissions?", b.channelTitle(ch)),
		setupMenu(ch.ID))
}

func (b *Bot) onSetupSelf(c tele.Context) error {
	ctx := b.ctx(c)
	uid := senderID(c)
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return err
	}
	if _, err := b.svc.GrantModerator(ctx, uid, id, uid); err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendText(c, "👌 You will review submissions for this channel.", channelsMenu())
}

func (b *Bot) onSetupSkip(c tele.Context) error {
	return tghelpers.SendText(c, "OK. You can add moderators later from the channel menu.", channelsMenu())
}

func (b *Bot) onMyChannels(c tele.Context) error {
	chs, err := b.svc.ChannelsOf(b.ctx(c), senderID(c))
	if err != nil {
		return b.fail(c, err)
	}
	if len(chs) == 0 {
		return tghelpers.EditOrSendHTML(c, "📭 You have no connected channels yet.", channelsMenu())
	}
	btns := make([]keyboard.InlineBtn, 0, len(chs)+1)
	for _, ch := range chs {
		btns = append(btns, keyboard.Btn(format.Truncate(ch.DisplayName(), 48), cbChannel, strconv.FormatInt(ch.ID, 10)))
	}
	btns = append(btns, keyboard.Btn("◀️ Back", cbChannels, ""))
	return tghelpers.EditOrSendHTML(c, "📋 Your channels:", keyboard.Column(btns...))
}

// ownedChannel loads the channel named by the callback payload for its owner.
func (b *Bot) ownedChannel(c tele.Context) (domain.Channel, error) {
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return domain.Channel{}, domain.E(domain.KindValidation, "bot.owned_channel", "bad button payload")
	}
	return b.svc.OwnedChannel(b.ctx(c), senderID(c), id)
}

func (b *Bot) onChannel(c tele.Context) error {
	ch, err := b.ownedChannel(c)
	if err != nil {
		return b.fail(c, err)
	}
	text := format.Lines(
		"⚙️ Managing "+b.channelTitle(ch),
		"ID: "+format.Code(strconv.FormatInt(ch.ID, 10))+" · key: "+format.Code(ch.Key),
	)
	return tghelpers.EditOrSendHTML(c, text, b.channelMenu(ch))
}

func (b *Bot) onModerators(c tele.Context) error {
	ch, err := b.ownedChannel(c)
	if err != nil {
		return b.fail(c, err)
	}
	return b.showModerators(c, ch)
}

func (b *Bot) showModerators(c tele.Context, ch domain.Channel) error {
	ctx := b.ctx(c)
	grants, err := b.svc.Moderators(ctx, ch.ID)
	if err != nil {
		return b.fail(c, err)
	}
	lines := []string{"Moderators of " + b.channelTitle(ch) + ":"}
	if len(grants) == 0 {
		lines = append(lines, "No moderators yet; submissions go to the owner.")
	}
	rows := [][]keyboard.InlineBtn{keyboard.Row(keyboard.Btn("➕ Add moderator", cbModAdd, strconv.FormatInt(ch.ID, 10)))}
	for _, g := range grants {
		lines = append(lines, fmt.Sprintf("• %s (ID %s)", format.Escape(b.userName(ctx, g.UserID)), format.Code(strconv.FormatInt(g.UserID, 10))))
		rows = append(rows, keyboard.Row(keyboard.Btn(
			fmt.Sprintf("Remove %d", g.UserID), cbModRemove, callbacks.Join(ch.ID, g.UserID))))
	}
	rows = append(rows, keyboard.Row(keyboard.Btn("◀️ Back", cbChannel, strconv.FormatInt(ch.ID, 10))))
	return tghelpers.EditOrSendHTML(c, format.Lines(lines...), keyboard.Inline(rows...))
}

func (b *Bot) userName(ctx context.Context, userID int64) string {
	return b.transport.authorName(ctx, userID)
}

func (b *Bot) onModeratorAdd(c tele.Context) error {
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return err
	}
	if err := b.svc.BeginModeratorSetup(b.ctx(c), senderID(c), id); err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendText(c, textModeratorPrompt, keyboard.SingleCancel())
}

func (b *Bot) onModeratorRemove(c tele.Context) error {
	ctx := b.ctx(c)
	ids, err := callbacks.PayloadInt64s(c, 2)
	if err != nil {
		return err
	}
	removed, err := b.svc.RevokeModerator(ctx, senderID(c), ids[0], ids[1])
	if err != nil {
		return b.fail(c, err)
	}
	if !removed {
		return tghelpers.SendText(c, "That user is no longer a moderator.")
	}
	ch, err := b.svc.Channel(ctx, ids[0])
	if err != nil {
		return b.fail(c, err)
	}
	return b.showModerators(c, ch)
}

// onModeratorIdentity grants moderation to the user named by a forward,
// an @username or a numeric id.
func (b *Bot) onModeratorIdentity(c tele.Context) error {
	ctx := b.ctx(c)
	uid := senderID(c)
	target, hint := b.resolveUser(c.Message())
	if target == 0 {
		return tghelpers.SendText(c, hint, keyboard.SingleCancel())
	}
	step, err := b.svc.ConsumeStepKind(ctx, uid, conversation.KindModeratorIdentity)
	if err != nil || step == nil {
		return err
	}
	pending, ok := step.(conversation.AwaitingModeratorIdentity)
	if !ok {
		return fmt.Errorf("bot: moderator identity step has type %T", step)
	}
	granted, err := b.svc.GrantModerator(ctx, uid, pending.ChannelID, target)
	if err != nil {
		return b.fail(c, err)
	}
	back := keyboard.Column(keyboard.Btn("◀️ Channel menu", cbChannel, strconv.FormatInt(pending.ChannelID, 10)))
	if !granted {
		return tghelpers.SendText(c, "This user is already a moderator.", back)
	}
	return tghelpers.SendText(c, "✅ Moderator added.", back)
}

// resolveUser finds the user a message names. When it cannot, hint tells
// the sender what to send instead.
func (b *Bot) resolveUser(m *tele.Message) (id int64, hint string) {
	if m == nil {
		return 0, textModeratorPrompt
	}
	if u := forwardedUser(m); u != nil {
		return u.ID, ""
	}
	text := strings.TrimSpace(m.Text)
	if strings.HasPrefix(text, "@") && len(text) > 1 {
		chat, err := b.api.ChatByUsername(text)
		if err != nil || chat == nil || chat.Type != tele.ChatPrivate {
			return 0, "Could not find a user by " + text + ". They need to start this bot first."
		}
		return chat.ID, ""
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil && n > 0 {
		return n, ""
	}
	return 0, textModeratorPrompt
}

func (b *Bot) onPromo(c tele.Context) error {
	ch, err := b.ownedChannel(c)
	if err != nil {
		return b.fail(c, err)
	}
	link := b.deepLink(ch.ID)
	if link == "" {
		return tghelpers.SendText(c, "The bot username is unknown, so no invite link can be built.")
	}
	text := fmt.Sprintf("📣 Want to publish in %s? Press the button and offer a post through the bot. It will be reviewed by the moderators.",
		b.channelTitle(ch))
	if err := b.transport.PostInvite(ch, text, link); err != nil {
		b.warn(b.ctx(c), "channel.invite", err, slog.Int64("channel_id", ch.ID))
		return tghelpers.SendText(c, "❌ Could not post to the channel. Make sure the bot is a channel administrator allowed to post.", channelsMenu())
	}
	return tghelpers.SendText(c, "The invite was posted to the channel.", channelsMenu())
}

func (b *Bot) onDelete(c tele.Context) error {
	ch, err := b.ownedChannel(c)
	if err != nil {
		return b.fail(c, err)
	}
	id := strconv.FormatInt(ch.ID, 10)
	return tghelpers.EditOrSendHTML(c,
		fmt.Sprintf("Delete channel %s? Its moderators and bans are removed too.", b.channelTitle(ch)),
		keyboard.Inline(keyboard.Row(
			keyboard.Btn("🗑 Yes, delete", cbDeleteOK, id),
			keyboard.Btn("◀️ Back", cbChannel, id),
		)))
}

func (b *Bot) onDeleteConfirmed(c tele.Context) error {
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return err
	}
	if err := b.svc.RemoveChannel(b.ctx(c), senderID(c), id); err != nil {
		return b.fail(c, err)
	}
	return tghelpers.EditOrSendHTML(c, "Channel removed.", mainMenu())
}

// forwardedChannel returns the channel a forwarded message originates from.
func forwardedChannel(m *tele.Message) *tele.Chat {
	if m == nil {
		return nil
	}
	if o := m.Origin; o != nil && o.Chat != nil && o.Chat.Type == tele.ChatChannel {
		return o.Chat
	}
	if m.OriginalChat != nil && m.OriginalChat.Type == tele.ChatChannel {
		return m.OriginalChat
	}
	return nil
}

// forwardedUser returns the author of a forwarded message, when visible.
func forwardedUser(m *tele.Message) *tele.User {
	if m == nil {
		return nil
	}
	if o := m.Origin; o != nil && o.Sender != nil {
		return o.Sender
	}
	return m.OriginalSender
}
