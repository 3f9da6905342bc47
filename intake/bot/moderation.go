package bot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/m3rciful/teleform/core/buildinfo"
	"github.com/m3rciful/teleform/core/telegram/callbacks"
	"github.com/m3rciful/teleform/core/telegram/format"
	tghelpers "github.com/m3rciful/teleform/core/telegram/helpers"
	"github.com/m3rciful/teleform/core/telegram/keyboard"
	"github.com/m3rciful/teleform/intake/domain"

	tele "gopkg.in/telebot.v4"
)

// previewLength bounds the text shown per submission in /pending.
const previewLength = 300

func (b *Bot) onAccept(c tele.Context) error {
	ctx := b.ctx(c)
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return err
	}
	sub, err := b.svc.Accept(ctx, senderID(c), id)
	if err != nil {
		return b.fail(c, err)
	}
	name := strconv.FormatInt(sub.ChannelID, 10)
	if ch, err := b.svc.Channel(ctx, sub.ChannelID); err == nil {
		name = ch.DisplayName()
	}
	return tghelpers.SendText(c, fmt.Sprintf("✅ Submission %s was published in %s.", sub.Label(), name))
}

func (b *Bot) onReject(c tele.Context) error {
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return err
	}
	sub, err := b.svc.Reject(b.ctx(c), senderID(c), id, "")
	if err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendText(c, fmt.Sprintf("❌ Submission %s was rejected.", sub.Label()))
}

func (b *Bot) onReplyStart(c tele.Context) error {
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return err
	}
	sub, err := b.svc.BeginReply(b.ctx(c), senderID(c), id)
	if err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendText(c,
		fmt.Sprintf("✍️ Write your reply to the author of %s, or press Cancel.", sub.Label()),
		keyboard.SingleCancel())
}

// onReplyText sends the moderator's text to the author of the pending submission.
func (b *Bot) onReplyText(c tele.Context) error {
	m := c.Message()
	if m == nil || strings.TrimSpace(m.Text) == "" {
		return tghelpers.SendText(c, textWaiting, keyboard.SingleCancel())
	}
	id, err := b.svc.SubmitReply(b.ctx(c), senderID(c), m.Text)
	if err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendText(c, fmt.Sprintf("✉️ Reply sent to the author of #%d.", id))
}

// onPending lists submissions the sender may moderate: those still waiting
// for a decision and accepted ones whose publication failed.
func (b *Bot) onPending(c tele.Context) error {
	ctx := b.ctx(c)
	uid := senderID(c)
	pending, err := b.svc.ListPending(ctx, uid)
	if err != nil {
		return b.fail(c, err)
	}
	stuck, err := b.svc.ListAwaitingDispatch(ctx, uid)
	if err != nil {
		return b.fail(c, err)
	}
	if len(pending)+len(stuck) == 0 {
		return tghelpers.SendText(c, "No submissions are waiting for review.")
	}

	names := make(map[int64]string)
	channelName := func(id int64) string {
		if n, ok := names[id]; ok {
			return n
		}
		n := strconv.FormatInt(id, 10)
		if ch, err := b.svc.Channel(ctx, id); err == nil {
			n = ch.DisplayName()
		}
		names[id] = n
		return n
	}
	for _, sub := range stuck {
		text := format.Lines(
			fmt.Sprintf("⚠️ %s for %s was accepted but not published.", format.Bold(sub.Label()), format.Escape(channelName(sub.ChannelID))),
			preview(sub.Content),
		)
		retry := keyboard.Column(keyboard.Btn("🔁 Publish again", cbAccept, strconv.FormatInt(sub.ID, 10)))
		if err := tghelpers.SendHTML(c, text, retry); err != nil {
			return err
		}
	}
	for _, sub := range pending {
		text := format.Lines(
			fmt.Sprintf("📝 %s for %s", format.Bold(sub.Label()), format.Escape(channelName(sub.ChannelID))),
			authorLine(sub),
			preview(sub.Content),
		)
		if err := tghelpers.SendHTML(c, text, moderationKeyboard(sub.ID)); err != nil {
			return err
		}
	}
	return nil
}

func preview(content domain.Content) string {
	text := format.Escape(format.Truncate(content.Text, previewLength))
	if content.Kind.IsMedia() {
		label := "[" + string(content.Kind) + "]"
		if text == "" {
			return label
		}
		return label + " " + text
	}
	return text
}

func (b *Bot) onBan(c tele.Context) error {
	return b.banCommand(c, "/ban", func(channelID, userID int64) (string, error) {
		changed, err := b.svc.Ban(b.ctx(c), senderID(c), channelID, userID)
		if err != nil || !changed {
			return "The user is already blocked.", err
		}
		return "The user is blocked for this channel.", nil
	})
}

func (b *Bot) onUnban(c tele.Context) error {
	return b.banCommand(c, "/unban", func(channelID, userID int64) (string, error) {
		changed, err := b.svc.Unban(b.ctx(c), senderID(c), channelID, userID)
		if err != nil || !changed {
			return "The user was not blocked.", err
		}
		return "The user is unblocked.", nil
	})
}

// banCommand parses "<channel_id> <user_id>" and runs apply.
func (b *Bot) banCommand(c tele.Context, name string, apply func(channelID, userID int64) (string, error)) error {
	args := c.Args()
	usage := fmt.Sprintf("Usage: %s <channel_id> <user_id>", name)
	if len(args) != 2 {
		return tghelpers.SendText(c, usage)
	}
	channelID, err1 := strconv.ParseInt(args[0], 10, 64)
	userID, err2 := strconv.ParseInt(args[1], 10, 64)
	if err1 != nil || err2 != nil {
		return tghelpers.SendText(c, "Invalid arguments. "+usage)
	}
	msg, err := apply(channelID, userID)
	if err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendText(c, msg)
}

// onStats is the operator summary.
func (b *Bot) onStats(c tele.Context) error {
	st, err := b.svc.Stats(b.ctx(c))
	if err != nil {
		return b.fail(c, err)
	}
	statuses := make([]string, 0, len(st.Submissions))
	for s := range st.Submissions {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	lines := []string{
		format.Bold("📊 Stats"),
		fmt.Sprintf("Channels: %d", st.Channels),
		fmt.Sprintf("Moderators: %d", st.Moderators),
		fmt.Sprintf("Bans: %d", st.Bans),
	}
	for _, s := range statuses {
		lines = append(lines, fmt.Sprintf("Submissions %s: %d", s, st.Submissions[domain.Status(s)]))
	}
	lines = append(lines, "Build: "+format.Code(buildinfo.String()))
	return tghelpers.SendHTML(c, format.Lines(lines...))
}
