package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/teleform/core/logger"
	"github.com/m3rciful/teleform/core/telegram/format"
	"github.com/m3rciful/teleform/core/telegram/keyboard"
	"github.com/m3rciful/teleform/intake/domain"

	tele "gopkg.in/telebot.v4"
)

// maxCaption is the Bot API limit for media captions, in characters.
const maxCaption = 1024

// API is the part of the Bot API the adapter calls outside of an update
// context. *tele.Bot satisfies it.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Copy(to tele.Recipient, msg tele.Editable, opts ...interface{}) (*tele.Message, error)
	Forward(to tele.Recipient, msg tele.Editable, opts ...interface{}) (*tele.Message, error)
	ChatByID(id int64) (*tele.Chat, error)
	ChatByUsername(name string) (*tele.Chat, error)
	ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error)
}

// chatKey addresses a chat by its stored key: "@handle" or a numeric id.
type chatKey string

func (k chatKey) Recipient() string { return string(k) }

// Transport delivers submissions through the Bot API.
type Transport struct {
	api API
	log *slog.Logger
}

// NewTransport returns a Transport sending through api.
func NewTransport(api API) *Transport {
	return &Transport{api: api, log: logger.Component(logger.CompDispatch)}
}

// DeliverToModerator shows sub to a moderator: the original message copied
// (anonymous) or forwarded (signed), followed by the moderation buttons.
func (t *Transport) DeliverToModerator(ctx context.Context, moderatorID int64, sub domain.Submission, ch domain.Channel) error {
	to := tele.ChatID(moderatorID)
	if err := t.showContent(ctx, to, sub); err != nil {
		return fmt.Errorf("deliver %s to %d: %w", sub.Label(), moderatorID, err)
	}
	text := format.Lines(
		fmt.Sprintf("🔔 Submission %s for %s", format.Bold(sub.Label()), format.Bold(ch.DisplayName())),
		authorLine(sub),
	)
	if _, err := t.api.Send(to, text, htmlOpts(moderationKeyboard(sub.ID))); err != nil {
		return fmt.Errorf("deliver %s controls to %d: %w", sub.Label(), moderatorID, err)
	}
	return nil
}

func (t *Transport) showContent(ctx context.Context, to tele.Recipient, sub domain.Submission) error {
	if o := sub.Content.Origin; o != nil {
		src := tele.StoredMessage{MessageID: strconv.Itoa(o.MessageID), ChatID: o.ChatID}
		var err error
		if sub.Anonymous {
			_, err = t.api.Copy(to, src)
		} else {
			_, err = t.api.Forward(to, src)
		}
		if err == nil {
			return nil
		}
		logger.LogEvent(ctx, t.log, slog.LevelDebug, "deliver.origin",
			slog.String("status", "fail"),
			slog.Int64("submission_id", sub.ID),
			slog.String("err", err.Error()),
		)
	}
	// The author may have deleted the message; rebuild it from the stored reference.
	_, err := t.api.Send(to, sendable(sub.Content, ""), plainOpts())
	return err
}

// DispatchToChannel posts content to ch, signed with the author unless
// authorID is 0.
func (t *Transport) DispatchToChannel(ctx context.Context, ch domain.Channel, content domain.Content, authorID int64) error {
	prefix := ""
	if authorID != 0 {
		prefix = "Author: " + t.authorName(ctx, authorID) + "\n\n"
	}
	if _, err := t.api.Send(chatKey(ch.Key), sendable(content, prefix), plainOpts()); err != nil {
		return fmt.Errorf("post to %s: %w", ch.Key, err)
	}
	return nil
}

// NotifyUser sends text to userID.
func (t *Transport) NotifyUser(_ context.Context, userID int64, text string) error {
	_, err := t.api.Send(tele.ChatID(userID), text, plainOpts())
	return err
}

// PostInvite publishes the "offer a post" deep-link button into ch.
func (t *Transport) PostInvite(ch domain.Channel, text, link string) error {
	markup := keyboard.Column(keyboard.URLBtn("✍️ Offer a post", link))
	_, err := t.api.Send(chatKey(ch.Key), text, htmlOpts(markup))
	return err
}

// authorName renders an author as @username or first name, falling back to the id.
func (t *Transport) authorName(ctx context.Context, userID int64) string {
	chat, err := t.api.ChatByID(userID)
	if err != nil || chat == nil {
		if err != nil {
			logger.LogEvent(ctx, t.log, slog.LevelDebug, "author.lookup",
				slog.String("status", "fail"),
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
		return strconv.FormatInt(userID, 10)
	}
	return displayName(chat.Username, chat.FirstName, chat.LastName, userID)
}

func displayName(username, first, last string, id int64) string {
	if username != "" {
		return "@" + username
	}
	if name := strings.TrimSpace(first + " " + last); name != "" {
		return name
	}
	return strconv.FormatInt(id, 10)
}

// sendable builds the Bot API payload for content with prefix before the
// text or caption.
func sendable(c domain.Content, prefix string) interface{} {
	text := prefix + c.Text
	file := tele.File{FileID: c.MediaRef}
	switch c.Kind {
	case domain.KindPhoto:
		return &tele.Photo{File: file, Caption: format.Truncate(text, maxCaption)}
	case domain.KindVideo:
		return &tele.Video{File: file, Caption: format.Truncate(text, maxCaption)}
	case domain.KindDocument:
		return &tele.Document{File: file, Caption: format.Truncate(text, maxCaption)}
	}
	return text
}

func authorLine(sub domain.Submission) string {
	if sub.Anonymous {
		return "Author: anonymous"
	}
	return "Author ID: " + format.Code(strconv.FormatInt(sub.AuthorID, 10))
}

func moderationKeyboard(id int64) *tele.ReplyMarkup {
	payload := strconv.FormatInt(id, 10)
	return keyboard.Inline(
		keyboard.Row(
			keyboard.Btn("✅ Accept", cbAccept, payload),
			keyboard.Btn("❌ Reject", cbReject, payload),
		),
		keyboard.Row(keyboard.Btn("✉️ Reply to author", cbReply, payload)),
	)
}

func plainOpts() *tele.SendOptions {
	return &tele.SendOptions{DisableWebPagePreview: true}
}

func htmlOpts(markup *tele.ReplyMarkup) *tele.SendOptions {
	return &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: markup, DisableWebPagePreview: true}
}
