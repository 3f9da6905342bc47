package bot

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/teleform/intake/domain"
)

func TestExtractContent(t *testing.T) {
	chat := &tele.Chat{ID: 5}

	c, ok := extractContent(&tele.Message{ID: 9, Chat: chat, Text: "hello"})
	assert.True(t, ok)
	assert.Equal(t, domain.KindText, c.Kind)
	assert.Equal(t, &domain.Origin{ChatID: 5, MessageID: 9}, c.Origin)

	photo := &tele.Photo{File: tele.File{FileID: "p1", FileSize: 2048}}
	c, ok = extractContent(&tele.Message{ID: 10, Chat: chat, Photo: photo, Caption: "cap"})
	assert.True(t, ok)
	assert.Equal(t, domain.KindPhoto, c.Kind)
	assert.Equal(t, "p1", c.MediaRef)
	assert.Equal(t, int64(2048), c.Size)
	assert.Equal(t, "cap", c.Text)

	doc := &tele.Document{File: tele.File{FileID: "d1"}}
	c, ok = extractContent(&tele.Message{Chat: chat, Document: doc})
	assert.True(t, ok)
	assert.Equal(t, domain.KindDocument, c.Kind)

	_, ok = extractContent(&tele.Message{Chat: chat, Sticker: &tele.Sticker{}})
	assert.False(t, ok)
	_, ok = extractContent(&tele.Message{Chat: chat, Text: "   "})
	assert.False(t, ok)
	_, ok = extractContent(nil)
	assert.False(t, ok)
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{domain.RateLimited("submission.create", 3590*time.Second), "⏳ You have already posted to this channel. You can post again in 00:59:50."},
		{domain.E(domain.KindForbidden, "submission.create", "you are banned from this channel"), "⛔ You are banned from this channel."},
		{domain.E(domain.KindValidation, "submission.create", "post is empty"), "⚠️ Post is empty."},
		{fmt.Errorf("accept: %w", domain.Wrap(domain.KindDispatchFailure, "submission.accept", fmt.Errorf("chat not found"))), "❌ Could not publish to the channel. Make sure the bot is a channel administrator allowed to post, then press Accept again."},
		{domain.Wrap(domain.KindDispatchFailure, "submission.reply", fmt.Errorf("blocked")), "❌ Could not deliver the reply. The author may have blocked the bot."},
		{fmt.Errorf("db down"), textInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, userMessage(tc.err))
	}
}

func TestForwardedChannel(t *testing.T) {
	channel := &tele.Chat{ID: -1001, Type: tele.ChatChannel, Username: "news"}

	assert.Equal(t, channel, forwardedChannel(&tele.Message{OriginalChat: channel}))
	assert.Equal(t, channel, forwardedChannel(&tele.Message{Origin: &tele.MessageOrigin{Chat: channel}}))
	assert.Nil(t, forwardedChannel(&tele.Message{OriginalChat: &tele.Chat{ID: 3, Type: tele.ChatGroup}}))
	assert.Nil(t, forwardedChannel(&tele.Message{Text: "plain"}))
}

func TestDeepLinkAndMenus(t *testing.T) {
	b := &Bot{username: "intake_bot"}
	assert.Equal(t, "https://t.me/intake_bot?start=post_12", b.deepLink(12))

	withLink := b.channelMenu(domain.Channel{ID: 12})
	assert.Equal(t, "https://t.me/intake_bot?start=post_12", withLink.InlineKeyboard[0][0].URL)

	b.username = ""
	assert.Empty(t, b.deepLink(12))
	noLink := b.channelMenu(domain.Channel{ID: 12})
	assert.Len(t, noLink.InlineKeyboard, len(withLink.InlineKeyboard)-1)

	mode := offerModeMenu(12)
	assert.Equal(t, "12:0", mode.InlineKeyboard[0][0].Data)
	assert.Equal(t, "12:1", mode.InlineKeyboard[0][1].Data)
}
