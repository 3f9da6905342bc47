package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/teleform/intake"
	"github.com/m3rciful/teleform/intake/conversation"
	"github.com/m3rciful/teleform/intake/domain"
	"github.com/m3rciful/teleform/intake/store/memory"
	"github.com/m3rciful/teleform/intake/submission"
)

const (
	testOwner  int64 = 100
	testAuthor int64 = 200
)

// reply is one Bot API call the handler made through its update context.
type reply struct {
	method string
	chatID string
	text   string
}

// replyServer answers every Bot API call with a stub message and records it.
type replyServer struct {
	mu      sync.Mutex
	replies []reply
}

func (s *replyServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var params map[string]any
	_ = json.NewDecoder(r.Body).Decode(&params)
	str := func(k string) string {
		v, _ := params[k].(string)
		return v
	}
	s.mu.Lock()
	s.replies = append(s.replies, reply{method: path.Base(r.URL.Path), chatID: str("chat_id"), text: str("text")})
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`))
}

func (s *replyServer) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.replies))
	for _, r := range s.replies {
		out = append(out, r.text)
	}
	return out
}

func (s *replyServer) last() string {
	texts := s.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

type harness struct {
	bot     *Bot
	svc     *intake.Service
	store   *memory.Store
	api     *fakeAPI
	tb      *tele.Bot
	replies *replyServer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	replies := &replyServer{}
	srv := httptest.NewServer(replies)
	t.Cleanup(srv.Close)

	tb, err := tele.NewBot(tele.Settings{URL: srv.URL, Token: "test", Offline: true, Synchronous: true})
	require.NoError(t, err)

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	st := memory.New()
	st.Now = func() time.Time { return now }
	api := &fakeAPI{}
	svc := intake.New(intake.Options{
		Store:     st,
		Transport: NewTransport(api),
		Limits:    submission.Limits{MaxTextLength: 10},
		Now:       func() time.Time { return now },
	})
	b, err := New(Options{Service: svc, API: api, Username: "intake_bot", Now: func() time.Time { return now }})
	require.NoError(t, err)
	return &harness{bot: b, svc: svc, store: st, api: api, tb: tb, replies: replies}
}

// message builds a private message from userID.
func (h *harness) message(userID int64, text string) *tele.Message {
	return &tele.Message{
		ID:     7,
		Sender: &tele.User{ID: userID, FirstName: "U"},
		Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		Text:   text,
	}
}

func (h *harness) command(userID int64, text string) tele.Context {
	m := h.message(userID, text)
	if _, payload, ok := strings.Cut(text, " "); ok {
		m.Payload = payload
	}
	return h.tb.NewContext(tele.Update{Message: m})
}

func (h *harness) send(m *tele.Message) tele.Context {
	return h.tb.NewContext(tele.Update{Message: m})
}

func (h *harness) channel(t *testing.T) domain.Channel {
	t.Helper()
	ch, _, err := h.svc.RegisterChannel(context.Background(), testOwner, "@news", "News")
	require.NoError(t, err)
	return ch
}

func channelForward(userID int64, h *harness) *tele.Message {
	m := h.message(userID, "")
	m.Origin = &tele.MessageOrigin{
		Type: "channel",
		Chat: &tele.Chat{ID: -1001234, Type: tele.ChatChannel, Title: "News", Username: "news"},
	}
	return m
}

func TestChannelForwardFromNonAdminIsRefused(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.svc.BeginChannelConnect(ctx, testOwner))

	require.NoError(t, h.bot.Handle(h.send(channelForward(testOwner, h))))

	chs, err := h.svc.ChannelsOf(ctx, testOwner)
	require.NoError(t, err)
	assert.Empty(t, chs)
	_, err = h.svc.ResolveChannel(ctx, []string{"@news", "-1001234"})
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.Contains(t, h.replies.last(), "not an administrator")
	assert.Empty(t, h.api.calls, "nothing is posted to the channel")
}

func TestChannelForwardFromAdminConnects(t *testing.T) {
	h := newHarness(t)
	h.api.role = tele.Creator
	ctx := context.Background()
	require.NoError(t, h.svc.BeginChannelConnect(ctx, testOwner))

	require.NoError(t, h.bot.Handle(h.send(channelForward(testOwner, h))))

	chs, err := h.svc.ChannelsOf(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, chs, 1)
	assert.Equal(t, "News", chs[0].Title)
	assert.Contains(t, h.replies.last(), "connected")

	require.Len(t, h.api.calls, 1, "invite posted to the channel")
	assert.Equal(t, chs[0].Key, h.api.calls[0].to)

	step, err := h.svc.PeekStep(ctx, testOwner)
	require.NoError(t, err)
	assert.Nil(t, step)
}

func TestChannelForwardKeepsStepOnPlainMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.svc.BeginChannelConnect(ctx, testOwner))

	require.NoError(t, h.bot.Handle(h.send(h.message(testOwner, "hello"))))

	step, err := h.svc.PeekStep(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, conversation.AwaitingChannelForward{}, step)
}

func TestStartDeepLink(t *testing.T) {
	h := newHarness(t)
	ch := h.channel(t)

	require.NoError(t, h.bot.onStart(h.command(testAuthor, "/start post_999")))
	assert.Equal(t, "Channel not found or removed.", h.replies.last())

	require.NoError(t, h.bot.onStart(h.command(testAuthor, "/start post_abc")))
	assert.Equal(t, "Invalid link.", h.replies.last())

	require.NoError(t, h.bot.onStart(h.command(testAuthor, "/start post_"+strconv.FormatInt(ch.ID, 10))))
	assert.Contains(t, h.replies.last(), "Send a post to <b>News</b>")

	require.NoError(t, h.bot.onStart(h.command(testAuthor, "/start")))
	assert.Equal(t, textMenu, h.replies.last())
}

func TestBanCommandArguments(t *testing.T) {
	h := newHarness(t)
	ch := h.channel(t)
	ctx := context.Background()
	id := strconv.FormatInt(ch.ID, 10)

	require.NoError(t, h.bot.onBan(h.command(testOwner, "/ban")))
	assert.Equal(t, "Usage: /ban <channel_id> <user_id>", h.replies.last())

	require.NoError(t, h.bot.onBan(h.command(testOwner, "/ban "+id)))
	assert.Equal(t, "Usage: /ban <channel_id> <user_id>", h.replies.last())

	require.NoError(t, h.bot.onBan(h.command(testOwner, "/ban news 9")))
	assert.Equal(t, "Invalid arguments. Usage: /ban <channel_id> <user_id>", h.replies.last())

	banned, err := h.store.HasBan(ctx, ch.ID, 9)
	require.NoError(t, err)
	assert.False(t, banned)

	require.NoError(t, h.bot.onBan(h.command(testOwner, "/ban "+id+" 9")))
	assert.Equal(t, "The user is blocked for this channel.", h.replies.last())
	banned, err = h.store.HasBan(ctx, ch.ID, 9)
	require.NoError(t, err)
	assert.True(t, banned)

	err = h.bot.onBan(h.command(testAuthor, "/ban "+id+" 10"))
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, "⛔ Only the channel owner can do this.", h.replies.last())

	require.NoError(t, h.bot.onUnban(h.command(testOwner, "/unban "+id+" x")))
	assert.Equal(t, "Invalid arguments. Usage: /unban <channel_id> <user_id>", h.replies.last())
	require.NoError(t, h.bot.onUnban(h.command(testOwner, "/unban "+id+" 9")))
	assert.Equal(t, "The user is unblocked.", h.replies.last())
}

func TestInvalidPostKeepsStep(t *testing.T) {
	h := newHarness(t)
	ch := h.channel(t)
	ctx := context.Background()
	_, err := h.svc.BeginSubmission(ctx, testAuthor, ch.ID, false)
	require.NoError(t, err)

	require.NoError(t, h.bot.Handle(h.send(h.message(testAuthor, "this post is far too long"))))
	texts := h.replies.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "⚠️ Text is 25 characters, the limit is 10.", texts[0])
	assert.Equal(t, "Send a corrected post or press Cancel.", texts[1])

	step, err := h.svc.PeekStep(ctx, testAuthor)
	require.NoError(t, err)
	assert.Equal(t, conversation.AwaitingSubmissionContent{ChannelID: ch.ID}, step)

	require.NoError(t, h.bot.Handle(h.send(h.message(testAuthor, "short"))))
	assert.Contains(t, h.replies.last(), "was sent for review")
	step, err = h.svc.PeekStep(ctx, testAuthor)
	require.NoError(t, err)
	assert.Nil(t, step)
}

func TestModeratorIdentityGrantsOnPendingChannel(t *testing.T) {
	h := newHarness(t)
	ch := h.channel(t)
	ctx := context.Background()
	require.NoError(t, h.svc.BeginModeratorSetup(ctx, testOwner, ch.ID))

	require.NoError(t, h.bot.Handle(h.send(h.message(testOwner, "not a user"))))
	step, err := h.svc.PeekStep(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, conversation.AwaitingModeratorIdentity{ChannelID: ch.ID}, step)

	require.NoError(t, h.bot.Handle(h.send(h.message(testOwner, "42"))))
	assert.Equal(t, "✅ Moderator added.", h.replies.last())
	grants, err := h.svc.Moderators(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, int64(42), grants[0].UserID)
}
