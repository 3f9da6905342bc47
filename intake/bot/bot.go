// Package bot is the Telegram adapter of the intake workflow: it binds
// commands, inline buttons and pending conversation steps to intake.Service
// calls, and implements the Transport the service delivers through.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/teleform/core/logger"
	tg "github.com/m3rciful/teleform/core/telegram"
	tghelpers "github.com/m3rciful/teleform/core/telegram/helpers"
	"github.com/m3rciful/teleform/core/telegram/keyboard"
	"github.com/m3rciful/teleform/intake"

	tele "gopkg.in/telebot.v4"
)

// Options wires a Bot.
type Options struct {
	Service   *intake.Service
	API       API
	Transport *Transport
	// Username is the bot's @username without "@", used in deep links.
	Username string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Bot handles updates for one intake.Service.
type Bot struct {
	svc       *intake.Service
	api       API
	transport *Transport
	username  string
	now       func() time.Time
	log       *slog.Logger
}

// New builds a Bot. A nil Transport is built over API.
func New(opts Options) (*Bot, error) {
	if opts.Service == nil {
		return nil, fmt.Errorf("bot: nil service")
	}
	if opts.API == nil {
		return nil, fmt.Errorf("bot: nil api")
	}
	tr := opts.Transport
	if tr == nil {
		tr = NewTransport(opts.API)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Bot{
		svc:       opts.Service,
		api:       opts.API,
		transport: tr,
		username:  opts.Username,
		now:       now,
		log:       logger.Component(logger.CompTG),
	}, nil
}

// Register binds every command, callback and fallback of the bot to reg.
func (b *Bot) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/start", tg.Command{Handler: b.onStart, Description: "Open the menu"})
	reg.RegisterCommand("/menu", tg.Command{Handler: b.onMenu, Description: "Main menu"})
	reg.RegisterCommand("/help", tg.Command{Handler: b.onHelp, Description: "How it works"})
	reg.RegisterCommand("/cancel", tg.Command{Handler: b.onCancel, Description: "Cancel the current action"})
	reg.RegisterCommand("/pending", tg.Command{Handler: b.onPending, Description: "Submissions waiting for review"})
	reg.RegisterCommand("/ban", tg.Command{Handler: b.onBan, Description: "Block a user: /ban <channel_id> <user_id>"})
	reg.RegisterCommand("/unban", tg.Command{Handler: b.onUnban, Description: "Unblock a user: /unban <channel_id> <user_id>"})
	reg.RegisterCommand("/stats", tg.Command{Handler: b.onStats, Description: "Storage summary", AdminOnly: true})

	handlers := map[string]tele.HandlerFunc{
		cbMenu:                b.onMenu,
		cbHelp:                b.onHelp,
		cbChannels:            b.onChannels,
		cbOffer:               b.onOffer,
		cbConnect:             b.onConnect,
		cbMyChannels:          b.onMyChannels,
		cbChannel:             b.onChannel,
		cbModerators:          b.onModerators,
		cbPromo:               b.onPromo,
		cbDelete:              b.onDelete,
		cbDeleteOK:            b.onDeleteConfirmed,
		cbModAdd:              b.onModeratorAdd,
		cbModRemove:           b.onModeratorRemove,
		cbSetupSelf:           b.onSetupSelf,
		cbSetupOther:          b.onModeratorAdd,
		cbSetupSkip:           b.onSetupSkip,
		cbOfferMode:           b.onOfferMode,
		cbAccept:              b.onAccept,
		cbReject:              b.onReject,
		cbReply:               b.onReplyStart,
		keyboard.CancelUnique: b.onCancel,
	}
	for key, h := range handlers {
		if err := reg.RegisterCallback(key, h); err != nil {
			return fmt.Errorf("bot: register callback %q: %w", key, err)
		}
	}
	reg.SetTextFallback(b.onIdle)
	reg.SetMediaFallback(b.onIdle)
	return nil
}

func (b *Bot) ctx(c tele.Context) context.Context {
	return tghelpers.BuildContext(c)
}

func senderID(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}

// deepLink opens the bot with a post offer for channelID. It is empty when
// the bot username is unknown.
func (b *Bot) deepLink(channelID int64) string {
	if b.username == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s?start=%s%d", b.username, startPostPrefix, channelID)
}

func (b *Bot) warn(ctx context.Context, event string, err error, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("status", "fail"), slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	logger.LogEvent(ctx, b.log, slog.LevelWarn, event, attrs...)
}
