package main

import (
	"context"
	"fmt"
	"log/slog"

	corebootstrap "github.com/m3rciful/teleform/core/bootstrap"
	corecmd "github.com/m3rciful/teleform/core/cmd"
	"github.com/m3rciful/teleform/core/logger"
	"github.com/m3rciful/teleform/core/metrics"
	coretelegram "github.com/m3rciful/teleform/core/telegram"
	"github.com/m3rciful/teleform/core/telegram/router"
	"github.com/m3rciful/teleform/intake"
	"github.com/m3rciful/teleform/intake/bot"
	appconfig "github.com/m3rciful/teleform/intake/config"
	"github.com/m3rciful/teleform/intake/conversation"
	"github.com/m3rciful/teleform/intake/store/postgres"

	tele "gopkg.in/telebot.v4"
)

// app owns everything bootstrapApp acquired.
type app struct {
	cfg   *appconfig.Config
	infra *corebootstrap.Result
	tb    *tele.Bot
	bot   *bot.Bot
	reg   *coretelegram.Registry
}

func bootstrapApp(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*appconfig.Config)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T", carrier)
	}

	infra, err := corebootstrap.Run(ctx, corebootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
		Redis:    cfg.Redis,
	})
	if err != nil {
		return nil, err
	}

	convOpts := conversation.Options{
		Backend:   cfg.Conversation.Backend,
		TTL:       cfg.Conversation.TTL(),
		DB:        infra.DB,
		KeyPrefix: cfg.Redis.KeyPrefix,
	}
	if infra.Redis != nil {
		convOpts.Redis = infra.Redis
	}
	conv, err := conversation.Open(convOpts)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	tb, err := coretelegram.NewBot(&cfg.Config)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	transport := bot.NewTransport(tb)
	svc := intake.New(intake.Options{
		Store:        postgres.New(infra.DB),
		Conversation: conv,
		Transport:    transport,
		Limits:       cfg.Intake.Limits(),
	})
	b, err := bot.New(bot.Options{
		Service:   svc,
		API:       tb,
		Transport: transport,
		Username:  tb.Me.Username,
	})
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	reg := coretelegram.NewRegistry()
	if err := b.Register(reg); err != nil {
		_ = infra.Close()
		return nil, err
	}
	return &app{cfg: cfg, infra: infra, tb: tb, bot: b, reg: reg}, nil
}

func (a *app) TelegramRunOptions() (coretelegram.RunOptions, error) {
	core := &a.cfg.Config
	routes := router.CommandRoutes(a.reg, router.CommandRouteOptions{
		AdminID: core.Telegram.AdminID,
		OnAdminReject: func(c tele.Context) error {
			return c.Send("This command is for the bot operator.")
		},
	})
	routes = append(routes, router.CallbackRoute(a.reg))
	routes = append(routes, router.MessageRoutes(a.bot, a.reg)...)

	onLimited := func(c tele.Context) error {
		if c.Callback() != nil {
			return c.Respond(&tele.CallbackResponse{Text: "Too fast, try again in a moment."})
		}
		return nil
	}

	return coretelegram.RunOptions{
		Config:      core,
		Registry:    a.reg,
		Bot:         a.tb,
		Middlewares: coretelegram.DefaultMiddlewares(core, onLimited),
		Routes:      routes,
		OnStart:     a.startMetrics,
	}, nil
}

// startMetrics serves /metrics and /healthz until ctx is done.
func (a *app) startMetrics(ctx context.Context, _ coretelegram.Runtime) error {
	addr := a.cfg.Metrics.Listen
	if addr == "" {
		return nil
	}
	checks := map[string]metrics.Check{
		"postgres": func(ctx context.Context) error { return a.infra.DB.PingContext(ctx) },
	}
	if rdb := a.infra.Redis; rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	go func() {
		if err := metrics.Serve(ctx, addr, checks); err != nil {
			logger.Error(ctx, logger.CompMetrics, "metrics.serve",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}()
	return nil
}

func (a *app) Close() error {
	return a.infra.Close()
}
