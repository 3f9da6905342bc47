// Package bans keeps per-channel lists of users blocked from submitting.
package bans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/teleform/core/logger"
	"github.com/m3rciful/teleform/intake/domain"
	"github.com/m3rciful/teleform/intake/store"
)

// OwnerGuard loads a channel and fails unless actor owns it.
type OwnerGuard interface {
	RequireOwner(ctx context.Context, op string, actor, channelID int64) (domain.Channel, error)
}

// List mutates and queries bans. Only channel owners may mutate.
type List struct {
	guard OwnerGuard
	bans  store.Bans
	log   *slog.Logger
}

// New returns a List.
func New(guard OwnerGuard, bans store.Bans) *List {
	return &List{guard: guard, bans: bans, log: logger.Component(logger.CompBans)}
}

// Ban blocks userID on the channel. banned is false when already blocked.
func (l *List) Ban(ctx context.Context, actor, channelID, userID int64) (bool, error) {
	const op = "bans.ban"
	if userID == 0 {
		return false, domain.E(domain.KindValidation, op, "user id is required")
	}
	if _, err := l.guard.RequireOwner(ctx, op, actor, channelID); err != nil {
		return false, err
	}
	banned, err := l.bans.InsertBan(ctx, domain.BanRecord{ChannelID: channelID, UserID: userID, BannedBy: actor})
	if errors.Is(err, store.ErrNotFound) {
		return false, domain.E(domain.KindNotFound, op, "channel %d not found", channelID)
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	logger.LogEvent(ctx, l.log, slog.LevelInfo, "user.ban",
		slog.String("status", "ok"),
		slog.Int64("channel_id", channelID),
		slog.Int64("author_id", userID),
		slog.Bool("created", banned),
	)
	return banned, nil
}

// Unban lifts a block. unbanned is false when the user was not blocked.
func (l *List) Unban(ctx context.Context, actor, channelID, userID int64) (bool, error) {
	const op = "bans.unban"
	if _, err := l.guard.RequireOwner(ctx, op, actor, channelID); err != nil {
		return false, err
	}
	unbanned, err := l.bans.DeleteBan(ctx, channelID, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	logger.LogEvent(ctx, l.log, slog.LevelInfo, "user.unban",
		slog.String("status", "ok"),
		slog.Int64("channel_id", channelID),
		slog.Int64("author_id", userID),
		slog.Bool("deleted", unbanned),
	)
	return unbanned, nil
}

// IsBanned reports whether userID is blocked on the channel.
func (l *List) IsBanned(ctx context.Context, channelID, userID int64) (bool, error) {
	ok, err := l.bans.HasBan(ctx, channelID, userID)
	if err != nil {
		return false, fmt.Errorf("bans.check: %w", err)
	}
	return ok, nil
}
