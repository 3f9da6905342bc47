// Package registry owns registered channels and their moderator rosters.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/teleform/core/logger"
	"github.com/m3rciful/teleform/intake/domain"
	"github.com/m3rciful/teleform/intake/store"
)

// Registry maps owners to channels and channels to moderators.
type Registry struct {
	channels store.Channels
	grants   store.Grants
	log      *slog.Logger
}

// New returns a Registry over the given stores.
func New(channels store.Channels, grants store.Grants) *Registry {
	return &Registry{
		channels: channels,
		grants:   grants,
		log:      logger.Component(logger.CompRegistry),
	}
}

// Register connects the channel identified by key to ownerID. Registering an
// existing key returns the stored channel with created=false, whoever owns it.
func (r *Registry) Register(ctx context.Context, ownerID int64, key, title string) (domain.Channel, bool, error) {
	const op = "registry.register"
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.Channel{}, false, domain.E(domain.KindValidation, op, "channel key is empty")
	}
	if ownerID == 0 {
		return domain.Channel{}, false, domain.E(domain.KindValidation, op, "owner is required")
	}
	ch, created, err := r.channels.UpsertChannel(ctx, domain.Channel{
		OwnerID: ownerID,
		Key:     key,
		Title:   strings.TrimSpace(title),
	})
	if err != nil {
		return domain.Channel{}, false, fmt.Errorf("%s: %w", op, err)
	}
	logger.LogEvent(ctx, r.log, slog.LevelInfo, "channel.register",
		slog.String("status", "ok"),
		slog.Int64("channel_id", ch.ID),
		slog.String("channel_key", ch.Key),
		slog.Bool("created", created),
	)
	return ch, created, nil
}

// Resolve returns the channel matching the first of keys that is registered.
func (r *Registry) Resolve(ctx context.Context, keys []string) (domain.Channel, error) {
	const op = "registry.resolve"
	if len(keys) == 0 {
		return domain.Channel{}, domain.E(domain.KindNotFound, op, "channel not found")
	}
	ch, err := r.channels.ChannelByKeys(ctx, keys)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Channel{}, domain.E(domain.KindNotFound, op, "channel not found")
	}
	if err != nil {
		return domain.Channel{}, fmt.Errorf("%s: %w", op, err)
	}
	return ch, nil
}

// Get returns the channel with id.
func (r *Registry) Get(ctx context.Context, id int64) (domain.Channel, error) {
	const op = "registry.get"
	ch, err := r.channels.ChannelByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Channel{}, domain.E(domain.KindNotFound, op, "channel %d not found", id)
	}
	if err != nil {
		return domain.Channel{}, fmt.Errorf("%s: %w", op, err)
	}
	return ch, nil
}

// ListByOwner returns the owner's channels, newest first.
func (r *Registry) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Channel, error) {
	chs, err := r.channels.ChannelsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("registry.list: %w", err)
	}
	return chs, nil
}

// RequireOwner loads channelID and fails with Forbidden unless actor owns it.
func (r *Registry) RequireOwner(ctx context.Context, op string, actor, channelID int64) (domain.Channel, error) {
	ch, err := r.channels.ChannelByID(ctx, channelID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Channel{}, domain.E(domain.KindNotFound, op, "channel %d not found", channelID)
	}
	if err != nil {
		return domain.Channel{}, fmt.Errorf("%s: %w", op, err)
	}
	if ch.OwnerID != actor {
		return domain.Channel{}, domain.E(domain.KindForbidden, op, "only the channel owner can do this")
	}
	return ch, nil
}

// Remove deletes a channel together with its moderators and bans.
// Submissions to it are kept.
func (r *Registry) Remove(ctx context.Context, actor, channelID int64) error {
	const op = "registry.remove"
	ch, err := r.RequireOwner(ctx, op, actor, channelID)
	if err != nil {
		return err
	}
	deleted, err := r.channels.DeleteChannel(ctx, ch.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !deleted {
		return domain.E(domain.KindNotFound, op, "channel %d not found", channelID)
	}
	logger.LogEvent(ctx, r.log, slog.LevelInfo, "channel.remove",
		slog.String("status", "ok"),
		slog.Int64("channel_id", ch.ID),
		slog.String("channel_key", ch.Key),
	)
	return nil
}
