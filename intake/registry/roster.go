package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/teleform/core/logger"
	"github.com/m3rciful/teleform/intake/domain"
	"github.com/m3rciful/teleform/intake/store"
)

// Grant adds userID to the channel's moderators. granted is false when the
// user already was one.
func (r *Registry) Grant(ctx context.Context, actor, channelID, userID int64) (bool, error) {
	const op = "registry.grant"
	if userID == 0 {
		return false, domain.E(domain.KindValidation, op, "moderator id is required")
	}
	if _, err := r.RequireOwner(ctx, op, actor, channelID); err != nil {
		return false, err
	}
	granted, err := r.grants.InsertGrant(ctx, domain.ModeratorGrant{
		ChannelID: channelID,
		UserID:    userID,
		GrantedBy: actor,
	})
	if errors.Is(err, store.ErrNotFound) {
		return false, domain.E(domain.KindNotFound, op, "channel %d not found", channelID)
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	logger.LogEvent(ctx, r.log, slog.LevelInfo, "moderator.grant",
		slog.String("status", "ok"),
		slog.Int64("channel_id", channelID),
		slog.Int64("moderator_id", userID),
		slog.Bool("created", granted),
	)
	return granted, nil
}

// Revoke removes userID from the channel's moderators. revoked is false when
// the user was not one.
func (r *Registry) Revoke(ctx context.Context, actor, channelID, userID int64) (bool, error) {
	const op = "registry.revoke"
	if _, err := r.RequireOwner(ctx, op, actor, channelID); err != nil {
		return false, err
	}
	revoked, err := r.grants.DeleteGrant(ctx, channelID, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	logger.LogEvent(ctx, r.log, slog.LevelInfo, "moderator.revoke",
		slog.String("status", "ok"),
		slog.Int64("channel_id", channelID),
		slog.Int64("moderator_id", userID),
		slog.Bool("deleted", revoked),
	)
	return revoked, nil
}

// IsAuthorized reports whether actor owns or moderates the channel.
func (r *Registry) IsAuthorized(ctx context.Context, actor, channelID int64) (bool, error) {
	ch, err := r.channels.ChannelByID(ctx, channelID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("registry.authorize: %w", err)
	}
	return r.authorizedFor(ctx, actor, ch)
}

func (r *Registry) authorizedFor(ctx context.Context, actor int64, ch domain.Channel) (bool, error) {
	if ch.OwnerID == actor {
		return true, nil
	}
	ok, err := r.grants.HasGrant(ctx, ch.ID, actor)
	if err != nil {
		return false, fmt.Errorf("registry.authorize: %w", err)
	}
	return ok, nil
}

// Moderators lists the channel's roster in grant order.
func (r *Registry) Moderators(ctx context.Context, channelID int64) ([]domain.ModeratorGrant, error) {
	grants, err := r.grants.GrantsByChannel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("registry.moderators: %w", err)
	}
	return grants, nil
}

// Recipients returns who receives new submissions for ch: the roster, or
// the owner alone when the roster is empty.
func (r *Registry) Recipients(ctx context.Context, ch domain.Channel) ([]int64, error) {
	grants, err := r.Moderators(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return []int64{ch.OwnerID}, nil
	}
	out := make([]int64, 0, len(grants))
	for _, g := range grants {
		out = append(out, g.UserID)
	}
	return out, nil
}
