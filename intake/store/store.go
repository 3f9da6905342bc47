// Package store declares the persistence contracts used by the intake
// components. Implementations live in the postgres and memory sub-packages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/m3rciful/teleform/intake/domain"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrCooldownActive is returned by CreateSubmission when the author's
	// cooldown for the channel has not expired.
	ErrCooldownActive = errors.New("store: cooldown active")
)

// Channels persists registered channels.
type Channels interface {
	// UpsertChannel inserts ch or returns the existing row with the same key.
	// created is false when the row already existed.
	UpsertChannel(ctx context.Context, ch domain.Channel) (_ domain.Channel, created bool, _ error)
	ChannelByID(ctx context.Context, id int64) (domain.Channel, error)
	// ChannelByKeys returns the channel matching the earliest key in keys.
	ChannelByKeys(ctx context.Context, keys []string) (domain.Channel, error)
	ChannelsByOwner(ctx context.Context, ownerID int64) ([]domain.Channel, error)
	// DeleteChannel removes the channel with its grants and bans.
	DeleteChannel(ctx context.Context, id int64) (bool, error)
}

// Grants persists the moderator roster.
type Grants interface {
	// InsertGrant reports false when the grant already existed.
	InsertGrant(ctx context.Context, g domain.ModeratorGrant) (bool, error)
	DeleteGrant(ctx context.Context, channelID, userID int64) (bool, error)
	GrantsByChannel(ctx context.Context, channelID int64) ([]domain.ModeratorGrant, error)
	HasGrant(ctx context.Context, channelID, userID int64) (bool, error)
}

// Bans persists per-channel bans.
type Bans interface {
	// InsertBan reports false when the ban already existed.
	InsertBan(ctx context.Context, b domain.BanRecord) (bool, error)
	DeleteBan(ctx context.Context, channelID, userID int64) (bool, error)
	HasBan(ctx context.Context, channelID, userID int64) (bool, error)
}

// Cooldowns persists last-success timestamps.
type Cooldowns interface {
	UpsertCooldown(ctx context.Context, rec domain.CooldownRecord) error
	Cooldown(ctx context.Context, userID, channelID int64) (domain.CooldownRecord, error)
}

// Submissions persists submissions and their status.
type Submissions interface {
	// CreateSubmission inserts sub as pending and charges the author's cooldown
	// at sub.CreatedAt in one transaction. It fails with ErrCooldownActive when
	// an existing cooldown is newer than cutoff.
	CreateSubmission(ctx context.Context, sub domain.Submission, cutoff time.Time) (domain.Submission, error)
	Submission(ctx context.Context, id int64) (domain.Submission, error)
	// TransitionSubmission moves id from -> to only if its status is still
	// from. It reports false when another writer got there first.
	TransitionSubmission(ctx context.Context, id int64, from, to domain.Status, at time.Time) (bool, error)
	// SubmissionsForModerator lists submissions in status for channels the
	// user owns or moderates, newest first.
	SubmissionsForModerator(ctx context.Context, userID int64, status domain.Status, limit int) ([]domain.Submission, error)
}

// Actions persists the append-only moderation log.
type Actions interface {
	AppendAction(ctx context.Context, e domain.ActionLogEntry) (domain.ActionLogEntry, error)
	ActionsBySubmission(ctx context.Context, submissionID int64) ([]domain.ActionLogEntry, error)
}

// Stats aggregates counts for operators.
type Stats interface {
	Stats(ctx context.Context) (domain.Stats, error)
}

// Store is the full persistence surface.
type Store interface {
	Channels
	Grants
	Bans
	Cooldowns
	Submissions
	Actions
	Stats
}
