package domain

import "time"

// Channel is a destination channel registered by its owner.
type Channel struct {
	ID      int64 `db:"id"`
	OwnerID int64 `db:"owner_id"`

	// Key is the canonical external key: "@handle" or the numeric chat id.
	Key       string    `db:"external_key"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
}

// DisplayName prefers the title and falls back to the external key.
func (c Channel) DisplayName() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Key
}

// ModeratorGrant authorizes a user to moderate one channel.
type ModeratorGrant struct {
	ChannelID int64     `db:"channel_id"`
	UserID    int64     `db:"moderator_user_id"`
	GrantedBy int64     `db:"granted_by"`
	CreatedAt time.Time `db:"created_at"`
}

// BanRecord blocks a user from submitting to one channel.
type BanRecord struct {
	ChannelID int64     `db:"channel_id"`
	UserID    int64     `db:"user_id"`
	BannedBy  int64     `db:"banned_by"`
	CreatedAt time.Time `db:"created_at"`
}

// CooldownRecord is the time of the last charged submission for a user and channel.
type CooldownRecord struct {
	UserID        int64     `db:"user_id"`
	ChannelID     int64     `db:"channel_id"`
	LastSuccessAt time.Time `db:"last_success_at"`
}
