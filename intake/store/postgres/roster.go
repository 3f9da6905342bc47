package postgres

import (
	"context"

	"github.com/m3rciful/teleform/intake/domain"
)

func (s *Store) InsertGrant(ctx context.Context, g domain.ModeratorGrant) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO moderator_grants (channel_id, moderator_user_id, granted_by)
VALUES ($1, $2, $3)
ON CONFLICT (channel_id, moderator_user_id) DO NOTHING`, g.ChannelID, g.UserID, g.GrantedBy)
	if err != nil {
		return false, translate("insert grant", err)
	}
	return affected(res)
}

func (s *Store) DeleteGrant(ctx context.Context, channelID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM moderator_grants WHERE channel_id = $1 AND moderator_user_id = $2`, channelID, userID)
	if err != nil {
		return false, translate("delete grant", err)
	}
	return affected(res)
}

func (s *Store) GrantsByChannel(ctx context.Context, channelID int64) ([]domain.ModeratorGrant, error) {
	var out []domain.ModeratorGrant
	err := s.db.SelectContext(ctx, &out, `
SELECT channel_id, moderator_user_id, granted_by, created_at
FROM moderator_grants
WHERE channel_id = $1
ORDER BY created_at, moderator_user_id`, channelID)
	return out, translate("grants by channel", err)
}

func (s *Store) HasGrant(ctx context.Context, channelID, userID int64) (bool, error) {
	var ok bool
	err := s.db.GetContext(ctx, &ok, `
SELECT EXISTS (
	SELECT 1 FROM moderator_grants WHERE channel_id = $1 AND moderator_user_id = $2
)`, channelID, userID)
	return ok, translate("has grant", err)
}

func (s *Store) InsertBan(ctx context.Context, b domain.BanRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO bans (channel_id, user_id, banned_by)
VALUES ($1, $2, $3)
ON CONFLICT (channel_id, user_id) DO NOTHING`, b.ChannelID, b.UserID, b.BannedBy)
	if err != nil {
		return false, translate("insert ban", err)
	}
	return affected(res)
}

func (s *Store) DeleteBan(ctx context.Context, channelID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM bans WHERE channel_id = $1 AND user_id = $2`, channelID, userID)
	if err != nil {
		return false, translate("delete ban", err)
	}
	return affected(res)
}

func (s *Store) HasBan(ctx context.Context, channelID, userID int64) (bool, error) {
	var ok bool
	err := s.db.GetContext(ctx, &ok,
		`SELECT EXISTS (SELECT 1 FROM bans WHERE channel_id = $1 AND user_id = $2)`, channelID, userID)
	return ok, translate("has ban", err)
}

func (s *Store) UpsertCooldown(ctx context.Context, rec domain.CooldownRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO cooldowns (user_id, channel_id, last_success_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, channel_id) DO UPDATE SET last_success_at = EXCLUDED.last_success_at`,
		rec.UserID, rec.ChannelID, rec.LastSuccessAt)
	return translate("upsert cooldown", err)
}

func (s *Store) Cooldown(ctx context.Context, userID, channelID int64) (domain.CooldownRecord, error) {
	var rec domain.CooldownRecord
	err := s.db.GetContext(ctx, &rec, `
SELECT user_id, channel_id, last_success_at
FROM cooldowns
WHERE user_id = $1 AND channel_id = $2`, userID, channelID)
	return rec, translate("cooldown", err)
}
