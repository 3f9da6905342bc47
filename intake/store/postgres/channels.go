package postgres

import (
	"context"

	"github.com/lib/pq"

	"github.com/m3rciful/teleform/intake/domain"
)

const channelColumns = `id, owner_id, external_key, title, created_at`

// The no-op DO UPDATE makes RETURNING yield the existing row on conflict;
// xmax = 0 only for a freshly inserted tuple.
const upsertChannelSQL = `
INSERT INTO channels (owner_id, external_key, title)
VALUES ($1, $2, $3)
ON CONFLICT (external_key) DO UPDATE SET external_key = EXCLUDED.external_key
RETURNING ` + channelColumns + `, (xmax = 0) AS created`

type upsertedChannel struct {
	domain.Channel
	Created bool `db:"created"`
}

func (s *Store) UpsertChannel(ctx context.Context, ch domain.Channel) (domain.Channel, bool, error) {
	var row upsertedChannel
	err := s.db.QueryRowxContext(ctx, upsertChannelSQL, ch.OwnerID, ch.Key, ch.Title).StructScan(&row)
	if err != nil {
		return domain.Channel{}, false, translate("upsert channel", err)
	}
	return row.Channel, row.Created, nil
}

func (s *Store) ChannelByID(ctx context.Context, id int64) (domain.Channel, error) {
	var ch domain.Channel
	err := s.db.GetContext(ctx, &ch, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id)
	return ch, translate("channel by id", err)
}

func (s *Store) ChannelByKeys(ctx context.Context, keys []string) (domain.Channel, error) {
	var ch domain.Channel
	err := s.db.GetContext(ctx, &ch, `
SELECT `+channelColumns+`
FROM channels
WHERE external_key = ANY($1)
ORDER BY array_position($1, external_key)
LIMIT 1`, pq.Array(keys))
	return ch, translate("channel by keys", err)
}

func (s *Store) ChannelsByOwner(ctx context.Context, ownerID int64) ([]domain.Channel, error) {
	var out []domain.Channel
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+channelColumns+` FROM channels WHERE owner_id = $1 ORDER BY id DESC`, ownerID)
	return out, translate("channels by owner", err)
}

// DeleteChannel relies on ON DELETE CASCADE for grants and bans.
func (s *Store) DeleteChannel(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return false, translate("delete channel", err)
	}
	return affected(res)
}
