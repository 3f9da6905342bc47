package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/teleform/intake/domain"
	"github.com/m3rciful/teleform/intake/store"
)

const submissionColumns = `id, author_id, kind, text, media_ref, size, origin_chat_id, origin_message_id,
	anonymous, target_channel_id, status, created_at, updated_at`

type submissionRow struct {
	ID              int64         `db:"id"`
	AuthorID        int64         `db:"author_id"`
	Kind            string        `db:"kind"`
	Text            string        `db:"text"`
	MediaRef        string        `db:"media_ref"`
	Size            int64         `db:"size"`
	OriginChatID    sql.NullInt64 `db:"origin_chat_id"`
	OriginMessageID sql.NullInt32 `db:"origin_message_id"`
	Anonymous       bool          `db:"anonymous"`
	ChannelID       int64         `db:"target_channel_id"`
	Status          string        `db:"status"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
}

func (r submissionRow) toDomain() domain.Submission {
	sub := domain.Submission{
		ID:       r.ID,
		AuthorID: r.AuthorID,
		Content: domain.Content{
			Kind:     domain.ContentKind(r.Kind),
			Text:     r.Text,
			MediaRef: r.MediaRef,
			Size:     r.Size,
		},
		Anonymous: r.Anonymous,
		ChannelID: r.ChannelID,
		Status:    domain.Status(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.OriginChatID.Valid && r.OriginMessageID.Valid {
		sub.Content.Origin = &domain.Origin{
			ChatID:    r.OriginChatID.Int64,
			MessageID: int(r.OriginMessageID.Int32),
		}
	}
	return sub
}

// The conditional DO UPDATE charges the cooldown only when it has expired;
// an active cooldown leaves the row untouched and RETURNING yields nothing.
const chargeCooldownSQL = `
INSERT INTO cooldowns (user_id, channel_id, last_success_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, channel_id) DO UPDATE SET last_success_at = EXCLUDED.last_success_at
WHERE cooldowns.last_success_at <= $4
RETURNING user_id`

const insertSubmissionSQL = `
INSERT INTO submissions (author_id, kind, text, media_ref, size, origin_chat_id, origin_message_id,
	anonymous, target_channel_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending', $10, $10)
RETURNING ` + submissionColumns

func (s *Store) CreateSubmission(ctx context.Context, sub domain.Submission, cutoff time.Time) (domain.Submission, error) {
	at := sub.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	var originChat sql.NullInt64
	var originMsg sql.NullInt32
	if o := sub.Content.Origin; o != nil {
		originChat = sql.NullInt64{Int64: o.ChatID, Valid: true}
		originMsg = sql.NullInt32{Int32: int32(o.MessageID), Valid: true}
	}

	var row submissionRow
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var charged int64
		err := tx.QueryRowxContext(ctx, chargeCooldownSQL, sub.AuthorID, sub.ChannelID, at, cutoff).Scan(&charged)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrCooldownActive
			}
			return translate("charge cooldown", err)
		}
		err = tx.QueryRowxContext(ctx, insertSubmissionSQL,
			sub.AuthorID, string(sub.Content.Kind), sub.Content.Text, sub.Content.MediaRef, sub.Content.Size,
			originChat, originMsg, sub.Anonymous, sub.ChannelID, at,
		).StructScan(&row)
		return translate("insert submission", err)
	})
	if err != nil {
		return domain.Submission{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) Submission(ctx context.Context, id int64) (domain.Submission, error) {
	var row submissionRow
	err := s.db.GetContext(ctx, &row, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	if err != nil {
		return domain.Submission{}, translate("submission", err)
	}
	return row.toDomain(), nil
}

func (s *Store) TransitionSubmission(ctx context.Context, id int64, from, to domain.Status, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, string(from), string(to), at)
	if err != nil {
		return false, translate("transition submission", err)
	}
	ok, err := affected(res)
	if err != nil || ok {
		return ok, err
	}
	// Distinguish a lost race from a missing row.
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM submissions WHERE id = $1)`, id); err != nil {
		return false, translate("transition submission", err)
	}
	if !exists {
		return false, store.ErrNotFound
	}
	return false, nil
}

func (s *Store) SubmissionsForModerator(ctx context.Context, userID int64, status domain.Status, limit int) ([]domain.Submission, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []submissionRow
	err := s.db.SelectContext(ctx, &rows, `
SELECT s.id, s.author_id, s.kind, s.text, s.media_ref, s.size, s.origin_chat_id, s.origin_message_id,
	s.anonymous, s.target_channel_id, s.status, s.created_at, s.updated_at
FROM submissions s
JOIN channels c ON c.id = s.target_channel_id
WHERE s.status = $2
  AND (c.owner_id = $1 OR EXISTS (
	SELECT 1 FROM moderator_grants g WHERE g.channel_id = c.id AND g.moderator_user_id = $1
  ))
ORDER BY s.created_at DESC, s.id DESC
LIMIT $3`, userID, string(status), limit)
	if err != nil {
		return nil, translate("submissions for moderator", err)
	}
	out := make([]domain.Submission, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}
