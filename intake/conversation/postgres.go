package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Postgres stores steps in conversation_states, one row per user.
type Postgres struct {
	db  *sqlx.DB
	ttl time.Duration

	// Now stamps rows and checks TTL. Defaults to time.Now.
	Now func() time.Time
}

var _ Store = (*Postgres)(nil)

// NewPostgres returns a store over db; ttl <= 0 disables expiry.
func NewPostgres(db *sqlx.DB, ttl time.Duration) *Postgres {
	return &Postgres{db: db, ttl: ttl, Now: time.Now}
}

type stateRow struct {
	Kind      string    `db:"kind"`
	Payload   []byte    `db:"payload"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (p *Postgres) Set(ctx context.Context, userID int64, s Step) error {
	if s == nil {
		return p.Cancel(ctx, userID)
	}
	kind, payload, err := Encode(s)
	if err != nil {
		return err
	}
	// payload goes over the wire as text: lib/pq would send []byte as bytea.
	_, err = p.db.ExecContext(ctx, `
INSERT INTO conversation_states (user_id, kind, payload, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE
SET kind = EXCLUDED.kind, payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		userID, string(kind), string(payload), p.Now())
	if err != nil {
		return fmt.Errorf("conversation: postgres set: %w", err)
	}
	return nil
}

func (p *Postgres) Peek(ctx context.Context, userID int64) (Step, error) {
	var row stateRow
	err := p.db.GetContext(ctx, &row,
		`SELECT kind, payload, updated_at FROM conversation_states WHERE user_id = $1`, userID)
	return p.decode(row, err, "peek")
}

func (p *Postgres) Consume(ctx context.Context, userID int64) (Step, error) {
	var row stateRow
	err := p.db.GetContext(ctx, &row, `
DELETE FROM conversation_states
WHERE user_id = $1
RETURNING kind, payload, updated_at`, userID)
	return p.decode(row, err, "consume")
}

func (p *Postgres) ConsumeKind(ctx context.Context, userID int64, kind Kind) (Step, error) {
	var row stateRow
	err := p.db.GetContext(ctx, &row, `
DELETE FROM conversation_states
WHERE user_id = $1 AND kind = $2
RETURNING kind, payload, updated_at`, userID, string(kind))
	return p.decode(row, err, "consume kind")
}

func (p *Postgres) Cancel(ctx context.Context, userID int64) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM conversation_states WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("conversation: postgres cancel: %w", err)
	}
	return nil
}

// decode treats a missing or expired row as no step. An expired row seen by
// Peek stays until the next write or consume removes it.
func (p *Postgres) decode(row stateRow, err error, op string) (Step, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: postgres %s: %w", op, err)
	}
	if p.ttl > 0 && p.Now().Sub(row.UpdatedAt) >= p.ttl {
		return nil, nil
	}
	return Decode(Kind(row.Kind), row.Payload)
}
