package postgres

import (
	"context"

	"github.com/m3rciful/teleform/intake/domain"
)

func (s *Store) AppendAction(ctx context.Context, e domain.ActionLogEntry) (domain.ActionLogEntry, error) {
	var out domain.ActionLogEntry
	err := s.db.QueryRowxContext(ctx, `
INSERT INTO submission_actions (submission_id, moderator_id, action, note)
VALUES ($1, $2, $3, $4)
RETURNING id, submission_id, moderator_id, action, note, created_at`,
		e.SubmissionID, e.ModeratorID, string(e.Action), e.Note).StructScan(&out)
	return out, translate("append action", err)
}

func (s *Store) ActionsBySubmission(ctx context.Context, submissionID int64) ([]domain.ActionLogEntry, error) {
	var out []domain.ActionLogEntry
	err := s.db.SelectContext(ctx, &out, `
SELECT id, submission_id, moderator_id, action, note, created_at
FROM submission_actions
WHERE submission_id = $1
ORDER BY id`, submissionID)
	return out, translate("actions by submission", err)
}

func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	st := domain.Stats{Submissions: make(map[domain.Status]int)}
	err := s.db.QueryRowxContext(ctx, `
SELECT
	(SELECT count(*) FROM channels),
	(SELECT count(*) FROM moderator_grants),
	(SELECT count(*) FROM bans)`).Scan(&st.Channels, &st.Moderators, &st.Bans)
	if err != nil {
		return domain.Stats{}, translate("stats", err)
	}

	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT status, count(*) AS n FROM submissions GROUP BY status`); err != nil {
		return domain.Stats{}, translate("stats", err)
	}
	for _, r := range rows {
		st.Submissions[domain.Status(r.Status)] = r.N
	}
	return st, nil
}
