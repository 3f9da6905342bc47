package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/teleform/intake/domain"
	"github.com/m3rciful/teleform/intake/store"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

var t0 = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func TestUpsertChannelReportsCreation(t *testing.T) {
	s, mock := newMock(t)
	cols := []string{"id", "owner_id", "external_key", "title", "created_at", "created"}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO channels (owner_id, external_key, title)")).
		WithArgs(int64(10), "@news", "News").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, 10, "@news", "News", t0, true))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (external_key) DO UPDATE")).
		WithArgs(int64(10), "@news", "News again").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, 10, "@news", "News", t0, false))

	ch, created, err := s.UpsertChannel(context.Background(), domain.Channel{OwnerID: 10, Key: "@news", Title: "News"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), ch.ID)

	again, created, err := s.UpsertChannel(context.Background(), domain.Channel{OwnerID: 10, Key: "@news", Title: "News again"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, ch.ID, again.ID)
	assert.Equal(t, "News", again.Title)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChannelByKeysNotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE external_key = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	_, err := s.ChannelByKeys(context.Background(), []string{"@nope", "nope"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertGrantDuplicateAndMissingChannel(t *testing.T) {
	s, mock := newMock(t)
	grant := domain.ModeratorGrant{ChannelID: 1, UserID: 20, GrantedBy: 10}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO moderator_grants")).
		WithArgs(int64(1), int64(20), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO moderator_grants")).
		WithArgs(int64(1), int64(20), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO moderator_grants")).
		WithArgs(int64(1), int64(20), int64(10)).
		WillReturnError(&pq.Error{Code: "23503"})

	ok, err := s.InsertGrant(context.Background(), grant)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.InsertGrant(context.Background(), grant)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.InsertGrant(context.Background(), grant)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSubmissionChargesCooldownInTransaction(t *testing.T) {
	s, mock := newMock(t)
	cutoff := t0.Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE cooldowns.last_success_at <= $4")).
		WithArgs(int64(7), int64(1), t0, cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO submissions")).
		WithArgs(int64(7), "photo", "caption", "file-1", int64(2048), int64(7), int64(99), false, int64(1), t0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "author_id", "kind", "text", "media_ref", "size", "origin_chat_id", "origin_message_id",
			"anonymous", "target_channel_id", "status", "created_at", "updated_at",
		}).AddRow(5, 7, "photo", "caption", "file-1", 2048, 7, 99, false, 1, "pending", t0, t0))
	mock.ExpectCommit()

	sub, err := s.CreateSubmission(context.Background(), domain.Submission{
		AuthorID:  7,
		ChannelID: 1,
		CreatedAt: t0,
		Content: domain.Content{
			Kind:     domain.KindPhoto,
			Text:     "caption",
			MediaRef: "file-1",
			Size:     2048,
			Origin:   &domain.Origin{ChatID: 7, MessageID: 99},
		},
	}, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(5), sub.ID)
	assert.Equal(t, domain.StatusPending, sub.Status)
	require.NotNil(t, sub.Content.Origin)
	assert.Equal(t, 99, sub.Content.Origin.MessageID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSubmissionRollsBackOnActiveCooldown(t *testing.T) {
	s, mock := newMock(t)
	cutoff := t0.Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO cooldowns")).
		WithArgs(int64(7), int64(1), t0, cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectRollback()

	_, err := s.CreateSubmission(context.Background(), domain.Submission{
		AuthorID: 7, ChannelID: 1, CreatedAt: t0,
		Content: domain.Content{Kind: domain.KindText, Text: "hi"},
	}, cutoff)
	assert.ErrorIs(t, err, store.ErrCooldownActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionSubmissionLostRace(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET status = $3")).
		WithArgs(int64(5), "pending", "accepted", t0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM submissions")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := s.TransitionSubmission(context.Background(), 5, domain.StatusPending, domain.StatusAccepted, t0)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions")).
		WithArgs(int64(6), "pending", "accepted", t0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err = s.TransitionSubmission(context.Background(), 6, domain.StatusPending, domain.StatusAccepted, t0)
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionsForModeratorScopesByOwnerOrGrant(t *testing.T) {
	s, mock := newMock(t)
	cols := []string{
		"id", "author_id", "kind", "text", "media_ref", "size", "origin_chat_id", "origin_message_id",
		"anonymous", "target_channel_id", "status", "created_at", "updated_at",
	}
	mock.ExpectQuery(`(?s)JOIN channels c.*c.owner_id = \$1 OR EXISTS.*ORDER BY s.created_at DESC`).
		WithArgs(int64(10), "pending", 20).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(9, 7, "text", "newer", "", 0, nil, nil, true, 1, "pending", t0.Add(time.Minute), t0.Add(time.Minute)).
			AddRow(8, 7, "text", "older", "", 0, nil, nil, false, 1, "pending", t0, t0))

	subs, err := s.SubmissionsForModerator(context.Background(), 10, domain.StatusPending, 0)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, int64(9), subs[0].ID)
	assert.Nil(t, subs[0].Content.Origin)
	assert.True(t, subs[0].Anonymous)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendActionReturnsStoredEntry(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO submission_actions")).
		WithArgs(int64(5), int64(10), "reject", "off-topic").
		WillReturnRows(sqlmock.NewRows([]string{"id", "submission_id", "moderator_id", "action", "note", "created_at"}).
			AddRow(1, 5, 10, "reject", "off-topic", t0))

	e, err := s.AppendAction(context.Background(), domain.ActionLogEntry{
		SubmissionID: 5, ModeratorID: 10, Action: domain.ActionReject, Note: "off-topic",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ActionReject, e.Action)
	assert.Equal(t, int64(1), e.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsCountsByStatus(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("(SELECT count(*) FROM channels)")).
		WillReturnRows(sqlmock.NewRows([]string{"channels", "grants", "bans"}).AddRow(3, 4, 1))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "n"}).AddRow("pending", 5).AddRow("published", 2))

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.Channels)
	assert.Equal(t, 4, st.Moderators)
	assert.Equal(t, 1, st.Bans)
	assert.Equal(t, 5, st.Submissions[domain.StatusPending])
	assert.Equal(t, 2, st.Submissions[domain.StatusPublished])
	require.NoError(t, mock.ExpectationsWereMet())
}
