// Package actionlog is the append-only audit trail of moderation decisions.
package actionlog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/teleform/core/logger"
	"github.com/m3rciful/teleform/intake/domain"
	"github.com/m3rciful/teleform/intake/store"
)

// Log appends and lists entries.
type Log struct {
	store store.Actions
	log   *slog.Logger
}

// New returns a Log.
func New(s store.Actions) *Log {
	return &Log{store: s, log: logger.Component(logger.CompActionLog)}
}

// Append records one decision.
func (l *Log) Append(ctx context.Context, submissionID, moderatorID int64, action domain.Action, note string) (domain.ActionLogEntry, error) {
	e, err := l.store.AppendAction(ctx, domain.ActionLogEntry{
		SubmissionID: submissionID,
		ModeratorID:  moderatorID,
		Action:       action,
		Note:         note,
	})
	if err != nil {
		return domain.ActionLogEntry{}, fmt.Errorf("actionlog.append: %w", err)
	}
	logger.LogEvent(ctx, l.log, slog.LevelDebug, "action.append",
		slog.Int64("submission_id", submissionID),
		slog.Int64("moderator_id", moderatorID),
		slog.String("action", string(action)),
	)
	return e, nil
}

// List returns the submission's entries in insertion order.
func (l *Log) List(ctx context.Context, submissionID int64) ([]domain.ActionLogEntry, error) {
	entries, err := l.store.ActionsBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("actionlog.list: %w", err)
	}
	return entries, nil
}
