package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/teleform/core/logger"
	"github.com/m3rciful/teleform/core/metrics"
	"github.com/m3rciful/teleform/intake/domain"
)

// Accept approves a submission and posts it to its channel. A pending
// submission moves to accepted first; an accepted one is a retry of a failed
// post. On success the submission is published. On failure it stays
// accepted, the failure is logged and DispatchFailure is returned.
func (l *Lifecycle) Accept(ctx context.Context, actor, id int64) (domain.Submission, error) {
	const op = "submission.accept"
	unlock := l.accepting.Lock(id)
	defer unlock()

	sub, err := l.Authorize(ctx, op, actor, id)
	if err != nil {
		return domain.Submission{}, err
	}

	switch sub.Status {
	case domain.StatusPending:
		if sub, err = l.transition(ctx, op, sub, domain.StatusAccepted, actor); err != nil {
			return domain.Submission{}, err
		}
	case domain.StatusAccepted:
		logger.LogEvent(ctx, l.dispatch, slog.LevelInfo, "dispatch.retry",
			slog.Int64("submission_id", sub.ID),
			slog.Int64("moderator_id", actor),
		)
	default:
		return domain.Submission{}, domain.E(domain.KindInvalidState, op, "submission %s is already %s", sub.Label(), sub.Status)
	}

	ch, dispatchErr := l.channels.Get(ctx, sub.ChannelID)
	if dispatchErr == nil {
		authorID := sub.AuthorID
		if sub.Anonymous {
			authorID = 0
		}
		dispatchErr = l.transport.DispatchToChannel(ctx, ch, sub.Content, authorID)
	}
	if dispatchErr != nil {
		return sub, l.dispatchFailed(ctx, op, sub, actor, dispatchErr)
	}

	published, err := l.transition(ctx, op, sub, domain.StatusPublished, actor)
	if err != nil {
		return domain.Submission{}, err
	}
	if _, err := l.actions.Append(ctx, sub.ID, actor, domain.ActionAccept, ""); err != nil {
		return published, fmt.Errorf("%s: %w", op, err)
	}
	logger.LogEvent(ctx, l.dispatch, slog.LevelInfo, "dispatch.done",
		slog.String("status", "ok"),
		slog.Int64("submission_id", sub.ID),
		slog.Int64("channel_id", ch.ID),
		slog.Int64("moderator_id", actor),
	)
	l.notify(ctx, sub.AuthorID, publishedText(published, ch))
	return published, nil
}

func (l *Lifecycle) dispatchFailed(ctx context.Context, op string, sub domain.Submission, actor int64, cause error) error {
	metrics.DispatchFailures.Inc()
	logger.LogEvent(ctx, l.dispatch, slog.LevelError, "dispatch.failed",
		slog.String("status", "fail"),
		slog.Int64("submission_id", sub.ID),
		slog.Int64("channel_id", sub.ChannelID),
		slog.Int64("moderator_id", actor),
		slog.Any("err", cause),
	)
	if _, err := l.actions.Append(ctx, sub.ID, actor, domain.ActionDispatchFailed, cause.Error()); err != nil {
		return errors.Join(domain.Wrap(domain.KindDispatchFailure, op, cause), err)
	}
	return domain.Wrap(domain.KindDispatchFailure, op, cause)
}

// Reject declines a pending submission and tells the author, with note when given.
func (l *Lifecycle) Reject(ctx context.Context, actor, id int64, note string) (domain.Submission, error) {
	const op = "submission.reject"
	sub, err := l.Authorize(ctx, op, actor, id)
	if err != nil {
		return domain.Submission{}, err
	}
	if sub.Status != domain.StatusPending {
		return domain.Submission{}, domain.E(domain.KindInvalidState, op, "submission %s is already %s", sub.Label(), sub.Status)
	}
	note = strings.TrimSpace(note)
	rejected, err := l.transition(ctx, op, sub, domain.StatusRejected, actor)
	if err != nil {
		return domain.Submission{}, err
	}
	if _, err := l.actions.Append(ctx, sub.ID, actor, domain.ActionReject, note); err != nil {
		return rejected, fmt.Errorf("%s: %w", op, err)
	}
	l.notify(ctx, sub.AuthorID, rejectedText(rejected, note))
	return rejected, nil
}

// Reply sends text to the submission's author. The status does not change.
func (l *Lifecycle) Reply(ctx context.Context, actor, id int64, text string) error {
	const op = "submission.reply"
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.E(domain.KindValidation, op, "reply is empty")
	}
	if n := utf8.RuneCountInString(text); n > l.limits.MaxTextLength {
		return domain.E(domain.KindValidation, op, "reply is %d characters, the limit is %d", n, l.limits.MaxTextLength)
	}
	sub, err := l.Authorize(ctx, op, actor, id)
	if err != nil {
		return err
	}
	if err := l.transport.NotifyUser(ctx, sub.AuthorID, replyText(sub, text)); err != nil {
		return domain.Wrap(domain.KindDispatchFailure, op, err)
	}
	if _, err := l.actions.Append(ctx, sub.ID, actor, domain.ActionReply, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	logger.LogEvent(ctx, l.log, slog.LevelInfo, "submission.reply",
		slog.String("status", "ok"),
		slog.Int64("submission_id", sub.ID),
		slog.Int64("moderator_id", actor),
	)
	return nil
}

// transition applies sub.Status -> to as a conditional update. Losing a race
// to another moderator is InvalidState.
func (l *Lifecycle) transition(ctx context.Context, op string, sub domain.Submission, to domain.Status, actor int64) (domain.Submission, error) {
	if !domain.CanTransition(sub.Status, to) {
		return domain.Submission{}, domain.E(domain.KindInvalidState, op, "cannot move %s from %s to %s", sub.Label(), sub.Status, to)
	}
	at := l.now()
	ok, err := l.store.TransitionSubmission(ctx, sub.ID, sub.Status, to, at)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return domain.Submission{}, domain.E(domain.KindInvalidState, op, "submission %s was already handled", sub.Label())
	}
	metrics.RecordTransition(string(sub.Status), string(to))
	logger.LogEvent(ctx, l.log, slog.LevelInfo, "submission.transition",
		slog.String("status", "ok"),
		slog.Int64("submission_id", sub.ID),
		slog.Int64("moderator_id", actor),
		slog.String("from_status", string(sub.Status)),
		slog.String("to_status", string(to)),
	)
	sub.Status = to
	sub.UpdatedAt = at
	return sub, nil
}

// notify tells a user something. Failures are logged only.
func (l *Lifecycle) notify(ctx context.Context, userID int64, text string) {
	if err := l.transport.NotifyUser(ctx, userID, text); err != nil {
		logger.LogEvent(ctx, l.log, slog.LevelWarn, "notify.failed",
			slog.String("status", "fail"),
			slog.Int64("author_id", userID),
			slog.Any("err", err),
		)
	}
}

func publishedText(sub domain.Submission, ch domain.Channel) string {
	return fmt.Sprintf("Your post %s was published in %s.", sub.Label(), ch.DisplayName())
}

func rejectedText(sub domain.Submission, note string) string {
	if note == "" {
		return fmt.Sprintf("Your post %s was rejected.", sub.Label())
	}
	return fmt.Sprintf("Your post %s was rejected: %s", sub.Label(), note)
}

func replyText(sub domain.Submission, text string) string {
	return fmt.Sprintf("Moderator reply to your post %s:\n\n%s", sub.Label(), text)
}
