package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m3rciful/teleform/core/logger"
	"github.com/m3rciful/teleform/core/metrics"
	"github.com/m3rciful/teleform/intake/domain"
	"github.com/m3rciful/teleform/intake/store"
)

// Lifecycle creates submissions and moves them through moderation.
type Lifecycle struct {
	store     store.Submissions
	channels  Channels
	bans      Bans
	cooldowns Cooldowns
	actions   Actions
	transport Transport
	limits    Limits
	now       func() time.Time
	// accepting serializes Accept per submission id.
	accepting keyedMutex

	log      *slog.Logger
	fanLog   *slog.Logger
	dispatch *slog.Logger
}

// New builds a Lifecycle. Zero limits take their defaults.
func New(d Deps) *Lifecycle {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Lifecycle{
		store:     d.Store,
		channels:  d.Channels,
		bans:      d.Bans,
		cooldowns: d.Cooldowns,
		actions:   d.Actions,
		transport: d.Transport,
		limits:    d.Limits.withDefaults(),
		now:       now,
		log:       logger.Component(logger.CompSubmission),
		fanLog:    logger.Component(logger.CompFanout),
		dispatch:  logger.Component(logger.CompDispatch),
	}
}

// Limits returns the effective limits.
func (l *Lifecycle) Limits() Limits { return l.limits }

// Create validates content and stores it as a pending submission to
// channelID, charging the author's cooldown, then shows it to the channel's
// moderators. Checks run in order: channel exists, size limits, kind, ban,
// cooldown.
func (l *Lifecycle) Create(ctx context.Context, authorID int64, content domain.Content, anonymous bool, channelID int64) (domain.Submission, error) {
	const op = "submission.create"
	sub, ch, err := l.create(ctx, op, authorID, content, anonymous, channelID)
	l.countCreate(err)
	if err != nil {
		logger.LogEvent(ctx, l.log, levelFor(err), "submission.create",
			slog.String("status", "fail"),
			slog.Int64("channel_id", channelID),
			slog.Int64("author_id", authorID),
			slog.String("kind", string(content.Kind)),
			slog.String("err_code", string(domain.KindOf(err))),
			slog.Any("err", err),
		)
		return domain.Submission{}, err
	}
	logger.LogEvent(ctx, l.log, slog.LevelInfo, "submission.create",
		slog.String("status", "ok"),
		slog.Int64("submission_id", sub.ID),
		slog.Int64("channel_id", ch.ID),
		slog.Int64("author_id", authorID),
		slog.String("kind", string(sub.Content.Kind)),
		slog.Bool("anonymous", sub.Anonymous),
	)
	l.fanOut(ctx, sub, ch)
	return sub, nil
}

func (l *Lifecycle) create(ctx context.Context, op string, authorID int64, content domain.Content, anonymous bool, channelID int64) (domain.Submission, domain.Channel, error) {
	ch, err := l.channels.Get(ctx, channelID)
	if err != nil {
		return domain.Submission{}, domain.Channel{}, err
	}
	if err := l.validate(op, content); err != nil {
		return domain.Submission{}, domain.Channel{}, err
	}

	banned, err := l.bans.IsBanned(ctx, channelID, authorID)
	if err != nil {
		return domain.Submission{}, domain.Channel{}, fmt.Errorf("%s: %w", op, err)
	}
	if banned {
		return domain.Submission{}, domain.Channel{}, domain.E(domain.KindForbidden, op, "you are banned from this channel")
	}

	now := l.now()
	if err := l.checkCooldown(ctx, op, authorID, channelID, now); err != nil {
		return domain.Submission{}, domain.Channel{}, err
	}

	sub, err := l.store.CreateSubmission(ctx, domain.Submission{
		AuthorID:  authorID,
		Content:   content,
		Anonymous: anonymous,
		ChannelID: channelID,
		CreatedAt: now,
	}, now.Add(-l.limits.Cooldown))
	switch {
	case errors.Is(err, store.ErrCooldownActive):
		// Another submission charged the cooldown between the check and the insert.
		if rlErr := l.checkCooldown(ctx, op, authorID, channelID, now); rlErr != nil {
			return domain.Submission{}, domain.Channel{}, rlErr
		}
		return domain.Submission{}, domain.Channel{}, domain.RateLimited(op, l.limits.Cooldown)
	case errors.Is(err, store.ErrNotFound):
		return domain.Submission{}, domain.Channel{}, domain.E(domain.KindNotFound, op, "channel %d not found", channelID)
	case err != nil:
		return domain.Submission{}, domain.Channel{}, fmt.Errorf("%s: %w", op, err)
	}
	return sub, ch, nil
}

func (l *Lifecycle) validate(op string, c domain.Content) error {
	if n := utf8.RuneCountInString(c.Text); n > l.limits.MaxTextLength {
		return domain.E(domain.KindValidation, op, "text is %d characters, the limit is %d", n, l.limits.MaxTextLength)
	}
	if c.Size > l.limits.MaxFileSize {
		return domain.E(domain.KindValidation, op, "file is %d MB, the limit is %d MB", c.Size>>20, l.limits.MaxFileSize>>20)
	}
	switch {
	case !c.Kind.Valid():
		return domain.E(domain.KindValidation, op, "unsupported content type %q", c.Kind)
	case c.Kind == domain.KindText && strings.TrimSpace(c.Text) == "":
		return domain.E(domain.KindValidation, op, "post is empty")
	case c.Kind.IsMedia() && c.MediaRef == "":
		return domain.E(domain.KindValidation, op, "%s has no file", c.Kind)
	}
	return nil
}

func (l *Lifecycle) checkCooldown(ctx context.Context, op string, authorID, channelID int64, now time.Time) error {
	left, err := l.cooldowns.Remaining(ctx, authorID, channelID, now, l.limits.Cooldown)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if left > 0 {
		return domain.RateLimited(op, left)
	}
	return nil
}

func (l *Lifecycle) countCreate(err error) {
	outcome := metrics.OutcomeCreated
	switch domain.KindOf(err) {
	case "":
		if err != nil {
			outcome = metrics.OutcomeError
		}
	case domain.KindValidation, domain.KindNotFound:
		outcome = metrics.OutcomeRejected
	case domain.KindForbidden:
		outcome = metrics.OutcomeForbidden
	case domain.KindRateLimited:
		outcome = metrics.OutcomeRateLimited
	default:
		outcome = metrics.OutcomeError
	}
	metrics.Submissions.WithLabelValues(outcome).Inc()
}

// Get returns the submission with id.
func (l *Lifecycle) Get(ctx context.Context, id int64) (domain.Submission, error) {
	const op = "submission.get"
	sub, err := l.store.Submission(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Submission{}, domain.E(domain.KindNotFound, op, "submission %d not found", id)
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// Authorize loads the submission and fails with Forbidden unless actor owns
// or moderates its channel.
func (l *Lifecycle) Authorize(ctx context.Context, op string, actor, id int64) (domain.Submission, error) {
	sub, err := l.Get(ctx, id)
	if err != nil {
		return domain.Submission{}, err
	}
	ok, err := l.channels.IsAuthorized(ctx, actor, sub.ChannelID)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return domain.Submission{}, domain.E(domain.KindForbidden, op, "you do not moderate this channel")
	}
	return sub, nil
}

// ListPending returns pending submissions the user may moderate, newest first.
func (l *Lifecycle) ListPending(ctx context.Context, userID int64) ([]domain.Submission, error) {
	return l.list(ctx, userID, domain.StatusPending)
}

// ListAwaitingDispatch returns accepted submissions whose channel post failed.
func (l *Lifecycle) ListAwaitingDispatch(ctx context.Context, userID int64) ([]domain.Submission, error) {
	return l.list(ctx, userID, domain.StatusAccepted)
}

func (l *Lifecycle) list(ctx context.Context, userID int64, status domain.Status) ([]domain.Submission, error) {
	subs, err := l.store.SubmissionsForModerator(ctx, userID, status, l.limits.PendingListLimit)
	if err != nil {
		return nil, fmt.Errorf("submission.list: %w", err)
	}
	return subs, nil
}

func levelFor(err error) slog.Level {
	switch domain.KindOf(err) {
	case "", domain.KindDispatchFailure:
		return slog.LevelError
	}
	return slog.LevelWarn
}
