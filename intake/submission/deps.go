// Package submission implements the lifecycle of one piece of submitted
// content: validation and creation, moderator fan-out, and the moderation
// transitions that end in a channel post or a rejection.
package submission

import (
	"context"
	"time"

	"github.com/m3rciful/teleform/intake/domain"
	"github.com/m3rciful/teleform/intake/store"
)

// Transport is what the lifecycle needs from the messaging platform.
type Transport interface {
	// DeliverToModerator shows sub to one moderator with its action buttons.
	DeliverToModerator(ctx context.Context, moderatorID int64, sub domain.Submission, ch domain.Channel) error
	// DispatchToChannel posts content to ch. authorID is 0 for anonymous posts.
	DispatchToChannel(ctx context.Context, ch domain.Channel, content domain.Content, authorID int64) error
	// NotifyUser sends a plain text message to a user.
	NotifyUser(ctx context.Context, userID int64, text string) error
}

// Channels is the registry view used for lookups and authorization.
type Channels interface {
	Get(ctx context.Context, id int64) (domain.Channel, error)
	IsAuthorized(ctx context.Context, actor, channelID int64) (bool, error)
	Recipients(ctx context.Context, ch domain.Channel) ([]int64, error)
}

// Bans reports blocked authors.
type Bans interface {
	IsBanned(ctx context.Context, channelID, userID int64) (bool, error)
}

// Cooldowns reports how long an author must still wait.
type Cooldowns interface {
	Remaining(ctx context.Context, userID, channelID int64, now time.Time, window time.Duration) (time.Duration, error)
}

// Actions appends to the moderation log.
type Actions interface {
	Append(ctx context.Context, submissionID, moderatorID int64, action domain.Action, note string) (domain.ActionLogEntry, error)
}

// Limits bounds what authors may submit and how work fans out.
type Limits struct {
	Cooldown          time.Duration
	MaxTextLength     int
	MaxFileSize       int64
	PendingListLimit  int
	FanoutConcurrency int
}

// DefaultLimits are the production defaults.
func DefaultLimits() Limits {
	return Limits{
		Cooldown:          time.Hour,
		MaxTextLength:     4000,
		MaxFileSize:       20 << 20,
		PendingListLimit:  20,
		FanoutConcurrency: 4,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.Cooldown <= 0 {
		l.Cooldown = d.Cooldown
	}
	if l.MaxTextLength <= 0 {
		l.MaxTextLength = d.MaxTextLength
	}
	if l.MaxFileSize <= 0 {
		l.MaxFileSize = d.MaxFileSize
	}
	if l.PendingListLimit <= 0 {
		l.PendingListLimit = d.PendingListLimit
	}
	if l.FanoutConcurrency <= 0 {
		l.FanoutConcurrency = d.FanoutConcurrency
	}
	return l
}

// Deps wires a Lifecycle.
type Deps struct {
	Store     store.Submissions
	Channels  Channels
	Bans      Bans
	Cooldowns Cooldowns
	Actions   Actions
	Transport Transport
	Limits    Limits
	// Now defaults to time.Now.
	Now func() time.Time
}
