// Package intake is the entry point of the content-intake workflow. A Service
// ties the channel registry, bans, the submission lifecycle and the
// per-user conversation store together behind the calls a transport adapter
// makes for each inbound event.
package intake

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/teleform/core/logger"
	"github.com/m3rciful/teleform/intake/actionlog"
	"github.com/m3rciful/teleform/intake/bans"
	"github.com/m3rciful/teleform/intake/conversation"
	"github.com/m3rciful/teleform/intake/cooldown"
	"github.com/m3rciful/teleform/intake/domain"
	"github.com/m3rciful/teleform/intake/registry"
	"github.com/m3rciful/teleform/intake/store"
	"github.com/m3rciful/teleform/intake/submission"
)

// Options wires a Service.
type Options struct {
	Store        store.Store
	Conversation conversation.Store
	Transport    submission.Transport
	Limits       submission.Limits
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service is safe for concurrent use.
type Service struct {
	registry  *registry.Registry
	bans      *bans.List
	cooldowns *cooldown.Ledger
	actions   *actionlog.Log
	lifecycle *submission.Lifecycle
	conv      conversation.Store
	stats     store.Stats
	log       *slog.Logger
}

// New builds a Service. A nil conversation store means an in-memory one.
func New(opts Options) *Service {
	conv := opts.Conversation
	if conv == nil {
		conv = conversation.NewMemory(0)
	}
	reg := registry.New(opts.Store, opts.Store)
	bl := bans.New(reg, opts.Store)
	cd := cooldown.New(opts.Store)
	al := actionlog.New(opts.Store)
	return &Service{
		registry:  reg,
		bans:      bl,
		cooldowns: cd,
		actions:   al,
		conv:      conv,
		stats:     opts.Store,
		log:       logger.Component(logger.CompConversation),
		lifecycle: submission.New(submission.Deps{
			Store:     opts.Store,
			Channels:  reg,
			Bans:      bl,
			Cooldowns: cd,
			Actions:   al,
			Transport: opts.Transport,
			Limits:    opts.Limits,
			Now:       opts.Now,
		}),
	}
}

// Limits returns the effective submission limits.
func (s *Service) Limits() submission.Limits { return s.lifecycle.Limits() }

// RegisterChannel connects a channel to its owner. created is false when the
// key was already registered.
func (s *Service) RegisterChannel(ctx context.Context, ownerID int64, key, title string) (domain.Channel, bool, error) {
	return s.registry.Register(ctx, ownerID, key, title)
}

// ResolveChannel returns the first registered channel among keys.
func (s *Service) ResolveChannel(ctx context.Context, keys []string) (domain.Channel, error) {
	return s.registry.Resolve(ctx, keys)
}

// Channel returns the channel with id.
func (s *Service) Channel(ctx context.Context, id int64) (domain.Channel, error) {
	return s.registry.Get(ctx, id)
}

// OwnedChannel returns the channel with id if actor owns it.
func (s *Service) OwnedChannel(ctx context.Context, actor, id int64) (domain.Channel, error) {
	return s.registry.RequireOwner(ctx, "intake.owned_channel", actor, id)
}

// ChannelsOf lists the channels ownerID registered, newest first.
func (s *Service) ChannelsOf(ctx context.Context, ownerID int64) ([]domain.Channel, error) {
	return s.registry.ListByOwner(ctx, ownerID)
}

// RemoveChannel deletes an owned channel with its moderators and bans.
func (s *Service) RemoveChannel(ctx context.Context, actor, channelID int64) error {
	return s.registry.Remove(ctx, actor, channelID)
}

// GrantModerator adds a moderator; granted is false for an existing one.
func (s *Service) GrantModerator(ctx context.Context, actor, channelID, userID int64) (bool, error) {
	return s.registry.Grant(ctx, actor, channelID, userID)
}

// RevokeModerator removes a moderator.
func (s *Service) RevokeModerator(ctx context.Context, actor, channelID, userID int64) (bool, error) {
	return s.registry.Revoke(ctx, actor, channelID, userID)
}

// Moderators lists the channel roster.
func (s *Service) Moderators(ctx context.Context, channelID int64) ([]domain.ModeratorGrant, error) {
	return s.registry.Moderators(ctx, channelID)
}

// Ban blocks a user on an owned channel.
func (s *Service) Ban(ctx context.Context, actor, channelID, userID int64) (bool, error) {
	return s.bans.Ban(ctx, actor, channelID, userID)
}

// Unban lifts a block on an owned channel.
func (s *Service) Unban(ctx context.Context, actor, channelID, userID int64) (bool, error) {
	return s.bans.Unban(ctx, actor, channelID, userID)
}

// CooldownRemaining is how long userID must wait before submitting to channelID.
func (s *Service) CooldownRemaining(ctx context.Context, userID, channelID int64, now time.Time) (time.Duration, error) {
	return s.cooldowns.Remaining(ctx, userID, channelID, now, s.Limits().Cooldown)
}

// BeginChannelConnect makes the user's next forwarded message a channel connect.
func (s *Service) BeginChannelConnect(ctx context.Context, userID int64) error {
	return s.setStep(ctx, userID, conversation.AwaitingChannelForward{})
}

// BeginChannelLookup makes the user's next text a channel @handle or link.
func (s *Service) BeginChannelLookup(ctx context.Context, userID int64) error {
	return s.setStep(ctx, userID, conversation.AwaitingChannelHandle{})
}

// BeginModeratorSetup makes the owner's next message name a moderator for channelID.
func (s *Service) BeginModeratorSetup(ctx context.Context, actor, channelID int64) error {
	if _, err := s.registry.RequireOwner(ctx, "intake.begin_moderator_setup", actor, channelID); err != nil {
		return err
	}
	return s.setStep(ctx, actor, conversation.AwaitingModeratorIdentity{ChannelID: channelID})
}

// BeginSubmission makes the user's next message a post for channelID.
func (s *Service) BeginSubmission(ctx context.Context, userID, channelID int64, anonymous bool) (domain.Channel, error) {
	ch, err := s.registry.Get(ctx, channelID)
	if err != nil {
		return domain.Channel{}, err
	}
	return ch, s.setStep(ctx, userID, conversation.AwaitingSubmissionContent{Anonymous: anonymous, ChannelID: ch.ID})
}

// SubmitContent turns the user's pending post step into a submission. A post
// that fails validation keeps the step so the user can send a corrected one.
func (s *Service) SubmitContent(ctx context.Context, userID int64, content domain.Content) (domain.Submission, error) {
	const op = "intake.submit_content"
	step, err := s.conv.ConsumeKind(ctx, userID, conversation.KindSubmissionContent)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("%s: %w", op, err)
	}
	pending, ok := step.(conversation.AwaitingSubmissionContent)
	if !ok {
		return domain.Submission{}, domain.E(domain.KindInvalidState, op, "no post is expected")
	}
	sub, err := s.lifecycle.Create(ctx, userID, content, pending.Anonymous, pending.ChannelID)
	if domain.KindOf(err) == domain.KindValidation {
		s.restore(ctx, userID, pending)
	}
	return sub, err
}

// Accept approves and posts a submission.
func (s *Service) Accept(ctx context.Context, actor, submissionID int64) (domain.Submission, error) {
	return s.lifecycle.Accept(ctx, actor, submissionID)
}

// Reject declines a pending submission.
func (s *Service) Reject(ctx context.Context, actor, submissionID int64, note string) (domain.Submission, error) {
	return s.lifecycle.Reject(ctx, actor, submissionID, note)
}

// Reply messages a submission's author.
func (s *Service) Reply(ctx context.Context, actor, submissionID int64, text string) error {
	return s.lifecycle.Reply(ctx, actor, submissionID, text)
}

// BeginReply makes the moderator's next text a reply to the submission's author.
func (s *Service) BeginReply(ctx context.Context, actor, submissionID int64) (domain.Submission, error) {
	sub, err := s.lifecycle.Authorize(ctx, "intake.begin_reply", actor, submissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	return sub, s.setStep(ctx, actor, conversation.AwaitingReplyText{SubmissionID: sub.ID})
}

// SubmitReply sends the moderator's text for the pending reply step. An empty
// or oversized reply keeps the step.
func (s *Service) SubmitReply(ctx context.Context, actor int64, text string) (int64, error) {
	const op = "intake.submit_reply"
	step, err := s.conv.ConsumeKind(ctx, actor, conversation.KindReplyText)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	pending, ok := step.(conversation.AwaitingReplyText)
	if !ok {
		return 0, domain.E(domain.KindInvalidState, op, "no reply is expected")
	}
	err = s.lifecycle.Reply(ctx, actor, pending.SubmissionID, text)
	if domain.KindOf(err) == domain.KindValidation {
		s.restore(ctx, actor, pending)
	}
	return pending.SubmissionID, err
}

// Submission returns a submission if actor may moderate it.
func (s *Service) Submission(ctx context.Context, actor, submissionID int64) (domain.Submission, error) {
	return s.lifecycle.Authorize(ctx, "intake.submission", actor, submissionID)
}

// ListPending lists pending submissions userID may moderate, newest first.
func (s *Service) ListPending(ctx context.Context, userID int64) ([]domain.Submission, error) {
	return s.lifecycle.ListPending(ctx, userID)
}

// ListAwaitingDispatch lists accepted submissions whose post failed.
func (s *Service) ListAwaitingDispatch(ctx context.Context, userID int64) ([]domain.Submission, error) {
	return s.lifecycle.ListAwaitingDispatch(ctx, userID)
}

// History returns a submission's moderation log if actor may moderate it.
func (s *Service) History(ctx context.Context, actor, submissionID int64) ([]domain.ActionLogEntry, error) {
	if _, err := s.lifecycle.Authorize(ctx, "intake.history", actor, submissionID); err != nil {
		return nil, err
	}
	return s.actions.List(ctx, submissionID)
}

// Stats summarizes stored channels and submissions.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	st, err := s.stats.Stats(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("intake.stats: %w", err)
	}
	return st, nil
}

// SetStep replaces the user's pending step.
func (s *Service) SetStep(ctx context.Context, userID int64, step conversation.Step) error {
	return s.setStep(ctx, userID, step)
}

// PeekStep returns the user's pending step without clearing it.
func (s *Service) PeekStep(ctx context.Context, userID int64) (conversation.Step, error) {
	return s.conv.Peek(ctx, userID)
}

// ConsumeStep returns and clears the user's pending step.
func (s *Service) ConsumeStep(ctx context.Context, userID int64) (conversation.Step, error) {
	return s.conv.Consume(ctx, userID)
}

// ConsumeStepKind returns and clears the user's pending step if it has kind.
func (s *Service) ConsumeStepKind(ctx context.Context, userID int64, kind conversation.Kind) (conversation.Step, error) {
	return s.conv.ConsumeKind(ctx, userID, kind)
}

// CancelStep drops whatever the user had pending.
func (s *Service) CancelStep(ctx context.Context, userID int64) error {
	if err := s.conv.Cancel(ctx, userID); err != nil {
		return err
	}
	logger.LogEvent(ctx, s.log, slog.LevelDebug, "step.cancel", slog.Int64("user_id", userID))
	return nil
}

func (s *Service) setStep(ctx context.Context, userID int64, step conversation.Step) error {
	if step == nil {
		return s.CancelStep(ctx, userID)
	}
	if err := s.conv.Set(ctx, userID, step); err != nil {
		return err
	}
	logger.LogEvent(ctx, s.log, slog.LevelDebug, "step.set",
		slog.Int64("user_id", userID),
		slog.String("step", string(step.Kind())),
	)
	return nil
}

// restore puts a consumed step back; a newer step set meanwhile is overwritten.
func (s *Service) restore(ctx context.Context, userID int64, step conversation.Step) {
	if err := s.conv.Set(ctx, userID, step); err != nil {
		logger.LogEvent(ctx, s.log, slog.LevelWarn, "step.restore",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("step", string(step.Kind())),
			slog.Any("err", err),
		)
	}
}
