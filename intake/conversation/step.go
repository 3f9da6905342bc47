// Package conversation keeps the single pending multi-turn step of each user.
//
// A Store holds at most one Step per user. Setting a step replaces the
// previous one; Consume reads and clears it atomically so that two handlers
// racing on the same user never both act on one step.
package conversation

import "context"

// Kind names a Step variant. It is the storage discriminator.
type Kind string

const (
	KindChannelForward    Kind = "awaiting_channel_forward"
	KindChannelHandle     Kind = "awaiting_channel_handle"
	KindSubmissionContent Kind = "awaiting_submission_content"
	KindModeratorIdentity Kind = "awaiting_moderator_identity"
	KindReplyText         Kind = "awaiting_reply_text"
)

// Step is what the bot expects next from a user. The set of variants is closed.
type Step interface {
	Kind() Kind
	step()
}

// AwaitingChannelForward waits for a message forwarded from the channel being connected.
type AwaitingChannelForward struct{}

// AwaitingChannelHandle waits for an @handle or t.me link of a channel to submit to.
type AwaitingChannelHandle struct{}

// AwaitingSubmissionContent waits for the post itself.
type AwaitingSubmissionContent struct {
	Anonymous bool  `json:"anonymous"`
	ChannelID int64 `json:"channel_id"`
}

// AwaitingModeratorIdentity waits for a forwarded message or numeric id of the
// user to grant moderation rights on ChannelID.
type AwaitingModeratorIdentity struct {
	ChannelID int64 `json:"channel_id"`
}

// AwaitingReplyText waits for a moderator's reply to the author of SubmissionID.
type AwaitingReplyText struct {
	SubmissionID int64 `json:"submission_id"`
}

func (AwaitingChannelForward) Kind() Kind    { return KindChannelForward }
func (AwaitingChannelHandle) Kind() Kind     { return KindChannelHandle }
func (AwaitingSubmissionContent) Kind() Kind { return KindSubmissionContent }
func (AwaitingModeratorIdentity) Kind() Kind { return KindModeratorIdentity }
func (AwaitingReplyText) Kind() Kind         { return KindReplyText }

func (AwaitingChannelForward) step()    {}
func (AwaitingChannelHandle) step()     {}
func (AwaitingSubmissionContent) step() {}
func (AwaitingModeratorIdentity) step() {}
func (AwaitingReplyText) step()         {}

// Store is a keyed single-slot store. A nil Step with a nil error means the
// user has nothing pending.
type Store interface {
	// Set replaces whatever the user had pending.
	Set(ctx context.Context, userID int64, s Step) error
	Peek(ctx context.Context, userID int64) (Step, error)
	// Consume returns the pending step and clears it in one atomic operation.
	Consume(ctx context.Context, userID int64) (Step, error)
	// ConsumeKind is Consume restricted to steps of kind; any other step stays.
	ConsumeKind(ctx context.Context, userID int64, kind Kind) (Step, error)
	Cancel(ctx context.Context, userID int64) error
}
