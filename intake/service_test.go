package intake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/teleform/intake/conversation"
	"github.com/m3rciful/teleform/intake/domain"
	"github.com/m3rciful/teleform/intake/registry"
	"github.com/m3rciful/teleform/intake/store/memory"
)

type recordingTransport struct {
	mu         sync.Mutex
	delivered  []int64
	dispatched int
	notified   []string
}

func (r *recordingTransport) DeliverToModerator(_ context.Context, moderatorID int64, _ domain.Submission, _ domain.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, moderatorID)
	return nil
}

func (r *recordingTransport) DispatchToChannel(context.Context, domain.Channel, domain.Content, int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatched++
	return nil
}

func (r *recordingTransport) NotifyUser(_ context.Context, _ int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, text)
	return nil
}

func newService(t *testing.T) (*Service, *recordingTransport, *time.Time) {
	t.Helper()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	tr := &recordingTransport{}
	st := memory.New()
	st.Now = func() time.Time { return now }
	svc := New(Options{
		Store:     st,
		Transport: tr,
		Now:       func() time.Time { return now },
	})
	return svc, tr, &now
}

func TestServiceSubmissionFlow(t *testing.T) {
	svc, tr, now := newService(t)
	ctx := context.Background()
	const owner, author int64 = 1, 50

	ch, created, err := svc.RegisterChannel(ctx, owner, registry.CanonicalKey(-1001, "news"), "News")
	require.NoError(t, err)
	require.True(t, created)

	got, err := svc.ResolveChannel(ctx, registry.CandidateKeys("https://t.me/news"))
	require.NoError(t, err)
	require.Equal(t, ch.ID, got.ID)

	_, err = svc.SubmitContent(ctx, author, domain.Content{Kind: domain.KindText, Text: "hi"})
	assert.ErrorIs(t, err, domain.ErrInvalidState, "no step pending")

	_, err = svc.BeginSubmission(ctx, author, ch.ID, false)
	require.NoError(t, err)

	_, err = svc.SubmitContent(ctx, author, domain.Content{Kind: domain.KindText, Text: " "})
	require.ErrorIs(t, err, domain.ErrValidation)
	step, err := svc.PeekStep(ctx, author)
	require.NoError(t, err)
	assert.Equal(t, conversation.AwaitingSubmissionContent{ChannelID: ch.ID}, step, "validation keeps the step")

	sub, err := svc.SubmitContent(ctx, author, domain.Content{Kind: domain.KindText, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, []int64{owner}, tr.delivered)

	step, err = svc.PeekStep(ctx, author)
	require.NoError(t, err)
	assert.Nil(t, step)

	pending, err := svc.ListPending(ctx, owner)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	*now = now.Add(time.Minute)
	left, err := svc.CooldownRemaining(ctx, author, ch.ID, *now)
	require.NoError(t, err)
	assert.Equal(t, 59*time.Minute, left)

	_, err = svc.BeginReply(ctx, author, sub.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.BeginReply(ctx, owner, sub.ID)
	require.NoError(t, err)
	id, err := svc.SubmitReply(ctx, owner, "needs a source")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, id)

	published, err := svc.Accept(ctx, owner, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, published.Status)
	assert.Equal(t, 1, tr.dispatched)

	history, err := svc.History(ctx, owner, sub.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.ActionReply, history[0].Action)
	assert.Equal(t, domain.ActionAccept, history[1].Action)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Channels)
	assert.Equal(t, 1, stats.Submissions[domain.StatusPublished])
}

func TestServiceStepsDoNotStack(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	ch, _, err := svc.RegisterChannel(ctx, 1, "@news", "")
	require.NoError(t, err)

	require.NoError(t, svc.BeginChannelLookup(ctx, 5))
	_, err = svc.BeginSubmission(ctx, 5, ch.ID, true)
	require.NoError(t, err)

	step, err := svc.ConsumeStep(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, conversation.AwaitingSubmissionContent{Anonymous: true, ChannelID: ch.ID}, step)

	step, err = svc.ConsumeStep(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, step)

	require.NoError(t, svc.BeginChannelConnect(ctx, 5))
	require.NoError(t, svc.CancelStep(ctx, 5))
	step, err = svc.PeekStep(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, step)
}

func TestServiceModeratorSetupIsOwnerOnly(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	ch, _, err := svc.RegisterChannel(ctx, 1, "@news", "")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.BeginModeratorSetup(ctx, 2, ch.ID), domain.ErrForbidden)
	require.NoError(t, svc.BeginModeratorSetup(ctx, 1, ch.ID))

	step, err := svc.ConsumeStepKind(ctx, 1, conversation.KindModeratorIdentity)
	require.NoError(t, err)
	assert.Equal(t, conversation.AwaitingModeratorIdentity{ChannelID: ch.ID}, step)

	granted, err := svc.GrantModerator(ctx, 1, ch.ID, 2)
	require.NoError(t, err)
	assert.True(t, granted)
	mods, err := svc.Moderators(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, int64(2), mods[0].UserID)
}

func TestServiceBanScenario(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	ch, _, err := svc.RegisterChannel(ctx, 1, "@news", "")
	require.NoError(t, err)

	_, err = svc.Ban(ctx, 1, ch.ID, 77)
	require.NoError(t, err)
	_, err = svc.BeginSubmission(ctx, 77, ch.ID, false)
	require.NoError(t, err)
	_, err = svc.SubmitContent(ctx, 77, domain.Content{Kind: domain.KindText, Text: "spam"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	pending, err := svc.ListPending(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
