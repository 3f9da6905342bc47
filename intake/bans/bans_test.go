package bans

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/teleform/intake/domain"
	"github.com/m3rciful/teleform/intake/registry"
	"github.com/m3rciful/teleform/intake/store/memory"
)

func TestBanIsOwnerOnlyAndIdempotent(t *testing.T) {
	st := memory.New()
	reg := registry.New(st, st)
	l := New(reg, st)
	ctx := context.Background()

	ch, _, err := reg.Register(ctx, 1, "@news", "")
	require.NoError(t, err)
	_, err = reg.Grant(ctx, 1, ch.ID, 2)
	require.NoError(t, err)

	_, err = l.Ban(ctx, 2, ch.ID, 9)
	assert.ErrorIs(t, err, domain.ErrForbidden, "moderators cannot ban")

	banned, err := l.Ban(ctx, 1, ch.ID, 9)
	require.NoError(t, err)
	assert.True(t, banned)
	banned, err = l.Ban(ctx, 1, ch.ID, 9)
	require.NoError(t, err)
	assert.False(t, banned)

	is, err := l.IsBanned(ctx, ch.ID, 9)
	require.NoError(t, err)
	assert.True(t, is)

	_, err = l.Unban(ctx, 2, ch.ID, 9)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	unbanned, err := l.Unban(ctx, 1, ch.ID, 9)
	require.NoError(t, err)
	assert.True(t, unbanned)

	is, err = l.IsBanned(ctx, ch.ID, 9)
	require.NoError(t, err)
	assert.False(t, is)
}

func TestBanUnknownChannel(t *testing.T) {
	st := memory.New()
	l := New(registry.New(st, st), st)
	_, err := l.Ban(context.Background(), 1, 42, 9)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// staleGuard passes the owner check for a channel the store no longer has.
type staleGuard struct{}

func (staleGuard) RequireOwner(_ context.Context, _ string, actor, channelID int64) (domain.Channel, error) {
	return domain.Channel{ID: channelID, OwnerID: actor}, nil
}

func TestBanChannelRemovedAfterOwnerCheck(t *testing.T) {
	st := memory.New()
	l := New(staleGuard{}, st)

	_, err := l.Ban(context.Background(), 1, 42, 9)
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	is, err := l.IsBanned(context.Background(), 42, 9)
	require.NoError(t, err)
	assert.False(t, is)
}
