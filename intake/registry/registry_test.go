package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/teleform/intake/domain"
	"github.com/m3rciful/teleform/intake/store/memory"
)

const (
	owner    int64 = 100
	outsider int64 = 300
)

func newRegistry() (*Registry, *memory.Store) {
	st := memory.New()
	return New(st, st), st
}

func TestRegisterIsIdempotent(t *testing.T) {
	r, _ := newRegistry()
	ctx := context.Background()

	first, created, err := r.Register(ctx, owner, "@news", "News")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := r.Register(ctx, owner, "@news", "Renamed")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "News", again.Title)
}

func TestRegisterConcurrentDuplicatesNeverFail(t *testing.T) {
	r, _ := newRegistry()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]int64, 10)
	createdCount := 0
	var mu sync.Mutex
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, created, err := r.Register(ctx, owner, "@news", "News")
			assert.NoError(t, err)
			ids[i] = ch.ID
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, createdCount)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestRegisterRejectsEmptyKey(t *testing.T) {
	r, _ := newRegistry()
	_, _, err := r.Register(context.Background(), owner, "  ", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestResolveFirstMatchWins(t *testing.T) {
	r, _ := newRegistry()
	ctx := context.Background()
	news, _, err := r.Register(ctx, owner, "@news", "")
	require.NoError(t, err)
	_, _, err = r.Register(ctx, owner, "-1001234", "")
	require.NoError(t, err)

	got, err := r.Resolve(ctx, CandidateKeys("https://t.me/news"))
	require.NoError(t, err)
	assert.Equal(t, news.ID, got.ID)

	got, err = r.Resolve(ctx, ChatKeys(-1001234, ""))
	require.NoError(t, err)
	assert.Equal(t, "-1001234", got.Key)

	_, err = r.Resolve(ctx, CandidateKeys("@missing"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveIsOwnerOnlyAndCascades(t *testing.T) {
	r, st := newRegistry()
	ctx := context.Background()
	ch, _, err := r.Register(ctx, owner, "@news", "")
	require.NoError(t, err)
	_, err = r.Grant(ctx, owner, ch.ID, 200)
	require.NoError(t, err)

	assert.ErrorIs(t, r.Remove(ctx, outsider, ch.ID), domain.ErrForbidden)
	require.NoError(t, r.Remove(ctx, owner, ch.ID))
	assert.ErrorIs(t, r.Remove(ctx, owner, ch.ID), domain.ErrNotFound)

	has, err := st.HasGrant(ctx, ch.ID, 200)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestGrantRevokeAndAuthorization(t *testing.T) {
	r, _ := newRegistry()
	ctx := context.Background()
	ch, _, err := r.Register(ctx, owner, "@news", "")
	require.NoError(t, err)

	_, err = r.Grant(ctx, outsider, ch.ID, outsider)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	granted, err := r.Grant(ctx, owner, ch.ID, 200)
	require.NoError(t, err)
	assert.True(t, granted)
	granted, err = r.Grant(ctx, owner, ch.ID, 200)
	require.NoError(t, err)
	assert.False(t, granted)

	for _, tc := range []struct {
		actor int64
		want  bool
	}{{owner, true}, {200, true}, {outsider, false}} {
		ok, err := r.IsAuthorized(ctx, tc.actor, ch.ID)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ok, "actor %d", tc.actor)
	}

	_, err = r.Revoke(ctx, 200, ch.ID, 200)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	revoked, err := r.Revoke(ctx, owner, ch.ID, 200)
	require.NoError(t, err)
	assert.True(t, revoked)

	ok, err := r.IsAuthorized(ctx, 200, ch.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.IsAuthorized(ctx, owner, 999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecipientsFallBackToOwner(t *testing.T) {
	r, _ := newRegistry()
	ctx := context.Background()
	ch, _, err := r.Register(ctx, owner, "@news", "")
	require.NoError(t, err)

	got, err := r.Recipients(ctx, ch)
	require.NoError(t, err)
	assert.Equal(t, []int64{owner}, got)

	_, err = r.Grant(ctx, owner, ch.ID, 200)
	require.NoError(t, err)
	got, err = r.Recipients(ctx, ch)
	require.NoError(t, err)
	assert.Equal(t, []int64{200}, got)
}
