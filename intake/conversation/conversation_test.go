package conversation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedis(rdb, "test", ttl), mr
}

func backends(t *testing.T) map[string]Store {
	rs, _ := newRedisStore(t, 0)
	return map[string]Store{
		"memory": NewMemory(0),
		"redis":  rs,
	}
}

func TestStoreSetPeekConsume(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := AwaitingSubmissionContent{Anonymous: true, ChannelID: 42}

			require.NoError(t, st.Set(ctx, 1, want))

			got, err := st.Peek(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			got, err = st.Consume(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			got, err = st.Consume(ctx, 1)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestStoreSetOverwrites(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, st.Set(ctx, 1, AwaitingChannelHandle{}))
			require.NoError(t, st.Set(ctx, 1, AwaitingReplyText{SubmissionID: 9}))

			got, err := st.Consume(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, AwaitingReplyText{SubmissionID: 9}, got)

			got, err = st.Peek(ctx, 1)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestStoreConsumeKindLeavesOtherSteps(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, st.Set(ctx, 1, AwaitingModeratorIdentity{ChannelID: 3}))

			got, err := st.ConsumeKind(ctx, 1, KindReplyText)
			require.NoError(t, err)
			assert.Nil(t, got)

			got, err = st.Peek(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, AwaitingModeratorIdentity{ChannelID: 3}, got)

			got, err = st.ConsumeKind(ctx, 1, KindModeratorIdentity)
			require.NoError(t, err)
			assert.Equal(t, AwaitingModeratorIdentity{ChannelID: 3}, got)

			got, err = st.Peek(ctx, 1)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestStoreCancelAndIsolation(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, st.Set(ctx, 1, AwaitingChannelForward{}))
			require.NoError(t, st.Set(ctx, 2, AwaitingChannelHandle{}))
			require.NoError(t, st.Cancel(ctx, 1))
			require.NoError(t, st.Cancel(ctx, 1))

			got, err := st.Peek(ctx, 1)
			require.NoError(t, err)
			assert.Nil(t, got)

			got, err = st.Peek(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, AwaitingChannelHandle{}, got)
		})
	}
}

func TestStoreConcurrentConsumeIsExactlyOnce(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for round := 0; round < 20; round++ {
				require.NoError(t, st.Set(ctx, 7, AwaitingReplyText{SubmissionID: int64(round)}))

				var hits atomic.Int32
				var wg sync.WaitGroup
				for i := 0; i < 8; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						s, err := st.Consume(ctx, 7)
						if err == nil && s != nil {
							hits.Add(1)
						}
					}()
				}
				wg.Wait()
				require.EqualValues(t, 1, hits.Load(), "round %d", round)
			}
		})
	}
}

func TestMemoryTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute)
	m.Now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, 1, AwaitingChannelHandle{}))
	now = now.Add(59 * time.Second)
	got, err := m.Peek(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, got)

	now = now.Add(time.Second)
	got, err = m.Consume(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisLayoutAndTTL(t *testing.T) {
	st, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, 5, AwaitingSubmissionContent{ChannelID: 11}))
	assert.Equal(t, "awaiting_submission_content", mr.HGet("test:conv:5", "kind"))
	assert.JSONEq(t, `{"anonymous":false,"channel_id":11}`, mr.HGet("test:conv:5", "payload"))
	assert.Equal(t, time.Minute, mr.TTL("test:conv:5"))

	mr.FastForward(time.Minute)
	got, err := st.Peek(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCorruptKindIsAnError(t *testing.T) {
	st, mr := newRedisStore(t, 0)
	mr.HSet("test:conv:5", "kind", "bogus", "payload", "{}")

	_, err := st.Consume(context.Background(), 5)
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.False(t, mr.Exists("test:conv:5"))
}

func TestCodecRoundTripsEveryKind(t *testing.T) {
	steps := []Step{
		AwaitingChannelForward{},
		AwaitingChannelHandle{},
		AwaitingSubmissionContent{Anonymous: true, ChannelID: 1},
		AwaitingModeratorIdentity{ChannelID: 2},
		AwaitingReplyText{SubmissionID: 3},
	}
	for _, s := range steps {
		kind, payload, err := Encode(s)
		require.NoError(t, err)
		got, err := Decode(kind, payload)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, _, err := Encode(nil)
	assert.Error(t, err)
}

func TestOpenSelectsBackend(t *testing.T) {
	st, err := Open(Options{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, st)

	_, err = Open(Options{Backend: "redis"})
	assert.Error(t, err)

	_, err = Open(Options{Backend: "etcd"})
	assert.Error(t, err)
}
