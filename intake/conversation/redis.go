package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript clears the hash only if it exists and, when ARGV[1] is set,
// only if its kind matches. Returning false surfaces as redis.Nil.
var consumeScript = redis.NewScript(`
local v = redis.call('HMGET', KEYS[1], 'kind', 'payload')
if not v[1] then
	return false
end
if ARGV[1] ~= '' and v[1] ~= ARGV[1] then
	return false
end
redis.call('DEL', KEYS[1])
return v
`)

// Redis stores each user's step in a hash {kind, payload}. Expiry is left to
// Redis when a TTL is configured.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Store = (*Redis)(nil)

// NewRedis uses keys "<prefix>:conv:<user_id>"; ttl <= 0 disables expiry.
func NewRedis(rdb redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "teleform"
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(userID int64) string {
	return r.prefix + ":conv:" + strconv.FormatInt(userID, 10)
}

func (r *Redis) Set(ctx context.Context, userID int64, s Step) error {
	if s == nil {
		return r.Cancel(ctx, userID)
	}
	kind, payload, err := Encode(s)
	if err != nil {
		return err
	}
	key := r.key(userID)
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, "kind", string(kind), "payload", string(payload))
		if r.ttl > 0 {
			p.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("conversation: redis set: %w", err)
	}
	return nil
}

func (r *Redis) Peek(ctx context.Context, userID int64) (Step, error) {
	vals, err := r.rdb.HMGet(ctx, r.key(userID), "kind", "payload").Result()
	if err != nil {
		return nil, fmt.Errorf("conversation: redis peek: %w", err)
	}
	return decodeReply(vals)
}

func (r *Redis) Consume(ctx context.Context, userID int64) (Step, error) {
	return r.consume(ctx, userID, "")
}

func (r *Redis) ConsumeKind(ctx context.Context, userID int64, kind Kind) (Step, error) {
	if kind == "" {
		return nil, nil
	}
	return r.consume(ctx, userID, kind)
}

func (r *Redis) consume(ctx context.Context, userID int64, kind Kind) (Step, error) {
	res, err := consumeScript.Run(ctx, r.rdb, []string{r.key(userID)}, string(kind)).Slice()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: redis consume: %w", err)
	}
	return decodeReply(res)
}

func (r *Redis) Cancel(ctx context.Context, userID int64) error {
	if err := r.rdb.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("conversation: redis cancel: %w", err)
	}
	return nil
}

// decodeReply turns a [kind, payload] reply into a Step; a missing kind is no step.
func decodeReply(vals []any) (Step, error) {
	if len(vals) < 2 {
		return nil, nil
	}
	kind, ok := vals[0].(string)
	if !ok || kind == "" {
		return nil, nil
	}
	payload, _ := vals[1].(string)
	return Decode(Kind(kind), []byte(payload))
}
