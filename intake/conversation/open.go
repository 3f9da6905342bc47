package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/teleform/core/logger"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Backend   string
	TTL       time.Duration
	DB        *sqlx.DB
	Redis     redis.UniversalClient
	KeyPrefix string
}

// Open builds the store named by o.Backend. An empty backend means memory.
func Open(o Options) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(o.Backend))
	var (
		st  Store
		err error
	)
	switch backend {
	case "", BackendMemory:
		backend = BackendMemory
		st = NewMemory(o.TTL)
	case BackendRedis:
		if o.Redis == nil {
			err = fmt.Errorf("conversation: backend %q needs a redis client", backend)
			break
		}
		st = NewRedis(o.Redis, o.KeyPrefix, o.TTL)
	case BackendPostgres:
		if o.DB == nil {
			err = fmt.Errorf("conversation: backend %q needs a database", backend)
			break
		}
		st = NewPostgres(o.DB, o.TTL)
	default:
		err = fmt.Errorf("conversation: unknown backend %q", o.Backend)
	}
	if err != nil {
		return nil, err
	}
	logger.Info(context.Background(), logger.CompConversation, "conversation.store",
		slog.String("backend", backend),
		slog.Duration("ttl", o.TTL),
	)
	return st, nil
}
