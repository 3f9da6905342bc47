package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/teleform/core/config"
	coredatabase "github.com/m3rciful/teleform/core/database"
)

func fakeDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	return sqlx.NewDb(raw, "postgres"), mock
}

func TestRunSkipsRedisWhenNotConfigured(t *testing.T) {
	db, mock := fakeDB(t)
	mock.ExpectClose()
	var steps []string

	res, err := Run(context.Background(), Options{
		Config: &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error {
			steps = append(steps, "logger")
			return nil
		},
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			steps = append(steps, "connect")
			return db, nil
		},
		Migrate: func(context.Context, *sqlx.DB, coredatabase.Config) error {
			steps = append(steps, "migrate")
			return nil
		},
		ConnectRedis: func(context.Context, coredatabase.RedisConfig) (*redis.Client, error) {
			steps = append(steps, "redis")
			return nil, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"logger", "connect", "migrate"}, steps)
	assert.Nil(t, res.Redis)
	require.NoError(t, res.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunClosesDatabaseWhenMigrationsFail(t *testing.T) {
	db, mock := fakeDB(t)
	mock.ExpectClose()

	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return nil },
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			return db, nil
		},
		Migrate: func(context.Context, *sqlx.DB, coredatabase.Config) error {
			return errors.New("dirty database version 3")
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations failed")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)
}
