package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppliedBetween(t *testing.T) {
	files := []string{"000001_init.up.sql", "000002_conversation.up.sql", "000003_actions.up.sql"}

	assert.Equal(t, []string{"000002_conversation.up.sql", "000003_actions.up.sql"}, appliedBetween(files, 1, 3))
	assert.Empty(t, appliedBetween(files, 3, 3))
	assert.Equal(t, uint64(12), fileVersion("12_x.up.sql"))
	assert.Zero(t, fileVersion("garbage"))
}

func TestConfigNormalize(t *testing.T) {
	cfg := Config{Host: "db", Name: "teleform", User: "bot", Password: "s3cret"}
	require.NoError(t, cfg.Normalize())

	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, 10, cfg.MaxConnections)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
	assert.Equal(t, "user=bot password=s3cret host=db port=5432 dbname=teleform sslmode=disable", cfg.KeywordDSN())

	assert.Error(t, (&Config{Name: "x"}).Normalize())
	assert.Error(t, (&Config{Host: "x"}).Normalize())
}
