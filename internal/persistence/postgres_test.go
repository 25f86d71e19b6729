package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/field-ticket-service/internal/config"
)

func TestOpenPostgresWithoutDSN(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	pool, err := OpenPostgres(context.Background(), config.PostgresConfig{}, zap.New(core))
	require.NoError(t, err)
	assert.Nil(t, pool)
	assert.Zero(t, logs.Len())
}

func TestOpenPostgresRejectsBadDSN(t *testing.T) {
	_, err := OpenPostgres(context.Background(), config.PostgresConfig{DSN: "postgres://%zz"}, zap.NewNop())
	assert.ErrorContains(t, err, "parse postgres dsn")
}
