package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("STORAGE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Postgres.DSN)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.True(t, cfg.Workflow.EnforceStageOrder)
	assert.Equal(t, 10, cfg.Listing.DefaultPageSize)
	assert.Equal(t, 100, cfg.Listing.MaxPageSize)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxFileSize())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WORKFLOW_ENFORCE_STAGE_ORDER", "false")
	t.Setenv("LIST_DEFAULT_PAGE_SIZE", "25")
	t.Setenv("UPLOAD_MAX_FILE_SIZE_MB", "5")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Workflow.EnforceStageOrder)
	assert.Equal(t, 25, cfg.Listing.DefaultPageSize)
	assert.Equal(t, int64(5*1024*1024), cfg.Upload.MaxFileSize())
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
}

func TestLoadRejectsInvalidStorage(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "ftp")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORAGE_DRIVER", "minio")
	t.Setenv("MINIO_ENDPOINT", "")
	_, err = Load()
	assert.Error(t, err)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "not-a-number")
	t.Setenv("CFG_TEST_BOOL", "yes-please")

	assert.Equal(t, 7, getEnvAsInt("CFG_TEST_INT", 7))
	assert.True(t, getEnvAsBool("CFG_TEST_BOOL", true))
	assert.Equal(t, "fallback", getEnv("CFG_TEST_MISSING", "fallback"))
}
